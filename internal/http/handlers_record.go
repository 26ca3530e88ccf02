package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	// Income forms label the category "source"; it is the same field.
	s.createRecord(w, r, core.KindIncome, "source")
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	s.createRecord(w, r, core.KindExpense, "category")
}

// createRecord is the one creation path both kinds share, parameterized by
// the kind and the form field carrying the category.
func (s *Server) createRecord(w http.ResponseWriter, r *http.Request, kind core.Kind, categoryField string) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "method", r.Method, "url", r.URL.Path)
		resp.Write(w)
		return
	}

	owner := OwnerFromContext(r.Context())
	category := sanitizeInput(r.Form.Get(categoryField))
	desc := sanitizeInput(r.Form.Get("description"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		UnprocessableEntityError("Importo non valido").Write(w)
		return
	}

	occurredAt, err := ParseOccurredAt(r.Form)
	if err != nil {
		UnprocessableEntityError("Data non valida").Write(w)
		return
	}

	rec := core.Record{
		Owner:       owner,
		Kind:        kind,
		Category:    category,
		Description: desc,
		Amount:      core.Money{Cents: cents},
		OccurredAt:  occurredAt,
	}
	if err := rec.Validate(); err != nil {
		UnprocessableEntityError("Dati non validi: " + err.Error()).Write(w)
		return
	}

	ref, err := s.store.Append(r.Context(), rec)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to save record",
			"error", err,
			log.FieldOwner, owner,
			log.FieldKind, string(kind),
			log.FieldCategory, rec.Category,
			log.FieldAmountCents, rec.Amount.Cents,
			log.FieldOperation, log.OpCreate)
		InternalServerError("Errore nel salvataggio").Write(w)
		return
	}

	atomic.AddInt64(&s.metrics.recordsCreated, 1)
	s.invalidateOwner(owner)

	slog.InfoContext(r.Context(), "Record created",
		log.FieldOwner, owner,
		log.FieldKind, string(kind),
		log.FieldCategory, rec.Category,
		log.FieldAmountCents, rec.Amount.Cents,
		log.FieldSheetsRef, ref,
		log.FieldOperation, log.OpCreate)

	label := "Spesa"
	if kind == core.KindIncome {
		label = "Entrata"
	}
	msg := fmt.Sprintf("%s registrata: %s — €%s (%s)", label, rec.Description, amountStr, rec.Category)

	NewHTMXResponse().
		TriggerFormReset().
		TriggerRecordCreated(string(kind)).
		TriggerOverviewRefresh().
		TriggerSuccessNotification(msg).
		Write(w)
}

// handleListRecords renders the records list partial for the owner, kind and
// window in the query string.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	kind, err := ParseKindParam(r.URL.Query())
	if err != nil {
		BadRequestError("Tipo non valido").Write(w)
		return
	}
	window := ParseWindowParam(r.URL.Query())
	owner := OwnerFromContext(r.Context())

	records, err := s.getRecords(r.Context(), owner, kind, window)
	if err != nil {
		slog.ErrorContext(r.Context(), "List records error",
			"error", err, log.FieldOwner, owner, log.FieldKind, string(kind), log.FieldWindow, window.String())
		_, _ = w.Write([]byte(`<div class="records"><div class="row placeholder">Errore nel caricamento</div></div>`))
		return
	}

	type item struct {
		ID       string
		Date     string
		Desc     string
		Category string
		Amount   string
	}
	items := make([]item, 0, len(records))
	for _, rec := range records {
		items = append(items, item{
			ID:       rec.ID,
			Date:     formatDate(rec.OccurredAt),
			Desc:     rec.Description,
			Category: rec.Category,
			Amount:   formatEuros(rec.Amount.Cents),
		})
	}

	data := struct {
		Kind   string
		Window string
		Items  []item
	}{
		Kind:   string(kind),
		Window: window.String(),
		Items:  items,
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="records"><div class="row placeholder">` +
			fmt.Sprintf("%d movimenti", len(items)) + `</div></div>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "records.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Records template execution failed", "error", err, "template", "records.html")
		_, _ = w.Write([]byte(`<div class="records"><div class="row placeholder">Errore template</div></div>`))
	}
}

// handleOverview renders the summary partial: the window total plus one bar
// per category, scaled against the largest bucket.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	kind, err := ParseKindParam(r.URL.Query())
	if err != nil {
		BadRequestError("Tipo non valido").Write(w)
		return
	}
	window := ParseWindowParam(r.URL.Query())
	owner := OwnerFromContext(r.Context())

	summary, err := s.getSummary(r.Context(), owner, kind, window)
	if err != nil {
		slog.ErrorContext(r.Context(), "Overview error",
			"error", err, log.FieldOwner, owner, log.FieldKind, string(kind), log.FieldWindow, window.String())
		_, _ = w.Write([]byte(`<section id="overview" class="overview"><div class="placeholder">Errore nel caricamento</div></section>`))
		return
	}

	var maxCents int64
	var maxName string
	for _, b := range summary.Buckets {
		if b.Total.Cents > maxCents {
			maxCents = b.Total.Cents
			maxName = b.Category
		}
	}

	type row struct {
		Name, Amount string
		Width        int
	}
	rows := make([]row, 0, len(summary.Buckets))
	for _, b := range summary.Buckets {
		rows = append(rows, row{
			Name:   b.Category,
			Amount: formatEuros(b.Total.Cents),
			Width:  barWidth(b.Total.Cents, maxCents),
		})
	}

	data := struct {
		Kind    string
		Window  string
		Total   string
		MaxName string
		Max     string
		Rows    []row
	}{
		Kind:    string(kind),
		Window:  window.String(),
		Total:   formatEuros(summary.Total.Cents),
		MaxName: maxName,
		Max:     formatEuros(maxCents),
		Rows:    rows,
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="overview" class="overview"><div class="placeholder">Totale: ` + data.Total + `</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "overview.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Overview template execution failed", "error", err, "template", "overview.html")
		_, _ = w.Write([]byte(`<section id="overview" class="overview"><div class="placeholder">Errore template</div></section>`))
	}
}

// handleOverviewData serves the summary as JSON for charting. Percentages are
// derived here, with the zero-total case pinned to 0 so the payload never
// carries a non-finite number.
func (s *Server) handleOverviewData(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	kind, err := ParseKindParam(r.URL.Query())
	if err != nil {
		http.Error(w, "invalid kind", http.StatusBadRequest)
		return
	}
	window := ParseWindowParam(r.URL.Query())
	owner := OwnerFromContext(r.Context())

	summary, err := s.getSummary(r.Context(), owner, kind, window)
	if err != nil {
		slog.ErrorContext(r.Context(), "Overview data error",
			"error", err, log.FieldOwner, owner, log.FieldKind, string(kind), log.FieldWindow, window.String())
		http.Error(w, "failed to load overview", http.StatusInternalServerError)
		return
	}

	type bucketPayload struct {
		Category string  `json:"category"`
		Total    int64   `json:"total"`
		Percent  float64 `json:"percent"`
	}
	payload := struct {
		Total   int64           `json:"total"`
		Buckets []bucketPayload `json:"buckets"`
	}{
		Total:   summary.Total.Cents,
		Buckets: make([]bucketPayload, 0, len(summary.Buckets)),
	}
	for _, b := range summary.Buckets {
		payload.Buckets = append(payload.Buckets, bucketPayload{
			Category: b.Category,
			Total:    b.Total.Cents,
			Percent:  percentOf(b.Total.Cents, summary.Total.Cents),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// handleCategories returns the owner's known categories for one kind as
// datalist options.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	kind, err := ParseKindParam(r.URL.Query())
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<option value="">Tipo non valido</option>`))
		return
	}
	owner := OwnerFromContext(r.Context())

	categories, err := s.getCategories(r.Context(), owner, kind)
	if err != nil {
		slog.ErrorContext(r.Context(), "List categories error",
			"error", err, log.FieldOwner, owner, log.FieldKind, string(kind))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<option value="">Errore nel caricamento</option>`))
		return
	}

	w.WriteHeader(http.StatusOK)
	for _, category := range categories {
		escaped := template.HTMLEscapeString(category)
		_, _ = w.Write([]byte(fmt.Sprintf(`<option value="%s">%s</option>`, escaped, escaped)))
	}
}

// handleDeleteRecord removes one of the owner's records. The id comes from
// the path (/records/{id}) or, HTMX-style, from a JSON or form body.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	id := sanitizeInput(strings.TrimPrefix(r.URL.Path, "/records/"))
	if id == "" || strings.Contains(id, "/") {
		id = ""
		parser := NewRequestBodyParser(r)
		if err := parser.Parse(); err != nil {
			slog.ErrorContext(r.Context(), "Parse delete body error", "error", err, "method", r.Method)
			BadRequestError("Formato richiesta non valido").Write(w)
			return
		}
		id = parser.Get("id")
	}
	if id == "" {
		BadRequestError("ID movimento mancante").Write(w)
		return
	}

	owner := OwnerFromContext(r.Context())
	if err := s.store.DeleteRecord(r.Context(), owner, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Movimento non trovato").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete record",
			"error", err, log.FieldOwner, owner, log.FieldRecordID, id, log.FieldOperation, log.OpDelete)
		InternalServerError("Errore nella cancellazione").Write(w)
		return
	}

	atomic.AddInt64(&s.metrics.recordsDeleted, 1)
	s.invalidateOwner(owner)

	slog.InfoContext(r.Context(), "Record deleted",
		log.FieldOwner, owner, log.FieldRecordID, id, log.FieldOperation, log.OpDelete)

	NewHTMXResponse().
		TriggerRecordDeleted().
		TriggerOverviewRefresh().
		TriggerNotification(NotificationSuccess, "Movimento cancellato", 2000).
		Write(w)
}

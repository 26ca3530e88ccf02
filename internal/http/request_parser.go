// Package http serves the HTMX pages and the record endpoints, along with
// the request parsing and response building its handlers share.
package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"
)

// ParseWindowParam extracts the time window from query parameters. Unknown or
// missing values fall back to "all", the widest view.
func ParseWindowParam(query url.Values) core.Window {
	return core.ParseWindow(query.Get("window"))
}

// ParseKindParam extracts the record kind from query parameters, defaulting
// to expense when absent. A present but unknown value is an error so typos
// surface as 400s instead of silently listing the wrong thing.
func ParseKindParam(query url.Values) (core.Kind, error) {
	v := strings.TrimSpace(query.Get("kind"))
	if v == "" {
		return core.KindExpense, nil
	}
	return core.ParseKind(v)
}

// ParseOccurredAt extracts the record date from the form's "date" field in
// YYYY-MM-DD format. A blank field means today; a malformed value is an
// error, never a silent coercion of user input.
func ParseOccurredAt(form url.Values) (core.Date, error) {
	v := strings.TrimSpace(form.Get("date"))
	if v == "" {
		now := time.Now().UTC()
		return core.NewDate(now.Year(), int(now.Month()), now.Day()), nil
	}
	return core.ParseDate(v)
}

// RequestBodyParser reads a request body once and answers key lookups for
// both JSON and form encodings. HTMX sends forms; scripted clients tend to
// send JSON; handlers should not care which.
type RequestBodyParser struct {
	r    *http.Request
	json map[string]any
	form url.Values
	done bool
	err  error
}

// NewRequestBodyParser wraps r. Nothing is read until Parse.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	return &RequestBodyParser{r: r}
}

// Parse drains up to 64KB of the body, which is more than any legitimate
// record form needs, and decodes it. A body opening with a brace or bracket
// is decoded as JSON, anything else as a form. Repeat calls return the first
// outcome.
func (p *RequestBodyParser) Parse() error {
	if p.done {
		return p.err
	}
	p.done = true

	body, err := io.ReadAll(io.LimitReader(p.r.Body, 1<<16))
	if err != nil {
		p.err = err
		return p.err
	}
	switch {
	case len(body) == 0:
		p.form = url.Values{}
	case body[0] == '{' || body[0] == '[':
		p.err = json.Unmarshal(body, &p.json)
	default:
		p.form, p.err = url.ParseQuery(string(body))
	}
	return p.err
}

// Get returns the sanitized value for key from whichever encoding parsed.
func (p *RequestBodyParser) Get(key string) string {
	var raw string
	switch {
	case p.json != nil:
		raw = scalarString(p.json[key])
	case p.form != nil:
		raw = p.form.Get(key)
	}
	return strings.TrimSpace(sanitizeInput(raw))
}

// IsJSON reports whether the body decoded as JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.json != nil
}

// scalarString renders the JSON scalars a form field could carry. Decoding
// into any leaves numbers as float64, so that case covers every numeric id
// or amount a client might send unquoted.
func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

// RequireMethod returns a ready 405 response when r.Method is not in the
// allowed set, and nil when the request may proceed.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST guards POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET guards GET-only handlers.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet)
}

// RequireDeleteOrPOST guards the delete handlers, which accept POST because
// HTML forms cannot send DELETE.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}

// ParseFormOrFail parses the request form, answering a ready 400 on failure
// and nil when the handler may read r.Form.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Formato richiesta non valido")
	}
	return nil
}

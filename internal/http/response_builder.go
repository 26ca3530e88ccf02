// HTMX swaps are driven by HX-Trigger events as much as by response bodies.
// The builder here collects the event set and headers for a response and
// writes everything out in one place, so handlers never assemble the
// HX-Trigger JSON by hand.

package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// HTMXResponseBuilder accumulates status, body, headers and HX-Trigger
// events for a single response.
type HTMXResponseBuilder struct {
	status int
	body   []byte
	events map[string]any
	extra  map[string]string
}

// NewHTMXResponse starts a 200 response with no events.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status: http.StatusOK,
		events: map[string]any{},
		extra:  map[string]string{},
	}
}

// Status overrides the response status code.
func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// Trigger queues a named event, with data, for the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.events[name] = data
	return b
}

// TriggerRecordCreated queues record:created tagged with the kind, so the
// page refreshes only the affected list and overview.
func (b *HTMXResponseBuilder) TriggerRecordCreated(kind string) *HTMXResponseBuilder {
	return b.Trigger("record:created", map[string]string{"kind": kind})
}

// TriggerRecordDeleted queues record:deleted.
func (b *HTMXResponseBuilder) TriggerRecordDeleted() *HTMXResponseBuilder {
	return b.Trigger("record:deleted", struct{}{})
}

// TriggerFormReset queues form:reset, clearing the entry forms client-side.
func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger("form:reset", struct{}{})
}

// TriggerOverviewRefresh queues overview:refresh.
func (b *HTMXResponseBuilder) TriggerOverviewRefresh() *HTMXResponseBuilder {
	return b.Trigger("overview:refresh", struct{}{})
}

// NotificationType selects the toast style shown by the frontend.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// TriggerNotification queues a show-notification toast.
func (b *HTMXResponseBuilder) TriggerNotification(level NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger("show-notification", map[string]any{
		"type":     string(level),
		"message":  message,
		"duration": durationMs,
	})
}

// TriggerSuccessNotification queues a 3s success toast.
func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3000)
}

// TriggerErrorNotification queues a 5s error toast.
func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, 5000)
}

// Header sets an extra response header.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.extra[name] = value
	return b
}

// BodyString sets a plain body.
func (b *HTMXResponseBuilder) BodyString(content string) *HTMXResponseBuilder {
	b.body = []byte(content)
	return b
}

// BodyHTML sets an HTML body and the matching Content-Type.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.extra["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Write emits headers, the HX-Trigger header when any events were queued,
// then status and body. Headers must all be set before WriteHeader.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	h := w.Header()
	for name, value := range b.extra {
		h.Set(name, value)
	}
	if len(b.events) > 0 {
		if payload, err := json.Marshal(b.events); err == nil {
			h.Set("HX-Trigger", string(payload))
		}
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse builds an error div for the #form-result slot. The message
// is escaped here because no template renders it.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

// BadRequestError builds a 400 error response.
func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError builds a 422 error response.
func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError builds a 500 error response.
func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError builds a 404 error response.
func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// MethodNotAllowedError builds a 405 with the Allow header set.
func MethodNotAllowedError(allowedMethods string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(http.StatusMethodNotAllowed).
		Header("Allow", allowedMethods)
}

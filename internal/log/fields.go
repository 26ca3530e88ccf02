package log

// Field names shared across the app so log lines stay greppable.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldOwner       = "owner"
	FieldKind        = "kind"
	FieldWindow      = "window"
	FieldRecordID    = "record_id"
	FieldCategory    = "category"
	FieldAmountCents = "amount_cents"
	FieldSheetsRef   = "sheets_ref"
)

// Component names for the root loggers of each binary and the HTTP layer.
const (
	ComponentApp    = "app"
	ComponentHTTP   = "http"
	ComponentWorker = "worker"
)

// Operation names for lifecycle events worth filtering on.
const (
	OpCreate   = "create"
	OpDelete   = "delete"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

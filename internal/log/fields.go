package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldMonthID     = "month_id"
	FieldMonthIDs    = "month_ids"
	FieldAccountID   = "account_id"
	FieldCategoryID  = "category_id"
	FieldTxID        = "transaction_id"
	FieldStagedID    = "staged_id"
	FieldTxRef       = "tx_ref"
	FieldAmount      = "amount"
	FieldSource      = "source"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentReport   = "report"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentStaging  = "staging"
	ComponentWhatsApp = "whatsapp"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpApprove  = "approve"
	OpReject   = "reject"
	OpIngest   = "ingest"
	OpReport   = "report"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

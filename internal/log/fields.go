package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldTxID       = "tx_id"
	FieldDiaryID    = "diary_id"
	FieldMonths     = "months"
	FieldAmount     = "amount"
	FieldMoodScore  = "mood_score"
)

// Components defines standard component names
const (
	ComponentApp           = "app"
	ComponentHTTP          = "http"
	ComponentStorage       = "storage"
	ComponentAuth          = "auth"
	ComponentTransactions  = "transactions"
	ComponentDiary         = "diary"
	ComponentReports       = "reports"
	ComponentRetrospective = "retrospective"
	ComponentAI            = "ai"
	ComponentAMQP          = "amqp"
	ComponentWorker        = "worker"
	ComponentCache         = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpGenerate = "generate"
	OpStream   = "stream"
	OpRefresh  = "refresh"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

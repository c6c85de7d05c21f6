package log

// Component names used across the application.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentMail    = "mail"
	ComponentAuth    = "auth"
	ComponentReport  = "report"
)

// Common structured log field keys.
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldUserID    = "user_id"
	FieldEmail     = "email"
	FieldExpenseID = "expense_id"
	FieldMonth     = "month"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldRemote    = "remote_addr"
	FieldRequestID = "request_id"
	FieldQueue     = "queue"
	FieldExchange  = "exchange"
)

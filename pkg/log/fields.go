package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware keys)
	FieldUserID    = "user_id"
	FieldActorKind = "actor_kind"

	// Join pipeline
	FieldRoomID   = "room_id"
	FieldOrgID    = "organization_id"
	FieldThreadID = "thread_id"
	FieldPostID   = "post_id"
	FieldOutcome  = "outcome"
	FieldClientID = "client_id"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)

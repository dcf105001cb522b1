package middlewares

const (
	CtxRequestID = "request_id"

	ctxUserIDKey = "auth.userID"
	ctxEmailKey  = "auth.email"
	ctxNameKey   = "auth.name"
)

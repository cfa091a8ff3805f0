package i18n

// Error kinds. Every collaboration error unwraps to one of them.
var (
	ErrNotFound       = newCodedError("ErrorResourceNotFound", "resource not found", ErrorNotFound)
	ErrUnauthorized   = newCodedError("ErrorUnauthorized", "authentication required", ErrorUnauthorized)
	ErrForbidden      = newCodedError("ErrorForbidden", "not allowed", ErrorForbidden)
	ErrValidation     = newCodedError("ErrorValidation", "invalid request", ErrorBadRequest)
	ErrConflict       = newCodedError("ErrorConflict", "conflict", ErrorConflict)
	ErrInternalServer = newCodedError("ErrorInternalServer", "internal server error", ErrorInternalServer)
)

// Collaboration session errors
var (
	ErrorSessionNotFound    = newCodedError("ErrorSessionNotFound", "collaboration session not found", ErrorNotFound)
	ErrorSnippetNotFound    = newCodedError("ErrorSnippetNotFound", "snippet not found", ErrorNotFound)
	ErrorNotParticipant     = newCodedError("ErrorNotParticipant", "not a participant of this session", ErrorForbidden)
	ErrorSnippetPrivate     = newCodedError("ErrorSnippetPrivate", "no permission to collaborate on this snippet", ErrorForbidden)
	ErrorEndNotAllowed      = newCodedError("ErrorEndNotAllowed", "only the session creator or the snippet owner can end the session", ErrorForbidden)
	ErrorSessionFull        = newCodedError("ErrorSessionFull", "session is full", ErrorBadRequest)
	ErrorSessionExpired     = newCodedError("ErrorSessionExpired", "session has expired", ErrorGone)
	ErrorInvalidUpdateType  = newCodedError("ErrorInvalidUpdateType", "invalid update type", ErrorBadRequest)
	ErrorInvalidEdit        = newCodedError("ErrorInvalidEdit", "invalid edit operation", ErrorBadRequest)
	ErrorInvalidPosition    = newCodedError("ErrorInvalidPosition", "line and column must not be negative", ErrorBadRequest)
	ErrorEmptyMessage       = newCodedError("ErrorEmptyMessage", "chat message must not be empty", ErrorBadRequest)
	ErrorSnippetIDRequired  = newCodedError("ErrorSnippetIDRequired", "snippet_id is required", ErrorBadRequest)
	ErrorInvalidSince       = newCodedError("ErrorInvalidSince", "since must be a unix timestamp", ErrorBadRequest)
	ErrorEditConflict       = newCodedError("ErrorEditConflict", "edit overlaps a change made since the base version", ErrorConflict)
	ErrorConcurrentUpdate   = newCodedError("ErrorConcurrentUpdate", "session was modified concurrently, retry the request", ErrorConflict)
	ErrorInvalidCleanupKey  = newCodedError("ErrorInvalidCleanupKey", "invalid cleanup key", ErrorForbidden)
	ErrorMissingBearerToken = newCodedError("ErrorMissingBearerToken", "missing bearer token", ErrorUnauthorized)
	ErrorInvalidBearerToken = newCodedError("ErrorInvalidBearerToken", "invalid bearer token", ErrorUnauthorized)
)

// Success message IDs
const (
	SuccessSessionCreated = "SuccessSessionCreated"
	SuccessSessionJoined  = "SuccessSessionJoined"
	SuccessSessionLeft    = "SuccessSessionLeft"
	SuccessSessionEnded   = "SuccessSessionEnded"
	SuccessUpdateApplied  = "SuccessUpdateApplied"
	SuccessCleanupDone    = "SuccessCleanupDone"
)

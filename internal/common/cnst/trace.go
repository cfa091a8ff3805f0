package cnst

// Tracer names used across the service
const (
	TraceCollab  = "snipcollab/collab"
	TraceHandler = "snipcollab/handler"
)

// Span names
const (
	SpanSessionCreate = "collab.session.create"
	SpanSessionJoin   = "collab.session.join"
	SpanSessionLeave  = "collab.session.leave"
	SpanSessionEnd    = "collab.session.end"
	SpanApplyEdit     = "collab.edit.apply"
	SpanGetUpdates    = "collab.updates.get"
	SpanSweepExpired  = "collab.sweep"
)

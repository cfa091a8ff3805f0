package cnst

// ActionType represents the type of action recorded in the audit trail
type ActionType string

const (
	// ActionCreate represents a session create action
	ActionCreate ActionType = "collaboration_create"
	// ActionJoin represents a participant joining a session
	ActionJoin ActionType = "collaboration_join"
	// ActionLeave represents a participant leaving a session
	ActionLeave ActionType = "collaboration_leave"
	// ActionEnd represents a session being ended explicitly
	ActionEnd ActionType = "collaboration_end"
	// ActionEdit represents a text edit applied through a session
	ActionEdit ActionType = "collaboration_edit"
	// ActionExpire represents a session removed by the cleanup sweep
	ActionExpire ActionType = "collaboration_expire"
)

func (a ActionType) String() string {
	return string(a)
}

// EntityType names the kind of record an audit entry refers to
type EntityType string

const (
	EntityCollaborationSession EntityType = "collaboration_session"
	EntitySnippet              EntityType = "snippet"
)

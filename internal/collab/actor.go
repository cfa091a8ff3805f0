package collab

import (
	"context"
)

// Actor is the authenticated caller of a manager operation
type Actor struct {
	UserID    uint
	RequestID string
}

type actorKey struct{}

// WithActor returns a context carrying actor
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom extracts the actor set by WithActor
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

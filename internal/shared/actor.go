package shared

import "context"

// Actor identifies the operator performing an inventory action. Authentication
// is handled upstream (gateway); the application only needs identity and the
// admin flag for revocation permission checks.
type Actor struct {
	ID      int64
	Name    string
	IsAdmin bool
}

type actorKey struct{}

// ContextWithActor attaches the actor to the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored in the context, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

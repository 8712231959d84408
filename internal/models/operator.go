package models

import (
	"context"
	"time"
)

// Operator is a console account allowed to edit baselines.
type Operator struct {
	ID           int        `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
}

// Actor is whoever issued a write. The zero Actor is the console itself
// (scheduled runs, server push).
type Actor struct {
	OperatorID int    `json:"operator_id"`
	Username   string `json:"username"`
}

// System reports whether no operator is attached.
func (a Actor) System() bool { return a.OperatorID == 0 }

type actorKey struct{}

// WithActor returns ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor attached to ctx, or the zero Actor.
func ActorFrom(ctx context.Context) Actor {
	if ctx == nil {
		return Actor{}
	}
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}

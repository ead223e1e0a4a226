// Package actor identifies the operator performing actions. Every movement
// and quality event records the actor it was performed by, taken from the
// request context rather than any process-wide state.
package actor

import (
	"context"
	"fmt"
)

// Known operator roles.
const (
	RoleOperator = "operator"
	RoleQA       = "qa"
	RoleAdmin    = "admin"
)

// Actor represents the operator (or system process) performing an action.
type Actor struct {
	// ID is the unique identifier of the actor
	ID string `json:"id"`

	// Name is the actor's display name
	Name string `json:"name"`

	// Role is the actor's role (operator, qa, admin)
	Role string `json:"role"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.ID)
}

// CanReleaseQC reports whether the actor may record a QC_RELEASED transition.
func (a *Actor) CanReleaseQC() bool {
	if a == nil {
		return false
	}
	return a.Role == RoleQA || a.Role == RoleAdmin
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// SystemActor returns an Actor representing the system itself.
// Use this for background jobs and system-initiated operations.
func SystemActor() *Actor {
	return &Actor{
		ID:   "00000000-0000-0000-0000-000000000000",
		Name: "System",
		Role: RoleAdmin,
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == "00000000-0000-0000-0000-000000000000"
}

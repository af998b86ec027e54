// Package registry stores the mapping from bot names to their network
// locations. Handlers depend on the Registry interface so tests run
// against the in-memory implementation while production uses Postgres.
package registry

import (
	"context"
	"errors"

	"github.com/botgrid/gateway/pkg/models"
)

// Registry is the bot record store. Records are created by the
// administrative registration operation and read by every proxied
// operation that targets a named bot; they are never updated or deleted
// through the gateway.
type Registry interface {
	// Resolve returns the single record registered under name. A miss
	// returns *NotFoundError; a query failure returns a wrapped storage
	// error.
	Resolve(ctx context.Context, name string) (*models.Bot, error)

	// List returns all registered bots.
	List(ctx context.Context) ([]models.Bot, error)

	// Register inserts a new bot record.
	Register(ctx context.Context, bot *models.Bot) error

	// Ping checks whether the underlying store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// NotFoundError is returned by Resolve when no bot is registered under
// the requested name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "Bot not found."
}

// IsNotFound reports whether err is a registry miss.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

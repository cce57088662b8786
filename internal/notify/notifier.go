// Package notify announces registered artifacts to downstream systems.
package notify

import (
	"context"
	"errors"

	"github.com/mithun789/campus-Me/internal/models"
)

// Notifier publishes one event per registered artifact.
type Notifier interface {
	Notify(ctx context.Context, ev models.ArtifactEvent) error
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev models.ArtifactEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

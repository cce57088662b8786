// Package ledger persists a status record for every generation request.
package ledger

import (
	"context"

	"github.com/mithun789/campus-Me/internal/models"
)

// Ledger upserts generation records keyed by request id.
type Ledger interface {
	Record(ctx context.Context, rec models.GenerationRecord) error
	Close() error
}

// Nop discards records.
type Nop struct{}

func (Nop) Record(context.Context, models.GenerationRecord) error { return nil }
func (Nop) Close() error                                          { return nil }

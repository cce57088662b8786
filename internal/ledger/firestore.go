package ledger

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/mithun789/campus-Me/internal/models"
)

// Firestore writes one document per request into a collection.
type Firestore struct {
	client     *firestore.Client
	collection string
}

// NewFirestore wraps an existing client.
func NewFirestore(client *firestore.Client, collection string) *Firestore {
	if collection == "" {
		collection = "generations"
	}
	return &Firestore{client: client, collection: collection}
}

func (f *Firestore) Record(ctx context.Context, rec models.GenerationRecord) error {
	if rec.RequestID == "" {
		return fmt.Errorf("generation record requires a request id")
	}
	if _, err := f.client.Collection(f.collection).Doc(rec.RequestID).Set(ctx, rec); err != nil {
		return fmt.Errorf("failed to write generation record %s: %w", rec.RequestID, err)
	}
	return nil
}

// Get reads a record back.
func (f *Firestore) Get(ctx context.Context, requestID string) (models.GenerationRecord, error) {
	snap, err := f.client.Collection(f.collection).Doc(requestID).Get(ctx)
	if err != nil {
		return models.GenerationRecord{}, fmt.Errorf("failed to read generation record %s: %w", requestID, err)
	}
	var rec models.GenerationRecord
	if err := snap.DataTo(&rec); err != nil {
		return models.GenerationRecord{}, fmt.Errorf("failed to decode generation record %s: %w", requestID, err)
	}
	return rec, nil
}

func (f *Firestore) Close() error { return f.client.Close() }

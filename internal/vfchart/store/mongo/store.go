package mongo

import (
	"context"
	"errors"

	"github.com/vegafusion/vegafusion-go/internal/vfchart"
)

// Store implements a chart-state persistence layer by delegating to the
// Mongo client, the same thin-delegation shape the teacher's session
// store uses over its own Mongo client.
type Store struct {
	client Client
}

// NewStore builds a Store using the provided client.
func NewStore(client Client) (*Store, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	return &Store{client: client}, nil
}

// Save persists cs's current root-value state under chartID.
func (s *Store) Save(ctx context.Context, chartID string, cs *vfchart.ChartState) error {
	return s.client.SaveState(ctx, chartID, cs.ExportState())
}

// Restore loads the state persisted under chartID and applies it to cs.
func (s *Store) Restore(ctx context.Context, chartID string, cs *vfchart.ChartState) error {
	state, err := s.client.LoadState(ctx, chartID)
	if err != nil {
		return err
	}
	return cs.RestoreState(ctx, state)
}

// Delete removes any state persisted under chartID.
func (s *Store) Delete(ctx context.Context, chartID string) error {
	return s.client.DeleteState(ctx, chartID)
}

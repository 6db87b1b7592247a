package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/pxengine/internal/model"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedEvent creates an event with the given features and returns its id.
func seedEvent(t *testing.T, s *Store, features ...string) int64 {
	t.Helper()
	id, err := s.CreateEvent(context.Background(), model.Event{
		Slug:     "test-event",
		Name:     "Test Event",
		Features: features,
	})
	require.NoError(t, err)
	return id
}

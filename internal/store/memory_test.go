package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devonelson50/Monarch/internal/severity"
)

func TestMemoryStoreOpenIncident(t *testing.T) {
	ctx := context.Background()

	t.Run("should find nothing before opening", func(t *testing.T) {
		s := NewMemoryStore()

		incident, err := s.FindOpenIncident(ctx, "app-1")
		require.NoError(t, err)
		assert.Nil(t, incident)
	})

	t.Run("should open and find a single incident", func(t *testing.T) {
		s := NewMemoryStore()

		opened, err := s.OpenIncident(ctx, "app-1", severity.Down, "EC2-WEB-01 - Down", time.Now())
		require.NoError(t, err)
		require.NotNil(t, opened)

		found, err := s.FindOpenIncident(ctx, "app-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, opened.ID, found.ID)
		assert.Equal(t, "Down", found.Severity)
	})

	t.Run("should return the existing row to a second opener", func(t *testing.T) {
		s := NewMemoryStore()

		first, err := s.OpenIncident(ctx, "app-1", severity.Degraded, "t", time.Now())
		require.NoError(t, err)

		second, err := s.OpenIncident(ctx, "app-1", severity.Down, "t", time.Now())
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, s.OpenIncidentCount("app-1"))
	})

	t.Run("should keep apps independent", func(t *testing.T) {
		s := NewMemoryStore()

		a, err := s.OpenIncident(ctx, "app-1", severity.Down, "t", time.Now())
		require.NoError(t, err)
		b, err := s.OpenIncident(ctx, "app-2", severity.Down, "t", time.Now())
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestMemoryStoreCloseIncident(t *testing.T) {
	ctx := context.Background()

	t.Run("should close an open incident", func(t *testing.T) {
		s := NewMemoryStore()

		opened, err := s.OpenIncident(ctx, "app-1", severity.Down, "t", time.Now())
		require.NoError(t, err)

		require.NoError(t, s.CloseIncident(ctx, opened.ID, time.Now()))

		found, err := s.FindOpenIncident(ctx, "app-1")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("should be idempotent", func(t *testing.T) {
		s := NewMemoryStore()

		opened, err := s.OpenIncident(ctx, "app-1", severity.Down, "t", time.Now())
		require.NoError(t, err)

		first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, s.CloseIncident(ctx, opened.ID, first))
		require.NoError(t, s.CloseIncident(ctx, opened.ID, first.Add(time.Hour)))

		closed := s.Incident(opened.ID)
		require.NotNil(t, closed.ClosedAt)
		assert.Equal(t, first, *closed.ClosedAt)
	})

	t.Run("should allow a fresh incident after a close", func(t *testing.T) {
		s := NewMemoryStore()

		opened, err := s.OpenIncident(ctx, "app-1", severity.Down, "t", time.Now())
		require.NoError(t, err)
		require.NoError(t, s.CloseIncident(ctx, opened.ID, time.Now()))

		reopened, err := s.OpenIncident(ctx, "app-1", severity.Degraded, "t", time.Now())
		require.NoError(t, err)
		assert.NotEqual(t, opened.ID, reopened.ID)
		assert.Equal(t, 1, s.OpenIncidentCount("app-1"))
	})
}

func TestMemoryStoreTicketReference(t *testing.T) {
	ctx := context.Background()

	t.Run("should store and return a reference", func(t *testing.T) {
		s := NewMemoryStore()

		opened, err := s.OpenIncident(ctx, "app-1", severity.Down, "t", time.Now())
		require.NoError(t, err)

		ref, err := s.GetTicketReference(ctx, opened.ID)
		require.NoError(t, err)
		assert.Nil(t, ref)

		require.NoError(t, s.SetTicketReference(ctx, opened.ID, "MON-42", "summary", "description", time.Now()))

		ref, err = s.GetTicketReference(ctx, opened.ID)
		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.Equal(t, "MON-42", ref.TicketKey)
	})

	t.Run("should conflict on a second reference and keep the first", func(t *testing.T) {
		s := NewMemoryStore()

		opened, err := s.OpenIncident(ctx, "app-1", severity.Down, "t", time.Now())
		require.NoError(t, err)

		require.NoError(t, s.SetTicketReference(ctx, opened.ID, "MON-42", "s", "d", time.Now()))

		err = s.SetTicketReference(ctx, opened.ID, "MON-99", "s", "d", time.Now())
		assert.ErrorIs(t, err, ErrConflict)

		ref, err := s.GetTicketReference(ctx, opened.ID)
		require.NoError(t, err)
		assert.Equal(t, "MON-42", ref.TicketKey)
	})
}

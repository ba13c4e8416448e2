package store

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devonelson50/Monarch/internal/models"
)

func TestNewestOpen(t *testing.T) {
	t.Run("should return nil for no open rows", func(t *testing.T) {
		assert.Nil(t, newestOpen("app-1", nil))
	})

	t.Run("should return the single open row", func(t *testing.T) {
		rows := []models.Incident{{AppID: "app-1", Severity: "Down"}}
		rows[0].ID = 7

		picked := newestOpen("app-1", rows)
		require.NotNil(t, picked)
		assert.Equal(t, uint(7), picked.ID)
	})

	t.Run("should log and pick the newest when the constraint is breached", func(t *testing.T) {
		var buf bytes.Buffer
		orig := log.Writer()
		log.SetOutput(&buf)
		defer log.SetOutput(orig)

		// Rows arrive ordered newest-first by opened_at.
		rows := []models.Incident{
			{AppID: "app-1", Severity: "Down"},
			{AppID: "app-1", Severity: "Degraded"},
		}
		rows[0].ID = 9
		rows[1].ID = 3

		picked := newestOpen("app-1", rows)
		require.NotNil(t, picked)
		assert.Equal(t, uint(9), picked.ID)
		assert.Contains(t, buf.String(), "INVARIANT")
		assert.Contains(t, buf.String(), "app-1")
	})
}

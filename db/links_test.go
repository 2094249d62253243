package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpnda/cardless-sync/pkg/models"
)

func TestAccountLinks(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	created := time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Empty store", func(t *testing.T) {
		links, err := db.LoadLinks("")
		require.NoError(t, err)
		assert.Empty(t, links)
	})

	t.Run("Save and load", func(t *testing.T) {
		require.NoError(t, db.SaveLink(models.AccountLink{LunchMoneyId: 1, GocardlessId: "gc-a", CreatedAt: created}))
		require.NoError(t, db.SaveLink(models.AccountLink{LunchMoneyId: 2, GocardlessId: "gc-b", CreatedAt: created.Add(time.Hour)}))

		links, err := db.LoadLinks("")
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, int64(1), links[0].LunchMoneyId)
		assert.Equal(t, "gc-a", links[0].GocardlessId)
		assert.True(t, created.Equal(links[0].CreatedAt))
		assert.Nil(t, links[0].LastSync)

		links, err = db.LoadLinks("gc-b")
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, int64(2), links[0].LunchMoneyId)
	})

	t.Run("Relinking removes links touching either id", func(t *testing.T) {
		require.NoError(t, db.SaveLink(models.AccountLink{LunchMoneyId: 1, GocardlessId: "gc-b"}))

		links, err := db.LoadLinks("")
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, int64(1), links[0].LunchMoneyId)
		assert.Equal(t, "gc-b", links[0].GocardlessId)
		assert.False(t, links[0].CreatedAt.IsZero())
	})

	t.Run("Last sync comes from status", func(t *testing.T) {
		synced := created.Add(48 * time.Hour)
		_, err := db.UpdateSyncStatus("gc-b", func(s *models.AccountStatus) error {
			s.LastSync = &synced
			s.LastSyncStatus = models.SyncStatusSuccess
			return nil
		})
		require.NoError(t, err)

		links, err := db.LoadLinks("gc-b")
		require.NoError(t, err)
		require.Len(t, links, 1)
		require.NotNil(t, links[0].LastSync)
		assert.True(t, synced.Equal(*links[0].LastSync))
	})

	t.Run("Remove", func(t *testing.T) {
		// Unknown pair is a no-op
		require.NoError(t, db.RemoveLink(99, "gc-b"))
		links, err := db.LoadLinks("")
		require.NoError(t, err)
		assert.Len(t, links, 1)

		require.NoError(t, db.RemoveLink(1, "gc-b"))
		links, err = db.LoadLinks("")
		require.NoError(t, err)
		assert.Empty(t, links)
	})
}

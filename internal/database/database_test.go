package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipehub/config"
)

type note struct {
	ID   uint `gorm:"primaryKey"`
	Text string
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	cfg := config.Default()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "state.db")

	db, err := Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	require.NoError(t, HealthCheck(context.Background(), db))

	step := Step{Name: "0001_notes", Models: []any{&note{}}}
	require.NoError(t, RunMigrations(db, nil, step))
	// second run is a no-op
	require.NoError(t, RunMigrations(db, nil, step))

	var applied int64
	require.NoError(t, db.Model(&Migration{}).Count(&applied).Error)
	assert.Equal(t, int64(1), applied)

	require.NoError(t, db.Create(&note{Text: "hello"}).Error)
}

func TestOpenRejectsNonSQLBackend(t *testing.T) {
	cfg := config.Default()
	cfg.SessionBackend = config.SessionRedis
	_, err := Open(cfg, nil)
	assert.Error(t, err)
}

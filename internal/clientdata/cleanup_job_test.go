package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestCleanupJobName(t *testing.T) {
	job := NewCleanupJob(nil, zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
}

func TestCleanupJobRemovesExpiredEntries(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	blob, err := msgpack.Marshal(map[string]string{})
	require.NoError(t, err)

	expiredAt := time.Now().Add(-time.Hour).Unix()
	freshAt := time.Now().Add(time.Hour).Unix()

	_, err = db.Exec("INSERT INTO upstream_match_detail (key, data, expires_at) VALUES (?, ?, ?)", "EUW1_1", blob, expiredAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO upstream_match_detail (key, data, expires_at) VALUES (?, ?, ?)", "EUW1_2", blob, freshAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO analytics_snapshot (key, data, expires_at) VALUES (?, ?, ?)", "analytics:p1:30", blob, expiredAt)
	require.NoError(t, err)

	require.NoError(t, job.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM upstream_match_detail").Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM analytics_snapshot").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestCleanupJobRunOnEmptyTables(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.NoError(t, job.Run())
}

package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/postgres"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	db, err := postgres.New(config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "anagrams",
		User:     "anagrams",
		Password: "localdev",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewStore(db)
	ctx := context.Background()
	require.NoError(t, s.EnsureSchema(ctx))
	_, err = db.DB.ExecContext(ctx, `TRUNCATE analytics_snapshots`)
	require.NoError(t, err)
	return s
}

type fixedStats analytics.AggregatedStats

func (f fixedStats) Stats() analytics.AggregatedStats { return analytics.AggregatedStats(f) }

func TestSnapshotRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	latest, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, s.SaveSnapshot(ctx, analytics.AggregatedStats{TotalQueries: 1}))
	require.NoError(t, s.SaveSnapshot(ctx, analytics.AggregatedStats{
		TotalQueries: 2,
		TopQueries:   []analytics.QueryCount{{Query: "yes man", Count: 2}},
	}))

	latest, err = s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(2), latest.TotalQueries)
	assert.Equal(t, "yes man", latest.TopQueries[0].Query)

	all, err := s.ListSnapshots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[1].TotalQueries)
}

func TestRunPeriodicSaveWritesFinalSnapshot(t *testing.T) {
	s := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunPeriodicSave(ctx, fixedStats{TotalQueries: 7}, time.Hour)
	}()
	cancel()
	<-done

	latest, err := s.LatestSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(7), latest.TotalQueries)
}

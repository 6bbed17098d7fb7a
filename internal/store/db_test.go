package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/eve-battles/internal/analysis"
	"github.com/guarzo/eve-battles/internal/battle"
	"github.com/guarzo/eve-battles/internal/killmail"
	"github.com/guarzo/eve-battles/internal/shiptype"
)

var _ analysis.EventSource = (*DB)(nil)

var t0 = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "battles.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func payload(id, system int64, at time.Duration, victim, attacker int64) killmail.RawEvent {
	return killmail.RawEvent(fmt.Sprintf(`{
		"killmail_id": %d,
		"killmail_time": %q,
		"solar_system_id": %d,
		"victim": {"character_id": %d, "corporation_id": 98000002, "alliance_id": 99000002, "ship_type_id": 587},
		"attackers": [{"character_id": %d, "corporation_id": 98000001, "alliance_id": 99000001, "ship_type_id": 587, "final_blow": true}],
		"zkb": {"totalValue": 1000000}
	}`, id, t0.Add(at).Format(time.RFC3339), system, victim, attacker))
}

func ids(t *testing.T, raws []killmail.RawEvent) []int64 {
	t.Helper()
	out := make([]int64, len(raws))
	for i, raw := range raws {
		h, err := killmail.ParseHeader(raw)
		require.NoError(t, err)
		out[i] = h.KillmailID
	}
	return out
}

func TestNewAppliesPragmas(t *testing.T) {
	db := openTestDB(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{pragma: "journal_mode", want: "wal"},
		{pragma: "synchronous", want: "1"},
		{pragma: "busy_timeout", want: "5000"},
	}
	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			var got string
			require.NoError(t, db.Raw("PRAGMA "+tt.pragma).Scan(&got).Error)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFailsOnUnusablePath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "dir", "battles.sqlite"))
	assert.Error(t, err)
}

func TestSaveAndFetch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Save(ctx, payload(3, 30000142, 2*time.Minute, 10, 1)))
	require.NoError(t, db.Save(ctx, payload(1, 30000142, 0, 11, 1)))
	require.NoError(t, db.Save(ctx, payload(2, 30002187, time.Minute, 12, 2)))
	require.NoError(t, db.Save(ctx, payload(4, 30000142, 3*time.Hour, 13, 2)))

	// duplicates are ignored
	require.NoError(t, db.Save(ctx, payload(1, 30000142, 0, 11, 1)))
	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	err = db.Save(ctx, killmail.RawEvent(`{"killmail_time": "2024-05-01T18:00:00Z"}`))
	assert.Error(t, err)

	tests := []struct {
		name    string
		window  killmail.TimeRange
		filters analysis.Filters
		want    []int64
	}{
		{
			name:   "window is inclusive and ordered",
			window: killmail.TimeRange{Start: t0, End: t0.Add(2 * time.Minute)},
			want:   []int64{1, 2, 3},
		},
		{
			name:    "system filter",
			window:  killmail.TimeRange{Start: t0, End: t0.Add(4 * time.Hour)},
			filters: analysis.Filters{SystemIDs: []int64{30000142}},
			want:    []int64{1, 3, 4},
		},
		{
			name:   "empty window",
			window: killmail.TimeRange{Start: t0.Add(time.Hour), End: t0.Add(2 * time.Hour)},
			want:   []int64{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raws, err := db.FetchEvents(ctx, tt.window, tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(t, raws))
		})
	}
}

func TestSaveBatchAndPrune(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	raws := []killmail.RawEvent{
		payload(1, 30000142, 0, 10, 1),
		payload(2, 30000142, time.Minute, 11, 1),
		killmail.RawEvent(`not json`),
		payload(3, 30000142, 48*time.Hour, 12, 1),
		payload(1, 30000142, 0, 10, 1),
	}
	rejected, err := db.SaveBatch(ctx, raws)
	require.NoError(t, err)
	assert.Equal(t, 1, rejected)

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	removed, err := db.Prune(ctx, t0.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	n, err = db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStoreBackedService(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.SaveBatch(ctx, []killmail.RawEvent{
		payload(1, 30000142, 0, 10, 1),
		payload(2, 30000142, time.Minute, 11, 2),
		payload(3, 30000142, 2*time.Minute, 1, 10),
	})
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	svc := analysis.NewService(db, shiptype.NewStatic(), analysis.Config{CacheTTL: time.Minute}, logger)

	b, err := svc.GetBattleWithTimeline(ctx, battle.BattleID(30000142, t0))
	require.NoError(t, err)
	assert.Len(t, b.Events, 3)
	assert.Len(t, b.Sides, 2)
	assert.Equal(t, 3, b.Metrics.TotalKills)
}

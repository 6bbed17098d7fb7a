package battle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/eve-battles/internal/killmail"
)

type wantPhase struct {
	typ       PhaseType
	from, to  time.Duration
	kills     int
	intensity Intensity
}

func assertPhases(t *testing.T, want []wantPhase, got []Phase) {
	t.Helper()
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w.typ, got[i].Type, "phase %d", i)
		assert.Equal(t, t0.Add(w.from), got[i].StartTime, "phase %d start", i)
		assert.Equal(t, t0.Add(w.to), got[i].EndTime, "phase %d end", i)
		assert.Equal(t, w.kills, got[i].KillCount, "phase %d kills", i)
		assert.Equal(t, w.intensity, got[i].Intensity, "phase %d intensity", i)
	}
}

func assertCoverage(t *testing.T, b Battle) {
	t.Helper()
	require.NotEmpty(t, b.Phases)
	assert.Equal(t, b.StartTime, b.Phases[0].StartTime)
	assert.Equal(t, b.EndTime, b.Phases[len(b.Phases)-1].EndTime)
	kills := 0
	for i, p := range b.Phases {
		assert.False(t, p.EndTime.Before(p.StartTime), "phase %d is inverted", i)
		if i > 0 {
			assert.Equal(t, b.Phases[i-1].EndTime, p.StartTime, "gap before phase %d", i)
			assert.NotEqual(t, b.Phases[i-1].Type, p.Type, "phase %d not coalesced", i)
		}
		kills += p.KillCount
	}
	assert.Equal(t, len(b.Events), kills)
}

func TestReconstructSmallGang(t *testing.T) {
	b, err := NewTimelineReconstructor(DefaultTimelineConfig()).Reconstruct(detectOne(fiveKillFight()))
	require.NoError(t, err)

	assertPhases(t, []wantPhase{
		{PhaseGank, 0, 2 * time.Minute, 2, IntensityModerate},
		{PhaseSkirmish, 2 * time.Minute, 4 * time.Minute, 2, IntensityModerate},
		{PhaseGank, 4 * time.Minute, 5 * time.Minute, 1, IntensityModerate},
	}, b.Phases)
	assertCoverage(t, b)
}

func TestReconstructFleetFight(t *testing.T) {
	b, err := NewTimelineReconstructor(DefaultTimelineConfig()).Reconstruct(detectOne(fleetFight()))
	require.NoError(t, err)

	assertPhases(t, []wantPhase{
		{PhaseOpeningEngagement, 0, 2 * time.Minute, 1, IntensityModerate},
		{PhaseStandoff, 2 * time.Minute, 4 * time.Minute, 0, IntensityLow},
		{PhaseEscalation, 4 * time.Minute, 8 * time.Minute, 6, IntensityModerate},
		{PhasePeakCombat, 8 * time.Minute, 10 * time.Minute, 8, IntensityHigh},
		{PhaseDeescalation, 10 * time.Minute, 14 * time.Minute, 6, IntensityModerate},
		{PhaseCleanup, 14 * time.Minute, 16 * time.Minute, 1, IntensityModerate},
	}, b.Phases)
	assertCoverage(t, b)
}

func TestReconstructEdgeCases(t *testing.T) {
	r := NewTimelineReconstructor(DefaultTimelineConfig())

	t.Run("no events", func(t *testing.T) {
		b, err := r.Reconstruct(Battle{ID: "empty", StartTime: t0, EndTime: t0})
		var insufficient *InsufficientDataError
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, StageTimeline, insufficient.Stage)
		assert.Empty(t, b.Phases)
	})

	t.Run("single kill", func(t *testing.T) {
		events := []killmail.Event{kill(1, 0, 1e6, pilot(10, allianceB, rifter), pilot(1, allianceA, rifter))}
		b, err := r.Reconstruct(detectOne(events))
		require.NoError(t, err)
		assertPhases(t, []wantPhase{{PhaseSmallEngagement, 0, 0, 1, IntensityModerate}}, b.Phases)
	})

	t.Run("input is not modified", func(t *testing.T) {
		in := detectOne(fiveKillFight())
		_, err := r.Reconstruct(in)
		require.NoError(t, err)
		assert.Nil(t, in.Phases)
	})

	t.Run("fight ending on a bucket edge", func(t *testing.T) {
		events := fiveKillFight()
		events[4].Timestamp = t0.Add(4 * time.Minute)
		b, err := r.Reconstruct(detectOne(events))
		require.NoError(t, err)
		assertCoverage(t, b)
	})
}

func TestReconstructBadBounds(t *testing.T) {
	r := NewTimelineReconstructor(DefaultTimelineConfig())

	t.Run("end before start", func(t *testing.T) {
		for name, end := range map[string]time.Time{
			"zero end":        {},
			"end a day early": t0.Add(-24 * time.Hour),
		} {
			b := detectOne(fiveKillFight())
			b.EndTime = end
			var got Battle
			var err error
			require.NotPanics(t, func() { got, err = r.Reconstruct(b) }, name)
			var insufficient *InsufficientDataError
			require.True(t, errors.As(err, &insufficient), name)
			assert.Empty(t, got.Phases, name)
		}
	})

	t.Run("far future end is clamped to the last kill", func(t *testing.T) {
		b := detectOne(fiveKillFight())
		b.EndTime = t0.Add(10 * 365 * 24 * time.Hour)
		got, err := r.Reconstruct(b)
		require.NoError(t, err)
		assert.Equal(t, t0.Add(300*time.Second), got.EndTime)
		assertCoverage(t, got)
	})

	t.Run("enricher records the failure", func(t *testing.T) {
		b := detectOne(fiveKillFight())
		b.EndTime = time.Time{}
		var got Battle
		require.NotPanics(t, func() { got = newTestEnricher().ReconstructTimeline(b) })
		assert.Contains(t, stages(got.Errors), StageTimeline)
	})
}

func TestReconstructWithoutParticipants(t *testing.T) {
	b := detectOne(fleetFight())
	b.Participants = nil

	got, err := NewTimelineReconstructor(DefaultTimelineConfig()).Reconstruct(b)
	require.NoError(t, err)
	assert.Equal(t, PhaseOpeningEngagement, got.Phases[0].Type)
	assert.Contains(t, phaseTypes(got.Phases), PhasePeakCombat)
}

func phaseTypes(phases []Phase) []PhaseType {
	out := make([]PhaseType, len(phases))
	for i, p := range phases {
		out[i] = p.Type
	}
	return out
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median([]float64{}))
	assert.Equal(t, 2.0, median([]int{3, 1, 2}))
	assert.Equal(t, 2.5, median([]int{4, 1, 3, 2}))
	assert.Equal(t, 0.5, median([]float64{0.5}))
}

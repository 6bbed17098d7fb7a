package battle

import (
	"time"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"

	"github.com/guarzo/eve-battles/internal/killmail"
)

// TimelineReconstructor segments a battle into phases.
type TimelineReconstructor struct {
	cfg TimelineConfig
}

func NewTimelineReconstructor(cfg TimelineConfig) *TimelineReconstructor {
	return &TimelineReconstructor{cfg: cfg.withDefaults()}
}

// bucket is one fixed-width slot of the timeline.
type bucket struct {
	start     time.Time
	kills     int
	attackers int
	smoothed  float64
	label     PhaseType
}

// Reconstruct returns a copy of b with Phases set. The battle's bounds are
// reset to its first and last event, and phases tile [StartTime, EndTime]
// with no gaps or overlaps; their kill counts sum to the number of events.
// A battle without events, or with EndTime before StartTime, gets no phases
// and an InsufficientDataError.
func (r *TimelineReconstructor) Reconstruct(b Battle) (Battle, error) {
	out := b.clone()
	if len(b.Events) == 0 {
		out.Phases = nil
		return out, &InsufficientDataError{Stage: StageTimeline, Reason: "battle has no events"}
	}
	if b.EndTime.Before(b.StartTime) {
		out.Phases = nil
		return out, &InsufficientDataError{Stage: StageTimeline, Reason: "battle ends before it starts"}
	}

	events := slices.Clone(b.Events)
	killmail.SortEvents(events)
	out.StartTime = events[0].Timestamp
	out.EndTime = events[len(events)-1].Timestamp

	participants := b.Participants
	if len(participants) == 0 {
		participants = ExtractParticipants(events)
	}

	buckets := r.fill(out.StartTime, out.EndTime, events)
	r.smooth(buckets)
	if countPilots(participants) < r.cfg.SmallGangPilots {
		r.labelSmallGang(buckets)
	} else {
		r.labelFleet(buckets)
	}
	out.Phases = r.coalesce(buckets, out.EndTime)
	return out, nil
}

func (r *TimelineReconstructor) fill(start, end time.Time, events []killmail.Event) []bucket {
	n := int(end.Sub(start)/r.cfg.BucketSize) + 1
	buckets := make([]bucket, n)
	for i := range buckets {
		buckets[i].start = start.Add(time.Duration(i) * r.cfg.BucketSize)
	}
	for _, ev := range events {
		i := int(ev.Timestamp.Sub(start) / r.cfg.BucketSize)
		switch {
		case i < 0:
			i = 0
		case i >= n:
			i = n - 1
		}
		buckets[i].kills++
		buckets[i].attackers += len(ev.Attackers)
	}
	return buckets
}

// smooth applies a centred three-bucket moving average.
func (r *TimelineReconstructor) smooth(buckets []bucket) {
	for i := range buckets {
		sum, n := 0, 0
		for j := i - 1; j <= i+1; j++ {
			if j >= 0 && j < len(buckets) {
				sum += buckets[j].kills
				n++
			}
		}
		buckets[i].smoothed = float64(sum) / float64(n)
	}
}

func (r *TimelineReconstructor) peaks(buckets []bucket) []bool {
	var active []float64
	for _, b := range buckets {
		if b.smoothed > 0 {
			active = append(active, b.smoothed)
		}
	}
	baseline := median(active)

	peak := make([]bool, len(buckets))
	found := false
	for i, b := range buckets {
		if b.smoothed > 0 && b.smoothed >= r.cfg.PeakMultiplier*baseline {
			peak[i] = true
			found = true
		}
	}
	if !found {
		best := 0
		for i, b := range buckets {
			if b.smoothed > buckets[best].smoothed {
				best = i
			}
		}
		peak[best] = true
	}
	return peak
}

func (r *TimelineReconstructor) labelFleet(buckets []bucket) {
	peak := r.peaks(buckets)
	first, last := -1, -1
	for i, p := range peak {
		if p {
			if first < 0 {
				first = i
			}
			last = i
		}
	}

	for i := range buckets {
		quiet := buckets[i].smoothed <= r.cfg.QuietRate
		var label PhaseType
		switch {
		case peak[i]:
			label = PhasePeakCombat
		case i == 0:
			label = PhaseOpeningEngagement
		case i < first:
			label = pick(quiet, PhaseStandoff, PhaseEscalation)
		case i > last:
			label = pick(quiet, PhaseCleanup, PhaseDeescalation)
		default:
			label = pick(quiet, PhaseRepositioning, PhaseEscalation)
		}
		buckets[i].label = label
	}
}

// labelSmallGang labels each bucket by how lopsided its kills were. Empty
// buckets carry the previous label.
func (r *TimelineReconstructor) labelSmallGang(buckets []bucket) {
	prev := PhaseSmallEngagement
	for i := range buckets {
		b := &buckets[i]
		if b.kills > 0 {
			switch {
			case float64(b.attackers)/float64(b.kills) >= r.cfg.GankRatio:
				prev = PhaseGank
			case b.kills >= 2:
				prev = PhaseSkirmish
			default:
				prev = PhaseSmallEngagement
			}
		}
		b.label = prev
	}
}

func pick(cond bool, yes, no PhaseType) PhaseType {
	if cond {
		return yes
	}
	return no
}

// coalesce merges runs of equally labelled buckets. Each phase ends where the
// next begins; the last ends at end.
func (r *TimelineReconstructor) coalesce(buckets []bucket, end time.Time) []Phase {
	var phases []Phase
	for i, b := range buckets {
		if i > 0 && b.label == phases[len(phases)-1].Type {
			phases[len(phases)-1].KillCount += b.kills
			continue
		}
		if len(phases) > 0 {
			phases[len(phases)-1].EndTime = b.start
		}
		phases = append(phases, Phase{Type: b.label, StartTime: b.start, KillCount: b.kills})
	}
	phases[len(phases)-1].EndTime = end

	for i := range phases {
		phases[i].Intensity = r.intensity(phases[i])
	}
	return phases
}

func (r *TimelineReconstructor) intensity(p Phase) Intensity {
	minutes := p.EndTime.Sub(p.StartTime).Minutes()
	if minutes < 1 {
		minutes = 1
	}
	kpm := float64(p.KillCount) / minutes
	bands := r.cfg.Intensity
	switch {
	case kpm >= bands.Extreme:
		return IntensityExtreme
	case kpm >= bands.High:
		return IntensityHigh
	case kpm >= bands.Moderate:
		return IntensityModerate
	}
	return IntensityLow
}

func median[T constraints.Integer | constraints.Float](xs []T) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return (float64(sorted[mid-1]) + float64(sorted[mid])) / 2
}

package battle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/guarzo/eve-battles/internal/killmail"
)

// Detector clusters events into battles.
type Detector struct {
	cfg    DetectorConfig
	logger logrus.FieldLogger
}

// NewDetector constructor
func NewDetector(cfg DetectorConfig, logger logrus.FieldLogger) *Detector {
	return &Detector{cfg: cfg.withDefaults(), logger: logger}
}

// Config returns the effective configuration.
func (d *Detector) Config() DetectorConfig {
	return d.cfg
}

// Detect groups events by system and applies single-linkage clustering in
// time. A zero window keeps every event. Events with a duplicate id are
// dropped, so detection over merged overlapping fetches stays stable.
func (d *Detector) Detect(events []killmail.Event, window killmail.TimeRange) []Battle {
	bySystem := make(map[int64][]killmail.Event)
	seen := make(map[int64]struct{}, len(events))
	for _, ev := range events {
		if !window.IsZero() && !window.Contains(ev.Timestamp) {
			continue
		}
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		bySystem[ev.SystemID] = append(bySystem[ev.SystemID], ev)
	}

	systems := make([]int64, 0, len(bySystem))
	for sys := range bySystem {
		systems = append(systems, sys)
	}
	slices.Sort(systems)

	var battles []Battle
	discarded := 0
	for _, sys := range systems {
		group := bySystem[sys]
		killmail.SortEvents(group)
		for _, cluster := range d.cluster(group) {
			if !d.qualifies(cluster) {
				discarded++
				continue
			}
			battles = append(battles, newBattle(sys, cluster))
		}
	}
	slices.SortFunc(battles, compareBattles)
	LinkRelated(battles, d.cfg.Lookback)

	d.logger.WithFields(logrus.Fields{
		"events":    len(seen),
		"systems":   len(systems),
		"battles":   len(battles),
		"discarded": discarded,
	}).Debug("Detected battles")
	return battles
}

// cluster splits events of one system, already in time order.
func (d *Detector) cluster(events []killmail.Event) [][]killmail.Event {
	var clusters [][]killmail.Event
	var current []killmail.Event
	for _, ev := range events {
		if len(current) > 0 && !d.continues(current, ev) {
			clusters = append(clusters, current)
			current = nil
		}
		current = append(current, ev)
	}
	if len(current) > 0 {
		clusters = append(clusters, current)
	}
	return clusters
}

// continues reports whether ev extends the cluster: either the gap to the
// previous kill is within the inactivity threshold, or a pilot on ev was
// seen in the cluster within the lookback.
func (d *Detector) continues(cluster []killmail.Event, ev killmail.Event) bool {
	gap := ev.Timestamp.Sub(cluster[len(cluster)-1].Timestamp)
	if gap <= d.cfg.InactivityThreshold {
		return true
	}
	if gap > d.cfg.Lookback {
		return false
	}

	pilots := make(map[int64]struct{})
	for _, c := range ev.Characters() {
		pilots[c] = struct{}{}
	}
	cutoff := ev.Timestamp.Add(-d.cfg.Lookback)
	for i := len(cluster) - 1; i >= 0 && !cluster[i].Timestamp.Before(cutoff); i-- {
		for _, c := range cluster[i].Characters() {
			if _, ok := pilots[c]; ok {
				return true
			}
		}
	}
	return false
}

// qualifies drops noise: a single kill needs enough distinct pilots.
func (d *Detector) qualifies(cluster []killmail.Event) bool {
	if len(cluster) > 1 {
		return true
	}
	return distinct(cluster[0].Characters()) >= d.cfg.MinParticipants
}

func distinct(ids []int64) int {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

func newBattle(system int64, events []killmail.Event) Battle {
	return Battle{
		ID:           BattleID(system, events[0].Timestamp),
		SystemID:     system,
		StartTime:    events[0].Timestamp,
		EndTime:      events[len(events)-1].Timestamp,
		Events:       events,
		Participants: ExtractParticipants(events),
	}
}

func compareBattles(a, b Battle) int {
	if c := a.StartTime.Compare(b.StartTime); c != 0 {
		return c
	}
	if c := cmpInt(a.SystemID, b.SystemID); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// BattleID derives a stable id from the system and the cluster start, so
// detection over overlapping windows yields the same ids.
func BattleID(system int64, start time.Time) string {
	return fmt.Sprintf("%d-%d", system, start.Unix())
}

// ParseBattleID is the inverse of BattleID.
func ParseBattleID(id string) (int64, time.Time, error) {
	sysPart, startPart, ok := strings.Cut(id, "-")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("battle id %q: missing separator", id)
	}
	system, err := strconv.ParseInt(sysPart, 10, 64)
	if err != nil || system <= 0 {
		return 0, time.Time{}, fmt.Errorf("battle id %q: bad system", id)
	}
	secs, err := strconv.ParseInt(startPart, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("battle id %q: bad start: %w", id, err)
	}
	return system, time.Unix(secs, 0).UTC(), nil
}

// LinkRelated records, on each battle, the ids of battles in other systems
// that share a pilot and lie within window of it. Cross-system chains stay
// separate battles joined only by this metadata.
func LinkRelated(battles []Battle, window time.Duration) {
	pilots := make([]map[int64]struct{}, len(battles))
	for i, b := range battles {
		pilots[i] = make(map[int64]struct{}, len(b.Participants))
		for _, p := range b.Participants {
			pilots[i][p.CharacterID] = struct{}{}
		}
	}

	related := make([][]string, len(battles))
	for i := range battles {
		for j := i + 1; j < len(battles); j++ {
			a, b := battles[i], battles[j]
			if a.SystemID == b.SystemID || !within(a, b, window) || !sharesPilot(pilots[i], pilots[j]) {
				continue
			}
			related[i] = append(related[i], b.ID)
			related[j] = append(related[j], a.ID)
		}
	}
	for i := range battles {
		slices.Sort(related[i])
		battles[i].Related = related[i]
	}
}

func within(a, b Battle, window time.Duration) bool {
	if b.StartTime.Before(a.StartTime) {
		a, b = b, a
	}
	return b.StartTime.Sub(a.EndTime) <= window
}

func sharesPilot(a, b map[int64]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for id := range a {
		if _, ok := b[id]; ok {
			return true
		}
	}
	return false
}

// MergeByID combines two detection results. When an id appears in both, the
// battle from a is kept.
func MergeByID(a, b []Battle) []Battle {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]Battle, 0, len(a)+len(b))
	for _, list := range [][]Battle{a, b} {
		for _, battle := range list {
			if _, dup := seen[battle.ID]; dup {
				continue
			}
			seen[battle.ID] = struct{}{}
			out = append(out, battle)
		}
	}
	slices.SortFunc(out, compareBattles)
	return out
}

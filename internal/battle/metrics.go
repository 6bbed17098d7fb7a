package battle

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/guarzo/eve-battles/internal/killmail"
	"github.com/guarzo/eve-battles/internal/shiptype"
)

// MetricsCalculator derives BattleMetrics from a battle's events, sides and
// phases.
type MetricsCalculator struct {
	taxonomy shiptype.Taxonomy
}

func NewMetricsCalculator(taxonomy shiptype.Taxonomy) *MetricsCalculator {
	return &MetricsCalculator{taxonomy: taxonomy}
}

func (t SideTally) withLoss(isk float64) SideTally {
	t.Losses++
	t.ISKLost += isk
	return t
}

// withKill credits a share of one kill. Every attacking side on the kill
// counts it once; share and isk are already divided between them.
func (t SideTally) withKill(isk, share float64) SideTally {
	t.Kills++
	t.KillShare += share
	t.ISKDestroyed += isk
	return t
}

func (t SideTally) finalize() SideTally {
	if total := t.ISKDestroyed + t.ISKLost; total > 0 {
		t.Efficiency = t.ISKDestroyed / total
	} else {
		t.Efficiency = 0
	}
	return t
}

// Compute walks every event once. ISK destroyed on a kill is split evenly
// between the attacking sides present, so the side totals plus Unattributed
// always sum to the battle's destroyed ISK.
func (m *MetricsCalculator) Compute(b Battle) (BattleMetrics, error) {
	metrics := BattleMetrics{
		DurationSeconds: int64(b.Duration().Seconds()),
		Sides:           make([]SideTally, len(b.Sides)),
		Unattributed:    SideTally{SideID: Unassigned},
		Outcome:         OutcomeUndetermined,
		KeyMoments:      []KeyMoment{},
		VictoryFactors:  []VictoryFactor{},
	}
	index := make(map[SideID]int, len(b.Sides))
	for i, s := range b.Sides {
		index[s.ID] = i
		metrics.Sides[i] = SideTally{SideID: s.ID, Participants: len(s.Participants)}
	}
	metrics.Unattributed.Participants = len(b.Unassigned)

	if len(b.Events) == 0 {
		return metrics, &InsufficientDataError{Stage: StageMetrics, Reason: "battle has no events"}
	}

	events := slices.Clone(b.Events)
	killmail.SortEvents(events)
	lookup := newSideLookup(b)

	for _, ev := range events {
		metrics.TotalKills++
		metrics.TotalISKDestroyed += ev.ISKValue

		if victim := lookup.side(ev.Victim); victim != "" {
			i := index[victim]
			metrics.Sides[i] = metrics.Sides[i].withLoss(ev.ISKValue)
		} else {
			metrics.Unattributed = metrics.Unattributed.withLoss(ev.ISKValue)
		}

		attackers := attackingSides(lookup, ev)
		if len(attackers) == 0 {
			metrics.Unattributed = metrics.Unattributed.withKill(ev.ISKValue, 1)
			continue
		}
		n := float64(len(attackers))
		for _, id := range attackers {
			i := index[id]
			metrics.Sides[i] = metrics.Sides[i].withKill(ev.ISKValue/n, 1/n)
		}
	}
	for i := range metrics.Sides {
		metrics.Sides[i] = metrics.Sides[i].finalize()
	}
	metrics.Unattributed = metrics.Unattributed.finalize()

	if winner, ok := determineWinner(metrics.Sides); ok {
		metrics.Outcome = OutcomeVictory
		metrics.Winner = winner
		metrics.VictoryFactors = victoryFactors(b, metrics, lookup, winner)
	}
	metrics.KeyMoments = m.keyMoments(b, events, lookup)
	return metrics, nil
}

// attackingSides lists the distinct sides among ev's attackers in side order.
func attackingSides(lookup sideLookup, ev killmail.Event) []SideID {
	var sides []SideID
	for _, a := range ev.Attackers {
		if s := lookup.side(a); s != "" && !slices.Contains(sides, s) {
			sides = append(sides, s)
		}
	}
	slices.SortFunc(sides, func(a, b SideID) int { return a.number() - b.number() })
	return sides
}

// determineWinner picks the one side with more kills than losses whose ISK
// efficiency is strictly above every other side's.
func determineWinner(tallies []SideTally) (SideID, bool) {
	var winner SideID
	found := false
	for i, t := range tallies {
		if t.Kills <= t.Losses {
			continue
		}
		best := true
		for j, other := range tallies {
			if i != j && other.Efficiency >= t.Efficiency {
				best = false
				break
			}
		}
		if best {
			if found {
				return "", false
			}
			winner, found = t.SideID, true
		}
	}
	return winner, found
}

func victoryFactors(b Battle, metrics BattleMetrics, lookup sideLookup, winner SideID) []VictoryFactor {
	factors := []VictoryFactor{}
	var self Side
	var opponents []Side
	for _, s := range b.Sides {
		if s.ID == winner {
			self = s
		} else {
			opponents = append(opponents, s)
		}
	}
	tally, _ := metrics.Side(winner)

	if len(opponents) > 0 {
		var maxPilots int
		var bestRating, bestLogi float64
		for _, o := range opponents {
			maxPilots = max(maxPilots, len(o.Participants))
			bestRating = max(bestRating, o.Composition.Rating)
			bestLogi = max(bestLogi, o.Composition.RoleShare(shiptype.RoleLogistics))
		}
		if float64(len(self.Participants)) >= 1.5*float64(maxPilots) {
			factors = append(factors, FactorSuperiorNumbers)
		}
		if self.Composition.Rating >= bestRating+0.1 {
			factors = append(factors, FactorBetterComposition)
		}
		if logi := self.Composition.RoleShare(shiptype.RoleLogistics); logi >= 0.1 && logi > bestLogi {
			factors = append(factors, FactorLogisticsAdvantage)
		}
	}

	if tally.Kills > 0 {
		inPeak := 0
		for _, ev := range b.Events {
			if !slices.Contains(attackingSides(lookup, ev), winner) {
				continue
			}
			for _, p := range b.Phases {
				if p.Type == PhasePeakCombat && p.Contains(ev.Timestamp) {
					inPeak++
					break
				}
			}
		}
		if float64(inPeak) >= 0.5*float64(tally.Kills) {
			factors = append(factors, FactorFocusFire)
		}
	}

	if tally.Efficiency >= 0.75 && 2*tally.Losses <= tally.Kills {
		factors = append(factors, FactorTacticalExecution)
	}
	return factors
}

func (m *MetricsCalculator) keyMoments(b Battle, events []killmail.Event, lookup sideLookup) []KeyMoment {
	moment := func(kind KeyMomentKind, ev killmail.Event, desc string) KeyMoment {
		return KeyMoment{
			Kind:        kind,
			Time:        ev.Timestamp,
			EventID:     ev.ID,
			SideID:      lookup.side(ev.Victim),
			ShipClass:   m.taxonomy.ShipClass(ev.Victim.ShipTypeID),
			ISKValue:    ev.ISKValue,
			Description: desc,
		}
	}

	first, last := events[0], events[len(events)-1]
	moments := []KeyMoment{moment(MomentFirstBlood, first, "first ship destroyed")}

	biggest := -1
	for i, ev := range events {
		if ev.ISKValue > 0 && (biggest < 0 || ev.ISKValue > events[biggest].ISKValue) {
			biggest = i
		}
		if m.taxonomy.ShipClass(ev.Victim.ShipTypeID).IsCapital() {
			moments = append(moments, moment(MomentCapitalLoss, ev, "capital ship destroyed"))
		}
	}
	if biggest >= 0 {
		ev := events[biggest]
		moments = append(moments, moment(MomentBiggestLoss, ev, "largest loss: "+FormatISK(ev.ISKValue)))
	}

	for _, p := range b.Phases {
		if p.Type == PhasePeakCombat {
			moments = append(moments, KeyMoment{
				Kind:        MomentPeakStart,
				Time:        p.StartTime,
				Description: fmt.Sprintf("peak combat begins, %d kills", p.KillCount),
			})
		}
	}

	if len(events) > 1 {
		moments = append(moments, moment(MomentLastKill, last, "last ship destroyed"))
	}

	slices.SortStableFunc(moments, func(a, b KeyMoment) int { return a.Time.Compare(b.Time) })
	return moments
}

package battle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/guarzo/eve-battles/internal/killmail"
	"github.com/guarzo/eve-battles/internal/shiptype"
)

// SideID labels a side of a battle: "side_1", "side_2", ... or Unassigned.
type SideID string

// Unassigned is the pseudo-side for participants excluded from every side.
const Unassigned SideID = "unassigned"

const sidePrefix = "side_"

// SideLabel returns the label of the n-th side, counting from 1.
func SideLabel(n int) SideID {
	return SideID(sidePrefix + strconv.Itoa(n))
}

// Validate accepts "side_N" with N >= 1, or Unassigned.
func (s SideID) Validate() error {
	if s == Unassigned || s.number() > 0 {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidSide, string(s))
}

// number returns N for "side_N", or 0.
func (s SideID) number() int {
	rest, ok := strings.CutPrefix(string(s), sidePrefix)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || strconv.Itoa(n) != rest {
		return 0
	}
	return n
}

// ParticipantKey identifies one ship flown by one pilot within a battle.
type ParticipantKey struct {
	CharacterID int64 `json:"character_id"`
	ShipTypeID  int64 `json:"ship_type_id"`
}

func (k ParticipantKey) String() string {
	return fmt.Sprintf("%d:%d", k.CharacterID, k.ShipTypeID)
}

// MarshalText lets ParticipantKey be used as a JSON object key.
func (k ParticipantKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ParticipantKey) UnmarshalText(b []byte) error {
	parsed, err := ParseParticipantKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseParticipantKey parses "character:ship".
func ParseParticipantKey(s string) (ParticipantKey, error) {
	charPart, shipPart, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ParticipantKey{}, fmt.Errorf("participant key %q: want character:ship", s)
	}
	char, err := strconv.ParseInt(charPart, 10, 64)
	if err != nil {
		return ParticipantKey{}, fmt.Errorf("participant key %q: %w", s, err)
	}
	ship, err := strconv.ParseInt(shipPart, 10, 64)
	if err != nil {
		return ParticipantKey{}, fmt.Errorf("participant key %q: %w", s, err)
	}
	return ParticipantKey{CharacterID: char, ShipTypeID: ship}, nil
}

// Overrides pins participants to sides. They live only as long as the
// analysis session and are never written back to events.
type Overrides map[ParticipantKey]SideID

// Validate rejects any target that is not a side label or Unassigned.
func (o Overrides) Validate() error {
	for key, side := range o {
		if err := side.Validate(); err != nil {
			return fmt.Errorf("override %s: %w", key, err)
		}
	}
	return nil
}

// Merge returns a new map holding o overlaid with newer.
func (o Overrides) Merge(newer Overrides) Overrides {
	if len(o) == 0 && len(newer) == 0 {
		return nil
	}
	out := make(Overrides, len(o)+len(newer))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range newer {
		out[k] = v
	}
	return out
}

// ParticipantRole is how a participant appeared on the battle's killmails.
type ParticipantRole string

const (
	RoleAttacker ParticipantRole = "attacker"
	RoleVictim   ParticipantRole = "victim"
)

// Participant is one (pilot, ship) appearance within a battle.
type Participant struct {
	CharacterID   int64           `json:"character_id"`
	ShipTypeID    int64           `json:"ship_type_id"`
	CorporationID int64           `json:"corporation_id"`
	AllianceID    int64           `json:"alliance_id"`
	Role          ParticipantRole `json:"role"`
	FinalBlow     bool            `json:"final_blow"`
}

func (p Participant) Key() ParticipantKey {
	return ParticipantKey{CharacterID: p.CharacterID, ShipTypeID: p.ShipTypeID}
}

// Side is a partition of a battle's participants.
type Side struct {
	ID            SideID            `json:"side_id"`
	Label         string            `json:"label,omitempty"`
	AllianceID    int64             `json:"alliance_id,omitempty"`
	CorporationID int64             `json:"corporation_id,omitempty"`
	Participants  []Participant     `json:"participants"`
	Composition   CompositionReport `json:"composition"`
}

// PhaseType is the qualitative label of a phase.
type PhaseType string

const (
	PhaseOpeningEngagement PhaseType = "opening_engagement"
	PhaseEscalation        PhaseType = "escalation"
	PhasePeakCombat        PhaseType = "peak_combat"
	PhaseDeescalation      PhaseType = "deescalation"
	PhaseCleanup           PhaseType = "cleanup"
	PhaseRepositioning     PhaseType = "repositioning"
	PhaseStandoff          PhaseType = "standoff"
	PhaseGank              PhaseType = "gank"
	PhaseSkirmish          PhaseType = "skirmish"
	PhaseSmallEngagement   PhaseType = "small_engagement"
)

// Intensity buckets kills per minute.
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityModerate Intensity = "moderate"
	IntensityHigh     Intensity = "high"
	IntensityExtreme  Intensity = "extreme"
)

// Phase is a contiguous slice of a battle's timeline.
type Phase struct {
	Type      PhaseType `json:"phase_type"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	KillCount int       `json:"kill_count"`
	Intensity Intensity `json:"intensity"`
}

// Contains reports whether t falls inside the phase, bounds included.
func (p Phase) Contains(t time.Time) bool {
	return !t.Before(p.StartTime) && !t.After(p.EndTime)
}

// Battle is a view over a cluster of events in one system. It is recomputed
// on demand; the events are the source of truth.
type Battle struct {
	ID           string           `json:"battle_id"`
	SystemID     int64            `json:"system_id"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
	Events       []killmail.Event `json:"events"`
	Participants []Participant    `json:"participants"`
	Sides        []Side           `json:"sides"`
	Unassigned   []Participant    `json:"unassigned,omitempty"`
	Overrides    Overrides        `json:"overrides,omitempty"`
	Phases       []Phase          `json:"phases"`
	Metrics      BattleMetrics    `json:"metrics"`
	Related      []string         `json:"related,omitempty"`
	Errors       []StageError     `json:"errors,omitempty"`
}

// Duration is EndTime - StartTime.
func (b Battle) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

// Significant is false for isolated kills: fewer than two kills and under
// two minutes long.
func (b Battle) Significant() bool {
	return len(b.Events) >= 2 || b.Duration() >= 2*time.Minute
}

// Pilots counts distinct characters.
func (b Battle) Pilots() int {
	return countPilots(b.Participants)
}

// UniqueParticipants counts participant entries across sides and Unassigned.
func (b Battle) UniqueParticipants() int {
	n := len(b.Unassigned)
	for _, s := range b.Sides {
		n += len(s.Participants)
	}
	return n
}

// SideOf returns the side a participant is on, Unassigned if it is on none,
// and false if the key is not a participant of the battle.
func (b Battle) SideOf(key ParticipantKey) (SideID, bool) {
	for _, s := range b.Sides {
		for _, p := range s.Participants {
			if p.Key() == key {
				return s.ID, true
			}
		}
	}
	for _, p := range b.Unassigned {
		if p.Key() == key {
			return Unassigned, true
		}
	}
	return "", false
}

// SideIDs lists the battle's side labels in order.
func (b Battle) SideIDs() []SideID {
	ids := make([]SideID, len(b.Sides))
	for i, s := range b.Sides {
		ids[i] = s.ID
	}
	return ids
}

// clone copies the slices enrichment replaces so the input battle, which may
// be shared through the result cache, is never written to.
func (b Battle) clone() Battle {
	out := b
	out.Sides = append([]Side(nil), b.Sides...)
	out.Phases = append([]Phase(nil), b.Phases...)
	out.Errors = append([]StageError(nil), b.Errors...)
	out.Related = append([]string(nil), b.Related...)
	return out
}

// -------------------------------------------------------------------
// Metrics
// -------------------------------------------------------------------

// SideTally accumulates one side's kills and losses. It is only updated
// through its reducer methods.
type SideTally struct {
	SideID       SideID  `json:"side_id"`
	Participants int     `json:"participants"`
	Kills        int     `json:"kills"`
	KillShare    float64 `json:"kill_share"`
	Losses       int     `json:"losses"`
	ISKDestroyed float64 `json:"isk_destroyed"`
	ISKLost      float64 `json:"isk_lost"`
	Efficiency   float64 `json:"isk_efficiency"`
}

// Outcome is the result of winner determination.
type Outcome string

const (
	OutcomeVictory      Outcome = "victory"
	OutcomeUndetermined Outcome = "undetermined"
)

// KeyMomentKind names a notable point on the timeline.
type KeyMomentKind string

const (
	MomentFirstBlood  KeyMomentKind = "first_blood"
	MomentPeakStart   KeyMomentKind = "peak_start"
	MomentBiggestLoss KeyMomentKind = "biggest_loss"
	MomentCapitalLoss KeyMomentKind = "capital_loss"
	MomentLastKill    KeyMomentKind = "last_kill"
)

// KeyMoment is a notable point on the timeline.
type KeyMoment struct {
	Kind        KeyMomentKind  `json:"kind"`
	Time        time.Time      `json:"time"`
	EventID     int64          `json:"event_id,omitempty"`
	SideID      SideID         `json:"side_id,omitempty"`
	ShipClass   shiptype.Class `json:"ship_class,omitempty"`
	ISKValue    float64        `json:"isk_value,omitempty"`
	Description string         `json:"description"`
}

// VictoryFactor is an advisory tag explaining a win. Factors are heuristics,
// not causal claims.
type VictoryFactor string

const (
	FactorSuperiorNumbers    VictoryFactor = "superior_numbers"
	FactorBetterComposition  VictoryFactor = "better_composition"
	FactorTacticalExecution  VictoryFactor = "tactical_execution"
	FactorLogisticsAdvantage VictoryFactor = "logistics_advantage"
	FactorFocusFire          VictoryFactor = "focus_fire"
)

// BattleMetrics is fully derived from the battle's events, sides and phases.
type BattleMetrics struct {
	TotalKills        int             `json:"total_kills"`
	TotalISKDestroyed float64         `json:"total_isk_destroyed"`
	DurationSeconds   int64           `json:"duration_seconds"`
	Sides             []SideTally     `json:"sides"`
	Unattributed      SideTally       `json:"unattributed"`
	Outcome           Outcome         `json:"outcome"`
	Winner            SideID          `json:"winner,omitempty"`
	KeyMoments        []KeyMoment     `json:"key_moments"`
	VictoryFactors    []VictoryFactor `json:"victory_factors"`
}

// Side returns the tally for id.
func (m BattleMetrics) Side(id SideID) (SideTally, bool) {
	for _, t := range m.Sides {
		if t.SideID == id {
			return t, true
		}
	}
	return SideTally{}, false
}

// -------------------------------------------------------------------
// Composition
// -------------------------------------------------------------------

// ShipCount is one entry of a side's most common hulls.
type ShipCount struct {
	ShipTypeID int64          `json:"ship_type_id"`
	Class      shiptype.Class `json:"class"`
	Count      int            `json:"count"`
	Percent    float64        `json:"percent"`
}

// CompositionReport describes the hulls a side brought.
type CompositionReport struct {
	SideID           SideID                 `json:"side_id"`
	TotalShips       int                    `json:"total_ships"`
	UniqueShipTypes  int                    `json:"unique_ship_types"`
	ClassBreakdown   map[shiptype.Class]int `json:"class_breakdown"`
	TopShips         []ShipCount            `json:"top_ships"`
	RoleDistribution map[shiptype.Role]int  `json:"role_distribution"`
	Rating           float64                `json:"rating"`
	Insights         []string               `json:"insights"`
}

// RoleShare returns the fraction of ships in role r.
func (r CompositionReport) RoleShare(role shiptype.Role) float64 {
	if r.TotalShips == 0 {
		return 0
	}
	return float64(r.RoleDistribution[role]) / float64(r.TotalShips)
}

package battle

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/guarzo/eve-battles/internal/killmail"
)

type affiliationKind int

const (
	kindAlliance affiliationKind = iota
	kindCorporation
	kindUnknown
)

// affiliation is the grouping key for automatic side assignment.
type affiliation struct {
	kind affiliationKind
	id   int64
}

func affiliationOf(allianceID, corporationID int64) affiliation {
	switch {
	case allianceID > 0:
		return affiliation{kind: kindAlliance, id: allianceID}
	case corporationID > 0:
		return affiliation{kind: kindCorporation, id: corporationID}
	}
	return affiliation{kind: kindUnknown}
}

func (a affiliation) label() string {
	switch a.kind {
	case kindAlliance:
		return fmt.Sprintf("alliance:%d", a.id)
	case kindCorporation:
		return fmt.Sprintf("corporation:%d", a.id)
	}
	return ""
}

func sideAffiliation(s Side) affiliation {
	return affiliationOf(s.AllianceID, s.CorporationID)
}

type group struct {
	aff     affiliation
	members []Participant
}

// AssignSides partitions the battle's participants. Participants are grouped
// by alliance, then corporation, then a shared unknown bucket; groups of a
// single ship are bystanders and go to Unassigned unless that would leave no
// side at all. Groups are labelled side_1, side_2, ... by size with a fixed
// tie-break, then overrides are applied on top. Overrides already on the
// battle are kept and overlaid with the new ones, so re-running is stable.
// The input battle is not modified.
func AssignSides(b Battle, overrides Overrides) (Battle, error) {
	if err := overrides.Validate(); err != nil {
		return b, err
	}
	out := b.clone()
	if out.Participants == nil {
		out.Participants = ExtractParticipants(b.Events)
	}
	out.Overrides = b.Overrides.Merge(overrides)

	groups := groupByAffiliation(out.Participants)
	kept := make([]group, 0, len(groups))
	var bystanders []Participant
	for _, g := range groups {
		if len(g.members) > 1 {
			kept = append(kept, g)
		} else {
			bystanders = append(bystanders, g.members...)
		}
	}
	if len(kept) == 0 {
		kept, bystanders = groups, nil
	}

	slices.SortStableFunc(kept, func(a, b group) int {
		if len(a.members) != len(b.members) {
			return len(b.members) - len(a.members)
		}
		if a.aff.kind != b.aff.kind {
			return int(a.aff.kind) - int(b.aff.kind)
		}
		return cmpInt(a.aff.id, b.aff.id)
	})

	sides := make([]Side, 0, len(kept))
	for i, g := range kept {
		s := Side{ID: SideLabel(i + 1), Label: g.aff.label(), Participants: g.members}
		switch g.aff.kind {
		case kindAlliance:
			s.AllianceID = g.aff.id
		case kindCorporation:
			s.CorporationID = g.aff.id
		}
		sides = append(sides, s)
	}

	out.Sides, out.Unassigned = applyOverrides(sides, bystanders, out.Overrides)
	return out, nil
}

func groupByAffiliation(ps []Participant) []group {
	index := make(map[affiliation]int)
	var groups []group
	for _, p := range ps {
		aff := affiliationOf(p.AllianceID, p.CorporationID)
		i, ok := index[aff]
		if !ok {
			i = len(groups)
			index[aff] = i
			groups = append(groups, group{aff: aff})
		}
		groups[i].members = append(groups[i].members, p)
	}
	return groups
}

// applyOverrides moves overridden participants to their target side. A
// target side that does not exist yet is created; sides left empty are dropped.
func applyOverrides(sides []Side, unassigned []Participant, overrides Overrides) ([]Side, []Participant) {
	if len(overrides) == 0 {
		sortParticipants(unassigned)
		return sides, unassigned
	}

	keys := make([]ParticipantKey, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)

	for _, key := range keys {
		target := overrides[key]
		p, ok := takeParticipant(sides, &unassigned, key)
		if !ok {
			continue
		}
		if target == Unassigned {
			unassigned = append(unassigned, p)
			continue
		}
		i := slices.IndexFunc(sides, func(s Side) bool { return s.ID == target })
		if i < 0 {
			sides = append(sides, Side{ID: target})
			i = len(sides) - 1
		}
		sides[i].Participants = append(sides[i].Participants, p)
	}

	kept := sides[:0]
	for _, s := range sides {
		if len(s.Participants) > 0 {
			sortParticipants(s.Participants)
			kept = append(kept, s)
		}
	}
	slices.SortStableFunc(kept, func(a, b Side) int { return a.ID.number() - b.ID.number() })
	sortParticipants(unassigned)
	return kept, unassigned
}

// takeParticipant removes key from wherever it currently sits. Participant
// slices are rebuilt rather than edited in place since they may be shared
// with the battle being re-assigned.
func takeParticipant(sides []Side, unassigned *[]Participant, key ParticipantKey) (Participant, bool) {
	for i := range sides {
		if p, rest, ok := without(sides[i].Participants, key); ok {
			sides[i].Participants = rest
			return p, true
		}
	}
	if p, rest, ok := without(*unassigned, key); ok {
		*unassigned = rest
		return p, true
	}
	return Participant{}, false
}

func without(ps []Participant, key ParticipantKey) (Participant, []Participant, bool) {
	for i, p := range ps {
		if p.Key() == key {
			rest := make([]Participant, 0, len(ps)-1)
			rest = append(rest, ps[:i]...)
			rest = append(rest, ps[i+1:]...)
			return p, rest, true
		}
	}
	return Participant{}, nil, false
}

// NextSide returns the side after current in the rotation available...,
// Unassigned, wrapping around. An unknown current starts the rotation.
func NextSide(current SideID, available []SideID) SideID {
	rotation := make([]SideID, 0, len(available)+1)
	for _, s := range available {
		if s != Unassigned {
			rotation = append(rotation, s)
		}
	}
	rotation = append(rotation, Unassigned)

	i := slices.Index(rotation, current)
	if i < 0 {
		return rotation[0]
	}
	return rotation[(i+1)%len(rotation)]
}

// CycleOverride returns a copy of overrides with key moved to the side after
// current.
func CycleOverride(overrides Overrides, key ParticipantKey, current SideID, available []SideID) Overrides {
	return overrides.Merge(Overrides{key: NextSide(current, available)})
}

// sideLookup resolves the side of a killmail entity.
type sideLookup struct {
	byKey   map[ParticipantKey]SideID
	byGroup map[affiliation]SideID
}

func newSideLookup(b Battle) sideLookup {
	l := sideLookup{
		byKey:   make(map[ParticipantKey]SideID),
		byGroup: make(map[affiliation]SideID),
	}
	for _, s := range b.Sides {
		for _, p := range s.Participants {
			l.byKey[p.Key()] = s.ID
		}
		if aff := sideAffiliation(s); aff.kind != kindUnknown {
			l.byGroup[aff] = s.ID
		}
	}
	for _, p := range b.Unassigned {
		l.byKey[p.Key()] = Unassigned
	}
	return l
}

// side returns the entity's side, or "" when it is on none. Pilots resolve by
// participant key; NPCs and structures fall back to their affiliation.
func (l sideLookup) side(e killmail.Entity) SideID {
	if e.CharacterID > 0 {
		if s, ok := l.byKey[ParticipantKey{CharacterID: e.CharacterID, ShipTypeID: e.ShipTypeID}]; ok {
			if s == Unassigned {
				return ""
			}
			return s
		}
	}
	aff := affiliationOf(e.AllianceID, e.CorporationID)
	if aff.kind == kindUnknown {
		return ""
	}
	return l.byGroup[aff]
}

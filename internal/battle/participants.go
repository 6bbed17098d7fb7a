package battle

import (
	"golang.org/x/exp/slices"

	"github.com/guarzo/eve-battles/internal/killmail"
)

// ExtractParticipants builds one participant per (character, ship) from the
// victims and attackers of events. Entries without a character (NPCs,
// structures) are not participants. A pilot who reships shows up twice.
func ExtractParticipants(events []killmail.Event) []Participant {
	ordered := slices.Clone(events)
	killmail.SortEvents(ordered)

	byKey := make(map[ParticipantKey]*Participant)
	add := func(e killmail.Entity, role ParticipantRole) {
		if e.CharacterID <= 0 {
			return
		}
		key := ParticipantKey{CharacterID: e.CharacterID, ShipTypeID: e.ShipTypeID}
		p, ok := byKey[key]
		if !ok {
			p = &Participant{CharacterID: e.CharacterID, ShipTypeID: e.ShipTypeID, Role: role}
			byKey[key] = p
		}
		// latest appearance wins for affiliation
		p.CorporationID = e.CorporationID
		p.AllianceID = e.AllianceID
		if role == RoleVictim {
			p.Role = RoleVictim
		}
		if e.FinalBlow {
			p.FinalBlow = true
		}
	}

	for _, ev := range ordered {
		add(ev.Victim, RoleVictim)
		for _, a := range ev.Attackers {
			add(a, RoleAttacker)
		}
	}

	out := make([]Participant, 0, len(byKey))
	for _, p := range byKey {
		out = append(out, *p)
	}
	sortParticipants(out)
	return out
}

func sortParticipants(ps []Participant) {
	slices.SortFunc(ps, func(a, b Participant) int {
		return compareKeys(a.Key(), b.Key())
	})
}

func compareKeys(a, b ParticipantKey) int {
	switch {
	case a.CharacterID != b.CharacterID:
		return cmpInt(a.CharacterID, b.CharacterID)
	default:
		return cmpInt(a.ShipTypeID, b.ShipTypeID)
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func countPilots(ps []Participant) int {
	seen := make(map[int64]struct{}, len(ps))
	for _, p := range ps {
		seen[p.CharacterID] = struct{}{}
	}
	return len(seen)
}

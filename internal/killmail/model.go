package killmail

import (
	"encoding/json"
	"time"
)

// -------------------------------------------------------------------
// Canonical event
// -------------------------------------------------------------------

// Entity is one side of a destruction record: the victim or a single attacker.
type Entity struct {
	CharacterID   int64  `json:"character_id"`
	CorporationID int64  `json:"corporation_id"`
	AllianceID    int64  `json:"alliance_id"`
	ShipTypeID    int64  `json:"ship_type_id"`
	Name          string `json:"name,omitempty"`
	FinalBlow     bool   `json:"final_blow"`
}

// Event is a normalized killmail. It is never mutated after Normalize returns it.
type Event struct {
	ID        int64     `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	SystemID  int64     `json:"system_id"`
	Victim    Entity    `json:"victim"`
	Attackers []Entity  `json:"attackers"`
	ISKValue  float64   `json:"isk_value"`
	NPC       bool      `json:"npc"`
	Solo      bool      `json:"solo"`
}

// Characters returns the character ids on the event, victim first.
// NPCs and structures (character id 0) are left out.
func (e Event) Characters() []int64 {
	out := make([]int64, 0, len(e.Attackers)+1)
	if e.Victim.CharacterID > 0 {
		out = append(out, e.Victim.CharacterID)
	}
	for _, a := range e.Attackers {
		if a.CharacterID > 0 {
			out = append(out, a.CharacterID)
		}
	}
	return out
}

// FinalBlow returns the attacker credited with the final blow, falling back
// to the first attacker.
func (e Event) FinalBlow() (Entity, bool) {
	for _, a := range e.Attackers {
		if a.FinalBlow {
			return a, true
		}
	}
	if len(e.Attackers) > 0 {
		return e.Attackers[0], true
	}
	return Entity{}, false
}

// RawEvent is an undecoded killmail payload in any of the shapes Normalize accepts.
type RawEvent []byte

// TimeRange is an inclusive [Start, End] window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window, bounds included.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// IsZero reports whether neither bound is set.
func (r TimeRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// -------------------------------------------------------------------
// Raw zKill / ESI / RedisQ shapes
// -------------------------------------------------------------------

// ZKB holds the economic info from zKill
type ZKB struct {
	DestroyedValue lenientFloat `json:"destroyedValue"`
	TotalValue     lenientFloat `json:"totalValue"`
	NPC            bool         `json:"npc"`
	Solo           bool         `json:"solo"`
}

// rawEntity is a victim or attacker from either zKill, ESI or the feed envelope.
type rawEntity struct {
	CharacterID   lenientInt `json:"character_id"`
	CorporationID lenientInt `json:"corporation_id"`
	AllianceID    lenientInt `json:"alliance_id"`
	ShipTypeID    lenientInt `json:"ship_type_id"`
	ShipID        lenientInt `json:"ship_id"`
	CharacterName string     `json:"character_name"`
	FinalBlow     bool       `json:"final_blow"`
}

// rawKillmail is the union of every accepted payload shape. Envelope fields
// (package, killmail, data) are unwrapped before the killmail fields are read.
type rawKillmail struct {
	KillmailID    lenientInt   `json:"killmail_id"`
	KillID        lenientInt   `json:"killID"`
	KillmailTime  lenientTime  `json:"killmail_time"`
	KillTime      lenientTime  `json:"kill_time"`
	SolarSystemID lenientInt   `json:"solar_system_id"`
	SystemID      lenientInt   `json:"system_id"`
	TotalValue    lenientFloat `json:"total_value"`
	Victim        *rawEntity   `json:"victim"`
	Attackers     []rawEntity  `json:"attackers"`
	ZKB           *ZKB         `json:"zkb"`

	Package  json.RawMessage `json:"package"`
	Killmail json.RawMessage `json:"killmail"`
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data"`
}

// Header is the minimum needed to index a raw payload.
type Header struct {
	KillmailID int64
	Time       time.Time
	SystemID   int64
}

package killmail

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// maxEnvelopeDepth bounds how many wrapper objects (data, package, killmail)
// are unwrapped before the payload is read as a killmail.
const maxEnvelopeDepth = 4

// FormatError reports a raw record that cannot become an Event.
type FormatError struct {
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("killmail format: %s: %s", e.Field, e.Reason)
}

// Normalizer converts raw killmail payloads into Events.
type Normalizer struct {
	logger logrus.FieldLogger
}

// NewNormalizer constructor
func NewNormalizer(logger logrus.FieldLogger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize decodes one raw record. Malformed numeric fields are coerced to
// zero and logged; a missing id, timestamp, system or victim is a *FormatError.
func (n *Normalizer) Normalize(raw RawEvent) (Event, error) {
	km, err := decode(raw, 0)
	if err != nil {
		return Event{}, err
	}
	var coerced coercions
	ev, err := km.toEvent(&coerced)
	for _, field := range coerced {
		n.logger.WithFields(logrus.Fields{
			"killmail_id": ev.ID,
			"field":       field,
		}).Warn("Coerced malformed killmail field to zero")
	}
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}

// NormalizeAll normalizes a batch, dropping records that fail. The number of
// dropped records is returned so callers can surface it.
func (n *Normalizer) NormalizeAll(raws []RawEvent) ([]Event, int) {
	events := make([]Event, 0, len(raws))
	skipped := 0
	for i, raw := range raws {
		ev, err := n.Normalize(raw)
		if err != nil {
			skipped++
			n.logger.WithField("index", i).Warnf("Skipping killmail record: %v", err)
			continue
		}
		events = append(events, ev)
	}
	return events, skipped
}

// ParseHeader extracts the id, time and system of a raw payload without
// building the full event.
func ParseHeader(raw RawEvent) (Header, error) {
	km, err := decode(raw, 0)
	if err != nil {
		return Header{}, err
	}
	var coerced coercions
	return km.header(&coerced)
}

func decode(raw []byte, depth int) (*rawKillmail, error) {
	var km rawKillmail
	if err := json.Unmarshal(raw, &km); err != nil {
		return nil, &FormatError{Field: "payload", Reason: err.Error()}
	}
	if depth >= maxEnvelopeDepth {
		return &km, nil
	}
	switch {
	case present(km.Data) && !km.hasBody():
		return decode(km.Data, depth+1)
	case present(km.Package):
		return decode(km.Package, depth+1)
	case present(km.Killmail):
		inner, err := decode(km.Killmail, depth+1)
		if err != nil {
			return nil, err
		}
		inner.inherit(&km)
		return inner, nil
	}
	return &km, nil
}

func present(m json.RawMessage) bool {
	m = bytes.TrimSpace(m)
	return len(m) > 0 && !bytes.Equal(m, []byte("null"))
}

func (km *rawKillmail) hasBody() bool {
	return km.Victim != nil || km.KillmailID.Present || km.KillID.Present
}

// inherit copies envelope-level fields (RedisQ keeps killID and zkb outside
// the killmail object) into the unwrapped killmail when it lacks them.
func (km *rawKillmail) inherit(outer *rawKillmail) {
	if !km.KillmailID.Present && !km.KillID.Present {
		km.KillmailID = outer.KillmailID
		km.KillID = outer.KillID
	}
	if km.ZKB == nil {
		km.ZKB = outer.ZKB
	}
	if !km.TotalValue.Present {
		km.TotalValue = outer.TotalValue
	}
	if !km.KillmailTime.Present && !km.KillTime.Present {
		km.KillmailTime = outer.KillmailTime
		km.KillTime = outer.KillTime
	}
	if !km.SolarSystemID.Present && !km.SystemID.Present {
		km.SolarSystemID = outer.SolarSystemID
		km.SystemID = outer.SystemID
	}
}

// coercions collects the fields that were coerced to zero.
type coercions []string

func (c *coercions) int(field string, n lenientInt) int64 {
	if n.Malformed {
		*c = append(*c, field)
	}
	return n.Value
}

func (c *coercions) float(field string, n lenientFloat) float64 {
	if n.Malformed {
		*c = append(*c, field)
	}
	return n.Value
}

func (c *coercions) entity(prefix string, r rawEntity) Entity {
	ship := r.ShipTypeID
	shipField := prefix + ".ship_type_id"
	if !ship.Present {
		ship = r.ShipID
		shipField = prefix + ".ship_id"
	}
	return Entity{
		CharacterID:   c.int(prefix+".character_id", r.CharacterID),
		CorporationID: c.int(prefix+".corporation_id", r.CorporationID),
		AllianceID:    c.int(prefix+".alliance_id", r.AllianceID),
		ShipTypeID:    c.int(shipField, ship),
		Name:          r.CharacterName,
		FinalBlow:     r.FinalBlow,
	}
}

func (km *rawKillmail) header(c *coercions) (Header, error) {
	var h Header

	h.KillmailID = c.int("killmail_id", km.KillmailID)
	if h.KillmailID <= 0 && km.KillID.Present {
		h.KillmailID = c.int("killID", km.KillID)
	}
	if h.KillmailID <= 0 {
		return h, &FormatError{Field: "killmail_id", Reason: "missing"}
	}

	ts := km.KillmailTime
	if !ts.Present {
		ts = km.KillTime
	}
	switch {
	case !ts.Present:
		return h, &FormatError{Field: "killmail_time", Reason: "missing"}
	case ts.Malformed:
		return h, &FormatError{Field: "killmail_time", Reason: "unparsable"}
	}
	h.Time = ts.Value

	h.SystemID = c.int("solar_system_id", km.SolarSystemID)
	if h.SystemID <= 0 && km.SystemID.Present {
		h.SystemID = c.int("system_id", km.SystemID)
	}
	if h.SystemID <= 0 {
		return h, &FormatError{Field: "solar_system_id", Reason: "missing"}
	}
	return h, nil
}

func (km *rawKillmail) toEvent(c *coercions) (Event, error) {
	h, err := km.header(c)
	if err != nil {
		return Event{ID: h.KillmailID}, err
	}
	ev := Event{
		ID:        h.KillmailID,
		Timestamp: h.Time,
		SystemID:  h.SystemID,
	}

	if km.Victim == nil {
		return ev, &FormatError{Field: "victim", Reason: "missing"}
	}
	ev.Victim = c.entity("victim", *km.Victim)
	// structures have no pilot; the owning corporation stands in for it
	if ev.Victim.CharacterID <= 0 && ev.Victim.CorporationID <= 0 {
		return ev, &FormatError{Field: "victim.character_id", Reason: "missing"}
	}

	ev.Attackers = make([]Entity, 0, len(km.Attackers))
	for i, a := range km.Attackers {
		ev.Attackers = append(ev.Attackers, c.entity(fmt.Sprintf("attackers[%d]", i), a))
	}

	switch {
	case km.ZKB != nil && km.ZKB.TotalValue.Present:
		ev.ISKValue = c.float("zkb.totalValue", km.ZKB.TotalValue)
	case km.ZKB != nil && km.ZKB.DestroyedValue.Present && !km.TotalValue.Present:
		// older zKill payloads carry only the destroyed value
		ev.ISKValue = c.float("zkb.destroyedValue", km.ZKB.DestroyedValue)
	default:
		ev.ISKValue = c.float("total_value", km.TotalValue)
	}
	if ev.ISKValue < 0 {
		*c = append(*c, "isk_value (negative)")
		ev.ISKValue = 0
	}
	if km.ZKB != nil {
		ev.NPC = km.ZKB.NPC
		ev.Solo = km.ZKB.Solo
	}
	return ev, nil
}

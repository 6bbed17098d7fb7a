package battle

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/guarzo/eve-battles/internal/killmail"
	"github.com/guarzo/eve-battles/internal/shiptype"
)

const (
	jita       = int64(30000142)
	allianceA  = int64(99000001)
	allianceB  = int64(99000002)
	allianceC  = int64(99000003)
	rifter     = int64(587)
	guardian   = int64(11987)
	battleship = int64(24692)
	capsule    = int64(670)
	naglfar    = int64(19722)
)

var t0 = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

func nullLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func pilot(char, alliance, ship int64) killmail.Entity {
	return killmail.Entity{CharacterID: char, CorporationID: alliance - 1000000, AllianceID: alliance, ShipTypeID: ship}
}

func kill(id int64, at time.Duration, value float64, victim killmail.Entity, attackers ...killmail.Entity) killmail.Event {
	attackers = append([]killmail.Entity(nil), attackers...)
	if len(attackers) > 0 {
		attackers[0].FinalBlow = true
	}
	return killmail.Event{
		ID:        id,
		Timestamp: t0.Add(at),
		SystemID:  jita,
		Victim:    victim,
		Attackers: attackers,
		ISKValue:  value,
	}
}

// fiveKillFight is three pilots of alliance A against two of alliance B over
// 300 seconds, 500M ISK destroyed in total.
func fiveKillFight() []killmail.Event {
	a1, a2, a3 := pilot(1, allianceA, rifter), pilot(2, allianceA, rifter), pilot(3, allianceA, guardian)
	b4, b5 := pilot(4, allianceB, battleship), pilot(5, allianceB, battleship)
	return []killmail.Event{
		kill(101, 0, 50e6, b4, a1, a2, a3),
		kill(102, 75*time.Second, 100e6, b5, a2, a1, a3),
		kill(103, 150*time.Second, 150e6, a1, b4, b5),
		kill(104, 225*time.Second, 80e6, b4, a3, a1, a2),
		kill(105, 300*time.Second, 120e6, b5, a1, a2, a3),
	}
}

// fleetFight has a single burst of kills in the middle of a 16 minute fight.
// Kills per 2 minute bucket: 1 0 0 6 8 6 0 0 1.
func fleetFight() []killmail.Event {
	var events []killmail.Event
	id := int64(1000)
	attackers := []killmail.Entity{
		pilot(1, allianceA, battleship), pilot(2, allianceA, battleship), pilot(3, allianceA, guardian),
	}
	add := func(at time.Duration) {
		id++
		events = append(events, kill(id, at, 10e6, pilot(id, allianceB, battleship), attackers...))
	}
	add(0)
	for _, burst := range []struct{ bucket, kills int }{{3, 6}, {4, 8}, {5, 6}} {
		for i := 0; i < burst.kills; i++ {
			add(time.Duration(burst.bucket)*2*time.Minute + time.Duration(i)*10*time.Second)
		}
	}
	add(16 * time.Minute)
	return events
}

func inSystem(events []killmail.Event, system int64) []killmail.Event {
	out := make([]killmail.Event, len(events))
	for i, ev := range events {
		ev.SystemID = system
		out[i] = ev
	}
	return out
}

func detectOne(events []killmail.Event) Battle {
	battles := NewDetector(DefaultDetectorConfig(), nullLogger()).Detect(events, killmail.TimeRange{})
	if len(battles) != 1 {
		panic("fixture expected exactly one battle")
	}
	return battles[0]
}

func newTestEnricher() *Enricher {
	return NewEnricher(DefaultTimelineConfig(), DefaultCompositionConfig(), shiptype.NewStatic(), nullLogger())
}

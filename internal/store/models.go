package store

import (
	"time"
)

// Killmail is one raw payload as received, indexed by the fields battle
// queries filter on. The payload is kept verbatim so the normalizer can be
// improved without re-ingesting.
type Killmail struct {
	ID            uint      `gorm:"primaryKey"`
	KillmailID    int64     `gorm:"uniqueIndex;not null"`
	SolarSystemID int64     `gorm:"index;not null"`
	KillmailTime  time.Time `gorm:"index;not null"`
	Payload       []byte    `gorm:"not null"`
	ReceivedAt    time.Time `gorm:"not null"`
}

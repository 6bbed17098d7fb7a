// Package store keeps raw killmails in SQLite. Raw events are the source of
// truth; battles are always recomputed from them.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/guarzo/eve-battles/internal/analysis"
	"github.com/guarzo/eve-battles/internal/killmail"
)

const batchSize = 100

// DB wraps the gorm database
type DB struct {
	*gorm.DB
	now func() time.Time
}

// New opens (creating if needed) the database at path and migrates it.
func New(path string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// synchronous and busy_timeout are per connection; one connection keeps
	// them in force and matches SQLite's single writer
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := db.AutoMigrate(&Killmail{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{DB: db, now: time.Now}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) row(raw killmail.RawEvent) (Killmail, error) {
	h, err := killmail.ParseHeader(raw)
	if err != nil {
		return Killmail{}, err
	}
	return Killmail{
		KillmailID:    h.KillmailID,
		SolarSystemID: h.SystemID,
		KillmailTime:  h.Time.UTC(),
		Payload:       []byte(raw),
		ReceivedAt:    db.now().UTC(),
	}, nil
}

var ignoreDuplicate = clause.OnConflict{
	Columns:   []clause.Column{{Name: "killmail_id"}},
	DoNothing: true,
}

// Save stores one payload. A killmail already stored is left untouched.
func (db *DB) Save(ctx context.Context, raw killmail.RawEvent) error {
	row, err := db.row(raw)
	if err != nil {
		return fmt.Errorf("save killmail: %w", err)
	}
	if err := db.WithContext(ctx).Clauses(ignoreDuplicate).Create(&row).Error; err != nil {
		return fmt.Errorf("save killmail %d: %w", row.KillmailID, err)
	}
	return nil
}

// SaveBatch stores payloads in batches, skipping ones without a usable
// header. It returns how many payloads were rejected.
func (db *DB) SaveBatch(ctx context.Context, raws []killmail.RawEvent) (int, error) {
	rows := make([]Killmail, 0, len(raws))
	rejected := 0
	for _, raw := range raws {
		row, err := db.row(raw)
		if err != nil {
			rejected++
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return rejected, nil
	}
	if err := db.WithContext(ctx).Clauses(ignoreDuplicate).CreateInBatches(rows, batchSize).Error; err != nil {
		return rejected, fmt.Errorf("save batch: %w", err)
	}
	return rejected, nil
}

// FetchEvents returns the payloads in window, oldest first.
func (db *DB) FetchEvents(ctx context.Context, window killmail.TimeRange, filters analysis.Filters) ([]killmail.RawEvent, error) {
	q := db.WithContext(ctx).Model(&Killmail{}).
		Where("killmail_time >= ? AND killmail_time <= ?", window.Start.UTC(), window.End.UTC())
	if len(filters.SystemIDs) > 0 {
		q = q.Where("solar_system_id IN ?", filters.SystemIDs)
	}

	var rows []Killmail
	if err := q.Order("killmail_time ASC").Order("killmail_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	out := make([]killmail.RawEvent, len(rows))
	for i, r := range rows {
		out[i] = killmail.RawEvent(r.Payload)
	}
	return out, nil
}

// Prune deletes killmails older than cutoff and returns how many went.
func (db *DB) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("killmail_time < ?", cutoff.UTC()).Delete(&Killmail{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Count returns the number of stored killmails.
func (db *DB) Count(ctx context.Context) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&Killmail{}).Count(&n).Error
	return n, err
}

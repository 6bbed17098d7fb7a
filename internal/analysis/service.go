// Package analysis is the entry point for battle queries. It fetches raw
// killmails from an EventSource, detects and enriches battles, and caches the
// results for a short time.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/guarzo/eve-battles/internal/battle"
	"github.com/guarzo/eve-battles/internal/cache"
	"github.com/guarzo/eve-battles/internal/killmail"
	"github.com/guarzo/eve-battles/internal/shiptype"
)

const (
	initialHorizon = 2 * time.Hour
	maxHorizon     = 48 * time.Hour
)

// Filters narrows an event fetch. An empty SystemIDs means every system.
type Filters struct {
	SystemIDs []int64
}

// EventSource supplies raw killmails in any shape the normalizer accepts.
type EventSource interface {
	FetchEvents(ctx context.Context, window killmail.TimeRange, filters Filters) ([]killmail.RawEvent, error)
}

// Detection is the result of one detection run.
type Detection struct {
	Battles        []battle.Battle `json:"battles"`
	SkippedRecords int             `json:"skipped_records"`
}

type Config struct {
	Detector    battle.DetectorConfig
	Timeline    battle.TimelineConfig
	Composition battle.CompositionConfig
	CacheTTL    time.Duration
	CacheSize   int
}

// Service answers battle queries. Cached results are shared between callers
// and must be treated as read-only.
type Service struct {
	source     EventSource
	normalizer *killmail.Normalizer
	detector   *battle.Detector
	enricher   *battle.Enricher
	windows    *cache.Loader[Detection]
	battles    *cache.Loader[battle.Battle]
	logger     logrus.FieldLogger
	now        func() time.Time
}

func NewService(source EventSource, taxonomy shiptype.Taxonomy, cfg Config, logger logrus.FieldLogger) *Service {
	return &Service{
		source:     source,
		normalizer: killmail.NewNormalizer(logger),
		detector:   battle.NewDetector(cfg.Detector, logger),
		enricher:   battle.NewEnricher(cfg.Timeline, cfg.Composition, taxonomy, logger),
		windows:    cache.NewLoader[Detection](cache.NewTTLCache[Detection](cfg.CacheSize), cfg.CacheTTL),
		battles:    cache.NewLoader[battle.Battle](cache.NewTTLCache[battle.Battle](cfg.CacheSize), cfg.CacheTTL),
		logger:     logger,
		now:        time.Now,
	}
}

// DetectBattles clusters and enriches every battle in [start, end].
func (s *Service) DetectBattles(ctx context.Context, start, end time.Time) (Detection, error) {
	if end.Before(start) {
		return Detection{}, fmt.Errorf("detect battles: end %s before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	window := killmail.TimeRange{Start: start.UTC(), End: end.UTC()}
	key := fmt.Sprintf("window:%d-%d", window.Start.Unix(), window.End.Unix())

	det, cached, err := s.windows.Load(key, func() (Detection, error) {
		raws, err := s.source.FetchEvents(ctx, window, Filters{})
		if err != nil {
			return Detection{}, fmt.Errorf("fetch events: %w", err)
		}
		events, skipped := s.normalizer.NormalizeAll(raws)
		battles := s.detector.Detect(events, window)
		for i := range battles {
			battles[i] = s.enricher.Enrich(battles[i], nil)
		}
		s.logger.WithFields(logrus.Fields{
			"start":   window.Start,
			"end":     window.End,
			"records": len(raws),
			"skipped": skipped,
			"battles": len(battles),
		}).Info("Detected battles")
		return Detection{Battles: battles, SkippedRecords: skipped}, nil
	})
	if err != nil {
		return Detection{}, fmt.Errorf("detect battles: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"key": key, "cached": cached}).Debug("Detection lookup")
	return det, nil
}

// DetectRecentBattles returns the significant battles of the last
// lookbackHours with at least minParticipants pilots. The window end is
// rounded up to the minute so repeated requests share a cache entry.
func (s *Service) DetectRecentBattles(ctx context.Context, lookbackHours, minParticipants int) (Detection, error) {
	if lookbackHours <= 0 {
		return Detection{}, fmt.Errorf("detect recent battles: lookback must be positive, got %d", lookbackHours)
	}
	if minParticipants <= 0 {
		minParticipants = s.detector.Config().MinParticipants
	}
	end := s.now().UTC().Truncate(time.Minute).Add(time.Minute)
	start := end.Add(-time.Duration(lookbackHours) * time.Hour)

	det, err := s.DetectBattles(ctx, start, end)
	if err != nil {
		return Detection{}, err
	}
	out := Detection{SkippedRecords: det.SkippedRecords, Battles: []battle.Battle{}}
	for _, b := range det.Battles {
		if b.Significant() && b.Pilots() >= minParticipants {
			out.Battles = append(out.Battles, b)
		}
	}
	return out, nil
}

// GetBattleWithTimeline rebuilds one battle from its id. Only the battle's
// system is fetched; the window grows until the battle no longer touches its
// end. A *battle.NotFoundError means the id no longer matches a cluster.
func (s *Service) GetBattleWithTimeline(ctx context.Context, id string) (battle.Battle, error) {
	system, start, err := battle.ParseBattleID(id)
	if err != nil {
		return battle.Battle{}, fmt.Errorf("get battle: %w", err)
	}

	b, cached, err := s.battles.Load("battle:"+id, func() (battle.Battle, error) {
		return s.rebuild(ctx, id, system, start)
	})
	if err != nil {
		return battle.Battle{}, err
	}
	s.logger.WithFields(logrus.Fields{"battle_id": id, "cached": cached}).Debug("Battle lookup")
	return b, nil
}

func (s *Service) rebuild(ctx context.Context, id string, system int64, start time.Time) (battle.Battle, error) {
	lookback := s.detector.Config().Lookback
	for horizon := initialHorizon; ; horizon *= 2 {
		window := killmail.TimeRange{Start: start.Add(-lookback), End: start.Add(horizon)}
		raws, err := s.source.FetchEvents(ctx, window, Filters{SystemIDs: []int64{system}})
		if err != nil {
			return battle.Battle{}, fmt.Errorf("fetch events for battle %s: %w", id, err)
		}
		events, _ := s.normalizer.NormalizeAll(raws)

		var found *battle.Battle
		for _, b := range s.detector.Detect(events, window) {
			if b.ID == id {
				found = &b
				break
			}
		}
		if found == nil {
			return battle.Battle{}, &battle.NotFoundError{BattleID: id}
		}
		if found.EndTime.Add(lookback).Before(window.End) || horizon >= maxHorizon {
			return s.enricher.Enrich(*found, nil), nil
		}
		s.logger.WithFields(logrus.Fields{
			"battle_id": id,
			"horizon":   horizon,
		}).Debug("Battle reaches window edge, widening")
	}
}

// ReconstructTimeline recomputes phases and metrics without re-clustering.
func (s *Service) ReconstructTimeline(b battle.Battle) battle.Battle {
	return s.enricher.ReconstructTimeline(b)
}

// AssignSides recomputes sides, composition and metrics with overrides laid
// over any the battle already carries.
func (s *Service) AssignSides(b battle.Battle, overrides battle.Overrides) (battle.Battle, error) {
	return s.enricher.AssignSides(b, overrides)
}

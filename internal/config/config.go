// Package config loads battlescope settings from a JSON file, with
// BATTLES_-prefixed environment variables taking precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/guarzo/eve-battles/internal/analysis"
	"github.com/guarzo/eve-battles/internal/battle"
	"github.com/guarzo/eve-battles/internal/feed"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "BATTLES_"

// AppConfig mirrors config.json
type AppConfig struct {
	LogLevel          string  `json:"logLevel"          env:"LOG_LEVEL"`
	DatabasePath      string  `json:"databasePath"      env:"DATABASE_PATH"`
	ZKillWebsocketURL string  `json:"zkillWebsocketUrl" env:"ZKILL_WEBSOCKET_URL"`
	IgnoreSystemIds   []int64 `json:"ignoreSystemIds"   env:"IGNORE_SYSTEM_IDS"`
	TrackedIds        []int64 `json:"trackedIds"        env:"TRACKED_IDS"`
	ReconnectSeconds  int     `json:"reconnectSeconds"  env:"RECONNECT_SECONDS"`

	InactivityMinutes int     `json:"inactivityMinutes" env:"INACTIVITY_MINUTES"`
	LookbackMinutes   int     `json:"lookbackMinutes"   env:"LOOKBACK_MINUTES"`
	MinParticipants   int     `json:"minParticipants"   env:"MIN_PARTICIPANTS"`
	BucketSeconds     int     `json:"bucketSeconds"     env:"BUCKET_SECONDS"`
	PeakMultiplier    float64 `json:"peakMultiplier"    env:"PEAK_MULTIPLIER"`
	SmallGangPilots   int     `json:"smallGangPilots"   env:"SMALL_GANG_PILOTS"`
	TopShips          int     `json:"topShips"          env:"TOP_SHIPS"`

	CacheTTLMinutes int `json:"cacheTtlMinutes" env:"CACHE_TTL_MINUTES"`
	CacheSize       int `json:"cacheSize"       env:"CACHE_SIZE"`
	RetentionDays   int `json:"retentionDays"   env:"RETENTION_DAYS"`
}

// Default returns the settings used when nothing is configured.
func Default() *AppConfig {
	d := battle.DefaultDetectorConfig()
	t := battle.DefaultTimelineConfig()
	return &AppConfig{
		LogLevel:          "info",
		DatabasePath:      "battles.sqlite",
		ZKillWebsocketURL: feed.DefaultURL,
		ReconnectSeconds:  10,
		InactivityMinutes: int(d.InactivityThreshold / time.Minute),
		LookbackMinutes:   int(d.Lookback / time.Minute),
		MinParticipants:   d.MinParticipants,
		BucketSeconds:     int(t.BucketSize / time.Second),
		PeakMultiplier:    t.PeakMultiplier,
		SmallGangPilots:   t.SmallGangPilots,
		TopShips:          battle.DefaultCompositionConfig().TopShips,
		CacheTTLMinutes:   5,
		CacheSize:         256,
		RetentionDays:     30,
	}
}

// LoadConfig loads JSON from path over the defaults, then applies
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := Default()

	file, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) DetectorConfig() battle.DetectorConfig {
	return battle.DetectorConfig{
		InactivityThreshold: time.Duration(c.InactivityMinutes) * time.Minute,
		Lookback:            time.Duration(c.LookbackMinutes) * time.Minute,
		MinParticipants:     c.MinParticipants,
	}
}

// TimelineConfig keeps the default quiet rate, gank ratio and intensity
// bands; only the size knobs are exposed.
func (c *AppConfig) TimelineConfig() battle.TimelineConfig {
	t := battle.DefaultTimelineConfig()
	if c.BucketSeconds > 0 {
		t.BucketSize = time.Duration(c.BucketSeconds) * time.Second
	}
	if c.PeakMultiplier > 0 {
		t.PeakMultiplier = c.PeakMultiplier
	}
	if c.SmallGangPilots > 0 {
		t.SmallGangPilots = c.SmallGangPilots
	}
	return t
}

func (c *AppConfig) CompositionConfig() battle.CompositionConfig {
	return battle.CompositionConfig{TopShips: c.TopShips}
}

func (c *AppConfig) AnalysisConfig() analysis.Config {
	return analysis.Config{
		Detector:    c.DetectorConfig(),
		Timeline:    c.TimelineConfig(),
		Composition: c.CompositionConfig(),
		CacheTTL:    time.Duration(c.CacheTTLMinutes) * time.Minute,
		CacheSize:   c.CacheSize,
	}
}

func (c *AppConfig) FeedConfig() feed.Config {
	return feed.Config{
		URL:             c.ZKillWebsocketURL,
		ReconnectDelay:  time.Duration(c.ReconnectSeconds) * time.Second,
		IgnoreSystemIDs: c.IgnoreSystemIds,
		TrackedIDs:      c.TrackedIds,
	}
}

// Retention is how long raw killmails are kept. Zero keeps them forever.
func (c *AppConfig) Retention() time.Duration {
	if c.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

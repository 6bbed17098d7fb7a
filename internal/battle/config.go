package battle

import "time"

// DetectorConfig tunes clustering.
type DetectorConfig struct {
	// InactivityThreshold is the largest gap that always continues a cluster.
	InactivityThreshold time.Duration
	// Lookback is how far back a recurring pilot can bridge a lull.
	Lookback time.Duration
	// MinParticipants is the unique pilot count that makes a single kill a battle.
	MinParticipants int
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		InactivityThreshold: 5 * time.Minute,
		Lookback:            20 * time.Minute,
		MinParticipants:     2,
	}
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	d := DefaultDetectorConfig()
	if c.InactivityThreshold <= 0 {
		c.InactivityThreshold = d.InactivityThreshold
	}
	if c.Lookback <= 0 {
		c.Lookback = d.Lookback
	}
	if c.MinParticipants <= 0 {
		c.MinParticipants = d.MinParticipants
	}
	return c
}

// IntensityBands are the kills-per-minute lower bounds of each intensity.
type IntensityBands struct {
	Moderate float64
	High     float64
	Extreme  float64
}

// TimelineConfig tunes phase segmentation.
type TimelineConfig struct {
	BucketSize      time.Duration
	PeakMultiplier  float64
	QuietRate       float64 // smoothed kills per bucket at or below which a bucket is quiet
	SmallGangPilots int     // battles with fewer pilots use the small-gang labels
	GankRatio       float64 // attackers per kill that make a bucket a gank
	Intensity       IntensityBands
}

func DefaultTimelineConfig() TimelineConfig {
	return TimelineConfig{
		BucketSize:      2 * time.Minute,
		PeakMultiplier:  3,
		QuietRate:       0.5,
		SmallGangPilots: 6,
		GankRatio:       3,
		Intensity:       IntensityBands{Moderate: 0.5, High: 2, Extreme: 5},
	}
}

func (c TimelineConfig) withDefaults() TimelineConfig {
	d := DefaultTimelineConfig()
	if c.BucketSize <= 0 {
		c.BucketSize = d.BucketSize
	}
	if c.PeakMultiplier <= 0 {
		c.PeakMultiplier = d.PeakMultiplier
	}
	if c.QuietRate <= 0 {
		c.QuietRate = d.QuietRate
	}
	if c.SmallGangPilots <= 0 {
		c.SmallGangPilots = d.SmallGangPilots
	}
	if c.GankRatio <= 0 {
		c.GankRatio = d.GankRatio
	}
	if c.Intensity == (IntensityBands{}) {
		c.Intensity = d.Intensity
	}
	return c
}

// CompositionConfig tunes fleet composition reports.
type CompositionConfig struct {
	TopShips            int
	MinShipsForInsights int
}

func DefaultCompositionConfig() CompositionConfig {
	return CompositionConfig{TopShips: 5, MinShipsForInsights: 3}
}

func (c CompositionConfig) withDefaults() CompositionConfig {
	d := DefaultCompositionConfig()
	if c.TopShips <= 0 {
		c.TopShips = d.TopShips
	}
	if c.MinShipsForInsights <= 0 {
		c.MinShipsForInsights = d.MinShipsForInsights
	}
	return c
}

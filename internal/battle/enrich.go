package battle

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/guarzo/eve-battles/internal/shiptype"
)

// Enricher runs the per-battle stages: sides, timeline, composition and
// metrics. A failing stage is recorded on the battle as a StageError and
// leaves a default result; the battle itself is always returned.
type Enricher struct {
	timeline    *TimelineReconstructor
	composition *CompositionAnalyzer
	metrics     *MetricsCalculator
	logger      logrus.FieldLogger
}

func NewEnricher(tcfg TimelineConfig, ccfg CompositionConfig, taxonomy shiptype.Taxonomy, logger logrus.FieldLogger) *Enricher {
	return &Enricher{
		timeline:    NewTimelineReconstructor(tcfg),
		composition: NewCompositionAnalyzer(taxonomy, ccfg),
		metrics:     NewMetricsCalculator(taxonomy),
		logger:      logger,
	}
}

// Enrich runs every stage on a copy of b.
func (e *Enricher) Enrich(b Battle, overrides Overrides) Battle {
	out := b.clone()
	out.Errors = nil
	out = e.sides(out, overrides)
	out = e.phases(out)
	out = e.compose(out)
	return e.measure(out)
}

// AssignSides re-runs side assignment and the stages that depend on it,
// keeping the existing phases. Invalid overrides are rejected before anything
// is recomputed.
func (e *Enricher) AssignSides(b Battle, overrides Overrides) (Battle, error) {
	if err := overrides.Validate(); err != nil {
		return b, err
	}
	out := dropErrors(b.clone(), StageSides, StageComposition, StageMetrics)
	out = e.sides(out, overrides)
	out = e.compose(out)
	return e.measure(out), nil
}

// ReconstructTimeline re-runs phase segmentation and metrics.
func (e *Enricher) ReconstructTimeline(b Battle) Battle {
	out := dropErrors(b.clone(), StageTimeline, StageMetrics)
	out = e.phases(out)
	return e.measure(out)
}

func (e *Enricher) sides(b Battle, overrides Overrides) Battle {
	assigned, err := AssignSides(b, overrides)
	if err != nil {
		return e.record(b, StageError{Stage: StageSides, Err: err})
	}
	return assigned
}

func (e *Enricher) phases(b Battle) Battle {
	out, err := e.timeline.Reconstruct(b)
	if err != nil {
		return e.record(out, StageError{Stage: StageTimeline, Err: err})
	}
	return out
}

func (e *Enricher) compose(b Battle) Battle {
	for i := range b.Sides {
		report, err := e.composition.Analyze(b.Sides[i])
		b.Sides[i].Composition = report
		if err != nil {
			b = e.record(b, StageError{Stage: StageComposition, SideID: b.Sides[i].ID, Err: err})
		}
	}
	return b
}

func (e *Enricher) measure(b Battle) Battle {
	metrics, err := e.metrics.Compute(b)
	b.Metrics = metrics
	if err != nil {
		return e.record(b, StageError{Stage: StageMetrics, Err: err})
	}
	return b
}

func (e *Enricher) record(b Battle, serr StageError) Battle {
	entry := e.logger.WithFields(logrus.Fields{
		"battle_id": b.ID,
		"stage":     serr.Stage,
	})
	var insufficient *InsufficientDataError
	if errors.As(serr.Err, &insufficient) {
		entry.Debugf("Stage produced default result: %v", serr.Err)
	} else {
		entry.Warnf("Stage failed: %v", serr.Err)
	}
	b.Errors = append(b.Errors, serr)
	return b
}

func dropErrors(b Battle, stages ...Stage) Battle {
	kept := b.Errors[:0]
	for _, serr := range b.Errors {
		drop := false
		for _, s := range stages {
			if serr.Stage == s {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, serr)
		}
	}
	b.Errors = kept
	return b
}

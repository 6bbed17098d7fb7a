package battle

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidSide is returned for override targets that are not side labels.
var ErrInvalidSide = errors.New("invalid side id")

// Stage names an enrichment step.
type Stage string

const (
	StageSides       Stage = "sides"
	StageTimeline    Stage = "timeline"
	StageComposition Stage = "composition"
	StageMetrics     Stage = "metrics"
)

// NotFoundError means no current cluster carries the requested id. Battle ids
// are recomputed from events, so callers should re-run detection.
type NotFoundError struct {
	BattleID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("battle %s not found", e.BattleID)
}

// InsufficientDataError means a stage had too little input to say anything
// useful. The stage still returns a default result.
type InsufficientDataError struct {
	Stage  Stage
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %s", e.Stage, e.Reason)
}

// StageError records a failed enrichment step on the battle it affected.
type StageError struct {
	Stage  Stage
	SideID SideID
	Err    error
}

func (e StageError) Error() string {
	if e.SideID != "" {
		return fmt.Sprintf("%s (%s): %v", e.Stage, e.SideID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e StageError) Unwrap() error {
	return e.Err
}

func (e StageError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Stage  Stage  `json:"stage"`
		SideID SideID `json:"side_id,omitempty"`
		Error  string `json:"error"`
	}{e.Stage, e.SideID, e.Err.Error()})
}

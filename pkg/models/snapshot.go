// Package models contains domain models for coinscope.
package models

// Progress reports estimator counters for the status line.
type Progress struct {
	AdaptiveSteps   uint64  `json:"adaptive_steps"`
	RefinementSteps uint64  `json:"refinement_steps"`
	DirectSamples   uint64  `json:"direct_samples"`
	Refinements     int     `json:"refinements"`
	LogF            float64 `json:"log_f"`
	Finished        bool    `json:"finished"`
}

// Snapshot is everything the display layer needs for one frame.
type Snapshot struct {
	SessionID string        `json:"session_id"`
	Params    SessionParams `json:"params"`
	Paused    bool          `json:"paused"`
	Elapsed   float64       `json:"elapsed"`
	Progress  Progress      `json:"progress"`

	Analytic   DisplayCurve  `json:"analytic"`
	Adaptive   DisplayCurve  `json:"adaptive"`
	Refinement DisplayCurve  `json:"refinement"`
	Direct     DisplayCurve  `json:"direct"`
	Reference  *DisplayCurve `json:"reference,omitempty"`

	AdaptiveHist   DisplayCurve `json:"adaptive_hist"`
	RefinementHist DisplayCurve `json:"refinement_hist"`
	DirectHist     DisplayCurve `json:"direct_hist"`

	LogF DisplayCurve `json:"log_f"`
}

package entity

import "time"

// StageName identifies one step of the pipeline state machine.
type StageName string

const (
	StageCapture      StageName = "capture"
	StageTextRecovery StageName = "text_recovery"
	StageExtraction   StageName = "extraction"
	StagePersistence  StageName = "persistence"
	StageDone         StageName = "done"
	StageFailed       StageName = "failed"
)

// StageOrder is the fixed order in which stages run.
var StageOrder = []StageName{StageCapture, StageTextRecovery, StageExtraction, StagePersistence}

// StageOutcome is the binary result the orchestrator observes for a stage.
type StageOutcome struct {
	Stage    StageName     `json:"stage"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// RunReport summarises one orchestrated run.
type RunReport struct {
	RunID       string         `json:"run_id"`
	State       StageName      `json:"state"`
	FailedStage StageName      `json:"failed_stage,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Stages      []StageOutcome `json:"stages"`
}

// Succeeded reports whether every stage completed.
func (r *RunReport) Succeeded() bool {
	return r.State == StageDone
}

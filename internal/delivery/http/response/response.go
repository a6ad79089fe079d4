package response

import (
	"time"

	"github.com/user/goldwatch/internal/entity"
)

// StageResponse is one stage outcome of a run.
type StageResponse struct {
	Stage      string `json:"stage"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// RunResponse is a DTO for a pipeline run, mirroring entity.RunReport.
type RunResponse struct {
	RunID       string          `json:"run_id"`
	State       string          `json:"state"` // "done" or "failed"
	FailedStage string          `json:"failed_stage,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Stages      []StageResponse `json:"stages"`
}

func NewRunResponse(report *entity.RunReport) RunResponse {
	resp := RunResponse{
		RunID:       report.RunID,
		State:       string(report.State),
		FailedStage: string(report.FailedStage),
		Error:       report.Error,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		Stages:      make([]StageResponse, 0, len(report.Stages)),
	}
	for _, s := range report.Stages {
		resp.Stages = append(resp.Stages, StageResponse{
			Stage:      string(s.Stage),
			Success:    s.Success,
			Error:      s.Error,
			DurationMS: s.Duration.Milliseconds(),
		})
	}
	return resp
}

type RunListResponse struct {
	Runs []RunResponse `json:"runs"`
}

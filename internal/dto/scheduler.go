package dto

import (
	"time"

	"github.com/noah-isme/classgrid-api/internal/models"
	"github.com/noah-isme/classgrid-api/internal/scheduler"
)

// WeightsRequest overrides the quality weights of a run.
type WeightsRequest struct {
	Preference  float64 `json:"preference" validate:"gte=0"`
	Utilization float64 `json:"utilization" validate:"gte=0"`
	Balance     float64 `json:"balance" validate:"gte=0"`
}

// BudgetRequest overrides the optimizer budget. Zero fields keep the
// configured defaults.
type BudgetRequest struct {
	MaxSteps     int   `json:"maxSteps" validate:"gte=0,lte=1000000"`
	MaxDepth     int   `json:"maxDepth" validate:"gte=0,lte=3"`
	MaxDisplaced int   `json:"maxDisplaced" validate:"gte=0,lte=8"`
	Iterations   int   `json:"iterations" validate:"gte=-1,lte=1000000"`
	TimeLimitMS  int64 `json:"timeLimitMs" validate:"gte=0,lte=600000"`
	Seed         int64 `json:"seed"`
	Shuffle      bool  `json:"shuffle"`
}

// GenerateScheduleRequest asks for a new proposal. Without an inline catalog
// the catalog stored for the term is used.
type GenerateScheduleRequest struct {
	TermID   string           `json:"termId" validate:"required,max=64"`
	Catalog  *scheduler.Input `json:"catalog,omitempty"`
	Optimize *bool            `json:"optimize,omitempty"`
	Weights  *WeightsRequest  `json:"weights,omitempty"`
	Budget   *BudgetRequest   `json:"budget,omitempty"`
}

// OptimizeScheduleRequest re-runs the optimizer on a stored proposal.
type OptimizeScheduleRequest struct {
	ProposalID string         `json:"-" validate:"required"`
	Budget     *BudgetRequest `json:"budget,omitempty"`
	Async      bool           `json:"async"`
}

// ScheduleProposalResponse is a generated or optimized proposal.
type ScheduleProposalResponse struct {
	ProposalID  string           `json:"proposalId"`
	TermID      string           `json:"termId"`
	Revision    int              `json:"revision"`
	GeneratedAt time.Time        `json:"generatedAt"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	Report      scheduler.Report `json:"report"`
}

// OptimizationJobStatus tracks queued optimizer runs.
type OptimizationJobStatus string

const (
	OptimizationJobQueued    OptimizationJobStatus = "QUEUED"
	OptimizationJobRunning   OptimizationJobStatus = "RUNNING"
	OptimizationJobSucceeded OptimizationJobStatus = "SUCCEEDED"
	OptimizationJobFailed    OptimizationJobStatus = "FAILED"
)

// OptimizationJobResponse describes an asynchronous optimization.
type OptimizationJobResponse struct {
	JobID      string                `json:"jobId"`
	ProposalID string                `json:"proposalId"`
	Status     OptimizationJobStatus `json:"status"`
	Error      string                `json:"error,omitempty"`
	QueuedAt   time.Time             `json:"queuedAt"`
	FinishedAt *time.Time            `json:"finishedAt,omitempty"`
}

// SaveScheduleRequest persists a proposal as a new run version.
type SaveScheduleRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Publish    bool   `json:"publish"`
	// AllowPartial saves proposals that leave sections unassigned.
	AllowPartial bool `json:"allowPartial"`
}

// SaveScheduleResponse identifies the stored run.
type SaveScheduleResponse struct {
	RunID   string                   `json:"runId"`
	Version int                      `json:"version"`
	Status  models.ScheduleRunStatus `json:"status"`
}

// ScheduleRunQuery filters stored runs.
type ScheduleRunQuery struct {
	TermID string `form:"termId" validate:"required"`
}

// ExportScheduleRequest renders a proposal report to a file.
type ExportScheduleRequest struct {
	ProposalID string `json:"-" validate:"required"`
	Format     string `json:"format" validate:"required,oneof=csv pdf CSV PDF"`
}

// ExportScheduleResponse carries the signed download token.
type ExportScheduleResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expiresAt"`
}

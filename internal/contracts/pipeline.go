package contracts

import "time"

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 에러 메시지에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   EXTRACT → TRANSFORM → LOAD → QUALITY

// Stage represents a pipeline stage
type Stage string

const (
	// StageExtract reads the workbook sheets into a RawTable
	StageExtract Stage = "EXTRACT"

	// StageTransform normalizes columns and derives total_amount, is_return, year_month
	StageTransform Stage = "TRANSFORM"

	// StageLoad replaces sales_staging and sales_cleaned in one transaction
	StageLoad Stage = "LOAD"

	// StageQuality evaluates today's cleaned partition and appends to dq_monitor_log
	StageQuality Stage = "QUALITY"
)

// AllStages returns the stages in execution order
func AllStages() []Stage {
	return []Stage{StageExtract, StageTransform, StageLoad, StageQuality}
}

// StageError tags an error with the stage it came from
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageTiming records how long a stage took
type StageTiming struct {
	Stage    Stage         `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// RunReport summarizes one pipeline run
type RunReport struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	RawRows    int               `json:"raw_rows"`
	Transform  *TransformSummary `json:"transform,omitempty"`
	Load       *LoadSummary      `json:"load,omitempty"`
	Quality    *CheckOutcome     `json:"quality,omitempty"`
	Timings    []StageTiming     `json:"timings"`
}

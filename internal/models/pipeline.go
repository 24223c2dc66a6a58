package models

// Stage is a node in the per-dataset pipeline state machine.
type Stage string

const (
	StageFetch    Stage = "FETCH"
	StageParse    Stage = "PARSE"
	StageStore    Stage = "STORE"
	StageComplete Stage = "COMPLETE"
)

// ProcessedDataset records the terminal outcome of one dataset's pass
// through the pipeline, whether it completed or failed.
type ProcessedDataset struct {
	DatasetID      string `json:"dataset_id"`
	StageCompleted Stage  `json:"stage_completed"`
	ErrorStage     Stage  `json:"error_stage,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	DurationMS     int64  `json:"duration_ms"`
	FromCache      bool   `json:"from_cache"`
}

// PipelineResult summarises one pipeline run.
type PipelineResult struct {
	Successful       []ProcessedDataset `json:"successful"`
	Failed           []ProcessedDataset `json:"failed"`
	FailuresByStage  map[Stage]int      `json:"failures_by_stage"`
	CacheHitRate     float64            `json:"cache_hit_rate"`
	SuccessRate      float64            `json:"success_rate"`
	TotalDurationMS  int64              `json:"total_duration_ms"`
}

// NewPipelineResult builds a PipelineResult from the per-dataset outcomes,
// computing the derived rates described in the ETL pipeline contract.
func NewPipelineResult(successful, failed []ProcessedDataset, totalDurationMS int64) *PipelineResult {
	failuresByStage := make(map[Stage]int)
	cacheHits := 0
	for _, p := range successful {
		if p.FromCache {
			cacheHits++
		}
	}
	for _, p := range failed {
		failuresByStage[p.ErrorStage]++
	}

	total := len(successful) + len(failed)
	result := &PipelineResult{
		Successful:      successful,
		Failed:          failed,
		FailuresByStage: failuresByStage,
		TotalDurationMS: totalDurationMS,
	}
	if total > 0 {
		result.SuccessRate = float64(len(successful)) / float64(total)
		result.CacheHitRate = float64(cacheHits) / float64(total)
	}
	return result
}

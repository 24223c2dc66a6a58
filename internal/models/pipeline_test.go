package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPipelineResultPartialFailure(t *testing.T) {
	successful := []ProcessedDataset{
		{DatasetID: "a", StageCompleted: StageComplete},
		{DatasetID: "b", StageCompleted: StageComplete, FromCache: true},
	}
	failed := []ProcessedDataset{
		{DatasetID: "c", ErrorStage: StageFetch, ErrorMessage: "timeout"},
	}

	result := NewPipelineResult(successful, failed, 1500)

	assert.Len(t, result.Successful, 2)
	assert.Len(t, result.Failed, 1)
	assert.InDelta(t, 2.0/3.0, result.SuccessRate, 0.0001)
	assert.InDelta(t, 1.0/3.0, result.CacheHitRate, 0.0001)
	assert.Equal(t, 1, result.FailuresByStage[StageFetch])
	assert.Equal(t, int64(1500), result.TotalDurationMS)
}

func TestNewPipelineResultEmptyBatch(t *testing.T) {
	result := NewPipelineResult(nil, nil, 0)
	assert.Equal(t, 0.0, result.SuccessRate)
	assert.Equal(t, 0.0, result.CacheHitRate)
}

func TestNewPipelineResultAllSucceed(t *testing.T) {
	successful := []ProcessedDataset{
		{DatasetID: "a", StageCompleted: StageComplete},
		{DatasetID: "b", StageCompleted: StageComplete},
	}
	result := NewPipelineResult(successful, nil, 100)
	assert.Equal(t, 1.0, result.SuccessRate)
	assert.Empty(t, result.FailuresByStage)
}

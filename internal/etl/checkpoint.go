package etl

import (
	"context"
	"encoding/json"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/datacat/internal/catalogue"
	"github.com/ternarybob/datacat/internal/models"
)

// ResumablePipeline wraps a Pipeline with a disk-resident Checkpoint: a
// run is filtered to ids not already processed or failed, and the
// checkpoint is updated atomically after the run completes.
type ResumablePipeline struct {
	pipeline *Pipeline
	path     string
	logger   arbor.ILogger
}

// NewResumable wraps pipeline with checkpoint persistence at path. An
// empty path disables checkpointing; Run then behaves exactly like the
// wrapped Pipeline.
func NewResumable(pipeline *Pipeline, path string, logger arbor.ILogger) *ResumablePipeline {
	return &ResumablePipeline{pipeline: pipeline, path: path, logger: logger}
}

// Run loads the checkpoint (if any), filters datasetIDs down to ids not
// yet seen, runs the pipeline over the remainder, and persists the
// merged checkpoint once the run terminates successfully. Cancellation
// leaves the checkpoint untouched: partially committed batches are
// already durable in the repository, but resuming should re-offer any
// id this run did not finish.
func (r *ResumablePipeline) Run(ctx context.Context, datasetIDs []string, progressCallback catalogue.ProgressCallback) *models.PipelineResult {
	if r.path == "" {
		return r.pipeline.Run(ctx, datasetIDs, progressCallback)
	}

	checkpoint, err := r.load()
	if err != nil {
		r.logger.Warn().Err(err).Str("path", r.path).Msg("failed to read checkpoint, starting fresh")
		checkpoint = models.NewCheckpoint()
	}

	pending := make([]string, 0, len(datasetIDs))
	for _, id := range datasetIDs {
		if !checkpoint.Seen(id) {
			pending = append(pending, id)
		}
	}
	r.logger.Info().
		Int("requested", len(datasetIDs)).
		Int("pending", len(pending)).
		Int("skipped_from_checkpoint", len(datasetIDs)-len(pending)).
		Msg("resumable pipeline run starting")

	result := r.pipeline.Run(ctx, pending, progressCallback)

	if ctx.Err() != nil {
		r.logger.Warn().Err(ctx.Err()).Msg("run cancelled, checkpoint not updated")
		return result
	}

	processedIDs := make([]string, 0, len(result.Successful))
	for _, p := range result.Successful {
		processedIDs = append(processedIDs, p.DatasetID)
	}
	failedIDs := make([]string, 0, len(result.Failed))
	for _, f := range result.Failed {
		failedIDs = append(failedIDs, f.DatasetID)
	}
	checkpoint.Merge(processedIDs, failedIDs)

	if err := r.save(checkpoint); err != nil {
		r.logger.Error().Err(err).Str("path", r.path).Msg("failed to persist checkpoint")
	}

	return result
}

func (r *ResumablePipeline) load() (*models.Checkpoint, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewCheckpoint(), nil
		}
		return nil, err
	}
	var checkpoint models.Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, err
	}
	return &checkpoint, nil
}

// save writes the checkpoint to a temp file and renames it into place,
// matching the write-temp-then-rename discipline used for the on-disk
// resource cache's content/meta pairs.
func (r *ResumablePipeline) save(checkpoint *models.Checkpoint) error {
	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

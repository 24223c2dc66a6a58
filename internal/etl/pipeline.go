// Package etl drives the fetch -> parse -> store state machine that
// populates the repository from the remote catalogue, with batched
// commits and optional resumable checkpointing.
package etl

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/datacat/internal/catalogue"
	"github.com/ternarybob/datacat/internal/common"
	dcerrors "github.com/ternarybob/datacat/internal/errors"
	"github.com/ternarybob/datacat/internal/interfaces"
	"github.com/ternarybob/datacat/internal/models"
	"github.com/ternarybob/datacat/internal/parser"
)

// Pipeline runs dataset ids through FETCH -> PARSE -> STORE, committing
// parsed records in batches.
type Pipeline struct {
	client      *catalogue.Client
	registry    *parser.Registry
	repository  interfaces.Repository
	batchSize   int
	stopOnError bool
	logger      arbor.ILogger
}

// New constructs a Pipeline from configuration.
func New(config *common.PipelineConfig, client *catalogue.Client, registry *parser.Registry, repository interfaces.Repository, logger arbor.ILogger) *Pipeline {
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Pipeline{
		client:      client,
		registry:    registry,
		repository:  repository,
		batchSize:   batchSize,
		stopOnError: config.StopOnError,
		logger:      logger,
	}
}

// Run fetches every id concurrently via the catalogue client, then
// parses and stores the successful fetches synchronously in batches of
// batchSize. Returns a summary of outcomes by stage.
func (p *Pipeline) Run(ctx context.Context, datasetIDs []string, progressCallback catalogue.ProgressCallback) *models.PipelineResult {
	start := time.Now()
	runID := common.NewRunID()
	p.logger.Info().Str("run_id", runID).Int("dataset_count", len(datasetIDs)).Msg("pipeline run starting")

	batchResult := p.client.FetchAll(ctx, datasetIDs, catalogue.DefaultFormats, progressCallback)

	var successful, failed []models.ProcessedDataset
	for _, f := range batchResult.Failed {
		failed = append(failed, models.ProcessedDataset{
			DatasetID:    f.DatasetID,
			ErrorStage:   models.StageFetch,
			ErrorMessage: f.Error.Error(),
			DurationMS:   f.DurationMS,
		})
	}

	var batch []*models.Dataset
	var batchMeta []models.ProcessedDataset
	stopped := false

	flush := func() {
		if len(batch) == 0 {
			return
		}
		result, err := p.repository.SaveMany(ctx, batch)
		if err != nil {
			p.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("batch save failed")
			for _, meta := range batchMeta {
				meta.ErrorStage = models.StageStore
				meta.ErrorMessage = err.Error()
				failed = append(failed, meta)
			}
			if p.stopOnError {
				stopped = true
			}
			batch, batchMeta = nil, nil
			return
		}

		byID := make(map[string]models.ProcessedDataset, len(batchMeta))
		for _, meta := range batchMeta {
			byID[meta.DatasetID] = meta
		}
		for _, id := range result.Succeeded {
			meta := byID[id]
			meta.StageCompleted = models.StageComplete
			successful = append(successful, meta)
		}
		if len(result.Failed) > 0 {
			if p.stopOnError {
				stopped = true
			}
			for id, msg := range result.Failed {
				meta := byID[id]
				meta.ErrorStage = models.StageStore
				meta.ErrorMessage = msg
				failed = append(failed, meta)
			}
		}
		batch, batchMeta = nil, nil
	}

	for _, f := range batchResult.Successful {
		if stopped {
			failed = append(failed, models.ProcessedDataset{
				DatasetID:    f.DatasetID,
				ErrorStage:   models.StageParse,
				ErrorMessage: "skipped: stop_on_error after earlier failure",
				FromCache:    f.Content != nil && f.Content.FromCache,
				DurationMS:   f.DurationMS,
			})
			continue
		}

		dataset, parseErr := p.parse(f)
		if parseErr != nil {
			failed = append(failed, models.ProcessedDataset{
				DatasetID:    f.DatasetID,
				ErrorStage:   models.StageParse,
				ErrorMessage: parseErr.Error(),
				FromCache:    f.Content != nil && f.Content.FromCache,
				DurationMS:   f.DurationMS,
			})
			if p.stopOnError {
				stopped = true
			}
			continue
		}

		batch = append(batch, dataset)
		batchMeta = append(batchMeta, models.ProcessedDataset{
			DatasetID: f.DatasetID,
			FromCache: f.Content != nil && f.Content.FromCache,
			DurationMS: f.DurationMS,
		})
		if len(batch) >= p.batchSize {
			flush()
		}
	}

	flush()

	result := models.NewPipelineResult(successful, failed, time.Since(start).Milliseconds())
	p.logger.Info().Str("run_id", runID).Int("successful", len(result.Successful)).Int("failed", len(result.Failed)).Msg("pipeline run complete")
	return result
}

// parse selects the JSON content over XML when both formats were
// fetched; the JSON record carries the richer party/relationship
// structure, while XML is retained for provenance only.
func (p *Pipeline) parse(fetched catalogue.DatasetFetchResult) (*models.Dataset, error) {
	if fetched.Content == nil {
		return nil, dcerrors.ErrParse
	}
	if raw, ok := fetched.Content.ByFormat[catalogue.FormatJSON]; ok {
		return p.registry.Parse(raw, "catalogue-json", "")
	}
	if raw, ok := fetched.Content.ByFormat[catalogue.FormatXML]; ok {
		return p.registry.Parse(raw, "iso19115-xml", "")
	}
	return nil, dcerrors.ErrParse
}

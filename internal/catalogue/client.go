// Package catalogue orchestrates the resource layer to fetch dataset
// metadata from the environmental data catalogue, applying bounded
// concurrency and a fixed per-request delay across JSON and XML formats.
package catalogue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/datacat/internal/common"
	"github.com/ternarybob/datacat/internal/resource"
)

// Format identifies a metadata representation fetched per dataset.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "gemini"
)

// urlTemplate returns the catalogue URL for a dataset id in the given
// format.
func (f Format) url(baseURL, datasetID string) string {
	switch f {
	case FormatXML:
		return fmt.Sprintf("%s/id/%s.xml?format=gemini", baseURL, datasetID)
	default:
		return fmt.Sprintf("%s/id/%s?format=json", baseURL, datasetID)
	}
}

func (f Format) accept() string {
	switch f {
	case FormatXML:
		return "application/xml"
	default:
		return "application/json"
	}
}

// DefaultFormats is JSON + XML, matching the catalogue's primary record
// plus the raw ISO 19115 document kept for provenance.
var DefaultFormats = []Format{FormatJSON, FormatXML}

// DatasetContent holds the raw bytes fetched for each requested format.
type DatasetContent struct {
	DatasetID string
	ByFormat  map[Format][]byte
	FromCache bool
}

// DatasetFetchResult is the outcome of fetching every format for one
// dataset: either content for all formats, or a single error (any format
// failure fails the whole record).
type DatasetFetchResult struct {
	DatasetID    string
	Content      *DatasetContent
	Success      bool
	Error        error
	FailedFormat Format
	DurationMS   int64
}

// BatchResult partitions a fetch_all call's outcomes.
type BatchResult struct {
	Successful []DatasetFetchResult
	Failed     []DatasetFetchResult
}

// ProgressStatus reports where a dataset is in the fetch lifecycle.
type ProgressStatus string

const (
	StatusFetching  ProgressStatus = "fetching"
	StatusCompleted ProgressStatus = "completed"
	StatusFailed    ProgressStatus = "failed"
)

// ProgressUpdate is emitted once a dataset starts fetching and again
// once it finishes; updates for distinct datasets may interleave but
// each dataset's own two updates are ordered.
type ProgressUpdate struct {
	DatasetID string
	Current   int
	Total     int
	Status    ProgressStatus
	FromCache bool
	Error     error
}

// ProgressCallback receives ProgressUpdate events. It is invoked from
// whichever goroutine completed the fetch, so it must be safe for
// concurrent use or otherwise synchronize internally.
type ProgressCallback func(ProgressUpdate)

// Client fetches dataset metadata from the catalogue with bounded
// concurrency and a fixed delay between each semaphore acquisition.
type Client struct {
	baseURL            string
	supportingDocsBase string
	factory            *resource.Factory
	concurrency        int
	requestDelay       time.Duration
	basicAuthUser      string
	basicAuthPassword  string
	retryPolicy        *resource.RetryPolicy
	limiter            *rate.Limiter
	logger             arbor.ILogger
}

// New constructs a Client from configuration.
func New(config *common.CatalogueConfig, factory *resource.Factory, logger arbor.ILogger) *Client {
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	policy := resource.NewRetryPolicy()
	if config.MaxAttempts > 0 {
		policy.MaxAttempts = config.MaxAttempts
	}
	if config.InitialBackoff > 0 {
		policy.InitialBackoff = config.InitialBackoff
	}
	if config.MaxBackoff > 0 {
		policy.MaxBackoff = config.MaxBackoff
	}

	requestsPerSecond := config.RequestsPerSecond
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5.0
	}

	return &Client{
		baseURL:            config.BaseURL,
		supportingDocsBase: config.SupportingDocsBase,
		factory:            factory,
		concurrency:        concurrency,
		requestDelay:       config.RequestDelay,
		basicAuthUser:      config.BasicAuthUser,
		basicAuthPassword:  config.BasicAuthPassword,
		retryPolicy:        policy,
		limiter:            rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:             logger,
	}
}

// FetchDataset fetches every requested format for one dataset. Any
// format failure fails the whole record.
func (c *Client) FetchDataset(ctx context.Context, datasetID string, formats []Format) DatasetFetchResult {
	if len(formats) == 0 {
		formats = DefaultFormats
	}

	start := time.Now()
	content := &DatasetContent{DatasetID: datasetID, ByFormat: make(map[Format][]byte, len(formats))}

	for _, format := range formats {
		var opts []resource.HTTPOption
		opts = append(opts, resource.WithAccept(format.accept()))
		if c.retryPolicy != nil {
			opts = append(opts, resource.WithRetryPolicy(c.retryPolicy))
		}
		opts = append(opts, resource.WithLimiter(c.limiter))
		if c.basicAuthUser != "" {
			opts = append(opts, resource.WithBasicAuth(c.basicAuthUser, c.basicAuthPassword))
		}

		res := c.factory.HTTP(format.url(c.baseURL, datasetID), opts...)
		fetched, err := res.Fetch(ctx)
		if err != nil {
			return DatasetFetchResult{
				DatasetID:    datasetID,
				Success:      false,
				Error:        err,
				FailedFormat: format,
				DurationMS:   time.Since(start).Milliseconds(),
			}
		}
		if !fetched.Success {
			return DatasetFetchResult{
				DatasetID:    datasetID,
				Success:      false,
				Error:        fmt.Errorf("%s", fetched.Error),
				FailedFormat: format,
				DurationMS:   time.Since(start).Milliseconds(),
			}
		}

		content.ByFormat[format] = fetched.Content
		content.FromCache = content.FromCache || fetched.FromCache
	}

	return DatasetFetchResult{
		DatasetID:  datasetID,
		Content:    content,
		Success:    true,
		DurationMS: time.Since(start).Milliseconds(),
	}
}

// FetchAll fetches every dataset concurrently, bounded by Concurrency,
// with RequestDelay enforced between each semaphore acquisition.
// progressCallback (optional) is invoked once when a dataset starts and
// once when it finishes.
func (c *Client) FetchAll(ctx context.Context, datasetIDs []string, formats []Format, progressCallback ProgressCallback) BatchResult {
	total := len(datasetIDs)
	results := make([]DatasetFetchResult, total)

	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for i, datasetID := range datasetIDs {
		wg.Add(1)
		index, id := i, datasetID
		common.SafeGo(c.logger, "fetchDataset", func() {
			defer wg.Done()

			if progressCallback != nil {
				progressCallback(ProgressUpdate{DatasetID: id, Current: index, Total: total, Status: StatusFetching})
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[index] = DatasetFetchResult{DatasetID: id, Success: false, Error: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			result := c.FetchDataset(ctx, id, formats)
			results[index] = result

			select {
			case <-time.After(c.requestDelay):
			case <-ctx.Done():
			}

			if progressCallback != nil {
				status := StatusCompleted
				if !result.Success {
					status = StatusFailed
				}
				progressCallback(ProgressUpdate{
					DatasetID: id, Current: index + 1, Total: total,
					Status: status, FromCache: result.Content != nil && result.Content.FromCache,
					Error: result.Error,
				})
			}
		})
	}

	wg.Wait()

	var batch BatchResult
	for _, r := range results {
		if r.Success {
			batch.Successful = append(batch.Successful, r)
		} else {
			batch.Failed = append(batch.Failed, r)
		}
	}
	return batch
}

// StreamDataset is the element type yielded by StreamAll.
type StreamDataset struct {
	Result DatasetFetchResult
}

// StreamAll fetches datasets with the same concurrency and delay
// discipline as FetchAll but yields each result as it completes rather
// than waiting for the whole batch. With concurrency=1 and a positive
// delay, results are yielded in input order.
func (c *Client) StreamAll(ctx context.Context, datasetIDs []string, formats []Format) <-chan StreamDataset {
	out := make(chan StreamDataset)
	sem := make(chan struct{}, c.concurrency)

	common.SafeGo(c.logger, "streamAllDispatch", func() {
		defer close(out)
		var wg sync.WaitGroup

		// The semaphore is acquired here, in input order, before each
		// worker starts; a worker releases it only after sending its
		// result, so with concurrency=1 results leave in input order.
		for _, datasetID := range datasetIDs {
			id := datasetID

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				out <- StreamDataset{Result: DatasetFetchResult{DatasetID: id, Success: false, Error: ctx.Err()}}
				continue
			}

			wg.Add(1)
			common.SafeGo(c.logger, "streamDataset", func() {
				defer wg.Done()
				defer func() { <-sem }()

				result := c.FetchDataset(ctx, id, formats)

				select {
				case <-time.After(c.requestDelay):
				case <-ctx.Done():
				}

				out <- StreamDataset{Result: result}
			})
		}

		wg.Wait()
	})

	return out
}

// FetchSupportingDocs fetches the supporting-documents ZIP for a
// dataset.
func (c *Client) FetchSupportingDocs(ctx context.Context, datasetID string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s.zip", c.supportingDocsBase, datasetID)
	var opts []resource.HTTPOption
	opts = append(opts, resource.WithLimiter(c.limiter))
	if c.basicAuthUser != "" {
		opts = append(opts, resource.WithBasicAuth(c.basicAuthUser, c.basicAuthPassword))
	}
	res := c.factory.HTTP(url, opts...)
	result, err := res.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("failed to fetch supporting docs for %s: %s", datasetID, result.Error)
	}
	return result.Content, nil
}

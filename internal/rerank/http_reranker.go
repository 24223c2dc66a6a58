package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/datacat/internal/common"
	dcerrors "github.com/ternarybob/datacat/internal/errors"
	"github.com/ternarybob/datacat/internal/interfaces"
	"github.com/ternarybob/datacat/internal/models"
)

// HTTPReranker scores (query, document) pairs against a cross-encoder
// endpoint, one request per candidate, matching the same Ollama-style
// HTTP contract the embedding service uses.
type HTTPReranker struct {
	baseURL string
	client  *http.Client
	logger  arbor.ILogger
}

// New constructs an HTTPReranker from configuration. Enabled is checked
// by the caller; this constructor always succeeds given a base URL.
func New(config *common.RerankConfig, logger arbor.ILogger) *HTTPReranker {
	return &HTTPReranker{
		baseURL: config.BaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

type rescoreRequest struct {
	Query    string `json:"query"`
	Document string `json:"document"`
}

type rescoreResponse struct {
	Score float64 `json:"score"`
}

// Rerank scores the first topN results (every result when topN <= 0)
// against query via the cross-encoder endpoint and reorders them by
// descending score; results beyond topN follow unchanged. A per-document
// request failure is logged and that document keeps its original score
// rather than failing the whole call.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, results []models.MergedResult, topN int) ([]models.MergedResult, error) {
	rescored := make([]models.MergedResult, len(results))
	copy(rescored, results)

	head := rescored
	if topN > 0 && len(rescored) > topN {
		head = rescored[:topN]
	}

	for i := range head {
		doc := head[i].Title + "\n\n" + head[i].Abstract
		score, err := r.score(ctx, query, doc)
		if err != nil {
			r.logger.Debug().Err(err).Str("identifier", head[i].Identifier).Msg("rerank call failed, keeping original score")
			continue
		}
		head[i].Score = score
	}

	sort.SliceStable(head, func(i, j int) bool { return head[i].Score > head[j].Score })

	return rescored, nil
}

func (r *HTTPReranker) score(ctx context.Context, query, document string) (float64, error) {
	reqBody, err := json.Marshal(rescoreRequest{Query: query, Document: document})
	if err != nil {
		return 0, fmt.Errorf("%w: marshal request: %v", dcerrors.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(reqBody))
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %v", dcerrors.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", dcerrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: rerank endpoint returned status %d", dcerrors.ErrTransport, resp.StatusCode)
	}

	var out rescoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decode response: %v", dcerrors.ErrTransport, err)
	}
	return out.Score, nil
}

// IsAvailable issues a lightweight health check against the reranker.
func (r *HTTPReranker) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug().Err(err).Msg("rerank service not available")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

var _ interfaces.Reranker = (*HTTPReranker)(nil)

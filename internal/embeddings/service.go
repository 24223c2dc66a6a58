// Package embeddings implements interfaces.EmbeddingService against an
// Ollama-compatible HTTP endpoint.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/datacat/internal/common"
	dcerrors "github.com/ternarybob/datacat/internal/errors"
	"github.com/ternarybob/datacat/internal/interfaces"
)

// Service implements interfaces.EmbeddingService against an
// Ollama-compatible /api/embeddings endpoint.
type Service struct {
	baseURL   string
	modelName string
	dimension int
	client    *http.Client
	logger    arbor.ILogger
}

// New constructs an embedding service from configuration.
func New(config *common.EmbeddingConfig, logger arbor.ILogger) *Service {
	return &Service{
		baseURL:   config.BaseURL,
		modelName: config.Model,
		dimension: config.Dimension,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

func (s *Service) ModelName() string { return s.modelName }
func (s *Service) Dimensions() int   { return s.dimension }

// EmbedQuery embeds a single piece of text, typically a search query.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", dcerrors.ErrEmbedding)
	}
	return s.embed(ctx, text)
}

// EmbedBatch embeds each text independently, in order, failing the
// whole call if any single embedding call fails - the caller (the
// vector store's AddDatasets) treats a batch as all-or-nothing.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: batch item %d: %v", dcerrors.ErrEmbedding, i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(map[string]string{
		"model":  s.modelName,
		"prompt": text,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", dcerrors.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", dcerrors.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	s.logger.Debug().Str("model", s.modelName).Int("text_length", len(text)).Msg("embedding request")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dcerrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ollama returned status %d", dcerrors.ErrEmbedding, resp.StatusCode)
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", dcerrors.ErrEmbedding, err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", dcerrors.ErrEmbedding)
	}

	return result.Embedding, nil
}

// IsAvailable reports whether the Ollama endpoint is reachable.
func (s *Service) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug().Err(err).Msg("embedding service not available")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

var _ interfaces.EmbeddingService = (*Service)(nil)

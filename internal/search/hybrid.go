// Package search implements hybrid (semantic + keyword) dataset
// search: query-type routing, concurrent sub-searches, Reciprocal Rank
// Fusion merge, and an optional advanced rescore/rerank overlay.
package search

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/datacat/internal/common"
	dcerrors "github.com/ternarybob/datacat/internal/errors"
	"github.com/ternarybob/datacat/internal/interfaces"
	"github.com/ternarybob/datacat/internal/models"
	"github.com/ternarybob/datacat/internal/rerank"
)

var exactIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Service implements interfaces.SearchService over a repository and an
// optional vector store. When the vector store is nil or unavailable,
// search degrades to keyword-only.
type Service struct {
	repository  interfaces.Repository
	vectorStore interfaces.VectorStore
	reranker    interfaces.Reranker // lazily-constructed overlay; rerank.NoOp{} if unset
	advancedMode  bool
	rerankTopN    int
	semanticLimit int
	keywordLimit  int
	rrfK          float64
	exactBoost    float64
	logger        arbor.ILogger
}

// New constructs a hybrid search Service from configuration. vectorStore
// may be nil, in which case every query runs keyword-only. reranker may
// be nil, in which case rerank.NoOp{} is used and advanced mode keeps
// the RRF order without rescoring.
func New(config *common.SearchConfig, rerankConfig *common.RerankConfig, repository interfaces.Repository, vectorStore interfaces.VectorStore, reranker interfaces.Reranker, logger arbor.ILogger) *Service {
	semanticLimit := config.SemanticLimit
	if semanticLimit <= 0 {
		semanticLimit = 50
	}
	keywordLimit := config.KeywordLimit
	if keywordLimit <= 0 {
		keywordLimit = 50
	}
	rrfK := config.RRFK
	if rrfK <= 0 {
		rrfK = 60
	}
	exactBoost := config.ExactBoost
	if exactBoost <= 0 {
		exactBoost = 10.0
	}
	if reranker == nil {
		reranker = rerank.NoOp{}
	}
	rerankTopN := 10
	if rerankConfig != nil && rerankConfig.TopN > 0 {
		rerankTopN = rerankConfig.TopN
	}

	return &Service{
		repository:    repository,
		vectorStore:   vectorStore,
		reranker:      reranker,
		advancedMode:  config.Advanced,
		rerankTopN:    rerankTopN,
		semanticLimit: semanticLimit,
		keywordLimit:  keywordLimit,
		rrfK:          rrfK,
		exactBoost:    exactBoost,
		logger:        logger,
	}
}

// Search classifies the query, routes it to the exact-id, exact-title,
// or RRF-merged normal path, and returns the assembled response.
func (s *Service) Search(ctx context.Context, query string, opts interfaces.SearchOptions) (*models.SearchResponse, error) {
	start := time.Now()
	limit := opts.Limit
	if limit <= 0 {
		limit = s.semanticLimit
	}

	queryType := classifyQuery(query)

	switch queryType {
	case models.QueryExactID:
		return s.searchExactID(ctx, query, start)
	case models.QueryExactTitle:
		return s.searchExactTitle(ctx, query, limit, start)
	default:
		return s.searchNormal(ctx, query, queryType, limit, opts.Advanced || s.advancedMode, start)
	}
}

// classifyQuery implements the §4.7 routing rules: exact-id, then
// quoted exact-title, then token-count short vs normal.
func classifyQuery(query string) models.QueryType {
	trimmed := strings.TrimSpace(query)
	if exactIDPattern.MatchString(trimmed) {
		return models.QueryExactID
	}
	if isQuoted(trimmed) {
		return models.QueryExactTitle
	}
	if len(strings.Fields(trimmed)) <= 2 {
		return models.QueryShort
	}
	return models.QueryNormal
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return (first == '"' && last == '"') || (first == '\'' && last == '\'')
}

func (s *Service) searchExactID(ctx context.Context, query string, start time.Time) (*models.SearchResponse, error) {
	trimmed := strings.TrimSpace(query)
	dataset, err := s.repository.Get(ctx, trimmed)
	response := &models.SearchResponse{
		Query:          query,
		QueryType:      models.QueryExactID,
		Mode:           "exact_id",
		DurationMS:     time.Since(start).Milliseconds(),
		KeywordResults: 0,
		SemanticResults: 0,
	}
	if err != nil || dataset == nil {
		return response, nil
	}
	response.Results = []models.MergedResult{toMergedResult(dataset, s.exactBoost, true)}
	response.Total = 1
	response.KeywordResults = 1
	return response, nil
}

func (s *Service) searchExactTitle(ctx context.Context, query string, limit int, start time.Time) (*models.SearchResponse, error) {
	stripped := strings.Trim(strings.TrimSpace(query), `"'`)
	datasets, err := s.repository.Search(ctx, stripped, limit)
	if err != nil {
		return nil, err
	}

	lowerQuery := strings.ToLower(stripped)
	results := make([]models.MergedResult, 0, len(datasets))
	for _, d := range datasets {
		isExact := strings.Contains(strings.ToLower(d.Title), lowerQuery)
		results = append(results, toMergedResult(d, 0, isExact))
	}

	return &models.SearchResponse{
		Query:          query,
		QueryType:      models.QueryExactTitle,
		Mode:           "exact_title",
		Results:        results,
		Total:          len(results),
		KeywordResults: len(results),
		DurationMS:     time.Since(start).Milliseconds(),
	}, nil
}

func (s *Service) searchNormal(ctx context.Context, query string, queryType models.QueryType, limit int, advanced bool, start time.Time) (*models.SearchResponse, error) {
	keywordWeight := 1.0
	if queryType == models.QueryShort {
		keywordWeight = 1.5
	}

	var semanticResults []models.SearchResult
	var keywordDatasets []*models.Dataset
	var semanticErr, keywordErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if s.vectorStore == nil || !s.vectorStore.IsAvailable(ctx) {
			semanticErr = dcerrors.ErrNotAvailable
			return
		}
		semanticResults, semanticErr = s.vectorStore.Search(ctx, query, s.semanticLimit, 0)
	}()

	go func() {
		defer wg.Done()
		keywordDatasets, keywordErr = s.repository.Search(ctx, query, s.keywordLimit)
	}()

	wg.Wait()

	if semanticErr != nil {
		s.logger.Debug().Err(semanticErr).Msg("semantic search unavailable, degrading to keyword-only")
		semanticResults = nil
	}
	if keywordErr != nil {
		return nil, keywordErr
	}

	// Vector hits carry only an identifier; load each body from the
	// repository so semantic-only results have a title and abstract.
	for i, r := range semanticResults {
		if r.Dataset == nil || r.Dataset.Title != "" {
			continue
		}
		if d, err := s.repository.Get(ctx, r.Dataset.Identifier); err == nil && d != nil {
			semanticResults[i].Dataset = d
		}
	}

	merged := s.mergeRRF(semanticResults, keywordDatasets, 1.0, keywordWeight)
	s.applyExactBoost(merged, query)

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })

	mode := "hybrid"
	if semanticErr != nil {
		mode = "keyword"
	}

	if advanced && s.reranker.IsAvailable(ctx) {
		rescored, err := s.reranker.Rerank(ctx, query, merged, s.rerankTopN)
		if err != nil {
			s.logger.Debug().Err(err).Msg("rerank overlay failed, keeping RRF order")
		} else {
			merged = rescored
			mode += "+rerank"
		}
	}

	if len(merged) > limit {
		merged = merged[:limit]
	}

	return &models.SearchResponse{
		Query:           query,
		QueryType:       queryType,
		Mode:            mode,
		Results:         merged,
		Total:           len(merged),
		SemanticResults: len(semanticResults),
		KeywordResults:  len(keywordDatasets),
		DurationMS:      time.Since(start).Milliseconds(),
	}, nil
}

// mergeRRF fuses ranked semantic and keyword results by Reciprocal Rank
// Fusion: each source contributes weight/(k+rank) to its documents'
// accumulated score, 1-indexed ranks.
func (s *Service) mergeRRF(semantic []models.SearchResult, keyword []*models.Dataset, semanticWeight, keywordWeight float64) []models.MergedResult {
	byID := make(map[string]*models.MergedResult)
	order := make([]string, 0, len(semantic)+len(keyword))

	for i, r := range semantic {
		rank := i + 1
		id := r.Dataset.Identifier
		m, ok := byID[id]
		if !ok {
			m = &models.MergedResult{Identifier: id, Dataset: r.Dataset}
			byID[id] = m
			order = append(order, id)
		}
		m.Score += semanticWeight / (s.rrfK + float64(rank))
		m.FromSemantic = true
		r := rank
		m.SemanticRank = &r
	}

	for i, d := range keyword {
		rank := i + 1
		id := d.Identifier
		m, ok := byID[id]
		if !ok {
			m = &models.MergedResult{Identifier: id, Dataset: d}
			byID[id] = m
			order = append(order, id)
		} else if m.Dataset.Title == "" {
			// semantic-only hits carry a placeholder Dataset with just the
			// identifier set; prefer the keyword search's full record.
			m.Dataset = d
		}
		m.Score += keywordWeight / (s.rrfK + float64(rank))
		m.FromKeyword = true
		r := rank
		m.KeywordRank = &r
	}

	results := make([]models.MergedResult, 0, len(order))
	for _, id := range order {
		m := byID[id]
		if m.Dataset != nil {
			m.Title = m.Dataset.Title
			m.Abstract = m.Dataset.Abstract
			m.Keywords = m.Dataset.Keywords
			m.AccessLevel = models.DefaultAccessLevel(m.Dataset.AccessLevel)
		}
		results = append(results, *m)
	}
	return results
}

// applyExactBoost applies the additive title/keyword boost described in
// §4.7: exact title match +boost, partial title match +boost*0.5, exact
// keyword match +boost*0.3. Boosted entries are marked IsExactMatch.
func (s *Service) applyExactBoost(results []models.MergedResult, query string) {
	lowerQuery := strings.ToLower(strings.TrimSpace(query))
	for i := range results {
		r := &results[i]
		lowerTitle := strings.ToLower(r.Title)
		switch {
		case lowerTitle == lowerQuery:
			r.Score += s.exactBoost
			r.IsExactMatch = true
		case strings.Contains(lowerTitle, lowerQuery):
			r.Score += s.exactBoost * 0.5
			r.IsExactMatch = true
		default:
			for _, kw := range r.Keywords {
				if strings.EqualFold(kw, lowerQuery) {
					r.Score += s.exactBoost * 0.3
					r.IsExactMatch = true
					break
				}
			}
		}
	}
}

func toMergedResult(d *models.Dataset, boost float64, isExact bool) models.MergedResult {
	return models.MergedResult{
		Dataset:      d,
		Identifier:   d.Identifier,
		Title:        d.Title,
		Abstract:     d.Abstract,
		Score:        1.0 + boost,
		Keywords:     d.Keywords,
		FromKeyword:  true,
		AccessLevel:  models.DefaultAccessLevel(d.AccessLevel),
		IsExactMatch: isExact,
	}
}

var _ interfaces.SearchService = (*Service)(nil)

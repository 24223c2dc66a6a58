package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/datacat/internal/common"
	"github.com/ternarybob/datacat/internal/guardrails"
	"github.com/ternarybob/datacat/internal/models"
)

type fakeVectorStore struct {
	available bool
	results   []models.SearchResult
	err       error
}

func (f *fakeVectorStore) AddDatasets(context.Context, []*models.Dataset, bool) (*models.IndexingResult, error) {
	return models.NewIndexingResult(), nil
}
func (f *fakeVectorStore) Search(context.Context, string, int, float64) ([]models.SearchResult, error) {
	return f.results, f.err
}
func (f *fakeVectorStore) GetIndexedIDs(context.Context) ([]string, error)         { return nil, nil }
func (f *fakeVectorStore) GetStats(context.Context) (map[string]interface{}, error) { return nil, nil }
func (f *fakeVectorStore) Clear(context.Context) error                             { return nil }
func (f *fakeVectorStore) IsAvailable(context.Context) bool                        { return f.available }

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) ModelName() string { return "fake-model" }
func (f *fakeGenerator) Generate(context.Context, string, string) (string, error) {
	return f.text, f.err
}

func newTestConfig() *common.RAGConfig {
	return &common.RAGConfig{TopK: 5, MinRelevance: 0.0, MaxChars: 12000}
}

func TestAnswerCannedIntents(t *testing.T) {
	o := New(newTestConfig(), nil, guardrails.New(), nil, arbor.NewLogger())

	tests := []struct {
		name     string
		question string
	}{
		{"greeting", "hello"},
		{"help", "help"},
		{"about", "who are you"},
		{"acknowledgement", "thanks"},
		{"too short", "hi"[:1]},
		{"nonsense", "!!!???###"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, err := o.Answer(context.Background(), tt.question, "public")
			require.NoError(t, err)
			assert.False(t, answer.Generated)
			assert.Empty(t, answer.Sources)
			assert.NotEmpty(t, answer.Answer)
		})
	}
}

func TestAnswerVectorStoreUnavailable(t *testing.T) {
	store := &fakeVectorStore{available: false}
	o := New(newTestConfig(), store, guardrails.New(), nil, arbor.NewLogger())

	answer, err := o.Answer(context.Background(), "what datasets cover rainfall in Scotland", "public")
	require.NoError(t, err)
	assert.False(t, answer.Generated)
	assert.Contains(t, answer.Answer, "unavailable")
}

func TestAnswerNoResultsFound(t *testing.T) {
	store := &fakeVectorStore{available: true, results: nil}
	o := New(newTestConfig(), store, guardrails.New(), nil, arbor.NewLogger())

	answer, err := o.Answer(context.Background(), "what datasets cover rainfall in Scotland", "public")
	require.NoError(t, err)
	assert.False(t, answer.Generated)
	assert.Empty(t, answer.Sources)
	assert.Contains(t, answer.Answer, "couldn't find")
}

func TestAnswerExtractiveFallbackWhenNoGenerator(t *testing.T) {
	store := &fakeVectorStore{
		available: true,
		results: []models.SearchResult{
			{Dataset: &models.Dataset{Identifier: "ds-1", Title: "Rainfall Gauge Network", Abstract: "Daily rainfall totals.", AccessLevel: models.AccessPublic}, Score: 0.9},
		},
	}
	o := New(newTestConfig(), store, guardrails.New(), nil, arbor.NewLogger())

	answer, err := o.Answer(context.Background(), "what datasets cover rainfall in Scotland", "public")
	require.NoError(t, err)
	assert.False(t, answer.Generated)
	assert.Len(t, answer.Sources, 1)
	assert.Equal(t, "ds-1", answer.Sources[0].ID)
	assert.Contains(t, answer.Answer, "Rainfall Gauge Network")
}

func TestAnswerUsesGeneratorWhenAvailable(t *testing.T) {
	store := &fakeVectorStore{
		available: true,
		results: []models.SearchResult{
			{Dataset: &models.Dataset{Identifier: "ds-1", Title: "Rainfall Gauge Network", Abstract: "Daily rainfall totals.", AccessLevel: models.AccessPublic}, Score: 0.9},
		},
	}
	gen := &fakeGenerator{text: "The rainfall gauge network records daily totals."}
	o := New(newTestConfig(), store, guardrails.New(), gen, arbor.NewLogger())

	answer, err := o.Answer(context.Background(), "what datasets cover rainfall in Scotland", "public")
	require.NoError(t, err)
	assert.True(t, answer.Generated)
	assert.Equal(t, "fake-model", answer.Model)
	assert.Equal(t, "The rainfall gauge network records daily totals.", answer.Answer)
}

func TestAnswerFallsBackWhenGeneratorErrors(t *testing.T) {
	store := &fakeVectorStore{
		available: true,
		results: []models.SearchResult{
			{Dataset: &models.Dataset{Identifier: "ds-1", Title: "Rainfall Gauge Network", Abstract: "Daily rainfall totals.", AccessLevel: models.AccessPublic}, Score: 0.9},
		},
	}
	gen := &fakeGenerator{err: assert.AnError}
	o := New(newTestConfig(), store, guardrails.New(), gen, arbor.NewLogger())

	answer, err := o.Answer(context.Background(), "what datasets cover rainfall in Scotland", "public")
	require.NoError(t, err)
	assert.False(t, answer.Generated)
	assert.Contains(t, answer.Answer, "Rainfall Gauge Network")
}

func TestAnswerFiltersByAccessLevel(t *testing.T) {
	store := &fakeVectorStore{
		available: true,
		results: []models.SearchResult{
			{Dataset: &models.Dataset{Identifier: "ds-1", Title: "Public Dataset", Abstract: "Open data.", AccessLevel: models.AccessPublic}, Score: 0.9},
			{Dataset: &models.Dataset{Identifier: "ds-2", Title: "Admin Dataset", Abstract: "Restricted data.", AccessLevel: models.AccessAdminOnly}, Score: 0.8},
		},
	}
	o := New(newTestConfig(), store, guardrails.New(), nil, arbor.NewLogger())

	answer, err := o.Answer(context.Background(), "what datasets are available in the catalogue", "public")
	require.NoError(t, err)
	assert.Len(t, answer.Sources, 1)
	assert.Equal(t, "ds-1", answer.Sources[0].ID)
	assert.NotContains(t, answer.Answer, "Admin Dataset")
}

func TestAnswerRedactsPIIFromFallback(t *testing.T) {
	store := &fakeVectorStore{
		available: true,
		results: []models.SearchResult{
			{Dataset: &models.Dataset{Identifier: "ds-1", Title: "Contact Dataset", Abstract: "Reach the maintainer at jane.doe@example.com.", AccessLevel: models.AccessPublic}, Score: 0.9},
		},
	}
	o := New(newTestConfig(), store, guardrails.New(), nil, arbor.NewLogger())

	answer, err := o.Answer(context.Background(), "who maintains this dataset", "public")
	require.NoError(t, err)
	assert.NotContains(t, answer.Answer, "jane.doe@example.com")
	assert.Contains(t, answer.Answer, "[REDACTED_EMAIL]")
}

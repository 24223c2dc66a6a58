package etl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/datacat/internal/catalogue"
	"github.com/ternarybob/datacat/internal/common"
	"github.com/ternarybob/datacat/internal/models"
	"github.com/ternarybob/datacat/internal/parser"
	"github.com/ternarybob/datacat/internal/resource"
)

// fakeRepository is an in-memory interfaces.Repository sufficient to
// drive the pipeline end to end.
type fakeRepository struct {
	mu       sync.Mutex
	datasets map[string]*models.Dataset
	failIDs  map[string]bool
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{datasets: make(map[string]*models.Dataset), failIDs: make(map[string]bool)}
}

func (r *fakeRepository) Get(_ context.Context, id string) (*models.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.datasets[id], nil
}
func (r *fakeRepository) GetAllIdentifiers(context.Context) ([]string, error) { return nil, nil }
func (r *fakeRepository) GetAllForEmbedding(context.Context) ([]*models.Dataset, error) {
	return nil, nil
}
func (r *fakeRepository) GetPaged(context.Context, int, int) (*models.PagedResult, error) {
	return nil, nil
}
func (r *fakeRepository) Save(_ context.Context, d *models.Dataset) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datasets[d.Identifier] = d
	return d.Identifier, nil
}
func (r *fakeRepository) SaveMany(ctx context.Context, datasets []*models.Dataset) (*models.BulkResult, error) {
	result := models.NewBulkResult()
	for _, d := range datasets {
		r.mu.Lock()
		shouldFail := r.failIDs[d.Identifier]
		r.mu.Unlock()
		if shouldFail {
			result.Failed[d.Identifier] = "simulated store failure"
			continue
		}
		if _, err := r.Save(ctx, d); err != nil {
			result.Failed[d.Identifier] = err.Error()
			continue
		}
		result.Succeeded = append(result.Succeeded, d.Identifier)
	}
	return result, nil
}
func (r *fakeRepository) Delete(context.Context, string) (bool, error) { return false, nil }
func (r *fakeRepository) Exists(context.Context, string) (bool, error) { return false, nil }
func (r *fakeRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.datasets), nil
}
func (r *fakeRepository) Search(context.Context, string, int) ([]*models.Dataset, error) {
	return nil, nil
}
func (r *fakeRepository) SaveEmbedding(context.Context, string, []float32, string) error { return nil }
func (r *fakeRepository) ClearEmbeddings(context.Context) error                          { return nil }

func datasetJSON(id, title string) string {
	return fmt.Sprintf(`{"id":%q,"title":%q,"description":"test abstract"}`, id, title)
}

// newTestClient wires a real catalogue.Client against a local httptest
// server, so the pipeline's fetch stage is exercised end to end rather
// than mocked.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*catalogue.Client, func()) {
	t.Helper()
	server := httptest.NewServer(handler)

	factory, err := resource.NewFactory(&common.CacheConfig{Dir: t.TempDir()}, 5*time.Second, arbor.NewLogger())
	require.NoError(t, err)

	client := catalogue.New(&common.CatalogueConfig{
		BaseURL:           server.URL,
		Concurrency:       2,
		RequestDelay:      0,
		MaxAttempts:       1,
		RequestsPerSecond: 1000,
	}, factory, arbor.NewLogger())

	return client, server.Close
}

// TestPipelineRunPartialFailure reproduces the worked partial-failure
// scenario: three datasets fetched, one fails at FETCH (404), leaving a
// 2/3 ≈ 0.667 success rate.
func TestPipelineRunPartialFailure(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/id/ds-1.xml":
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, `<MD_Metadata><fileIdentifier><CharacterString>ds-1</CharacterString></fileIdentifier><identificationInfo><MD_DataIdentification><citation><CI_Citation><title><CharacterString>Dataset One</CharacterString></title></CI_Citation></citation></MD_DataIdentification></identificationInfo></MD_Metadata>`)
		case r.URL.Path == "/id/ds-1":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, datasetJSON("ds-1", "Dataset One"))
		case r.URL.Path == "/id/ds-2.xml":
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, `<MD_Metadata><fileIdentifier><CharacterString>ds-2</CharacterString></fileIdentifier><identificationInfo><MD_DataIdentification><citation><CI_Citation><title><CharacterString>Dataset Two</CharacterString></title></CI_Citation></citation></MD_DataIdentification></identificationInfo></MD_Metadata>`)
		case r.URL.Path == "/id/ds-2":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, datasetJSON("ds-2", "Dataset Two"))
		case r.URL.Path == "/id/ds-3" || r.URL.Path == "/id/ds-3.xml":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}

	client, closeServer := newTestClient(t, handler)
	defer closeServer()

	repo := newFakeRepository()
	pipeline := New(&common.PipelineConfig{BatchSize: 20}, client, parser.NewRegistry(), repo, arbor.NewLogger())

	result := pipeline.Run(context.Background(), []string{"ds-1", "ds-2", "ds-3"}, nil)

	assert.Len(t, result.Successful, 2)
	assert.Len(t, result.Failed, 1)
	assert.InDelta(t, 2.0/3.0, result.SuccessRate, 0.0001)
	assert.Equal(t, "ds-3", result.Failed[0].DatasetID)
	assert.Equal(t, models.StageFetch, result.Failed[0].ErrorStage)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// TestPipelineRunStopOnErrorSkipsRemaining fetches both datasets, makes
// ds-1 fail at PARSE, and expects ds-2 to be skipped rather than stored.
func TestPipelineRunStopOnErrorSkipsRemaining(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/id/ds-1.xml", "/id/ds-2.xml":
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, `<MD_Metadata/>`)
		case "/id/ds-1":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `not json`)
		case "/id/ds-2":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, datasetJSON("ds-2", "Dataset Two"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
	client, closeServer := newTestClient(t, handler)
	defer closeServer()

	repo := newFakeRepository()
	pipeline := New(&common.PipelineConfig{BatchSize: 20, StopOnError: true}, client, parser.NewRegistry(), repo, arbor.NewLogger())

	result := pipeline.Run(context.Background(), []string{"ds-1", "ds-2"}, nil)

	assert.Empty(t, result.Successful)
	assert.Len(t, result.Failed, 2)
}

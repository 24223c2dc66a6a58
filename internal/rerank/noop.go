// Package rerank implements the optional cross-encoder rescore stage
// applied after hybrid search's RRF merge: a NoOp implementation that
// passes results through unchanged, and an HTTP-backed cross-encoder
// implementation for deployments that run one.
package rerank

import (
	"context"

	"github.com/ternarybob/datacat/internal/interfaces"
	"github.com/ternarybob/datacat/internal/models"
)

// NoOp returns results unchanged and is always available. It is the
// default Reranker so hybrid search's rerank overlay is never a hard
// dependency.
type NoOp struct{}

func (NoOp) Rerank(_ context.Context, _ string, results []models.MergedResult, _ int) ([]models.MergedResult, error) {
	return results, nil
}

func (NoOp) IsAvailable(context.Context) bool { return true }

var _ interfaces.Reranker = NoOp{}

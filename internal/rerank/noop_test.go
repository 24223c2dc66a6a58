package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/datacat/internal/models"
)

func TestNoOpRerankPassesThroughUnchanged(t *testing.T) {
	var n NoOp
	results := []models.MergedResult{
		{Identifier: "a", Score: 1.0},
		{Identifier: "b", Score: 2.0},
	}

	out, err := n.Rerank(context.Background(), "query", results, 0)
	assert.NoError(t, err)
	assert.Equal(t, results, out)
}

func TestNoOpRerankKeepsResultsBeyondTopN(t *testing.T) {
	var n NoOp
	results := []models.MergedResult{
		{Identifier: "a"}, {Identifier: "b"}, {Identifier: "c"},
	}

	out, err := n.Rerank(context.Background(), "query", results, 2)
	assert.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, "a", out[0].Identifier)
	assert.Equal(t, "c", out[2].Identifier)
}

func TestNoOpIsAlwaysAvailable(t *testing.T) {
	var n NoOp
	assert.True(t, n.IsAvailable(context.Background()))
}

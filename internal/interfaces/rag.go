package interfaces

import (
	"context"

	"github.com/ternarybob/datacat/internal/models"
)

// Generator is the external answer-generation collaborator invoked by
// the RAG orchestrator; out of scope per the purpose and scope contract,
// but the orchestrator is written against this interface so a real
// generator can be wired in at composition time.
type Generator interface {
	ModelName() string
	Generate(ctx context.Context, question, context string) (string, error)
}

// RAGOrchestrator answers a question using retrieval-augmented
// generation: intent classification, retrieval, context assembly,
// generation, and redaction.
type RAGOrchestrator interface {
	Answer(ctx context.Context, question, role string) (*models.RAGAnswer, error)
}

// Package rag implements the retrieval-augmented answer orchestrator:
// intent classification, retrieval, guardrail filtering, context
// assembly, generation, and PII redaction of the final answer.
package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/datacat/internal/common"
	"github.com/ternarybob/datacat/internal/interfaces"
	"github.com/ternarybob/datacat/internal/models"
)

type intent string

const (
	intentGreeting       intent = "greeting"
	intentHelp           intent = "help"
	intentAbout          intent = "about"
	intentAcknowledgement intent = "acknowledgement"
	intentNonsense       intent = "nonsense"
	intentTooShort       intent = "too_short"
	intentSearch         intent = "search"
)

var intentPatterns = map[intent]*regexp.Regexp{
	intentGreeting:        regexp.MustCompile(`(?i)^\s*(hi|hello|hey|good (morning|afternoon|evening))\s*[!.]?\s*$`),
	intentHelp:            regexp.MustCompile(`(?i)^\s*(help|how do(es)? (this|it) work|what can you do)\b`),
	intentAbout:           regexp.MustCompile(`(?i)^\s*(who are you|what are you|about this)\b`),
	intentAcknowledgement: regexp.MustCompile(`(?i)^\s*(thanks|thank you|ok|okay|cool|great)\s*[!.]?\s*$`),
}

var cannedResponses = map[intent]string{
	intentGreeting:        "Hello! Ask me about environmental datasets in the catalogue and I'll help you find them.",
	intentHelp:            "Ask a question about a dataset's topic, location, or time period and I'll search the catalogue and summarise what I find.",
	intentAbout:           "I'm a retrieval assistant over an environmental dataset metadata catalogue.",
	intentAcknowledgement: "You're welcome.",
	intentNonsense:        "I couldn't parse that as a question about the dataset catalogue. Try rephrasing.",
	intentTooShort:        "Could you provide a bit more detail about what you're looking for?",
}

// Orchestrator implements interfaces.RAGOrchestrator.
type Orchestrator struct {
	vectorStore interfaces.VectorStore
	guardrails  interfaces.Guardrails
	generator   interfaces.Generator // nil disables generation; fallback answer is used
	topK        int
	minRelevance float64
	maxChars    int
	logger      arbor.ILogger
}

// New constructs an Orchestrator. generator may be nil, in which case
// Answer always returns the extractive fallback.
func New(config *common.RAGConfig, vectorStore interfaces.VectorStore, guardrails interfaces.Guardrails, generator interfaces.Generator, logger arbor.ILogger) *Orchestrator {
	topK := config.TopK
	if topK <= 0 {
		topK = 5
	}
	maxChars := config.MaxChars
	if maxChars <= 0 {
		maxChars = 12000
	}
	return &Orchestrator{
		vectorStore:  vectorStore,
		guardrails:   guardrails,
		generator:    generator,
		topK:         topK,
		minRelevance: config.MinRelevance,
		maxChars:     maxChars,
		logger:       logger,
	}
}

// Answer classifies intent, retrieves and filters candidate datasets,
// assembles a capped context, generates (or falls back), and redacts
// PII from the final text.
func (o *Orchestrator) Answer(ctx context.Context, question, role string) (*models.RAGAnswer, error) {
	trimmed := strings.TrimSpace(question)

	if len(trimmed) < 3 {
		return o.canned(question, intentTooShort), nil
	}
	for i, pattern := range intentPatterns {
		if pattern.MatchString(trimmed) {
			return o.canned(question, i), nil
		}
	}
	if !looksLikeSentence(trimmed) {
		return o.canned(question, intentNonsense), nil
	}

	if o.vectorStore == nil || !o.vectorStore.IsAvailable(ctx) {
		return &models.RAGAnswer{
			Question: question,
			Answer:   o.guardrails.RedactPII("The semantic index is currently unavailable, so I can't retrieve dataset context for this question."),
			Sources:  []models.RAGSource{},
			Generated: false,
		}, nil
	}

	results, err := o.vectorStore.Search(ctx, trimmed, o.topK, o.minRelevance)
	if err != nil {
		return nil, err
	}

	datasets := make([]*models.Dataset, 0, len(results))
	for _, r := range results {
		datasets = append(datasets, r.Dataset)
	}
	datasets = o.guardrails.FilterDatasetsByAccess(datasets, role)

	allowed := make(map[string]bool, len(datasets))
	for _, d := range datasets {
		allowed[d.Identifier] = true
	}

	sources := make([]models.RAGSource, 0, len(datasets))
	docContext := o.buildContext(results, allowed)
	for _, r := range results {
		if !allowed[r.Dataset.Identifier] {
			continue
		}
		sources = append(sources, models.RAGSource{
			ID:             r.Dataset.Identifier,
			Title:          r.Dataset.Title,
			RelevanceScore: r.Score,
		})
	}

	if len(sources) == 0 {
		return &models.RAGAnswer{
			Question:  question,
			Answer:    o.guardrails.RedactPII("I couldn't find any datasets matching that question."),
			Sources:   []models.RAGSource{},
			Generated: false,
		}, nil
	}

	answer, generated, model := o.generate(ctx, question, docContext)
	answer = o.guardrails.RedactPII(answer)

	return &models.RAGAnswer{
		Question:  question,
		Answer:    answer,
		Sources:   sources,
		Generated: generated,
		Model:     model,
	}, nil
}

// buildContext concatenates a fixed per-document template until the
// combined context would exceed maxChars.
func (o *Orchestrator) buildContext(results []models.SearchResult, allowed map[string]bool) string {
	var b strings.Builder
	for _, r := range results {
		if !allowed[r.Dataset.Identifier] {
			continue
		}
		entry := fmt.Sprintf("Dataset: %s\nID: %s\nAbstract: %s\n\n", r.Dataset.Title, r.Dataset.Identifier, r.Dataset.Abstract)
		if b.Len()+len(entry) > o.maxChars {
			break
		}
		b.WriteString(entry)
	}
	return b.String()
}

func (o *Orchestrator) generate(ctx context.Context, question, docContext string) (answer string, generated bool, model string) {
	if o.generator == nil {
		return o.extractiveFallback(docContext), false, ""
	}
	text, err := o.generator.Generate(ctx, question, docContext)
	if err != nil {
		o.logger.Warn().Err(err).Msg("generator failed, falling back to extractive answer")
		return o.extractiveFallback(docContext), false, ""
	}
	return text, true, o.generator.ModelName()
}

func (o *Orchestrator) extractiveFallback(docContext string) string {
	if docContext == "" {
		return "No matching datasets were found."
	}
	return "Here is what the catalogue has on this topic:\n\n" + docContext
}

func (o *Orchestrator) canned(question string, i intent) *models.RAGAnswer {
	return &models.RAGAnswer{
		Question:  question,
		Answer:    cannedResponses[i],
		Sources:   []models.RAGSource{},
		Generated: false,
	}
}

// looksLikeSentence rejects input that is mostly non-alphanumeric noise.
func looksLikeSentence(s string) bool {
	letters := 0
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters++
		}
	}
	return letters >= len(s)/2
}

var _ interfaces.RAGOrchestrator = (*Orchestrator)(nil)

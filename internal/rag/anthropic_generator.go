package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/datacat/internal/common"
	dcerrors "github.com/ternarybob/datacat/internal/errors"
	"github.com/ternarybob/datacat/internal/interfaces"
)

// AnthropicGenerator implements interfaces.Generator using the
// Anthropic Claude API. Construction fails if no API key is configured;
// the orchestrator treats that as "no generator" and falls back to the
// extractive answer.
type AnthropicGenerator struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    arbor.ILogger
}

// NewAnthropicGenerator constructs a Generator from ClaudeConfig. An
// empty APIKey is reported as ErrNotAvailable rather than an error that
// would abort startup.
func NewAnthropicGenerator(config *common.ClaudeConfig, logger arbor.ILogger) (*AnthropicGenerator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: no anthropic api key configured", dcerrors.ErrNotAvailable)
	}

	model := config.Model
	if model == "" {
		model = "claude-haiku-3-5-20241022"
	}

	timeout := 5 * time.Minute
	if config.Timeout != "" {
		if d, err := time.ParseDuration(config.Timeout); err == nil {
			timeout = d
		}
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(option.WithAPIKey(config.APIKey))

	return &AnthropicGenerator{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

func (g *AnthropicGenerator) ModelName() string { return g.model }

// Generate answers question given the assembled retrieval context,
// instructing the model to answer only from that context.
func (g *AnthropicGenerator) Generate(ctx context.Context, question, retrievalContext string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	system := "You are a dataset discovery assistant for an environmental data catalogue. " +
		"Answer the question using only the supplied dataset context. " +
		"If the context does not contain an answer, say so plainly."

	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", retrievalContext, question)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	resp, err := g.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic call failed: %v", dcerrors.ErrTransport, err)
	}

	var answer strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			answer.WriteString(block.Text)
		}
	}
	if answer.Len() == 0 {
		return "", fmt.Errorf("%w: empty response from anthropic", dcerrors.ErrTransport)
	}

	return answer.String(), nil
}

var _ interfaces.Generator = (*AnthropicGenerator)(nil)

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// Config selects and credentials the underlying LLM.
type Config struct {
	Provider string // "googleai" or "openai"
	APIKey   string
	Model    string
}

// LLMProvider implements Provider on top of a langchaingo model.
type LLMProvider struct {
	llm   llms.Model
	model string
}

// New builds the configured LLM client.
func New(ctx context.Context, cfg Config) (*LLMProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI API key is required")
	}

	var (
		model llms.Model
		err   error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "googleai", "gemini":
		opts := []googleai.Option{googleai.WithAPIKey(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, googleai.WithDefaultModel(cfg.Model))
		}
		model, err = googleai.New(ctx, opts...)
	case "openai":
		opts := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &LLMProvider{llm: model, model: cfg.Model}, nil
}

// Answer asks the model to answer strictly from the FAQ corpus. Any failure
// mode collapses to the Escalated outcome.
func (p *LLMProvider) Answer(ctx context.Context, query, faqCorpus string) Outcome {
	prompt := buildAnswerPrompt(query, faqCorpus)

	response, err := llms.GenerateFromSinglePrompt(ctx, p.llm, prompt, llms.WithTemperature(0.1))
	if err != nil {
		log.Warn().Err(err).Str("model", p.model).Msg("LLM call failed, escalating")
		return Escalated()
	}

	outcome := parseOutcome(response)
	if outcome.Escalate {
		log.Info().Str("model", p.model).Msg("Model declined to answer from corpus")
	}
	return outcome
}

func buildAnswerPrompt(query, faqCorpus string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a customer support assistant for an online store.\n")
	prompt.WriteString("Answer the customer's question using ONLY the FAQ below. ")
	prompt.WriteString("Never invent policies, prices or timelines that are not in the FAQ.\n")
	prompt.WriteString("If the FAQ does not cover the question, do not answer it.\n\n")

	prompt.WriteString("Respond with JSON only, in this exact shape:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"answer\": \"your reply to the customer, or empty if escalating\",\n")
	prompt.WriteString("  \"escalate\": false\n")
	prompt.WriteString("}\n")
	prompt.WriteString("```\n")
	prompt.WriteString("Set \"escalate\": true whenever the FAQ does not cover the question.\n\n")

	prompt.WriteString("# FAQ\n\n")
	prompt.WriteString(faqCorpus)
	prompt.WriteString("\n\n# Customer question\n\n")
	prompt.WriteString(query)
	prompt.WriteString("\n")

	return prompt.String()
}

package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"outreachcrm/config"
	"outreachcrm/models"

	openai "github.com/sashabaranov/go-openai"
)

// DraftRequest carries the lead facts and conversation history the
// drafting collaborator needs.
type DraftRequest struct {
	LeadName            string
	LeadEmail           string
	CompanyName         string
	JobTitle            string
	ConversationHistory []string
	Strategy            string
	PromptTemplate      string
}

// DraftResult is the collaborator's reply draft.
type DraftResult struct {
	Subject       string   `json:"subject"`
	Content       string   `json:"content"`
	Confidence    float64  `json:"confidence,omitempty"`
	VariablesUsed []string `json:"variables_used,omitempty"`
}

// Drafter is the external AI drafting collaborator.
type Drafter interface {
	GenerateReply(ctx context.Context, req DraftRequest) (*DraftResult, error)
}

// OpenAIDrafter implements Drafter against the OpenAI chat API.
type OpenAIDrafter struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *log.Logger
}

func NewOpenAIDrafter(cfg config.OpenAIConfig, logger *log.Logger) *OpenAIDrafter {
	return &OpenAIDrafter{
		client:    openai.NewClient(cfg.APIKey),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

// strategyTemperature maps responder strategy to sampling temperature.
func strategyTemperature(strategy string) float32 {
	switch strategy {
	case models.StrategyAggressive:
		return 0.9
	case models.StrategyConservative:
		return 0.3
	default:
		return 0.7
	}
}

func (d *OpenAIDrafter) GenerateReply(ctx context.Context, req DraftRequest) (*DraftResult, error) {
	prompt := req.PromptTemplate
	if prompt == "" {
		prompt = "You are a helpful sales rep replying to a prospect."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Lead: %s (%s) at %s.\n", req.LeadName, req.JobTitle, req.CompanyName)
	sb.WriteString("Conversation so far:\n")
	for _, msg := range req.ConversationHistory {
		sb.WriteString(msg)
		sb.WriteString("\n---\n")
	}
	sb.WriteString(`Reply as JSON: {"subject": "...", "content": "..."}`)

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       d.model,
		MaxTokens:   d.maxTokens,
		Temperature: strategyTemperature(req.Strategy),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
	})
	if err != nil {
		return nil, classifyDraftError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &PermanentCollaboratorError{
			Collaborator: "ai drafting",
			Err:          errors.New("empty completion"),
		}
	}

	result := ParseDraftContent(resp.Choices[0].Message.Content)
	d.logger.Printf("Generated draft for %s (%d chars)", req.LeadEmail, len(result.Content))
	return result, nil
}

// ParseDraftContent decodes a draft returned by the collaborator. JSON
// with subject/content fields is preferred; plain text falls back to a
// content-only draft with a generic subject.
func ParseDraftContent(raw string) *DraftResult {
	trimmed := strings.TrimSpace(raw)

	// Models sometimes wrap JSON in a code fence
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var result DraftResult
	if err := json.Unmarshal([]byte(trimmed), &result); err == nil && result.Content != "" {
		return &result
	}

	return &DraftResult{
		Subject: "Re: your message",
		Content: strings.TrimSpace(raw),
	}
}

func classifyDraftError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode >= 500 || apiErr.HTTPStatusCode == 429 {
			return &TransientCollaboratorError{Collaborator: "ai drafting", Err: err}
		}
		return &PermanentCollaboratorError{Collaborator: "ai drafting", Err: err}
	}
	return &TransientCollaboratorError{Collaborator: "ai drafting", Err: err}
}

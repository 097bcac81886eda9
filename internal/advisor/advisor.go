// Package advisor generates recommendations with an OpenAI-compatible chat model.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
	"github.com/sashabaranov/go-openai"
)

// RecommendationSourceLLM marks recommendations produced by the model.
const RecommendationSourceLLM = "llm"

// DefaultTimeout bounds one completion request.
const DefaultTimeout = 30 * time.Second

const systemPrompt = `You are a senior engineer reviewing automated code quality results.
Reply with a JSON object {"recommendations": [...]} where every item has the keys
"category", "priority" ("high", "medium" or "low"), "title" and "description".
Only use categories present in the input. Keep titles under 80 characters.`

// ChatClient is the part of the OpenAI client the advisor needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures an LLMRecommender.
type Config struct {
	APIKey  string
	BaseURL string // Empty means the OpenAI API
	Model   string
	Timeout time.Duration
}

// LLMRecommender asks a chat model for recommendations and falls back to
// another recommender when the model fails or returns nothing usable.
type LLMRecommender struct {
	client   ChatClient
	model    string
	timeout  time.Duration
	fallback contract.Recommender
}

var _ contract.Recommender = &LLMRecommender{} // Compile-time check

// NewLLMRecommender creates a recommender backed by the OpenAI API or a compatible endpoint.
func NewLLMRecommender(cfg Config, fallback contract.Recommender) (*LLMRecommender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key not set, use --llm-api-key or OPENAI_API_KEY")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return NewLLMRecommenderWithClient(openai.NewClientWithConfig(clientConfig), cfg, fallback), nil
}

// NewLLMRecommenderWithClient creates a recommender over an existing client.
func NewLLMRecommenderWithClient(client ChatClient, cfg Config, fallback contract.Recommender) *LLMRecommender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	model := cfg.Model
	if model == "" {
		model = contract.DefaultLLMModel
	}
	return &LLMRecommender{client: client, model: model, timeout: timeout, fallback: fallback}
}

// GenerateRecommendations implements contract.Recommender.
func (r *LLMRecommender) GenerateRecommendations(ctx context.Context, results *schema.AnalysisResults, opts schema.RecommendationOptions) ([]schema.Recommendation, error) {
	if results == nil || len(results.Categories) == 0 {
		return nil, nil
	}

	recs, err := r.ask(ctx, results, opts)
	if err == nil && len(recs) > 0 {
		return recs, nil
	}
	if err == nil {
		err = errors.New("LLM returned no usable recommendations")
	}
	if r.fallback == nil {
		return nil, err
	}
	contract.LogWarn("LLM recommendations unavailable, using rules", err)
	return r.fallback.GenerateRecommendations(ctx, results, opts)
}

func (r *LLMRecommender) ask(ctx context.Context, results *schema.AnalysisResults, opts schema.RecommendationOptions) ([]schema.Recommendation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(results, opts)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call LLM: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("LLM returned empty response")
	}
	return ParseRecommendations(resp.Choices[0].Message.Content, results, opts)
}

// BuildPrompt describes the run for the model.
func BuildPrompt(results *schema.AnalysisResults, opts schema.RecommendationOptions) string {
	var b strings.Builder
	o := results.Overall
	fmt.Fprintf(&b, "Overall: %d%% (grade %s)\n", o.Percentage, o.Grade)

	failed := map[schema.CategoryID]bool{}
	if results.Gates != nil {
		for _, g := range results.Gates.FailedGates() {
			failed[schema.CategoryID(g.Name)] = true
		}
	}

	for _, id := range slices.Sorted(maps.Keys(results.Categories)) {
		c := results.Categories[id]
		fmt.Fprintf(&b, "\n## %s: %.1f/%.0f (grade %s)", id, c.Score, c.MaxScore, c.Grade)
		if failed[id] {
			b.WriteString(" [gate failed]")
		}
		b.WriteString("\n")
		if c.HasError() {
			fmt.Fprintf(&b, "analysis error: %s\n", c.Error)
		}
		for _, issue := range c.Issues {
			fmt.Fprintf(&b, "- issue: %s\n", issue)
		}
	}

	b.WriteString("\n")
	if opts.MaxItems > 0 {
		fmt.Fprintf(&b, "Return at most %d recommendations.", opts.MaxItems)
	}
	if !opts.IncludeLow {
		b.WriteString(" Skip low priority items.")
	}
	if opts.FocusFailed {
		b.WriteString(" Prioritize categories whose gate failed.")
	}
	return strings.TrimSpace(b.String())
}

type llmResponse struct {
	Recommendations []struct {
		Category    string `json:"category"`
		Priority    string `json:"priority"`
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"recommendations"`
}

// ParseRecommendations validates the model's JSON reply against results.
// Items naming unknown categories or priorities are dropped.
func ParseRecommendations(content string, results *schema.AnalysisResults, opts schema.RecommendationOptions) ([]schema.Recommendation, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var parsed llmResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode LLM response: %w", err)
	}

	var recs []schema.Recommendation
	for _, item := range parsed.Recommendations {
		id := schema.CategoryID(strings.ToLower(strings.TrimSpace(item.Category)))
		if _, ok := results.Categories[id]; !ok {
			continue
		}
		priority := schema.Priority(strings.ToLower(strings.TrimSpace(item.Priority)))
		switch priority {
		case schema.PriorityHigh, schema.PriorityMedium:
		case schema.PriorityLow:
			if !opts.IncludeLow {
				continue
			}
		default:
			continue
		}
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		recs = append(recs, schema.Recommendation{
			Category:    id,
			Priority:    priority,
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Description),
			Source:      RecommendationSourceLLM,
		})
	}

	if opts.MaxItems > 0 && len(recs) > opts.MaxItems {
		recs = recs[:opts.MaxItems]
	}
	return recs, nil
}

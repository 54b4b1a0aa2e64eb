package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/autopilot/pkg/types"
)

const (
	// defaultContextTokenBudget bounds how much chained task output is
	// forwarded to the planning prompt.
	defaultContextTokenBudget = 2000

	contextEncoding = "cl100k_base"
)

// completer is the narrow seam to the chat completion API, so the
// planner can be tested without network access.
type completer interface {
	complete(ctx context.Context, system, user string) (string, error)
}

// OpenAIPlanner implements Planner against an OpenAI-compatible API.
type OpenAIPlanner struct {
	client             completer
	model              string
	contextTokenBudget int
}

// Option configures an OpenAIPlanner.
type Option func(*OpenAIPlanner)

// WithModel sets the planning model.
func WithModel(model string) Option {
	return func(p *OpenAIPlanner) {
		p.model = model
	}
}

// WithContextTokenBudget bounds the starting-context size in tokens.
func WithContextTokenBudget(budget int) Option {
	return func(p *OpenAIPlanner) {
		if budget > 0 {
			p.contextTokenBudget = budget
		}
	}
}

// NewOpenAIPlanner creates a planner backed by the OpenAI chat API.
//
// If apiKey is empty it falls back to the OPENAI_API_KEY environment
// variable. baseURL may be empty for the standard endpoint, or point at
// any OpenAI-compatible API.
func NewOpenAIPlanner(apiKey, baseURL string, opts ...Option) (*OpenAIPlanner, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required (provide via parameter or OPENAI_API_KEY)")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}

	p := &OpenAIPlanner{
		client:             &openaiCompleter{client: openai.NewClient(clientOpts...)},
		model:              "gpt-4o",
		contextTokenBudget: defaultContextTokenBudget,
	}
	for _, opt := range opts {
		opt(p)
	}

	if oc, ok := p.client.(*openaiCompleter); ok {
		oc.model = p.model
	}
	return p, nil
}

// Decompose asks the model for a step list and validates it into a plan.
func (p *OpenAIPlanner) Decompose(ctx context.Context, goal, startingContext string) (*types.Plan, error) {
	if goal == "" {
		return nil, &types.PlanningError{Kind: types.PlanningMalformed, Reason: "goal is empty"}
	}

	user := fmt.Sprintf(decomposeUserPrompt, goal)
	if startingContext != "" {
		trimmed := truncateToTokens(startingContext, p.contextTokenBudget)
		user = fmt.Sprintf(decomposeContextPrompt, goal, trimmed)
	}

	raw, err := p.client.complete(ctx, decomposeSystemPrompt, user)
	if err != nil {
		return nil, wrapPlanningErr(err)
	}

	return parsePlan(goal, raw)
}

// ReplanStep asks the model for one alternative step for a failing step.
// The replacement keeps the failing step's ID so outcomes stay attached
// to the original plan position.
func (p *OpenAIPlanner) ReplanStep(ctx context.Context, failed types.Step, failureDetail string) (*types.Step, error) {
	encoded, err := json.Marshal(failed)
	if err != nil {
		return nil, &types.PlanningError{Kind: types.PlanningMalformed, Reason: "failed to encode step: " + err.Error()}
	}

	user := fmt.Sprintf(replanUserPrompt, string(encoded), failureDetail)
	raw, err := p.client.complete(ctx, replanSystemPrompt, user)
	if err != nil {
		return nil, wrapPlanningErr(err)
	}

	step, err := parseStep(raw)
	if err != nil {
		return nil, err
	}
	step.ID = failed.ID
	return step, nil
}

func wrapPlanningErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.PlanningError{Kind: types.PlanningTimeout, Reason: err.Error()}
	}
	return &types.PlanningError{Kind: types.PlanningMalformed, Reason: err.Error()}
}

// openaiCompleter adapts the openai-go client to the completer seam.
type openaiCompleter struct {
	client openai.Client
	model  string
}

func (c *openaiCompleter) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// truncateToTokens bounds text to roughly budget tokens. When the
// tokenizer is unavailable (offline environments) it approximates with
// four characters per token.
func truncateToTokens(text string, budget int) string {
	if budget <= 0 {
		return text
	}

	enc, err := tiktoken.GetEncoding(contextEncoding)
	if err != nil {
		return truncateBytes(text, budget*4)
	}

	ids := enc.Encode(text, nil, nil)
	if len(ids) <= budget {
		return text
	}
	return enc.Decode(ids[:budget])
}

// truncateBytes bounds text to at most n bytes, backing off to a rune
// boundary so a multi-byte character is never split.
func truncateBytes(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API with function/tool calling. It adapts Legion's
// normalized Request/Turn structures into the SDK's message format and back,
// and maps API failures onto the shared provider error taxonomy.
//
// The package also serves any OpenAI-compatible endpoint (Groq, OpenRouter,
// vLLM) through the BaseURL option.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configure the OpenAI model adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	APIKey              string // empty = OPENAI_API_KEY environment variable
	BaseURL             string // empty = api.openai.com
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(clientOpts...)

	return NewModelFromClient(&client, func(o *Options) { *o = opts })
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{client: client, opts: opts}
}

// Complete implements model.Model for the Chat Completions API.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.Turn, error) {
	params := m.buildParams(req)

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &model.ProviderRejectedError{
			Provider: "openai",
			Reason:   "response contained no choices",
		}
	}

	return toTurn(resp), nil
}

// buildParams assembles the OpenAI request parameters including tool definitions.
func (m *Model) buildParams(req model.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req),
		Model:               m.opts.Model,
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}

	if req.Sampling.Temperature != nil {
		params.Temperature = openai.Float(*req.Sampling.Temperature)
	}

	if req.Sampling.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.Sampling.MaxTokens))
	}

	if len(req.Tools) == 0 {
		return params
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Name,
				Description: openai.String(tdef.Description),
				Parameters:  tdef.Parameters,
			},
		}
	}

	params.Tools = tools

	return params
}

// buildMessages converts normalized messages into OpenAI chat messages. Tool
// result messages become one tool message per result so each keeps its call
// id pairing.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion

	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Text()))
		case core.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Text()))
		case core.RoleAssistant:
			calls := msg.ToolCalls()
			if len(calls) == 0 {
				messages = append(messages, openai.AssistantMessage(msg.Text()))
				continue
			}

			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(calls))
			for i, call := range calls {
				toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   call.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				}
			}

			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				},
			})
		case core.RoleTool:
			for _, result := range msg.ToolResults() {
				messages = append(messages, openai.ToolMessage(model.ToolResultContent(result), result.ID))
			}
		}
	}

	return messages
}

// toTurn normalizes the first choice into a Turn. A response carrying tool
// calls classifies as a tool call turn even when text is present.
func toTurn(resp *openai.ChatCompletion) *model.Turn {
	choice := resp.Choices[0]

	usage := &model.TokenUsage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}

	if len(choice.Message.ToolCalls) > 0 {
		calls := make([]core.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			calls[i] = core.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			}
		}

		turn := model.ToolCallsTurn(calls...)
		turn.Text = choice.Message.Content
		turn.Usage = usage

		return turn
	}

	turn := model.FinalAnswer(choice.Message.Content)
	turn.Usage = usage

	return turn
}

// mapError translates SDK errors into the shared provider error taxonomy.
func mapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		// Transport-level failure, endpoint never answered.
		return &model.ProviderUnavailableError{Provider: "openai", Err: err}
	}

	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return &model.RateLimitedError{
			Provider:   "openai",
			RetryAfter: retryAfterHint(apiErr.Response),
			Err:        err,
		}
	case apiErr.StatusCode >= http.StatusInternalServerError:
		return &model.ProviderUnavailableError{Provider: "openai", Err: err}
	default:
		return &model.ProviderRejectedError{
			Provider: "openai",
			Reason:   fmt.Sprintf("status %d", apiErr.StatusCode),
			Err:      err,
		}
	}
}

// retryAfterHint extracts the Retry-After header (seconds form) when present.
func retryAfterHint(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}

	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}

	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return 0
	}

	return time.Duration(secs * float64(time.Second))
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}

func init() {
	model.RegisterProvider("openai", func(modelName string) (model.Model, error) {
		return NewModel(func(o *Options) { o.Model = modelName }), nil
	})
}

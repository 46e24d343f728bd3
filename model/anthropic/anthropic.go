// Package anthropic provides a model wrapper for the Anthropic Claude
// Messages API with tool use. API failures map onto the shared provider
// error taxonomy.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/model"
)

// Options configures the Anthropic model adapter (model id, max tokens,
// API key). Extend via functional options to preserve stability.
type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:     anthropic.ModelClaudeSonnet4_20250514,
		MaxTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{
		client: &client,
		opts:   opts,
	}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:     anthropic.ModelClaudeSonnet4_20250514,
		MaxTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{
		client: client,
		opts:   opts,
	}
}

// Complete implements model.Model for the Messages API.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.Turn, error) {
	params := anthropic.MessageNewParams{
		Model:     m.opts.Model,
		Messages:  m.buildMessages(req.Messages),
		MaxTokens: m.opts.MaxTokens,
	}

	if req.Sampling.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Sampling.Temperature)
	}

	if req.Sampling.MaxTokens > 0 {
		params.MaxTokens = int64(req.Sampling.MaxTokens)
	}

	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
	}

	if len(req.Tools) > 0 {
		params.Tools = m.buildTools(req.Tools)
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}

	return toTurn(resp), nil
}

// buildMessages converts normalized messages to the Anthropic format. Tool
// results travel as tool_result blocks inside a user message, paired to the
// preceding assistant tool_use blocks by call id.
func (m *Model) buildMessages(messages []core.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case core.RoleSystem:
			continue // Carried via the System param
		case core.RoleUser:
			if text := msg.Text(); text != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
			}
		case core.RoleAssistant:
			if content := m.buildAssistantContent(msg); len(content) > 0 {
				out = append(out, anthropic.NewAssistantMessage(content...))
			}
		case core.RoleTool:
			var blocks []anthropic.ContentBlockParamUnion
			for _, result := range msg.ToolResults() {
				blocks = append(blocks, anthropic.NewToolResultBlock(
					result.ID,
					model.ToolResultContent(result),
					result.IsError(),
				))
			}

			if len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		}
	}

	return out
}

// buildAssistantContent builds the content blocks for an assistant message.
func (m *Model) buildAssistantContent(msg core.Message) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion

	if text := msg.Text(); text != "" {
		content = append(content, anthropic.NewTextBlock(text))
	}

	for _, call := range msg.ToolCalls() {
		var input any
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &input); err != nil {
				input = call.Arguments // fallback to string
			}
		}

		content = append(content, anthropic.NewToolUseBlock(call.ID, input, call.Name))
	}

	return content
}

// buildTools converts normalized tool definitions to the Anthropic tool format.
func (m *Model) buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	anthropicTools := make([]anthropic.ToolUnionParam, len(tools))

	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if tool.Parameters != nil {
			if properties, exists := tool.Parameters["properties"]; exists {
				inputSchema.Properties = properties
			}

			if required, exists := tool.Parameters["required"]; exists {
				if reqSlice, ok := required.([]string); ok {
					inputSchema.Required = reqSlice
				} else if reqInterface, ok := required.([]any); ok {
					var reqStrings []string
					for _, r := range reqInterface {
						if s, ok := r.(string); ok {
							reqStrings = append(reqStrings, s)
						}
					}
					inputSchema.Required = reqStrings
				}
			}
		}

		anthropicTools[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
	}

	return anthropicTools
}

// toTurn normalizes the response content blocks into a Turn. Any tool_use
// block classifies the turn as tool calls.
func toTurn(resp *anthropic.Message) *model.Turn {
	var (
		text  string
		calls []core.ToolCall
	)

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()

			args := ""
			if toolBlock.Input != nil {
				if argsBytes, err := json.Marshal(toolBlock.Input); err == nil {
					args = string(argsBytes)
				}
			}

			calls = append(calls, core.ToolCall{
				ID:        toolBlock.ID,
				Name:      toolBlock.Name,
				Arguments: args,
			})
		}
	}

	usage := &model.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}

	if len(calls) > 0 {
		turn := model.ToolCallsTurn(calls...)
		turn.Text = text
		turn.Usage = usage

		return turn
	}

	turn := model.FinalAnswer(text)
	turn.Usage = usage

	return turn
}

// mapError translates SDK errors into the shared provider error taxonomy.
func mapError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return &model.ProviderUnavailableError{Provider: "anthropic", Err: err}
	}

	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return &model.RateLimitedError{
			Provider:   "anthropic",
			RetryAfter: retryAfterHint(apiErr.Response),
			Err:        err,
		}
	case apiErr.StatusCode >= http.StatusInternalServerError:
		return &model.ProviderUnavailableError{Provider: "anthropic", Err: err}
	default:
		return &model.ProviderRejectedError{
			Provider: "anthropic",
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

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          string(m.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}

func init() {
	model.RegisterProvider("anthropic", func(modelName string) (model.Model, error) {
		return NewModel(func(o *Options) { o.Model = anthropic.Model(modelName) }), nil
	})
}

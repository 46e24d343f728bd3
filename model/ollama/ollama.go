// Package ollama provides a model wrapper for a local or remote Ollama
// server, including tool calling for models that support it. API failures
// map onto the shared provider error taxonomy.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/model"
	"github.com/ollama/ollama/api"
)

// Options configures the Ollama model adapter.
type Options struct {
	Model   string
	BaseURL string // empty = OLLAMA_HOST environment variable or http://localhost:11434
}

// Model wraps the Ollama chat API behind the generic model.Model interface.
type Model struct {
	client *api.Client
	opts   Options
}

// NewModel creates a new Ollama model talking to the configured server.
func NewModel(optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model: "llama3.1:latest",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}

	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}

	return &Model{
		client: api.NewClient(parsedURL, http.DefaultClient),
		opts:   opts,
	}, nil
}

// NewModelFromClient creates a new Ollama model from an existing client.
func NewModelFromClient(client *api.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model: "llama3.1:latest",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{client: client, opts: opts}
}

// Complete implements model.Model using a non-streaming chat request.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.Turn, error) {
	stream := false

	chatReq := &api.ChatRequest{
		Model:    m.opts.Model,
		Messages: buildMessages(req),
		Tools:    buildTools(req.Tools),
		Stream:   &stream,
	}

	options := map[string]any{}
	if req.Sampling.Temperature != nil {
		options["temperature"] = *req.Sampling.Temperature
	}

	if req.Sampling.MaxTokens > 0 {
		options["num_predict"] = req.Sampling.MaxTokens
	}

	if len(options) > 0 {
		chatReq.Options = options
	}

	var final api.ChatResponse

	respFunc := func(resp api.ChatResponse) error {
		final = resp
		return nil
	}

	if err := m.client.Chat(ctx, chatReq, respFunc); err != nil {
		return nil, mapError(err)
	}

	return toTurn(final), nil
}

// buildMessages converts normalized messages to the Ollama wire format. Tool
// results become tool role messages; Ollama pairs them to the preceding
// assistant tool calls positionally.
func buildMessages(req model.Request) []api.Message {
	var messages []api.Message

	if req.Instructions != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.Instructions})
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case core.RoleSystem:
			messages = append(messages, api.Message{Role: "system", Content: msg.Text()})
		case core.RoleUser:
			messages = append(messages, api.Message{Role: "user", Content: msg.Text()})
		case core.RoleAssistant:
			out := api.Message{Role: "assistant", Content: msg.Text()}

			for _, call := range msg.ToolCalls() {
				var args api.ToolCallFunctionArguments
				if call.Arguments != "" {
					_ = json.Unmarshal([]byte(call.Arguments), &args)
				}

				out.ToolCalls = append(out.ToolCalls, api.ToolCall{
					Function: api.ToolCallFunction{
						Name:      call.Name,
						Arguments: args,
					},
				})
			}

			messages = append(messages, out)
		case core.RoleTool:
			for _, result := range msg.ToolResults() {
				messages = append(messages, api.Message{
					Role:    "tool",
					Content: model.ToolResultContent(result),
				})
			}
		}
	}

	return messages
}

// buildTools converts normalized tool definitions to the Ollama tool format.
func buildTools(tools []model.ToolDefinition) []api.Tool {
	if len(tools) == 0 {
		return nil
	}

	out := make([]api.Tool, 0, len(tools))
	for _, tdef := range tools {
		out = append(out, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tdef.Name,
				Description: tdef.Description,
				Parameters:  buildParameters(tdef.Parameters),
			},
		})
	}

	return out
}

// buildParameters converts a JSON schema map into Ollama's typed parameter
// struct, keeping the subset Ollama understands.
func buildParameters(schemaMap map[string]any) api.ToolFunctionParameters {
	params := api.ToolFunctionParameters{
		Type:       "object",
		Properties: make(map[string]api.ToolProperty),
	}

	if schemaMap == nil {
		return params
	}

	if t, ok := schemaMap["type"].(string); ok && t != "" {
		params.Type = t
	}

	switch required := schemaMap["required"].(type) {
	case []string:
		params.Required = required
	case []any:
		for _, r := range required {
			if s, ok := r.(string); ok {
				params.Required = append(params.Required, s)
			}
		}
	}

	if props, ok := schemaMap["properties"].(map[string]any); ok {
		for name, value := range props {
			params.Properties[name] = buildProperty(value)
		}
	}

	return params
}

func buildProperty(value any) api.ToolProperty {
	prop := api.ToolProperty{}

	propMap, ok := value.(map[string]any)
	if !ok {
		return prop
	}

	if t, ok := propMap["type"].(string); ok {
		prop.Type = api.PropertyType{t}
	}

	if desc, ok := propMap["description"].(string); ok {
		prop.Description = desc
	}

	if enum, ok := propMap["enum"].([]any); ok {
		prop.Enum = enum
	}

	if items, ok := propMap["items"]; ok {
		prop.Items = items
	}

	return prop
}

// toTurn normalizes the final chat response into a Turn. Ollama tool calls
// carry no ids, so fresh ones are minted for result correlation.
func toTurn(resp api.ChatResponse) *model.Turn {
	usage := &model.TokenUsage{
		PromptTokens:     resp.Metrics.PromptEvalCount,
		CompletionTokens: resp.Metrics.EvalCount,
		TotalTokens:      resp.Metrics.PromptEvalCount + resp.Metrics.EvalCount,
	}

	if len(resp.Message.ToolCalls) > 0 {
		calls := make([]core.ToolCall, len(resp.Message.ToolCalls))
		for i, tc := range resp.Message.ToolCalls {
			args := "{}"
			if data, err := json.Marshal(tc.Function.Arguments); err == nil {
				args = string(data)
			}

			calls[i] = core.ToolCall{
				ID:        core.NewID(),
				Name:      tc.Function.Name,
				Arguments: args,
			}
		}

		turn := model.ToolCallsTurn(calls...)
		turn.Text = resp.Message.Content
		turn.Usage = usage

		return turn
	}

	turn := model.FinalAnswer(resp.Message.Content)
	turn.Usage = usage

	return turn
}

// mapError translates client errors into the shared provider error taxonomy.
// An unreachable local server is the common failure, reported as unavailable.
func mapError(err error) error {
	var statusErr api.StatusError
	if !errors.As(err, &statusErr) {
		return &model.ProviderUnavailableError{Provider: "ollama", Err: err}
	}

	switch {
	case statusErr.StatusCode == http.StatusTooManyRequests:
		return &model.RateLimitedError{Provider: "ollama", Err: err}
	case statusErr.StatusCode >= http.StatusInternalServerError:
		return &model.ProviderUnavailableError{Provider: "ollama", Err: err}
	default:
		return &model.ProviderRejectedError{
			Provider: "ollama",
			Reason:   fmt.Sprintf("status %d", statusErr.StatusCode),
			Err:      err,
		}
	}
}

// Info returns metadata describing this Ollama model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "ollama",
		SupportsTools: true,
	}
}

func init() {
	model.RegisterProvider("ollama", func(modelName string) (model.Model, error) {
		return NewModel(func(o *Options) { o.Model = modelName })
	})
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
)

// GeminiClient binds the haiku-class tier to Gemini via the official genai
// SDK, grounded on the teacher's internal/embedding/genai.go client
// construction (client.Models.* call shape), generalized from embeddings to
// GenerateContent with function-calling tools.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient builds a client bound to model, authenticated with apiKey.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	b, _ := genaiSchemaFromMap(schema)
	return b
}

// genaiSchemaFromMap converts our provider-agnostic JSON-schema-ish map into
// a genai.Schema. Only the subset of JSON Schema the pipeline's tool
// definitions actually use (object/string/number/boolean/array, properties,
// required, items) is supported.
func genaiSchemaFromMap(m map[string]any) (*genai.Schema, error) {
	s := &genai.Schema{}
	switch t, _ := m["type"].(string); t {
	case "object", "":
		s.Type = genai.TypeObject
	case "string":
		s.Type = genai.TypeString
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
	}
	if desc, ok := m["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				child, err := genaiSchemaFromMap(sub)
				if err != nil {
					return nil, err
				}
				s.Properties[name] = child
			}
		}
	}
	if req, ok := m["required"].([]string); ok {
		s.Required = req
	} else if req, ok := m["required"].([]any); ok {
		for _, r := range req {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		child, err := genaiSchemaFromMap(items)
		if err != nil {
			return nil, err
		}
		s.Items = child
	}
	return s, nil
}

func (c *GeminiClient) Call(ctx context.Context, req CallRequest) (CallResponse, error) {
	log := logging.Get(logging.CategoryLLM)
	start := time.Now()

	var tools []*genai.Tool
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(req.Tools))
		for i, t := range req.Tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGenaiSchema(t.InputSchema),
			}
		}
		tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens:   int32(req.MaxTokens),
		SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
		Tools:             tools,
	}
	if req.ToolChoice.Type == ToolChoiceTool || req.ToolChoice.Type == ToolChoiceAny {
		mode := genai.FunctionCallingConfigModeAny
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
		}
	}

	contents := []*genai.Content{genai.NewContentFromText(req.UserPrompt, genai.RoleUser)}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		log.Warnw("gemini request failed", "error", err, "operation", req.Operation)
		return CallResponse{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	if len(result.Candidates) == 0 {
		return CallResponse{}, fmt.Errorf("gemini: no candidates returned")
	}

	var text strings.Builder
	var calls []ToolCall
	for i, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			calls = append(calls, ToolCall{
				ID:    fmt.Sprintf("%s-%d", part.FunctionCall.Name, i),
				Name:  part.FunctionCall.Name,
				Input: part.FunctionCall.Args,
			})
		}
	}

	inputTokens, outputTokens := 0, 0
	if result.UsageMetadata != nil {
		inputTokens = int(result.UsageMetadata.PromptTokenCount)
		outputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}

	return CallResponse{
		Text:         strings.TrimSpace(text.String()),
		ToolCalls:    calls,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		LatencyMs:    time.Since(start).Milliseconds(),
		Model:        c.model,
	}, nil
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

// ErrEmptyResponse is returned when the model yields no candidates.
var ErrEmptyResponse = errors.New("no response candidates from Gemini")

// GeminiProvider implements LLMProvider using Google's Gemini models.
type GeminiProvider struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: missing api key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &GeminiProvider{
		client:      client,
		modelName:   modelName,
		temperature: 0.4,
	}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

// StartConversation opens a chat session with the tools declared as Gemini functions.
// Gemini rejects JSON response mode together with function calling; callers recover the
// terminal payload with CleanJSONString.
func (p *GeminiProvider) StartConversation(tools []ToolSpec) Conversation {
	model := p.client.GenerativeModel(p.modelName)
	model.SetTemperature(p.temperature)
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, functionDeclaration(t))
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return &geminiConversation{session: model.StartChat()}
}

// GenerateJSON runs a single JSON-mode request.
func (p *GeminiProvider) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	model := p.client.GenerativeModel(p.modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(p.temperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}
	turn, err := turnFromResponse(resp)
	if err != nil {
		return "", err
	}
	return CleanJSONString(turn.Text), nil
}

type geminiConversation struct {
	session *genai.ChatSession
}

func (c *geminiConversation) Send(ctx context.Context, prompt string) (*Turn, error) {
	resp, err := c.session.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}
	return turnFromResponse(resp)
}

func (c *geminiConversation) SendToolResults(ctx context.Context, results []ToolResult) (*Turn, error) {
	if len(results) == 0 {
		return nil, errors.New("gemini: no tool results to send")
	}
	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, genai.FunctionResponse{Name: r.Name, Response: r.Response})
	}
	resp, err := c.session.SendMessage(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini tool response error: %w", err)
	}
	return turnFromResponse(resp)
}

func turnFromResponse(resp *genai.GenerateContentResponse) (*Turn, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}
	cand := resp.Candidates[0]

	turn := &Turn{}
	for _, fc := range cand.FunctionCalls() {
		turn.ToolCalls = append(turn.ToolCalls, ToolCall{Name: fc.Name, Args: fc.Args})
	}

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	turn.Text = text.String()
	return turn, nil
}

func functionDeclaration(t ToolSpec) *genai.FunctionDeclaration {
	props := make(map[string]*genai.Schema, len(t.Params))
	var required []string
	for _, p := range t.Params {
		props[p.Name] = &genai.Schema{
			Type:        genai.TypeString,
			Description: p.Description,
			Enum:        p.Enum,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   required,
		},
	}
}

package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"kisansight/api/internal/advisor"
)

const DefaultModel = "gemini-2.5-flash"

// Engine calls Gemini through one client built at start-up.
type Engine struct {
	client *genai.Client
	model  string
}

// New builds the client. A missing key is returned as *advisor.ConfigurationError
// so callers can keep serving and report it per request.
func New(ctx context.Context, apiKey, model, endpoint string) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &advisor.ConfigurationError{Reason: "missing credential", Err: advisor.ErrMissingCredential}
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if ep := strings.TrimSpace(endpoint); ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
	}
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, &advisor.ConfigurationError{Reason: "gemini client", Err: err}
	}
	return &Engine{client: cl, model: model}, nil
}

func (e *Engine) Name() string { return e.model }

func (e *Engine) Close() error { return e.client.Close() }

// Generate sends one GenerateContent request and returns the first text part.
func (e *Engine) Generate(ctx context.Context, call advisor.Call) (string, error) {
	m := e.client.GenerativeModel(e.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   call.Schema,
	}

	parts := make([]genai.Part, 0, 2)
	if call.Image != nil {
		parts = append(parts, genai.Blob{MIMEType: call.Image.MIMEType, Data: call.Image.Data})
	}
	parts = append(parts, genai.Text(call.Prompt))

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", call.Op, err)
	}
	return strings.TrimSpace(firstText(resp)), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

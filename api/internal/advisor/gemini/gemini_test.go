package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kisansight/api/internal/advisor"
)

func TestNew_MissingKeyIsConfigurationError(t *testing.T) {
	_, err := New(context.Background(), "  ", "", "")
	require.Error(t, err)

	var ce *advisor.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, advisor.ErrMissingCredential)
	assert.Equal(t, "errors.configuration", advisor.MessageKey(advisor.PanelPredict, err))
}

func TestFirstText(t *testing.T) {
	assert.Empty(t, firstText(nil))
	assert.Empty(t, firstText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{
				genai.Blob{MIMEType: "image/png", Data: []byte{1}},
				genai.Text(`{"a":`),
				genai.Text(`1}`),
			}}},
		},
	}
	assert.Equal(t, `{"a":1}`, firstText(resp))
}

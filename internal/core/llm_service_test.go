package core

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/web-rag-agent/internal/store"
)

func TestToGeminiContents(t *testing.T) {
	system, contents, err := toGeminiContents([]store.Message{
		{Role: store.RoleSystem, Content: "be helpful"},
		{Role: store.RoleUser, Content: "hi"},
		{Role: store.RoleAssistant, Content: "hello"},
		{Role: store.RoleUser, Content: "question"},
		{Role: store.RoleAssistant, Content: "TOOL_REQUEST: ..."},
		{Role: store.RoleSystem, Content: "results"},
	})
	require.NoError(t, err)

	require.NotNil(t, system)
	assert.Equal(t, []genai.Part{genai.Text("be helpful")}, system.Parts)

	require.Len(t, contents, 5)
	roles := make([]string, len(contents))
	for i, c := range contents {
		roles[i] = c.Role
	}
	assert.Equal(t, []string{"user", "model", "user", "model", "user"}, roles)
	assert.Equal(t, []genai.Part{genai.Text("results")}, contents[4].Parts)
}

func TestToGeminiContents_NoSystemInstruction(t *testing.T) {
	system, contents, err := toGeminiContents([]store.Message{{Role: store.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Nil(t, system)
	assert.Len(t, contents, 1)
}

func TestToGeminiContents_Errors(t *testing.T) {
	_, _, err := toGeminiContents(nil)
	assert.ErrorIs(t, err, ErrInvalidConversation)

	_, _, err = toGeminiContents([]store.Message{{Role: store.RoleSystem, Content: "only system"}})
	assert.ErrorIs(t, err, ErrInvalidConversation)

	_, _, err = toGeminiContents([]store.Message{
		{Role: store.RoleUser, Content: "hi"},
		{Role: store.RoleAssistant, Content: "hello"},
	})
	assert.ErrorIs(t, err, ErrInvalidConversation)

	_, _, err = toGeminiContents([]store.Message{{Role: "tool", Content: "x"}})
	assert.ErrorIs(t, err, ErrInvalidConversation)
}

func TestResponseText(t *testing.T) {
	candidate := func(parts ...genai.Part) *genai.GenerateContentResponse {
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}}}
	}

	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"nil response", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, ""},
		{"no parts", candidate(), ""},
		{"only non-text parts", candidate(genai.Blob{MIMEType: "image/png", Data: []byte{1}}), ""},
		{"text parts joined", candidate(genai.Text("Paris is "), genai.Blob{MIMEType: "image/png"}, genai.Text("the capital.")), "Paris is the capital."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, responseText(tt.resp))
		})
	}
}

package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"gwi.com/web-rag-agent/internal/config"
	"gwi.com/web-rag-agent/internal/store"
)

const (
	geminiRoleUser  = "user"
	geminiRoleModel = "model"
)

// ErrInvalidConversation marks a conversation that cannot be sent to the
// model at all; no request was made.
var ErrInvalidConversation = errors.New("invalid conversation")

// LLMService talks to Gemini for chat completions and text embeddings.
type LLMService struct {
	client         *genai.Client
	modelName      string
	embeddingModel string
	logger         *zap.Logger
}

func NewLLMService(ctx context.Context, cfg config.Config, logger *zap.Logger) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &LLMService{
		client:         client,
		modelName:      cfg.ModelName,
		embeddingModel: cfg.EmbeddingModelName,
		logger:         logger,
	}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.Warn("Error closing GenAI client", zap.Error(err))
		} else {
			s.logger.Debug("GenAI client closed")
		}
	}
}

// GetEmbedding satisfies store.Embedder.
func (s *LLMService) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	em := s.client.EmbeddingModel(s.embeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

// Complete sends the conversation to the chat model and returns its reply,
// which is "" when the model produced no text. Transport, auth and quota
// failures are returned as errors; a conversation that cannot be mapped to
// Gemini's roles fails with ErrInvalidConversation.
func (s *LLMService) Complete(ctx context.Context, messages []store.Message) (string, error) {
	systemInstruction, contents, err := toGeminiContents(messages)
	if err != nil {
		return "", err
	}

	model := s.client.GenerativeModel(s.modelName)
	model.SystemInstruction = systemInstruction

	chatSession := model.StartChat()
	chatSession.History = contents[:len(contents)-1]
	last := contents[len(contents)-1]

	resp, err := chatSession.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		s.logger.Warn("Gemini response was empty or had no text parts")
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate. It is ""
// when the response carries no text.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

// toGeminiContents converts a conversation to Gemini's shape. Leading system
// messages become the system instruction. Gemini has no system role inside
// the conversation, so later system messages are sent as user turns.
func toGeminiContents(messages []store.Message) (*genai.Content, []*genai.Content, error) {
	var systemParts []genai.Part
	i := 0
	for ; i < len(messages) && messages[i].Role == store.RoleSystem; i++ {
		systemParts = append(systemParts, genai.Text(messages[i].Content))
	}

	var contents []*genai.Content
	for _, msg := range messages[i:] {
		role := geminiRoleUser
		switch msg.Role {
		case store.RoleAssistant:
			role = geminiRoleModel
		case store.RoleUser, store.RoleSystem:
		default:
			return nil, nil, fmt.Errorf("%w: unknown message role %q", ErrInvalidConversation, msg.Role)
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("%w: prompt history is empty", ErrInvalidConversation)
	}
	if contents[len(contents)-1].Role != geminiRoleUser {
		return nil, nil, fmt.Errorf("%w: last message is not from the user", ErrInvalidConversation)
	}

	var systemInstruction *genai.Content
	if len(systemParts) > 0 {
		systemInstruction = &genai.Content{Parts: systemParts}
	}
	return systemInstruction, contents, nil
}

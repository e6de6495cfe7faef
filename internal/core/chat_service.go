package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gwi.com/web-rag-agent/internal/config"
	"gwi.com/web-rag-agent/internal/store"
)

const (
	apiErrorReply        = "Sorry, I encountered an API error."
	unexpectedErrorReply = "Sorry, an unexpected error occurred."
	fallbackReply        = "I encountered an issue processing that request fully."
	noDocsSummary        = "No specific documents found in VDB for your query in that category."
	docSeparator         = "\n---\n"
)

// ChatService runs one conversation. Each turn asks the model whether to
// answer, scrape a URL or search the store, executes the chosen tool and
// records the exchange in the history. It is not safe for concurrent use.
type ChatService struct {
	completer Completer
	ingester  Ingester
	querier   Querier
	logger    *zap.Logger
	history   []store.Message
}

func NewChatService(cfg config.Config, completer Completer, ingester Ingester, querier Querier, logger *zap.Logger) *ChatService {
	return &ChatService{
		completer: completer,
		ingester:  ingester,
		querier:   querier,
		logger:    logger,
		history: []store.Message{
			{Role: store.RoleSystem, Content: SystemPrompt(cfg.ModelName)},
		},
	}
}

// History returns a copy of the conversation so far, system prompt first.
func (s *ChatService) History() []store.Message {
	return append([]store.Message(nil), s.history...)
}

// HandleTurn answers one user message. Model failures are answered with an
// apology, and a conversation the model cannot accept with a generic one;
// either way the user message and the reply are appended to the
// history so the session can continue.
func (s *ChatService) HandleTurn(ctx context.Context, userInput string) string {
	turn := append(s.History(), store.Message{Role: store.RoleUser, Content: userInput})

	answer, err := s.runTurn(ctx, userInput, turn)
	switch {
	case errors.Is(err, ErrInvalidConversation):
		s.logger.Error("Unexpected error handling turn", zap.Error(err))
		answer = unexpectedErrorReply
	case err != nil:
		s.logger.Error("Model completion failed", zap.Error(err))
		answer = apiErrorReply
	case strings.TrimSpace(answer) == "":
		answer = fallbackReply
	}

	s.history = append(s.history,
		store.Message{Role: store.RoleUser, Content: userInput},
		store.Message{Role: store.RoleAssistant, Content: answer},
	)
	return answer
}

func (s *ChatService) runTurn(ctx context.Context, userInput string, turn []store.Message) (string, error) {
	initial, err := s.completer.Complete(ctx, turn)
	if err != nil {
		return "", fmt.Errorf("initial completion: %w", err)
	}
	initial = strings.TrimSpace(initial)

	switch req := ParseToolRequest(initial).(type) {
	case ScrapeURLRequest:
		return s.scrape(ctx, req), nil
	case VDBQueryRequest:
		return s.answerFromStore(ctx, userInput, turn, initial, req)
	default:
		return initial, nil
	}
}

func (s *ChatService) scrape(ctx context.Context, req ScrapeURLRequest) string {
	s.logger.Info("Model requested scraping", zap.String("url", req.URL))

	ids := s.ingester.ScrapeAndEmbed(ctx, req.URL)
	if len(ids) == 0 {
		return fmt.Sprintf("I attempted to process the URL %s, but failed to scrape or embed any content. "+
			"It might be inaccessible or have no extractable text.", req.URL)
	}
	return fmt.Sprintf("Understood. I have processed the URL %s. Its content (found %d chunks) has been scraped and stored in the VDB.",
		req.URL, len(ids))
}

func (s *ChatService) answerFromStore(ctx context.Context, userInput string, turn []store.Message, toolCall string, req VDBQueryRequest) (string, error) {
	s.logger.Info("Model requested store search",
		zap.String("query", req.Query), zap.String("category", req.Category))

	result := s.querier.Query(ctx, req.Query, req.Category)
	summary := summarizeQueryResult(result)

	synthesis := append(turn[:len(turn):len(turn)],
		store.Message{Role: store.RoleAssistant, Content: toolCall},
		store.Message{Role: store.RoleSystem, Content: synthesisPrompt(req, summary, userInput)},
	)

	answer, err := s.completer.Complete(ctx, synthesis)
	if err != nil {
		return "", fmt.Errorf("synthesis completion: %w", err)
	}
	if strings.Contains(answer, ToolRequestMarker) {
		s.logger.Warn("Synthesized answer still contains a tool request, discarding it")
		return "", nil
	}
	return answer, nil
}

func summarizeQueryResult(result QueryResult) string {
	if result.Error != "" {
		return fmt.Sprintf("%s (Error from VDB: %s)", noDocsSummary, result.Error)
	}
	if len(result.Documents) == 0 {
		return noDocsSummary
	}
	return strings.Join(result.Documents, docSeparator)
}

func synthesisPrompt(req VDBQueryRequest, summary, userInput string) string {
	return fmt.Sprintf("You previously decided to search the VDB category \"%s\" with the query \"%s\". "+
		"The VDB returned the following information:\n---\n%s\n---\n"+
		"Based on this, please now provide a comprehensive answer to the user's original question: \"%s\". "+
		"Answer directly without mentioning the VDB search process or tool formats.",
		req.Category, req.Query, summary, userInput)
}

// SystemPrompt describes both tools, their exact request grammar and the
// category naming rule the model must reproduce when querying.
func SystemPrompt(modelName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful assistant using the %s model. You have two tools available.\n", modelName)
	b.WriteString("1. URL Scraper: If the user provides text that you identify as a URL that should be processed " +
		"(scraped and its content stored for later), you MUST respond with ONLY the following exact format: ")
	fmt.Fprintf(&b, "%s\"THE_URL_HERE\"%s\n", ScrapeURLPrefix, ToolRequestSuffix)
	b.WriteString("When a URL is scraped, its content is stored in the Vector Database (VDB) under a category derived " +
		"from the website's hostname: a leading 'www.' is removed, then the top-level domain extension " +
		"(e.g. '.com', '.org', '.edu') is removed, and the rest is sanitized (dots become underscores). " +
		"For example, 'www.fib.upc.edu' becomes 'fib_upc'. Remember this naming rule for later queries.\n")
	b.WriteString("2. VDB Search: If the user asks a question and you believe the answer might be in the VDB from " +
		"previously processed URLs, you MUST respond with ONLY the following exact format: ")
	fmt.Fprintf(&b, "%squery=\"YOUR_SEARCH_QUERY\", category=\"DERIVED_CATEGORY_NAME\"%s\n", GetFromVDBPrefix, ToolRequestSuffix)
	b.WriteString("Replace YOUR_SEARCH_QUERY with the specific query and DERIVED_CATEGORY_NAME with the category " +
		"formed by the rule above (e.g. 'www.example.com' gives 'example'; 'www.another.domain.co.uk' gives 'another_domain_co').\n")
	b.WriteString("IMPORTANT: If you decide to use a tool, your response must consist *only* of the tool request string. " +
		"Do not add any other text or explanation.\n")
	b.WriteString("If you can answer directly, or the input is not a URL to scrape and does not require a VDB search, " +
		"provide a direct answer to the user.")
	return b.String()
}

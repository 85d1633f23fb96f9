package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Biorevtech-Agents/AI-Assistant/internal/config"
)

// NoAnswer is returned when the upstream completion carries no content.
const NoAnswer = "No answer"

var (
	ErrEmptyQuestion     = errors.New("question is required")
	ErrStreamingDisabled = errors.New("streaming disabled in configuration")
)

// Service relays a single question to the upstream completion API.
type Service struct {
	chatModel model.BaseChatModel
	cfg       config.AIConfig
}

// NewService creates the upstream chat model from configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(chatModel, cfg), nil
}

// NewServiceWithModel wraps an existing chat model.
func NewServiceWithModel(chatModel model.BaseChatModel, cfg config.AIConfig) *Service {
	return &Service{chatModel: chatModel, cfg: cfg}
}

// StreamingEnabled reports whether /ask/stream should stream.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// Ask sends question as a single user turn and returns the answer text.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	response, err := s.chatModel.Generate(ctx, s.buildMessages(question))
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	answer := NoAnswer
	if response != nil && strings.TrimSpace(response.Content) != "" {
		answer = response.Content
	}

	log.Printf("[ai] answered question length=%d answer length=%d", len(question), len(answer))
	return answer, nil
}

// StreamAnswer streams answer chunks. The caller owns closing the reader.
func (s *Service) StreamAnswer(ctx context.Context, question string) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, ErrStreamingDisabled
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	stream, err := s.chatModel.Stream(ctx, s.buildMessages(question))
	if err != nil {
		return nil, fmt.Errorf("failed to stream answer: %w", err)
	}
	return stream, nil
}

func (s *Service) buildMessages(question string) []*schema.Message {
	messages := make([]*schema.Message, 0, 2)
	if s.cfg.SystemPrompt != "" {
		messages = append(messages, schema.SystemMessage(s.cfg.SystemPrompt))
	}
	return append(messages, schema.UserMessage(question))
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

package coach

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/utils"
)

const maxMessageRunes = 2000

// History persists conversation turns.
type History interface {
	// Recent returns up to n turns in chronological order.
	Recent(ctx context.Context, userID uuid.UUID, n int) ([]models.CoachMessage, error)
	Append(ctx context.Context, msg *models.CoachMessage) error
}

// Service runs one coach exchange.
type Service struct {
	streamer Streamer
	history  History
	persona  string
	maxTurns int
}

// NewService builds the coach. A nil streamer means the coach is not configured.
func NewService(streamer Streamer, history History, persona string, maxTurns int) *Service {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &Service{streamer: streamer, history: history, persona: persona, maxTurns: maxTurns}
}

// Chat stores the user's message, streams the reply through onDelta and stores the reply.
// Errors returned before the first onDelta call leave nothing streamed.
func (s *Service) Chat(ctx context.Context, userID uuid.UUID, message string, onDelta func(string) error) (string, error) {
	message = utils.SanitizeText(message)
	if message == "" || utf8.RuneCountInString(message) > maxMessageRunes {
		return "", utils.Invalid("message must have between 1 and 2000 characters")
	}
	if s.streamer == nil {
		return "", utils.External("coach is not configured", nil)
	}

	recent, err := s.history.Recent(ctx, userID, s.maxTurns)
	if err != nil {
		return "", utils.DatabaseError("failed to load conversation", err)
	}
	if err := s.history.Append(ctx, &models.CoachMessage{UserID: userID, Role: openai.ChatMessageRoleUser, Content: message}); err != nil {
		return "", utils.DatabaseError("failed to store message", err)
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(recent)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: s.persona})
	for _, m := range recent {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	reply, streamErr := s.streamer.Stream(ctx, msgs, onDelta)
	if strings.TrimSpace(reply) != "" {
		// the request context may already be cancelled by a disconnecting client
		if err := s.history.Append(context.WithoutCancel(ctx), &models.CoachMessage{UserID: userID, Role: openai.ChatMessageRoleAssistant, Content: reply}); err != nil {
			utils.Logger.Warn("failed to store coach reply", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
	if streamErr != nil {
		return reply, utils.External("coach stream failed", streamErr)
	}
	return reply, nil
}

// GormHistory stores turns in coach_messages.
type GormHistory struct {
	db *gorm.DB
}

// NewGormHistory returns a History backed by db.
func NewGormHistory(db *gorm.DB) *GormHistory {
	return &GormHistory{db: db}
}

// Recent implements History.
func (h *GormHistory) Recent(ctx context.Context, userID uuid.UUID, n int) ([]models.CoachMessage, error) {
	var rows []models.CoachMessage
	if err := h.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(n).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// Append implements History.
func (h *GormHistory) Append(ctx context.Context, msg *models.CoachMessage) error {
	return h.db.WithContext(ctx).Create(msg).Error
}

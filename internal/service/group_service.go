package service

import (
	"context"
	"kinship/internal/apperr"
	"kinship/internal/config"
	"kinship/internal/model"
	"kinship/internal/scoring"
	"log/slog"
)

// GroupService grades group conversations and suggests icebreakers for struggling ones
type GroupService struct {
	store  *Store
	cfg    config.ScoringConfig
	logger *slog.Logger
}

func NewGroupService(store *Store, cfg config.ScoringConfig, logger *slog.Logger) *GroupService {
	return &GroupService{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Health loads the chat and its recent history and scores it for a participant
func (s *GroupService) Health(ctx context.Context, userID, chatID string) (*model.GroupHealth, error) {
	chat, err := s.store.Chat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, apperr.PermissionDenied("not a participant of this chat").With("chatId", chatID)
	}
	msgs, err := s.store.Messages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	gh := s.Evaluate(chat, msgs)
	return &gh, nil
}

// Evaluate scores chat over msgs. Icebreakers are suggested when the composite falls below
// the health threshold, drawn from the chat's declared topics and those detected in msgs.
func (s *GroupService) Evaluate(chat *model.Chat, msgs []*model.Message) model.GroupHealth {
	score := scoring.Health(chat.ID, chat.Participants, msgs, scoring.HealthOptions{
		NeutralResponseScore: s.cfg.NeutralResponseScore,
		Location:             s.cfg.Location(),
	})
	gh := model.GroupHealth{Score: score}
	if !chat.IsGroup() || !scoring.NeedsIcebreakers(score, s.cfg.HealthThreshold) {
		return gh
	}

	topics := append([]string{}, chat.Topics...)
	topics = append(topics, scoring.DetectTopics(msgs)...)
	gh.Icebreakers = scoring.Icebreakers(topics, len(chat.Participants))
	s.logger.Debug("icebreakers suggested", "chatId", chat.ID, "composite", score.Composite, "count", len(gh.Icebreakers))
	return gh
}

package service

import (
	"context"
	"kinship/internal/apperr"
	"kinship/internal/cache"
	"kinship/internal/config"
	"kinship/internal/model"
	"kinship/internal/moderation"
	"kinship/internal/repository"
	"kinship/internal/scoring"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Encrypter seals message bodies for the chat's participants
type Encrypter interface {
	Mode() string
	Encrypt(ctx context.Context, plaintext []byte, recipients []model.Recipient) (*model.Envelope, error)
}

// MessageService is the send pipeline: gate, screen, persist, then score and notify
type MessageService struct {
	store     *Store
	batch     repository.BatchWriter
	reports   *ReportService
	moderator *moderation.Moderator
	contacts  *ContactService
	groups    *GroupService
	activity  cache.ActivityCache
	clock     Clock
	loc       *time.Location
	logger    *slog.Logger

	sealer      Encrypter
	broadcaster Broadcaster
	battery     BatteryProvider
	workHours   ActivityProvider
}

func NewMessageService(
	store *Store,
	batch repository.BatchWriter,
	reports *ReportService,
	moderator *moderation.Moderator,
	contacts *ContactService,
	groups *GroupService,
	activity cache.ActivityCache,
	clock Clock,
	loc *time.Location,
	logger *slog.Logger,
) *MessageService {
	return &MessageService{
		store:     store,
		batch:     batch,
		reports:   reports,
		moderator: moderator,
		contacts:  contacts,
		groups:    groups,
		activity:  activity,
		clock:     clock,
		loc:       loc,
		logger:    logger,
		battery:   UnknownBattery(),
		workHours: PreferenceActivity{},
	}
}

// SetSealer enables end-to-end encryption of stored bodies; nil stores plaintext
func (s *MessageService) SetSealer(e Encrypter) {
	s.sealer = e
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *MessageService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetProviders replaces the battery and work-hours sources used for notification timing
func (s *MessageService) SetProviders(battery BatteryProvider, workHours ActivityProvider) {
	if battery != nil {
		s.battery = battery
	}
	if workHours != nil {
		s.workHours = workHours
	}
}

// Send runs the full pipeline for one outbound message. Errors before the write leave no
// trace; failures in the post-write side effects are logged and do not fail the send.
func (s *MessageService) Send(ctx context.Context, senderID string, premium bool, chatID, text string) (*model.SendResult, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, apperr.Validation("chatId is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("message is empty")
	}

	chat, err := s.store.Chat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(senderID) {
		return nil, apperr.PermissionDenied("not a participant of this chat").With("chatId", chatID)
	}

	ban, err := s.reports.BanDecision(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if ban.ShouldBan {
		return nil, apperr.PermissionDenied("sender is banned").
			With("reason", ban.Reason).
			With("permanent", ban.Permanent).
			With("duration", ban.Duration.String())
	}

	verdict, err := s.moderator.Screen(ctx, text)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	msg := &model.Message{
		ID:       uuid.New().String(),
		ChatID:   chat.ID,
		SenderID: senderID,
		Text:     verdict.Text,
		SentAt:   now,
	}
	if s.sealer != nil {
		if err := s.seal(ctx, chat, msg); err != nil {
			return nil, err
		}
	}

	if err := s.persist(ctx, chat, msg); err != nil {
		return nil, err
	}

	result := &model.SendResult{Message: msg}
	s.afterSend(ctx, chat, msg, premium, result)
	return result, nil
}

func (s *MessageService) seal(ctx context.Context, chat *model.Chat, msg *model.Message) error {
	recipients := make([]model.Recipient, 0, len(chat.Participants))
	if s.sealer.Mode() == config.EncryptionBox {
		keyed, err := s.store.PublicKeys(ctx, chat.Participants)
		if err != nil {
			return err
		}
		recipients = keyed
	} else {
		for _, p := range chat.Participants {
			recipients = append(recipients, model.Recipient{UserID: p})
		}
	}

	env, err := s.sealer.Encrypt(ctx, []byte(msg.Text), recipients)
	if err != nil {
		return err
	}
	msg.Envelope = env
	msg.Text = ""
	return nil
}

func (s *MessageService) persist(ctx context.Context, chat *model.Chat, msg *model.Message) error {
	invalidate := []string{cache.ChatKey(chat.ID), cache.ChatMessagesKey(chat.ID)}
	for _, p := range chat.Participants {
		invalidate = append(invalidate, cache.UserChatsKey(p))
	}

	ops := []repository.WriteOp{
		repository.InsertOp(repository.MessagesCollection, msg),
		repository.UpdateOp(repository.ChatsCollection, bson.M{"_id": chat.ID}, bson.M{
			"$inc": bson.M{"messageCount": 1},
			"$set": bson.M{"lastMessageAt": msg.SentAt},
		}),
	}
	return s.store.Gateway().Write(ctx, invalidate, func(ctx context.Context) error {
		return s.batch.BatchWrite(ctx, ops)
	})
}

func (s *MessageService) afterSend(ctx context.Context, chat *model.Chat, msg *model.Message, premium bool, result *model.SendResult) {
	if err := s.activity.Touch(ctx, msg.SenderID, msg.SentAt.In(s.loc)); err != nil {
		s.logger.Warn("last-active refresh failed", "userId", msg.SenderID, "error", err)
	}

	recipients := chat.Recipients(msg.SenderID)
	s.broadcast(recipients, EventNewMessage, msg)

	if chat.IsDirect() {
		s.contacts.Refresh(ctx, msg.SenderID, premium)
	}

	if chat.IsGroup() {
		msgs, err := s.store.Messages(ctx, chat.ID)
		if err != nil {
			s.logger.Warn("health refresh failed", "chatId", chat.ID, "error", err)
		} else {
			gh := s.groups.Evaluate(chat, msgs)
			result.Health = &gh.Score
			result.Icebreakers = gh.Icebreakers
			s.broadcast(chat.Participants, EventGroupHealth, gh.Score)
			if len(gh.Icebreakers) > 0 {
				s.broadcast(chat.Participants, EventIcebreakers, map[string]interface{}{
					"chatId":      chat.ID,
					"icebreakers": gh.Icebreakers,
				})
			}
		}
	}

	result.Notifications = make([]model.NotificationPlan, 0, len(recipients))
	for _, r := range recipients {
		result.Notifications = append(result.Notifications, s.plan(ctx, r, msg.SentAt))
	}
}

// plan times the notification for one recipient in their own timezone
func (s *MessageService) plan(ctx context.Context, recipientID string, sentAt time.Time) model.NotificationPlan {
	prefs, err := s.store.Preferences(ctx, recipientID)
	if err != nil {
		s.logger.Warn("preferences unavailable, using defaults", "userId", recipientID, "error", err)
		prefs = model.UserPreferences{UserID: recipientID, SmartTiming: true}
	}
	prefs.ActiveDuringWork = s.workHours.ActiveDuringWork(ctx, recipientID, prefs)

	loc := s.loc
	if prefs.Timezone != "" {
		if l, err := time.LoadLocation(prefs.Timezone); err == nil {
			loc = l
		}
	}
	local := sentAt.In(loc)
	delay := scoring.NotificationDelay(prefs, local, s.battery.Level(ctx, recipientID))
	return model.NotificationPlan{
		RecipientID: recipientID,
		Delay:       delay,
		DeliverAt:   sentAt.Add(delay),
	}
}

func (s *MessageService) broadcast(userIDs []string, msgType string, payload interface{}) {
	if s.broadcaster == nil || len(userIDs) == 0 {
		return
	}
	s.broadcaster.SendToUsers(userIDs, msgType, payload)
}

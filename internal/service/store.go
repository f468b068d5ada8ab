package service

import (
	"context"
	"fmt"
	"kinship/internal/apperr"
	"kinship/internal/cache"
	"kinship/internal/model"
	"kinship/internal/repository"
)

// Store is the read side of the document store. Every read goes through the gateway, so
// lookups are memoized, deduplicated and admission bounded.
type Store struct {
	gw             *cache.Gateway
	chats          repository.ChatRepo
	messages       repository.MessageRepo
	profiles       repository.ProfileRepo
	prefs          repository.PreferencesRepo
	keys           repository.KeyRepo
	historyLimit   int
	candidateLimit int
}

func NewStore(
	gw *cache.Gateway,
	chats repository.ChatRepo,
	messages repository.MessageRepo,
	profiles repository.ProfileRepo,
	prefs repository.PreferencesRepo,
	keys repository.KeyRepo,
	historyLimit, candidateLimit int,
) *Store {
	return &Store{
		gw:             gw,
		chats:          chats,
		messages:       messages,
		profiles:       profiles,
		prefs:          prefs,
		keys:           keys,
		historyLimit:   historyLimit,
		candidateLimit: candidateLimit,
	}
}

func (s *Store) Gateway() *cache.Gateway { return s.gw }

func (s *Store) Chat(ctx context.Context, chatID string) (*model.Chat, error) {
	return cache.Fetch(ctx, s.gw, cache.ChatKey(chatID), func(ctx context.Context) (*model.Chat, error) {
		return s.chats.GetByID(ctx, chatID)
	})
}

// Messages returns up to the history limit of the chat's latest messages, oldest first
func (s *Store) Messages(ctx context.Context, chatID string) ([]*model.Message, error) {
	return cache.Fetch(ctx, s.gw, cache.ChatMessagesKey(chatID), func(ctx context.Context) ([]*model.Message, error) {
		return s.messages.ListByChat(ctx, chatID, s.historyLimit)
	})
}

func (s *Store) UserChats(ctx context.Context, userID string) ([]*model.Chat, error) {
	return cache.Fetch(ctx, s.gw, cache.UserChatsKey(userID), func(ctx context.Context) ([]*model.Chat, error) {
		return s.chats.ListByParticipant(ctx, userID)
	})
}

// Preferences returns the user's stored preferences. Users who never saved any get smart
// timing enabled and are assumed inactive during work hours.
func (s *Store) Preferences(ctx context.Context, userID string) (model.UserPreferences, error) {
	return cache.Fetch(ctx, s.gw, cache.PreferencesKey(userID), func(ctx context.Context) (model.UserPreferences, error) {
		prefs, err := s.prefs.GetByUserID(ctx, userID)
		if apperr.IsKind(err, apperr.KindNotFound) {
			return model.UserPreferences{UserID: userID, SmartTiming: true}, nil
		}
		if err != nil {
			return model.UserPreferences{}, err
		}
		return *prefs, nil
	})
}

func (s *Store) AnonymousProfiles(ctx context.Context) ([]*model.Profile, error) {
	return cache.Fetch(ctx, s.gw, cache.AnonymousProfilesKey, func(ctx context.Context) ([]*model.Profile, error) {
		return s.profiles.ListAnonymous(ctx, s.candidateLimit)
	})
}

// PublicKeys resolves each user's published key; a user without one is a Validation error
func (s *Store) PublicKeys(ctx context.Context, userIDs []string) ([]model.Recipient, error) {
	out := make([]model.Recipient, 0, len(userIDs))
	for _, id := range userIDs {
		key, err := cache.Fetch(ctx, s.gw, cache.UserKeyKey(id), func(ctx context.Context) ([]byte, error) {
			keys, err := s.keys.GetMany(ctx, []string{id})
			if err != nil {
				return nil, err
			}
			k, ok := keys[id]
			if !ok || len(k) == 0 {
				return nil, apperr.Validation(fmt.Sprintf("user %s has no public key", id)).With("userId", id)
			}
			return k, nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, model.Recipient{UserID: id, PublicKey: key})
	}
	return out, nil
}

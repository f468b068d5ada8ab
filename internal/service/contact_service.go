package service

import (
	"context"
	"kinship/internal/cache"
	"kinship/internal/model"
	"kinship/internal/scoring"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ContactService ranks a user's contacts by engagement over their direct chats
type ContactService struct {
	store   *Store
	ranking cache.RankingCache
	clock   Clock
	loc     *time.Location
	logger  *slog.Logger
}

func NewContactService(store *Store, ranking cache.RankingCache, clock Clock, loc *time.Location, logger *slog.Logger) *ContactService {
	return &ContactService{
		store:   store,
		ranking: ranking,
		clock:   clock,
		loc:     loc,
		logger:  logger,
	}
}

// Ranked scores every direct-chat peer of userID, stores the ranking and returns the top
// limit entries (all when limit <= 0)
func (s *ContactService) Ranked(ctx context.Context, userID string, premium bool, limit int) ([]model.ContactScore, error) {
	chats, err := s.store.UserChats(ctx, userID)
	if err != nil {
		return nil, err
	}

	in := scoring.RankInput{
		CurrentUserID:    userID,
		ChatsByCandidate: map[string][]*model.Chat{},
		MessagesByChat:   map[string][]*model.Message{},
		Premium:          premium,
		Now:              s.clock.Now(),
		Location:         s.loc,
	}
	var direct []*model.Chat
	for _, chat := range chats {
		peer := chat.Peer(userID)
		if peer == "" {
			continue
		}
		if _, seen := in.ChatsByCandidate[peer]; !seen {
			in.Candidates = append(in.Candidates, peer)
		}
		in.ChatsByCandidate[peer] = append(in.ChatsByCandidate[peer], chat)
		direct = append(direct, chat)
	}

	// the gateway bounds concurrent store calls; errgroup only fans the loads out
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, chat := range direct {
		chat := chat
		g.Go(func() error {
			msgs, err := s.store.Messages(gctx, chat.ID)
			if err != nil {
				return err
			}
			mu.Lock()
			in.MessagesByChat[chat.ID] = msgs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := scoring.Rank(in)
	if err := s.ranking.Store(ctx, userID, ranked); err != nil {
		s.logger.Warn("ranking store failed", "userId", userID, "error", err)
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Refresh recomputes and stores the ranking, logging instead of failing
func (s *ContactService) Refresh(ctx context.Context, userID string, premium bool) {
	if _, err := s.Ranked(ctx, userID, premium, 0); err != nil {
		s.logger.Warn("ranking refresh failed", "userId", userID, "error", err)
	}
}

// Cached returns the last stored ranking without recomputing
func (s *ContactService) Cached(ctx context.Context, userID string, limit int) ([]model.ContactScore, error) {
	return s.ranking.Top(ctx, userID, limit)
}

// Position is contactID's 1-indexed place in userID's stored ranking, -1 when absent
func (s *ContactService) Position(ctx context.Context, userID, contactID string) (int64, error) {
	return s.ranking.Rank(ctx, userID, contactID)
}

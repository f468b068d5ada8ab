package service

import (
	"context"
	"kinship/internal/apperr"
	"kinship/internal/model"
	"kinship/internal/scoring"
	"strings"
)

// MatchService pairs a user with anonymous profiles
type MatchService struct {
	store *Store
}

func NewMatchService(store *Store) *MatchService {
	return &MatchService{store: store}
}

func (s *MatchService) FindMatches(ctx context.Context, userID string, req model.MatchRequest) ([]model.MatchCandidate, error) {
	if strings.TrimSpace(req.Text) == "" && len(req.Topics) == 0 {
		return nil, apperr.Validation("text or topics are required")
	}
	candidates, err := s.store.AnonymousProfiles(ctx)
	if err != nil {
		return nil, err
	}
	matches := scoring.FindMatches(userID, req.Text, req.Topics, candidates)
	if matches == nil {
		matches = []model.MatchCandidate{}
	}
	return matches, nil
}

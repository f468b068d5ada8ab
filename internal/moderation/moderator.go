package moderation

import (
	"context"
	"fmt"
	"kinship/internal/apperr"
	"kinship/internal/config"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Score sources
const (
	SourceClassifier = "classifier"
	SourceHeuristic  = "heuristic"
)

// Rejection reasons carried in ModerationRejected errors
const (
	ReasonBannedTerm = "banned_term"
	ReasonToxicity   = "toxicity"
)

// Verdict is an accepted message after screening
type Verdict struct {
	Text     string  `json:"text"`
	Toxicity float64 `json:"toxicity"`
	Source   string  `json:"source"`
}

// Moderator screens outbound text: sanitize, banned terms, then toxicity
type Moderator struct {
	config     config.ModerationConfig
	sanitizer  *Sanitizer
	classifier Classifier
	banned     []string
	logger     *slog.Logger
}

func NewModerator(cfg config.ModerationConfig, classifier Classifier, logger *slog.Logger) *Moderator {
	if logger == nil {
		logger = slog.Default()
	}
	banned := make([]string, 0, len(cfg.BannedTerms))
	for _, t := range cfg.BannedTerms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			banned = append(banned, t)
		}
	}
	return &Moderator{
		config:     cfg,
		sanitizer:  NewSanitizer(),
		classifier: classifier,
		banned:     banned,
		logger:     logger,
	}
}

// Screen returns the cleaned text or a Validation / ModerationRejected error. Banned terms
// are checked before the classifier is consulted.
func (m *Moderator) Screen(ctx context.Context, text string) (*Verdict, error) {
	if n := utf8.RuneCountInString(text); n > m.config.MaxMessageLength {
		return nil, apperr.Validation(fmt.Sprintf("message is %d characters, limit is %d", n, m.config.MaxMessageLength)).
			With("length", n)
	}
	clean := m.sanitizer.Sanitize(text)
	if clean == "" {
		return nil, apperr.Validation("message is empty")
	}

	if term, ok := m.bannedTerm(clean); ok {
		m.logger.Info("message rejected", "reason", ReasonBannedTerm)
		return nil, apperr.ModerationRejected(ReasonBannedTerm, 1).With("term", term)
	}

	v := &Verdict{Text: clean, Source: SourceClassifier}
	score, err := m.analyze(ctx, clean)
	if err != nil {
		if m.classifier != nil {
			m.logger.Warn("toxicity classifier unavailable, using heuristic", "error", err)
		}
		score = HeuristicToxicity(clean, m.config.ToxicKeywords)
		v.Source = SourceHeuristic
	}
	v.Toxicity = score

	if score >= m.config.ToxicityThreshold {
		m.logger.Info("message rejected", "reason", ReasonToxicity, "score", score, "source", v.Source)
		return nil, apperr.ModerationRejected(ReasonToxicity, score).With("source", v.Source)
	}
	return v, nil
}

func (m *Moderator) analyze(ctx context.Context, text string) (float64, error) {
	if m.classifier == nil {
		return 0, apperr.Unavailable("no toxicity classifier")
	}
	return m.classifier.Analyze(ctx, text)
}

func (m *Moderator) bannedTerm(clean string) (string, bool) {
	lowered := strings.ToLower(clean)
	for _, t := range m.banned {
		if strings.Contains(lowered, t) {
			return t, true
		}
	}
	return "", false
}

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"kinship/internal/apperr"
	"kinship/internal/cache"
	"kinship/internal/config"
	"kinship/internal/model"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct{}

func (fakeAuth) ValidateToken(token string) (*model.UserClaims, error) {
	switch token {
	case "tok-a":
		return &model.UserClaims{UserID: "a", Tier: model.TierPremium}, nil
	case "tok-b":
		return &model.UserClaims{UserID: "b", Tier: model.TierFree}, nil
	}
	return nil, apperr.PermissionDenied("bad token")
}

func (fakeAuth) IssueToken(userID string, tier model.Tier) (*model.TokenResponse, error) {
	if userID == "" {
		return nil, apperr.Validation("userId is required")
	}
	return &model.TokenResponse{Token: "tok-" + userID, UserID: userID}, nil
}

type fakeMessages struct {
	err     error
	premium bool
	chatID  string
}

func (f *fakeMessages) Send(_ context.Context, senderID string, premium bool, chatID, text string) (*model.SendResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.premium, f.chatID = premium, chatID
	return &model.SendResult{
		Message:       &model.Message{ID: "m1", ChatID: chatID, SenderID: senderID, Text: text},
		Notifications: []model.NotificationPlan{},
	}, nil
}

type fakeContacts struct{ premium bool }

func (f *fakeContacts) Ranked(_ context.Context, _ string, premium bool, limit int) ([]model.ContactScore, error) {
	f.premium = premium
	all := []model.ContactScore{{UserID: "b", Score: 2}, {UserID: "c", Score: 1}}
	return all[:min(limit, len(all))], nil
}

func (f *fakeContacts) Cached(_ context.Context, _ string, limit int) ([]model.ContactScore, error) {
	return []model.ContactScore{{UserID: "b", Score: 2}}, nil
}

func (f *fakeContacts) Position(_ context.Context, _, contactID string) (int64, error) {
	if contactID == "b" {
		return 1, nil
	}
	return -1, nil
}

type fakeGroups struct{}

func (fakeGroups) Health(_ context.Context, userID, chatID string) (*model.GroupHealth, error) {
	if userID != "a" {
		return nil, apperr.PermissionDenied("not a participant of this chat")
	}
	return &model.GroupHealth{Score: model.HealthScore{GroupID: chatID, Composite: 1}}, nil
}

type fakeMatches struct{}

func (fakeMatches) FindMatches(_ context.Context, _ string, req model.MatchRequest) ([]model.MatchCandidate, error) {
	if req.Text == "" && len(req.Topics) == 0 {
		return nil, apperr.Validation("text or topics are required")
	}
	return []model.MatchCandidate{{ProfileID: "p2", Total: 0.8}}, nil
}

type fakeReports struct{}

func (fakeReports) FileReport(_ context.Context, reporterID, reportedUserID string) (*model.ReportRecord, error) {
	if reporterID == reportedUserID {
		return nil, apperr.Validation("users cannot report themselves")
	}
	return &model.ReportRecord{ReporterID: reporterID, ReportedUserID: reportedUserID, DayBucket: "2025-06-01"}, nil
}

func (fakeReports) BanDecision(_ context.Context, userID string) (model.BanDecision, error) {
	if userID == "broken" {
		return model.BanDecision{}, errors.New("boom")
	}
	return model.BanDecision{ShouldBan: true, Reason: "2 reports in 24 hours", Counts: model.ReportCounts{Daily: 2, Monthly: 2}}, nil
}

func newTestRouter(msgs *fakeMessages, contacts *fakeContacts) http.Handler {
	cfg := config.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(&Container{
		AuthService:    fakeAuth{},
		TokenIssuer:    fakeAuth{},
		MessageService: msgs,
		ContactService: contacts,
		GroupService:   fakeGroups{},
		MatchService:   fakeMatches{},
		ReportService:  fakeReports{},
		Gateway:        cache.NewGateway(cfg.Cache, cfg.Admission, logger),
		AllowedOrigins: "*",
		Logger:         logger,
	})
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPublicRoutes(t *testing.T) {
	r := newTestRouter(&fakeMessages{}, &fakeContacts{})

	rec := do(t, r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/debug/gateway", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), decode(t, rec)["capacity"])

	rec = do(t, r, http.MethodPost, "/v1/auth/token", "", `{"userId":"a","tier":"premium"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok-a", decode(t, rec)["token"])

	rec = do(t, r, http.MethodOptions, "/v1/matches", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUserRoutesRequireToken(t *testing.T) {
	r := newTestRouter(&fakeMessages{}, &fakeContacts{})

	rec := do(t, r, http.MethodPost, "/v1/chats/c1/messages", "", `{"text":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, http.MethodPost, "/v1/chats/c1/messages", "forged", `{"text":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendMessage(t *testing.T) {
	msgs := &fakeMessages{}
	r := newTestRouter(msgs, &fakeContacts{})

	rec := do(t, r, http.MethodPost, "/v1/chats/c1/messages", "tok-a", `{"text":"hi"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, msgs.premium)
	assert.Equal(t, "c1", msgs.chatID)
	body := decode(t, rec)
	assert.Equal(t, "hi", body["message"].(map[string]interface{})["text"])

	rec = do(t, r, http.MethodPost, "/v1/chats/c1/messages", "tok-a", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		kind       string
		retryable  bool
		retryAfter string
	}{
		{"moderation", apperr.ModerationRejected("banned_term", 1), http.StatusUnprocessableEntity, "MODERATION_REJECTED", false, ""},
		{"rate limited", apperr.RateLimited("chat:c1", 5), http.StatusTooManyRequests, "RATE_LIMITED", true, "1"},
		{"timeout", apperr.Timeout("store call exceeded 10s", nil), http.StatusGatewayTimeout, "TIMEOUT", true, ""},
		{"unavailable", apperr.Unavailable("store down"), http.StatusServiceUnavailable, "UNAVAILABLE", true, ""},
		{"not found", apperr.NotFound("chat not found"), http.StatusNotFound, "NOT_FOUND", false, ""},
		{"forbidden", apperr.PermissionDenied("sender is banned"), http.StatusForbidden, "PERMISSION_DENIED", false, ""},
		{"validation", apperr.Validation("message is empty"), http.StatusBadRequest, "VALIDATION", false, ""},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "INTERNAL", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeMessages{err: tt.err}, &fakeContacts{})
			rec := do(t, r, http.MethodPost, "/v1/chats/c1/messages", "tok-b", `{"text":"hi"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))
			body := decode(t, rec)
			assert.Equal(t, tt.kind, body["kind"])
			assert.Equal(t, tt.retryable, body["retryable"])
		})
	}
}

func TestErrorBodyDetails(t *testing.T) {
	r := newTestRouter(&fakeMessages{err: apperr.RateLimited("chat:c1", 5)}, &fakeContacts{})
	body := decode(t, do(t, r, http.MethodPost, "/v1/chats/c1/messages", "tok-b", `{"text":"hi"}`))
	ctx := body["context"].(map[string]interface{})
	assert.Equal(t, "chat:c1", ctx["key"])
	assert.Equal(t, float64(5), ctx["capacity"])

	r = newTestRouter(&fakeMessages{err: errors.New("secret dsn leaked")}, &fakeContacts{})
	body = decode(t, do(t, r, http.MethodPost, "/v1/chats/c1/messages", "tok-b", `{"text":"hi"}`))
	assert.Equal(t, "internal error", body["error"])
}

func TestContactRoutes(t *testing.T) {
	contacts := &fakeContacts{}
	r := newTestRouter(&fakeMessages{}, contacts)

	rec := do(t, r, http.MethodGet, "/v1/contacts/ranked?limit=1", "tok-b", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["contacts"], 1)
	assert.Equal(t, false, body["premium"])
	assert.False(t, contacts.premium)

	rec = do(t, r, http.MethodGet, "/v1/contacts/ranked?cached=true", "tok-a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["contacts"], 1)

	rec = do(t, r, http.MethodGet, "/v1/contacts/ranked?limit=zero", "tok-a", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/v1/contacts/b/rank", "tok-a", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["rank"])

	rec = do(t, r, http.MethodGet, "/v1/contacts/zz/rank", "tok-a", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGroupMatchAndReportRoutes(t *testing.T) {
	r := newTestRouter(&fakeMessages{}, &fakeContacts{})

	rec := do(t, r, http.MethodGet, "/v1/groups/g1/health", "tok-a", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, r, http.MethodGet, "/v1/groups/g1/health", "tok-b", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, r, http.MethodPost, "/v1/matches", "tok-a", `{"text":"guitar","topics":["music"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["matches"], 1)
	rec = do(t, r, http.MethodPost, "/v1/matches", "tok-a", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/v1/reports", "tok-a", `{"reportedUserId":"b"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, r, http.MethodPost, "/v1/reports", "tok-a", `{"reportedUserId":"a"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/v1/users/b/ban-decision", "tok-a", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["shouldBan"])
	rec = do(t, r, http.MethodGet, "/v1/users/broken/ban-decision", "tok-a", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

package service

import (
	"context"
	"fmt"
	"io"
	"kinship/internal/apperr"
	"kinship/internal/cache"
	"kinship/internal/config"
	"kinship/internal/model"
	"kinship/internal/moderation"
	"kinship/internal/repository"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memDB is an in-memory document store behind the repository interfaces
type memDB struct {
	mu        sync.Mutex
	chats     map[string]*model.Chat
	messages  []*model.Message
	profiles  []*model.Profile
	prefs     map[string]model.UserPreferences
	keys      map[string][]byte
	chatGets  int
	batches   int
	batchFail error
}

func newMemDB() *memDB {
	return &memDB{
		chats: map[string]*model.Chat{},
		prefs: map[string]model.UserPreferences{},
		keys:  map[string][]byte{},
	}
}

func (db *memDB) addChat(id string, participants ...string) *model.Chat {
	c := &model.Chat{ID: id, Participants: participants}
	db.mu.Lock()
	db.chats[id] = c
	db.mu.Unlock()
	return c
}

func (db *memDB) messageCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.messages)
}

type memChats struct{ db *memDB }

func (r memChats) Create(_ context.Context, chat *model.Chat) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *chat
	r.db.chats[chat.ID] = &cp
	return nil
}

func (r memChats) GetByID(_ context.Context, id string) (*model.Chat, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.chatGets++
	c, ok := r.db.chats[id]
	if !ok {
		return nil, apperr.FromStore("chat get", apperr.StoreNotFound, nil)
	}
	cp := *c
	return &cp, nil
}

func (r memChats) ListByParticipant(_ context.Context, userID string) ([]*model.Chat, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Chat
	for _, c := range r.db.chats {
		if c.HasParticipant(userID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memMessages struct{ db *memDB }

func (r memMessages) Insert(_ context.Context, msg *model.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.messages = append(r.db.messages, msg)
	return nil
}

func (r memMessages) ListByChat(_ context.Context, chatID string, limit int) ([]*model.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Message
	for _, m := range r.db.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type memProfiles struct{ db *memDB }

func (r memProfiles) Upsert(_ context.Context, p *model.Profile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.profiles = append(r.db.profiles, p)
	return nil
}

func (r memProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperr.NotFound("profile not found")
}

func (r memProfiles) ListAnonymous(_ context.Context, limit int) ([]*model.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Profile
	for _, p := range r.db.profiles {
		if p.Anonymous {
			out = append(out, p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memPrefs struct{ db *memDB }

func (r memPrefs) Upsert(_ context.Context, p *model.UserPreferences) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.prefs[p.UserID] = *p
	return nil
}

func (r memPrefs) GetByUserID(_ context.Context, userID string) (*model.UserPreferences, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.prefs[userID]
	if !ok {
		return nil, apperr.NotFound("preferences not found")
	}
	return &p, nil
}

type memKeys struct{ db *memDB }

func (r memKeys) Upsert(_ context.Context, k *model.UserKey) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.keys[k.UserID] = k.PublicKey
	return nil
}

func (r memKeys) GetMany(_ context.Context, ids []string) (map[string][]byte, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := map[string][]byte{}
	for _, id := range ids {
		if k, ok := r.db.keys[id]; ok {
			out[id] = k
		}
	}
	return out, nil
}

type memBatch struct{ db *memDB }

func (w memBatch) BatchWrite(_ context.Context, ops []repository.WriteOp) error {
	w.db.mu.Lock()
	defer w.db.mu.Unlock()
	if w.db.batchFail != nil {
		return w.db.batchFail
	}
	w.db.batches++
	for _, op := range ops {
		switch {
		case op.Collection == repository.MessagesCollection && op.Kind == repository.OpInsert:
			w.db.messages = append(w.db.messages, op.Document.(*model.Message))
		case op.Collection == repository.ChatsCollection && op.Kind == repository.OpUpdate:
			c, ok := w.db.chats[op.Filter["_id"].(string)]
			if !ok {
				return apperr.NotFound("chat not found")
			}
			c.MessageCount += int64(op.Update["$inc"].(bson.M)["messageCount"].(int))
			c.LastMessageAt = op.Update["$set"].(bson.M)["lastMessageAt"].(time.Time)
		default:
			return fmt.Errorf("unexpected op %s on %s", op.Kind, op.Collection)
		}
	}
	return nil
}

type sentEvent struct {
	users   []string
	msgType string
	payload interface{}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (b *recordingBroadcaster) SendToUsers(userIDs []string, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{users: append([]string(nil), userIDs...), msgType: msgType, payload: payload})
}

func (b *recordingBroadcaster) ofType(msgType string) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentEvent
	for _, e := range b.events {
		if e.msgType == msgType {
			out = append(out, e)
		}
	}
	return out
}

// harness wires every service over memDB and miniredis
type harness struct {
	db        *memDB
	cfg       *config.Config
	now       time.Time
	gw        *cache.Gateway
	redis     *redis.Client
	store     *Store
	reports   *ReportService
	contacts  *ContactService
	groups    *GroupService
	matches   *MatchService
	messages  *MessageService
	activity  cache.ActivityCache
	ranking   cache.RankingCache
	broadcast *recordingBroadcaster
}

// tuesday 2025-06-03 23:00 UTC
var testNow = time.Date(2025, 6, 3, 23, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{db: newMemDB(), cfg: config.Default(), now: testNow}
	logger := testLogger()
	clock := ClockFunc(func() time.Time { return h.now })

	mr := miniredis.RunT(t)
	h.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = h.redis.Close() })

	h.gw = cache.NewGateway(h.cfg.Cache, h.cfg.Admission, logger, cache.WithClock(clock.Now))
	h.store = NewStore(h.gw, memChats{h.db}, memMessages{h.db}, memProfiles{h.db}, memPrefs{h.db}, memKeys{h.db},
		h.cfg.Scoring.HistoryLimit, h.cfg.Scoring.CandidateLimit)

	ledger := cache.NewReportLedger(h.redis, h.cfg.Ban.DailyWindow, h.cfg.Ban.MonthlyWindow, nil)
	h.ranking = cache.NewRankingCache(h.redis, time.Hour)
	h.activity = cache.NewActivityCache(h.redis, 30*24*time.Hour)
	loc := h.cfg.Scoring.Location()

	h.reports = NewReportService(ledger, h.gw, h.cfg.Ban, clock, logger)
	h.contacts = NewContactService(h.store, h.ranking, clock, loc, logger)
	h.groups = NewGroupService(h.store, h.cfg.Scoring, logger)
	h.matches = NewMatchService(h.store)
	moderator := moderation.NewModerator(h.cfg.Moderation, nil, logger)
	h.messages = NewMessageService(h.store, memBatch{h.db}, h.reports, moderator, h.contacts, h.groups,
		h.activity, clock, loc, logger)
	h.broadcast = &recordingBroadcaster{}
	h.messages.SetBroadcaster(h.broadcast)
	return h
}

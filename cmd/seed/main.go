package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"kinship/internal/config"
	"kinship/internal/e2e"
	"kinship/internal/model"
	"kinship/internal/repository"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var users = []string{"alice", "bob", "carol", "dave", "erin"}

func main() {
	cfg, err := config.Load(os.Getenv("KINSHIP_CONFIG"))
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		slog.Error("connect mongo", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		slog.Error("ensure indexes", "error", err)
		os.Exit(1)
	}
	if err := seed(ctx, db, time.Now().UTC()); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, db *mongo.Database, now time.Time) error {
	chats := repository.NewChatRepo(db)
	messages := repository.NewMessageRepo(db)
	profiles := repository.NewProfileRepo(db)
	prefs := repository.NewPreferencesRepo(db)
	keys := repository.NewKeyRepo(db)

	for i, u := range users {
		if err := prefs.Upsert(ctx, &model.UserPreferences{
			UserID:           u,
			SmartTiming:      true,
			ActiveDuringWork: i%2 == 0,
			Timezone:         "UTC",
		}); err != nil {
			return err
		}

		pub, priv, err := e2e.GenerateKeyPair()
		if err != nil {
			return err
		}
		if err := keys.Upsert(ctx, &model.UserKey{UserID: u, PublicKey: pub, UpdatedAt: now}); err != nil {
			return err
		}
		fmt.Printf("%s private key: %s\n", u, base64.StdEncoding.EncodeToString(priv))
	}

	anon := []*model.Profile{
		{ID: "anon-1", UserID: "bob", DisplayName: "Night Owl", Anonymous: true, Topics: []string{"music", "gaming"}, Interests: []string{"guitar", "synth"}},
		{ID: "anon-2", UserID: "carol", DisplayName: "Trail Runner", Anonymous: true, Topics: []string{"hiking", "cooking"}, Interests: []string{"mountain", "recipe"}},
		{ID: "anon-3", UserID: "dave", DisplayName: "Quiet Reader", Anonymous: true, Topics: []string{"reading", "music"}, Interests: []string{"novel", "jazz"}},
	}
	for i, p := range anon {
		p.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		if err := profiles.Upsert(ctx, p); err != nil {
			return err
		}
	}

	direct := &model.Chat{ID: "chat-alice-bob", Participants: []string{"alice", "bob"}, CreatedAt: now.Add(-72 * time.Hour)}
	group := &model.Chat{ID: "chat-weekend", Participants: []string{"alice", "bob", "carol", "dave"}, Title: "Weekend plans", Topics: []string{"hobby"}, CreatedAt: now.Add(-72 * time.Hour)}

	script := []struct {
		chat   *model.Chat
		sender string
		ago    time.Duration
		text   string
	}{
		{direct, "alice", 26 * time.Hour, "Did you finish the project deadline?"},
		{direct, "bob", 25 * time.Hour, "Yes! Thanks for the help, that was great"},
		{direct, "alice", 2 * time.Hour, "Coffee later?"},
		{direct, "bob", 90 * time.Minute, "Love to"},
		{group, "alice", 48 * time.Hour, "Anyone up for hiking on Saturday?"},
		{group, "bob", 47 * time.Hour, "Count me in"},
		{group, "carol", 3 * time.Hour, "Sounds fun"},
	}
	for _, line := range script {
		sentAt := now.Add(-line.ago)
		if err := messages.Insert(ctx, &model.Message{
			ID:       uuid.New().String(),
			ChatID:   line.chat.ID,
			SenderID: line.sender,
			Text:     line.text,
			SentAt:   sentAt,
		}); err != nil {
			return err
		}
		line.chat.MessageCount++
		if sentAt.After(line.chat.LastMessageAt) {
			line.chat.LastMessageAt = sentAt
		}
	}
	for _, c := range []*model.Chat{direct, group} {
		if err := chats.Create(ctx, c); err != nil {
			return err
		}
	}

	fmt.Printf("Seeded %d users, %d anonymous profiles, 2 chats, %d messages\n", len(users), len(anon), len(script))
	return nil
}

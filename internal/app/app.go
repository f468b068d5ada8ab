// Package app wires the stores, caches, engines and transports into one dependency graph.
package app

import (
	"context"
	"fmt"
	"kinship/internal/cache"
	"kinship/internal/config"
	"kinship/internal/e2e"
	"kinship/internal/moderation"
	"kinship/internal/repository"
	"kinship/internal/service"
	"kinship/internal/transport/rest"
	"kinship/internal/transport/ws"
	"log/slog"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	rankingTTL         = 24 * time.Hour
	activityTTL        = 30 * 24 * time.Hour
	workHourMinSamples = 20
)

// App holds every long-lived dependency
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Mongo *mongo.Client
	Redis *redis.Client
	Hub   *ws.Hub

	Gateway  *cache.Gateway
	Store    *service.Store
	Auth     *service.AuthService
	Reports  *service.ReportService
	Contacts *service.ContactService
	Groups   *service.GroupService
	Matches  *service.MatchService
	Messages *service.MessageService
}

// New connects to Mongo and Redis and builds the services
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
	defer cancel()

	mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := mongoClient.Ping(connectCtx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to mongo", "database", cfg.Mongo.Database)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address()})
	if err := rdb.Ping(connectCtx).Err(); err != nil {
		mongoClient.Disconnect(ctx)
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("connected to redis", "addr", cfg.Redis.Address())

	db := mongoClient.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(connectCtx, db); err != nil {
		logger.Warn("index creation failed", "error", err)
	}

	a, err := Build(ctx, cfg, logger, db, rdb)
	if err != nil {
		mongoClient.Disconnect(ctx)
		rdb.Close()
		return nil, err
	}
	a.Mongo = mongoClient
	return a, nil
}

// Build wires the services over already connected clients
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *mongo.Database, rdb *redis.Client) (*App, error) {
	clock := service.SystemClock()
	loc := cfg.Scoring.Location()

	gw := cache.NewGateway(cfg.Cache, cfg.Admission, logger.With("component", "gateway"))
	store := service.NewStore(gw,
		repository.NewChatRepo(db),
		repository.NewMessageRepo(db),
		repository.NewProfileRepo(db),
		repository.NewPreferencesRepo(db),
		repository.NewKeyRepo(db),
		cfg.Scoring.HistoryLimit,
		cfg.Scoring.CandidateLimit,
	)

	ledger := cache.NewReportLedger(rdb, cfg.Ban.DailyWindow, cfg.Ban.MonthlyWindow, logger)
	ranking := cache.NewRankingCache(rdb, rankingTTL)
	activity := cache.NewActivityCache(rdb, activityTTL)

	var classifier moderation.Classifier
	if cfg.Classifier.IsEnabled() {
		classifier = moderation.NewHTTPClassifier(cfg.Classifier)
		logger.Info("toxicity classifier configured", "endpoint", cfg.Classifier.Endpoint)
	} else {
		logger.Info("toxicity classifier not configured, using heuristic")
	}
	moderator := moderation.NewModerator(cfg.Moderation, classifier, logger.With("component", "moderation"))

	authSvc := service.NewAuthService(cfg.Auth, clock)
	reportSvc := service.NewReportService(ledger, gw, cfg.Ban, clock, logger)
	contactSvc := service.NewContactService(store, ranking, clock, loc, logger)
	groupSvc := service.NewGroupService(store, cfg.Scoring, logger)
	matchSvc := service.NewMatchService(store)
	messageSvc := service.NewMessageService(store, repository.NewBatchWriter(db), reportSvc, moderator,
		contactSvc, groupSvc, activity, clock, loc, logger)
	messageSvc.SetProviders(service.UnknownBattery(), service.NewHistoryActivity(activity, workHourMinSamples, logger))

	sealer, err := newSealer(ctx, cfg.Encryption)
	if err != nil {
		return nil, err
	}
	if sealer != nil {
		messageSvc.SetSealer(sealer)
		logger.Info("message encryption enabled", "mode", sealer.Mode())
	}

	hub := ws.NewHub(logger.With("component", "ws"))
	messageSvc.SetBroadcaster(hub)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Redis:    rdb,
		Hub:      hub,
		Gateway:  gw,
		Store:    store,
		Auth:     authSvc,
		Reports:  reportSvc,
		Contacts: contactSvc,
		Groups:   groupSvc,
		Matches:  matchSvc,
		Messages: messageSvc,
	}, nil
}

func newSealer(ctx context.Context, cfg config.EncryptionConfig) (*e2e.Sealer, error) {
	switch cfg.Mode {
	case config.EncryptionBox:
		return e2e.NewSealer(e2e.NewBoxWrapper()), nil
	case config.EncryptionKMS:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return e2e.NewSealer(e2e.NewKMSWrapperFromAWSConfig(cfg.KMSKeyARN, awsCfg)), nil
	default:
		return nil, nil
	}
}

// Router builds the HTTP handler
func (a *App) Router() http.Handler {
	return rest.NewRouter(&rest.Container{
		AuthService:    a.Auth,
		TokenIssuer:    a.Auth,
		MessageService: a.Messages,
		ContactService: a.Contacts,
		GroupService:   a.Groups,
		MatchService:   a.Matches,
		ReportService:  a.Reports,
		Gateway:        a.Gateway,
		WSHandler:      ws.NewHandler(a.Hub, a.Auth, a.Config.Server.AllowedOrigins, a.Logger.With("component", "ws")),
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		Logger:         a.Logger,
	})
}

// Close disconnects clients and stops the hub
func (a *App) Close(ctx context.Context) {
	a.Hub.Close()
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("redis close failed", "error", err)
		}
	}
	if a.Mongo != nil {
		if err := a.Mongo.Disconnect(ctx); err != nil {
			a.Logger.Warn("mongo disconnect failed", "error", err)
		}
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Admission overflow policies.
const (
	OverflowBlock    = "block"
	OverflowFailFast = "fail_fast"
)

// Encryption modes.
const (
	EncryptionNone = "none"
	EncryptionBox  = "box"
	EncryptionKMS  = "kms"
)

// Config is the full service configuration, one typed struct per concern.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Mongo      MongoConfig      `mapstructure:"mongo"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Admission  AdmissionConfig  `mapstructure:"admission"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Ban        BanConfig        `mapstructure:"ban"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Encryption EncryptionConfig `mapstructure:"encryption"`
	Auth       AuthConfig       `mapstructure:"auth"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  string        `mapstructure:"allowed_origins"`
	LogLevel        string        `mapstructure:"log_level"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

// Address strips an optional redis:// scheme.
func (c RedisConfig) Address() string {
	return strings.TrimPrefix(c.Addr, "redis://")
}

// CacheConfig controls the gateway's memoized reads.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	MaxEntries    int           `mapstructure:"max_entries"`
	SweepEvery    int           `mapstructure:"sweep_every"`
	EvictFraction float64       `mapstructure:"evict_fraction"`
}

// AdmissionConfig bounds concurrent outbound calls to the document store.
type AdmissionConfig struct {
	Capacity    int           `mapstructure:"capacity"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	Overflow    string        `mapstructure:"overflow"`
	// MaxWait caps how long a blocked caller queues for a slot. Zero waits indefinitely.
	MaxWait time.Duration `mapstructure:"max_wait"`
}

type ModerationConfig struct {
	BannedTerms       []string `mapstructure:"banned_terms"`
	ToxicKeywords     []string `mapstructure:"toxic_keywords"`
	ToxicityThreshold float64  `mapstructure:"toxicity_threshold"`
	MaxMessageLength  int      `mapstructure:"max_message_length"`
}

// BanConfig is the escalation table over rolling report counts.
type BanConfig struct {
	PermanentMonthly int           `mapstructure:"permanent_monthly"`
	WeekMonthly      int           `mapstructure:"week_monthly"`
	WeekDaily        int           `mapstructure:"week_daily"`
	ThreeDayDaily    int           `mapstructure:"three_day_daily"`
	OneDayDaily      int           `mapstructure:"one_day_daily"`
	DailyWindow      time.Duration `mapstructure:"daily_window"`
	MonthlyWindow    time.Duration `mapstructure:"monthly_window"`
}

type ScoringConfig struct {
	HealthThreshold      float64 `mapstructure:"health_threshold"`
	NeutralResponseScore float64 `mapstructure:"neutral_response_score"`
	Timezone             string  `mapstructure:"timezone"`
	HistoryLimit         int     `mapstructure:"history_limit"`
	CandidateLimit       int     `mapstructure:"candidate_limit"`
}

// Location resolves Timezone, falling back to UTC.
func (c ScoringConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type EncryptionConfig struct {
	Mode      string `mapstructure:"mode"`
	KMSKeyARN string `mapstructure:"kms_key_arn"`
	Region    string `mapstructure:"region"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  "*",
			LogLevel:        "info",
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "kinship",
			ConnectTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Cache: CacheConfig{
			TTL:           5 * time.Minute,
			MaxEntries:    1000,
			SweepEvery:    10,
			EvictFraction: 0.25,
		},
		Admission: AdmissionConfig{
			Capacity:    5,
			CallTimeout: 10 * time.Second,
			Overflow:    OverflowBlock,
		},
		Moderation: ModerationConfig{
			BannedTerms:       []string{"kill yourself", "kys", "send nudes", "bitcoin doubler"},
			ToxicKeywords:     []string{"idiot", "stupid", "hate you", "loser", "shut up", "moron", "pathetic", "worthless"},
			ToxicityThreshold: 0.8,
			MaxMessageLength:  4000,
		},
		Classifier: DefaultClassifierConfig(),
		Ban: BanConfig{
			PermanentMonthly: 26,
			WeekMonthly:      10,
			WeekDaily:        10,
			ThreeDayDaily:    5,
			OneDayDaily:      2,
			DailyWindow:      24 * time.Hour,
			MonthlyWindow:    30 * 24 * time.Hour,
		},
		Scoring: ScoringConfig{
			HealthThreshold:      0.5,
			NeutralResponseScore: 0.5,
			Timezone:             "UTC",
			HistoryLimit:         200,
			CandidateLimit:       100,
		},
		Encryption: EncryptionConfig{
			Mode: EncryptionNone,
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret-change-me",
			TokenTTL:  24 * time.Hour,
		},
	}
}

// Load reads defaults, an optional YAML file and KINSHIP_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("KINSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.log_level", d.Server.LogLevel)

	v.SetDefault("mongo.uri", d.Mongo.URI)
	v.SetDefault("mongo.database", d.Mongo.Database)
	v.SetDefault("mongo.connect_timeout", d.Mongo.ConnectTimeout)

	v.SetDefault("redis.addr", d.Redis.Addr)

	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.sweep_every", d.Cache.SweepEvery)
	v.SetDefault("cache.evict_fraction", d.Cache.EvictFraction)

	v.SetDefault("admission.capacity", d.Admission.Capacity)
	v.SetDefault("admission.call_timeout", d.Admission.CallTimeout)
	v.SetDefault("admission.overflow", d.Admission.Overflow)
	v.SetDefault("admission.max_wait", d.Admission.MaxWait)

	v.SetDefault("moderation.banned_terms", d.Moderation.BannedTerms)
	v.SetDefault("moderation.toxic_keywords", d.Moderation.ToxicKeywords)
	v.SetDefault("moderation.toxicity_threshold", d.Moderation.ToxicityThreshold)
	v.SetDefault("moderation.max_message_length", d.Moderation.MaxMessageLength)

	v.SetDefault("classifier.endpoint", d.Classifier.Endpoint)
	v.SetDefault("classifier.api_key", d.Classifier.APIKey)
	v.SetDefault("classifier.timeout", d.Classifier.Timeout)

	v.SetDefault("ban.permanent_monthly", d.Ban.PermanentMonthly)
	v.SetDefault("ban.week_monthly", d.Ban.WeekMonthly)
	v.SetDefault("ban.week_daily", d.Ban.WeekDaily)
	v.SetDefault("ban.three_day_daily", d.Ban.ThreeDayDaily)
	v.SetDefault("ban.one_day_daily", d.Ban.OneDayDaily)
	v.SetDefault("ban.daily_window", d.Ban.DailyWindow)
	v.SetDefault("ban.monthly_window", d.Ban.MonthlyWindow)

	v.SetDefault("scoring.health_threshold", d.Scoring.HealthThreshold)
	v.SetDefault("scoring.neutral_response_score", d.Scoring.NeutralResponseScore)
	v.SetDefault("scoring.timezone", d.Scoring.Timezone)
	v.SetDefault("scoring.history_limit", d.Scoring.HistoryLimit)
	v.SetDefault("scoring.candidate_limit", d.Scoring.CandidateLimit)

	v.SetDefault("encryption.mode", d.Encryption.Mode)
	v.SetDefault("encryption.kms_key_arn", d.Encryption.KMSKeyARN)
	v.SetDefault("encryption.region", d.Encryption.Region)

	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, errors.New("cache.max_entries must be positive"))
	}
	if c.Cache.SweepEvery <= 0 {
		errs = append(errs, errors.New("cache.sweep_every must be positive"))
	}
	if c.Cache.EvictFraction <= 0 || c.Cache.EvictFraction >= 1 {
		errs = append(errs, errors.New("cache.evict_fraction must be in (0,1)"))
	}
	if c.Admission.Capacity <= 0 {
		errs = append(errs, errors.New("admission.capacity must be positive"))
	}
	if c.Admission.CallTimeout <= 0 {
		errs = append(errs, errors.New("admission.call_timeout must be positive"))
	}
	if c.Admission.Overflow != OverflowBlock && c.Admission.Overflow != OverflowFailFast {
		errs = append(errs, fmt.Errorf("admission.overflow %q must be %q or %q", c.Admission.Overflow, OverflowBlock, OverflowFailFast))
	}
	if c.Admission.MaxWait < 0 {
		errs = append(errs, errors.New("admission.max_wait must not be negative"))
	}
	if !unit(c.Moderation.ToxicityThreshold) {
		errs = append(errs, errors.New("moderation.toxicity_threshold must be in [0,1]"))
	}
	if c.Moderation.MaxMessageLength <= 0 {
		errs = append(errs, errors.New("moderation.max_message_length must be positive"))
	}
	if err := c.Ban.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !unit(c.Scoring.HealthThreshold) || !unit(c.Scoring.NeutralResponseScore) {
		errs = append(errs, errors.New("scoring thresholds must be in [0,1]"))
	}
	if c.Scoring.HistoryLimit <= 0 || c.Scoring.CandidateLimit <= 0 {
		errs = append(errs, errors.New("scoring limits must be positive"))
	}
	switch c.Encryption.Mode {
	case EncryptionNone, EncryptionBox:
	case EncryptionKMS:
		if c.Encryption.KMSKeyARN == "" {
			errs = append(errs, errors.New("encryption.kms_key_arn is required for kms mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("encryption.mode %q is not supported", c.Encryption.Mode))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret must be set"))
	}
	return errors.Join(errs...)
}

// Validate checks the table is positive and strictly ordered so severity is monotone.
func (b BanConfig) Validate() error {
	if b.OneDayDaily <= 0 || b.WeekMonthly <= 0 {
		return errors.New("ban thresholds must be positive")
	}
	if !(b.OneDayDaily < b.ThreeDayDaily && b.ThreeDayDaily < b.WeekDaily) {
		return errors.New("ban daily thresholds must be strictly increasing")
	}
	if b.WeekMonthly >= b.PermanentMonthly {
		return errors.New("ban.week_monthly must be below ban.permanent_monthly")
	}
	if b.DailyWindow <= 0 || b.MonthlyWindow < b.DailyWindow {
		return errors.New("ban windows must be positive and monthly >= daily")
	}
	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}

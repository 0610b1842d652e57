package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/viralforge/reelpay/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string
	LogLevel  string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	MaxDBConns   int32
	RedisURL     string
	KafkaBrokers []string

	KafkaConsumerGroup      string
	KafkaTopicOrderApproved string
	KafkaTopicByEvent       map[string]string

	OutboxPollInterval   time.Duration
	OutboxBatchSize      int
	ConsumerPollInterval time.Duration

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	Deployer       domain.Account
	BackendAccount domain.Account
	PlatformWallet domain.Account

	MinimumTopUpScope domain.MinimumTopUpScope
	PolicyCacheTTL    time.Duration

	TokenSymbol   string
	TokenDecimals int32
	EnableFaucet  bool
	ArtifactsDir  string
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL             string            `yaml:"postgres_url"`
		RedisURL                string            `yaml:"redis_url"`
		KafkaBrokers            []string          `yaml:"kafka_brokers"`
		KafkaConsumerGroup      string            `yaml:"kafka_consumer_group"`
		KafkaTopicOrderApproved string            `yaml:"kafka_topic_order_approved"`
		KafkaTopics             map[string]string `yaml:"kafka_topics"`
	} `yaml:"dependencies"`
	Ledger struct {
		Deployer            string `yaml:"deployer"`
		BackendAccount      string `yaml:"backend_account"`
		PlatformWallet      string `yaml:"platform_wallet"`
		MinimumTopUpScope   string `yaml:"minimum_top_up_scope"`
		PolicyCacheSeconds  int    `yaml:"policy_cache_seconds"`
		ArtifactsDir        string `yaml:"artifacts_dir"`
		TokenSymbol         string `yaml:"token_symbol"`
		TokenDecimals       *int32 `yaml:"token_decimals"`
		EnableFaucet        *bool  `yaml:"enable_faucet"`
		OutboxBatchSize     int    `yaml:"outbox_batch_size"`
		OutboxPollSeconds   int    `yaml:"outbox_poll_seconds"`
		ConsumerPollSeconds int    `yaml:"consumer_poll_seconds"`
	} `yaml:"ledger"`
	Auth struct {
		Issuer     string `yaml:"issuer"`
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"auth"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:               "M42-ReelPay-Settlement-Service",
		LogLevel:                "info",
		HTTPPort:                8080,
		GRPCPort:                9090,
		MaxDBConns:              20,
		KafkaConsumerGroup:      "m42-reelpay-settlement",
		KafkaTopicOrderApproved: domain.EventOrderApproved,
		KafkaTopicByEvent:       map[string]string{},
		OutboxPollInterval:      2 * time.Second,
		OutboxBatchSize:         100,
		ConsumerPollInterval:    2 * time.Second,
		JWTIssuer:               "reelpay",
		JWTTTL:                  time.Hour,
		MinimumTopUpScope:       domain.MinimumTopUpFirstDeposit,
		PolicyCacheTTL:          30 * time.Second,
		TokenSymbol:             "KRWT",
		TokenDecimals:           6,
		EnableFaucet:            false,
		ArtifactsDir:            "artifacts",
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		applyFile(&cfg, f)
	} else if path != "" && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.KafkaTopicOrderApproved = envOrDefault("KAFKA_TOPIC_ORDER_APPROVED", cfg.KafkaTopicOrderApproved)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = envOrDefault("JWT_ISSUER", cfg.JWTIssuer)
	cfg.JWTTTL = time.Duration(envInt("JWT_TTL_MINUTES", int(cfg.JWTTTL.Minutes()))) * time.Minute
	cfg.Deployer = domain.NormalizeAccount(envOrDefault("DEPLOYER", cfg.Deployer.String()))
	cfg.BackendAccount = domain.NormalizeAccount(envOrDefault("BACKEND_ADDRESS", cfg.BackendAccount.String()))
	cfg.PlatformWallet = domain.NormalizeAccount(envOrDefault("PLATFORM_WALLET", cfg.PlatformWallet.String()))
	cfg.PolicyCacheTTL = time.Duration(envInt("POLICY_CACHE_SECONDS", int(cfg.PolicyCacheTTL.Seconds()))) * time.Second
	cfg.TokenSymbol = envOrDefault("TOKEN_SYMBOL", cfg.TokenSymbol)
	cfg.TokenDecimals = int32(envInt("TOKEN_DECIMALS", int(cfg.TokenDecimals)))
	cfg.EnableFaucet = envBool("ENABLE_FAUCET", cfg.EnableFaucet)
	cfg.ArtifactsDir = envOrDefault("ARTIFACTS_DIR", cfg.ArtifactsDir)
	if raw := os.Getenv("MIN_TOPUP_SCOPE"); raw != "" {
		scope, ok := domain.ParseMinimumTopUpScope(strings.ToLower(strings.TrimSpace(raw)))
		if !ok {
			return Config{}, fmt.Errorf("invalid MIN_TOPUP_SCOPE %q", raw)
		}
		cfg.MinimumTopUpScope = scope
	}

	if cfg.Deployer.IsZero() {
		return Config{}, fmt.Errorf("missing DEPLOYER")
	}
	if cfg.BackendAccount.IsZero() {
		cfg.BackendAccount = cfg.Deployer
	}
	if cfg.PlatformWallet.IsZero() {
		cfg.PlatformWallet = cfg.Deployer
	}
	if len(cfg.JWTSecret) < 16 {
		return Config{}, fmt.Errorf("missing or short JWT_SECRET")
	}
	if cfg.TokenDecimals < 0 || cfg.TokenDecimals > 18 {
		return Config{}, fmt.Errorf("invalid TOKEN_DECIMALS %d", cfg.TokenDecimals)
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Service.LogLevel != "" {
		cfg.LogLevel = f.Service.LogLevel
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
	}
	if f.Dependencies.KafkaConsumerGroup != "" {
		cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
	}
	if f.Dependencies.KafkaTopicOrderApproved != "" {
		cfg.KafkaTopicOrderApproved = f.Dependencies.KafkaTopicOrderApproved
	}
	for event, topic := range f.Dependencies.KafkaTopics {
		if domain.IsCanonicalEmittedEvent(event) && strings.TrimSpace(topic) != "" {
			cfg.KafkaTopicByEvent[event] = strings.TrimSpace(topic)
		}
	}
	if f.Ledger.Deployer != "" {
		cfg.Deployer = domain.NormalizeAccount(f.Ledger.Deployer)
	}
	if f.Ledger.BackendAccount != "" {
		cfg.BackendAccount = domain.NormalizeAccount(f.Ledger.BackendAccount)
	}
	if f.Ledger.PlatformWallet != "" {
		cfg.PlatformWallet = domain.NormalizeAccount(f.Ledger.PlatformWallet)
	}
	if scope, ok := domain.ParseMinimumTopUpScope(f.Ledger.MinimumTopUpScope); ok {
		cfg.MinimumTopUpScope = scope
	}
	if f.Ledger.PolicyCacheSeconds > 0 {
		cfg.PolicyCacheTTL = time.Duration(f.Ledger.PolicyCacheSeconds) * time.Second
	}
	if f.Ledger.ArtifactsDir != "" {
		cfg.ArtifactsDir = f.Ledger.ArtifactsDir
	}
	if f.Ledger.TokenSymbol != "" {
		cfg.TokenSymbol = f.Ledger.TokenSymbol
	}
	if f.Ledger.TokenDecimals != nil {
		cfg.TokenDecimals = *f.Ledger.TokenDecimals
	}
	if f.Ledger.EnableFaucet != nil {
		cfg.EnableFaucet = *f.Ledger.EnableFaucet
	}
	if f.Ledger.OutboxBatchSize > 0 {
		cfg.OutboxBatchSize = f.Ledger.OutboxBatchSize
	}
	if f.Ledger.OutboxPollSeconds > 0 {
		cfg.OutboxPollInterval = time.Duration(f.Ledger.OutboxPollSeconds) * time.Second
	}
	if f.Ledger.ConsumerPollSeconds > 0 {
		cfg.ConsumerPollInterval = time.Duration(f.Ledger.ConsumerPollSeconds) * time.Second
	}
	if f.Auth.Issuer != "" {
		cfg.JWTIssuer = f.Auth.Issuer
	}
	if f.Auth.TTLMinutes > 0 {
		cfg.JWTTTL = time.Duration(f.Auth.TTLMinutes) * time.Minute
	}
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

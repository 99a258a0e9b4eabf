// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

// Checkpoint backends.
const (
	CheckpointMemory = "memory"
	CheckpointSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Port                 string
	FrontendURL          string
	AllowedOrigins       []string
	BundleDBPath         string
	UserDataDir          string
	CuratedMaterialsPath string
	LogLevel             slog.Level
	Phase                PhaseConfig
	LLM                  LLMConfig
	Chat                 ChatConfig
	Checkpoint           CheckpointConfig
	ConversationLog      ConversationLogConfig
	Telemetry            TelemetryConfig
}

// PhaseConfig decides which course phase is current.
type PhaseConfig struct {
	Debug         bool
	DebugPhase    int
	TrainingStart time.Time
	TrainingEnd   time.Time
}

// LLMConfig holds provider credentials and the chat model.
type LLMConfig struct {
	OpenAIKey    string
	AnthropicKey string
	TavilyKey    string
	ChatModel    string
}

// ChatConfig bounds chat traffic.
type ChatConfig struct {
	RateLimit          int // requests per student per minute
	MaxToolSteps       int
	MaxRequestBodySize int64
}

// CheckpointConfig selects where conversation threads live.
type CheckpointConfig struct {
	Backend string
	DBPath  string
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	Insecure     bool
	ServiceName  string
}

var (
	defaultTrainingStart = time.Date(2025, time.March, 1, 6, 0, 0, 0, time.Local)
	defaultTrainingEnd   = time.Date(2025, time.March, 30, 23, 0, 0, 0, time.Local)
)

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	start, err := getEnvTime("TRAINING_PERIOD_START", defaultTrainingStart)
	if err != nil {
		return nil, err
	}
	end, err := getEnvTime("TRAINING_PERIOD_END", defaultTrainingEnd)
	if err != nil {
		return nil, err
	}

	bundleDB := getEnv("BUNDLE_DB_PATH", "./data/learning_plans.db")
	cfg := &Config{
		Port:                 getEnv("PORT", "8000"),
		FrontendURL:          getEnv("FRONTEND_URL", ""),
		AllowedOrigins:       splitList(getEnv("ALLOWED_ORIGINS", "*")),
		BundleDBPath:         bundleDB,
		UserDataDir:          getEnv("USER_DATA_DIR", "./user_data"),
		CuratedMaterialsPath: getEnv("CURATED_MATERIALS_PATH", "./data/curated_additional_materials.txt"),
		LogLevel:             parseLevel(getEnv("LOG_LEVEL", "info")),
		Phase: PhaseConfig{
			Debug:         getEnvBool("IS_DEBUG", false),
			DebugPhase:    getEnvInt("DEBUG_PHASE", 2),
			TrainingStart: start,
			TrainingEnd:   end,
		},
		LLM: LLMConfig{
			OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			TavilyKey:    getEnv("TAVILY_API_KEY", ""),
			ChatModel:    getEnv("CHAT_MODEL", "gpt-4o"),
		},
		Chat: ChatConfig{
			RateLimit:          getEnvInt("CHAT_RATE_LIMIT", 20),
			MaxToolSteps:       getEnvInt("CHAT_MAX_TOOL_STEPS", 8),
			MaxRequestBodySize: int64(getEnvInt("CHAT_MAX_BODY_BYTES", 1<<20)),
		},
		Checkpoint: CheckpointConfig{
			Backend: strings.ToLower(getEnv("CHECKPOINT_BACKEND", CheckpointMemory)),
			DBPath:  getEnv("CHECKPOINT_DB_PATH", bundleDB),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:   getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:       getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			QueueSize: queueSize,
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:     getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "learning-assistant"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.BundleDBPath == "" {
		return fmt.Errorf("BUNDLE_DB_PATH cannot be empty")
	}
	if c.UserDataDir == "" {
		return fmt.Errorf("USER_DATA_DIR cannot be empty")
	}
	if c.LLM.ChatModel == "" {
		return fmt.Errorf("CHAT_MODEL cannot be empty")
	}
	if c.Phase.DebugPhase < 1 || c.Phase.DebugPhase > 3 {
		return fmt.Errorf("DEBUG_PHASE must be 1, 2 or 3")
	}
	if !c.Phase.TrainingEnd.After(c.Phase.TrainingStart) {
		return fmt.Errorf("TRAINING_PERIOD_END must be after TRAINING_PERIOD_START")
	}
	switch c.Checkpoint.Backend {
	case CheckpointMemory:
	case CheckpointSQLite:
		if c.Checkpoint.DBPath == "" {
			return fmt.Errorf("CHECKPOINT_DB_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("CHECKPOINT_BACKEND must be %q or %q", CheckpointMemory, CheckpointSQLite)
	}
	if c.Chat.MaxToolSteps <= 0 {
		return fmt.Errorf("CHAT_MAX_TOOL_STEPS must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// Schedule returns the phase schedule described by the configuration.
func (c *Config) Schedule() domain.Schedule {
	return domain.Schedule{
		Start:      c.Phase.TrainingStart,
		End:        c.Phase.TrainingEnd,
		Debug:      c.Phase.Debug,
		DebugPhase: domain.Phase(c.Phase.DebugPhase),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvTime(key string, fallback time.Time) (time.Time, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC3339: %w", key, err)
	}
	return t, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/viper"
)

// Config aggregates every service setting.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Interview InterviewConfig
	Retrieval RetrievalConfig
	Store     StoreConfig
	Log       LogConfig
}

// Load reads configuration from the environment and, when INTERVIEW_CONFIG
// names a file, from that file. Environment variables win.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	if path := strings.TrimSpace(os.Getenv("INTERVIEW_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// AutomaticEnv upper-cases keys; the model name keeps its legacy spelling.
	_ = v.BindEnv("MODEL", "Model", "ARK_MODEL")

	server, err := loadServerConfig(v)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(v)
	if err != nil {
		return nil, err
	}

	interview, err := loadInterviewConfig(v)
	if err != nil {
		return nil, err
	}

	retrieval, err := loadRetrievalConfig(v)
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig(v)
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig(v)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Interview: interview,
		Retrieval: retrieval,
		Store:     store,
		Log:       logCfg,
	}, nil
}

// ServerConfig describes the HTTP listener and CORS policy.
type ServerConfig struct {
	Addr                 string
	AllowedOrigins       []string
	AllowedOriginPattern string
}

func loadServerConfig(v *viper.Viper) (ServerConfig, error) {
	port := getOrDefault(v, "PORT", "8080")

	addr := port
	if !strings.Contains(port, ":") {
		// bare port number
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = ":" + port
	}

	var origins []string
	for _, origin := range strings.Split(getOrDefault(v, "CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	return ServerConfig{
		Addr:                 addr,
		AllowedOrigins:       origins,
		AllowedOriginPattern: getOrDefault(v, "CORS_ALLOWED_ORIGIN_PATTERN", `^https://.*\.vercel\.app$`),
	}, nil
}

// AIConfig describes the chat model backing scoring, follow-ups and summaries.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates an Ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("missing Ark credentials or model: provide ARK_API_KEY + Model or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig(v *viper.Viper) (AIConfig, error) {
	temperature, err := parseOptionalFloat(v, "ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloat(v, "ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalInt(v, "ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      getOrDefault(v, "ARK_API_KEY", ""),
		AccessKey:   getOrDefault(v, "ARK_ACCESS_KEY", ""),
		SecretKey:   getOrDefault(v, "ARK_SECRET_KEY", ""),
		Model:       getOrDefault(v, "MODEL", ""),
		BaseURL:     getOrDefault(v, "ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getOrDefault(v, "ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// InterviewConfig bounds the interview flow and each downstream call.
type InterviewConfig struct {
	MaxTurns        int
	MinTurns        int
	MaxBullets      int
	ScoreTimeout    time.Duration
	RetrieveTimeout time.Duration
	GenerateTimeout time.Duration
	SummaryTimeout  time.Duration
}

func loadInterviewConfig(v *viper.Viper) (InterviewConfig, error) {
	cfg := InterviewConfig{}
	var err error

	if cfg.MaxTurns, err = parseInt(v, "INTERVIEW_MAX_TURNS", 5); err != nil {
		return InterviewConfig{}, err
	}
	if cfg.MinTurns, err = parseInt(v, "INTERVIEW_MIN_TURNS", 3); err != nil {
		return InterviewConfig{}, err
	}
	if cfg.MaxBullets, err = parseInt(v, "INTERVIEW_MAX_BULLETS", 6); err != nil {
		return InterviewConfig{}, err
	}
	if cfg.ScoreTimeout, err = parseDuration(v, "INTERVIEW_SCORE_TIMEOUT", 20*time.Second); err != nil {
		return InterviewConfig{}, err
	}
	if cfg.RetrieveTimeout, err = parseDuration(v, "INTERVIEW_RETRIEVE_TIMEOUT", 5*time.Second); err != nil {
		return InterviewConfig{}, err
	}
	if cfg.GenerateTimeout, err = parseDuration(v, "INTERVIEW_GENERATE_TIMEOUT", 20*time.Second); err != nil {
		return InterviewConfig{}, err
	}
	if cfg.SummaryTimeout, err = parseDuration(v, "INTERVIEW_SUMMARY_TIMEOUT", 20*time.Second); err != nil {
		return InterviewConfig{}, err
	}

	if cfg.MinTurns < 1 {
		return InterviewConfig{}, fmt.Errorf("invalid INTERVIEW_MIN_TURNS value %d: must be at least 1", cfg.MinTurns)
	}
	if cfg.MaxTurns < cfg.MinTurns {
		return InterviewConfig{}, fmt.Errorf("invalid INTERVIEW_MAX_TURNS value %d: must be >= INTERVIEW_MIN_TURNS (%d)", cfg.MaxTurns, cfg.MinTurns)
	}
	if cfg.MaxBullets < 1 {
		return InterviewConfig{}, fmt.Errorf("invalid INTERVIEW_MAX_BULLETS value %d: must be at least 1", cfg.MaxBullets)
	}

	return cfg, nil
}

// RetrievalConfig describes the knowledge corpus and its embedder.
type RetrievalConfig struct {
	Embedder      string
	OllamaModel   string
	TopK          int
	MinSimilarity float32
	PersistPath   string
	Collection    string
	CacheSize     int
}

const (
	EmbedderHash   = "hash"
	EmbedderOllama = "ollama"
)

func loadRetrievalConfig(v *viper.Viper) (RetrievalConfig, error) {
	embedder := strings.ToLower(getOrDefault(v, "RETRIEVAL_EMBEDDER", EmbedderHash))
	if embedder != EmbedderHash && embedder != EmbedderOllama {
		return RetrievalConfig{}, fmt.Errorf("invalid RETRIEVAL_EMBEDDER value %q", embedder)
	}

	topK, err := parseInt(v, "RETRIEVAL_TOP_K", 3)
	if err != nil {
		return RetrievalConfig{}, err
	}
	if topK < 1 {
		return RetrievalConfig{}, fmt.Errorf("invalid RETRIEVAL_TOP_K value %d", topK)
	}

	minSimilarity := 0.2
	if override, err := parseOptionalFloat(v, "RETRIEVAL_MIN_SIMILARITY"); err != nil {
		return RetrievalConfig{}, err
	} else if override != nil {
		minSimilarity = *override
	}

	cacheSize, err := parseInt(v, "RETRIEVAL_CACHE_SIZE", 256)
	if err != nil {
		return RetrievalConfig{}, err
	}
	if cacheSize < 1 {
		cacheSize = 1
	}

	return RetrievalConfig{
		Embedder:      embedder,
		OllamaModel:   getOrDefault(v, "OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		TopK:          topK,
		MinSimilarity: float32(minSimilarity),
		PersistPath:   getOrDefault(v, "RETRIEVAL_PERSIST_PATH", ""),
		Collection:    getOrDefault(v, "RETRIEVAL_COLLECTION", "interview-tips"),
		CacheSize:     cacheSize,
	}, nil
}

// StoreConfig selects the session store.
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

func loadStoreConfig(v *viper.Viper) (StoreConfig, error) {
	driver := strings.ToLower(getOrDefault(v, "STORE_DRIVER", StoreMemory))
	if driver != StoreMemory && driver != StoreSQLite {
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value %q", driver)
	}

	return StoreConfig{
		Driver:     driver,
		SQLitePath: getOrDefault(v, "SQLITE_PATH", "interview.db"),
	}, nil
}

// LogConfig describes the structured logger.
type LogConfig struct {
	Level       string
	Development bool
}

func loadLogConfig(v *viper.Viper) (LogConfig, error) {
	development, err := parseBool(v, "LOG_DEVELOPMENT", false)
	if err != nil {
		return LogConfig{}, err
	}

	return LogConfig{
		Level:       getOrDefault(v, "LOG_LEVEL", "info"),
		Development: development,
	}, nil
}

func getOrDefault(v *viper.Viper, key, defaultValue string) string {
	if value := strings.TrimSpace(v.GetString(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(v *viper.Viper, key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseInt(v *viper.Viper, key string, defaultValue int) (int, error) {
	val, err := parseOptionalInt(v, key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	return *val, nil
}

func parseDuration(v *viper.Viper, key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		// plain integers are seconds
		secs, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
		}
		val = time.Duration(secs) * time.Second
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloat(v *viper.Viper, key string) (*float64, error) {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalInt(v *viper.Viper, key string) (*int, error) {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete LingoScope configuration.
// Field tags serve both viper (mapstructure) and `config show` (yaml).
type Config struct {
	Grammar      GrammarConfig     `yaml:"grammar" mapstructure:"grammar"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Level        LevelConfig       `yaml:"level" mapstructure:"level"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
}

// GrammarConfig configures the remote grammar-check service
type GrammarConfig struct {
	Endpoint     string        `yaml:"endpoint" mapstructure:"endpoint"`
	Language     string        `yaml:"language" mapstructure:"language"`
	Username     string        `yaml:"username,omitempty" mapstructure:"username"` // Premium accounts only
	APIKey       string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	ChunkChars   int           `yaml:"chunk_chars" mapstructure:"chunk_chars"` // Split longer texts into several requests
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitConfig configures outbound request pacing
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig configures worker counts
type ConcurrencyConfig struct {
	Workers      int `yaml:"workers" mapstructure:"workers"`             // Batch workers
	ChunkWorkers int `yaml:"chunk_workers" mapstructure:"chunk_workers"` // Parallel chunk requests per text
}

// LevelConfig holds the level-estimation thresholds.
// Ratio and sentence-length ladders are ordered from the lowest level upward.
type LevelConfig struct {
	MinWords        int        `yaml:"min_words" mapstructure:"min_words"`
	MinChars        int        `yaml:"min_chars" mapstructure:"min_chars"`
	ErrorRatio      [3]float64 `yaml:"error_ratio" mapstructure:"error_ratio"`         // > [0] A1–A2, > [1] B1, > [2] B2
	SentenceLength  [3]float64 `yaml:"sentence_length" mapstructure:"sentence_length"` // < [0] A1–A2, < [1] B1, < [2] B2
	Connectors      [2]int     `yaml:"connectors" mapstructure:"connectors"`           // < [0] B1, < [1] B2
	Volume          [2]int     `yaml:"volume" mapstructure:"volume"`                   // < [0] B1, < [1] B2
	ExtraConnectors []string   `yaml:"extra_connectors,omitempty" mapstructure:"extra_connectors"`
}

// ServerConfig configures the web UI
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	MaxFormBytes   int64         `yaml:"max_form_bytes" mapstructure:"max_form_bytes"`
	LogLevel       string        `yaml:"log_level" mapstructure:"log_level"`
}

// OutputConfig configures report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// LLMConfig configures optional LLM feedback
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, ollama, gemini, "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"` // Never written to config files
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultEndpoint is the public LanguageTool check endpoint
const DefaultEndpoint = "https://api.languagetoolplus.com/v2/check"

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Grammar: GrammarConfig{
			Endpoint:     DefaultEndpoint,
			Language:     "en-US",
			Timeout:      30 * time.Second,
			UserAgent:    "LingoScope/0.1 (+https://github.com/ppiankov/lingoscope)",
			MaxBodyBytes: 5_000_000,
			ChunkChars:   18_000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 20.0 / 60.0, // public API allows 20 requests per minute
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers:      4,
			ChunkWorkers: 2,
		},
		Level: DefaultLevelConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 60 * time.Second,
			MaxFormBytes:   256 << 10,
			LogLevel:       "info",
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 600,
		},
	}
}

// DefaultLevelConfig returns the level thresholds
func DefaultLevelConfig() LevelConfig {
	return LevelConfig{
		MinWords:       5,
		MinChars:       20,
		ErrorRatio:     [3]float64{0.20, 0.10, 0.05},
		SentenceLength: [3]float64{8, 12, 16},
		Connectors:     [2]int{1, 2},
		Volume:         [2]int{30, 100},
	}
}

// defaultCacheDir returns ~/.lingoscope/cache, or a temp dir when HOME is unknown
func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "lingoscope-cache")
	}
	return filepath.Join(home, ".lingoscope", "cache")
}

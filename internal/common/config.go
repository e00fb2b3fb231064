package common

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Log      LogConfig      `mapstructure:"log"`
}

// LLMConfig selects and tunes the structuring vendor.
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"` // openai | gemini | ollama
	Model        string        `mapstructure:"model"`    // empty -> vendor default
	OpenAIAPIKey string        `mapstructure:"openai_api_key"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	BaseURL      string        `mapstructure:"base_url"` // openai override, ollama host
	Temperature  float64       `mapstructure:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract         string  `mapstructure:"tesseract"`
	Pdftotext         string  `mapstructure:"pdftotext"`
	Pdftoppm          string  `mapstructure:"pdftoppm"`
	Lang              string  `mapstructure:"lang"`
	PSM               int     `mapstructure:"psm"`
	OEM               int     `mapstructure:"oem"`
	DPI               int     `mapstructure:"dpi"`
	MaxPages          int     `mapstructure:"max_pages"`
	TessdataDir       string  `mapstructure:"tessdata_dir"`
	PDFTextConfidence float64 `mapstructure:"pdf_text_confidence"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"` // none | postgres | sqlite
	DSN              string        `mapstructure:"dsn"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	ConnectAttempts  int           `mapstructure:"connect_attempts"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr       string        `mapstructure:"grpc_addr"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
	WatchDir       string        `mapstructure:"watch_dir"`
}

// BatchConfig sizes the worker pool used for batches and the watch folder.
type BatchConfig struct {
	MaxSize   int `mapstructure:"max_size"`
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// UploadConfig bounds what the file validator accepts.
type UploadConfig struct {
	MaxFileSize       int64    `mapstructure:"max_file_size"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    "gemini",
			Temperature: 0.1,
			MaxTokens:   4000,
			Timeout:     60 * time.Second,
		},
		OCR: OCRConfig{
			Tesseract:         "tesseract",
			Pdftotext:         "pdftotext",
			Pdftoppm:          "pdftoppm",
			Lang:              "eng",
			PSM:               6,
			OEM:               3,
			DPI:               300,
			PDFTextConfidence: 0.95,
		},
		Database: DatabaseConfig{
			Driver:          "none",
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
			ConnectAttempts: 5,
		},
		Server: ServerConfig{
			GRPCAddr:       ":8080",
			HealthInterval: 30 * time.Second,
		},
		Batch: BatchConfig{
			MaxSize:   10,
			Workers:   4,
			QueueSize: 256,
		},
		Upload: UploadConfig{
			MaxFileSize:       constants.DefaultMaxFileSize,
			AllowedExtensions: []string{"jpg", "jpeg", "png", "pdf"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// flatDefaults maps every config key to its default value.
func flatDefaults(d Config) map[string]any {
	return map[string]any{
		"llm.provider":                d.LLM.Provider,
		"llm.model":                   d.LLM.Model,
		"llm.openai_api_key":          d.LLM.OpenAIAPIKey,
		"llm.gemini_api_key":          d.LLM.GeminiAPIKey,
		"llm.base_url":                d.LLM.BaseURL,
		"llm.temperature":             d.LLM.Temperature,
		"llm.max_tokens":              d.LLM.MaxTokens,
		"llm.timeout":                 d.LLM.Timeout,
		"ocr.tesseract":               d.OCR.Tesseract,
		"ocr.pdftotext":               d.OCR.Pdftotext,
		"ocr.pdftoppm":                d.OCR.Pdftoppm,
		"ocr.lang":                    d.OCR.Lang,
		"ocr.psm":                     d.OCR.PSM,
		"ocr.oem":                     d.OCR.OEM,
		"ocr.dpi":                     d.OCR.DPI,
		"ocr.max_pages":               d.OCR.MaxPages,
		"ocr.tessdata_dir":            d.OCR.TessdataDir,
		"ocr.pdf_text_confidence":     d.OCR.PDFTextConfidence,
		"database.driver":             d.Database.Driver,
		"database.dsn":                d.Database.DSN,
		"database.max_conns":          d.Database.MaxConns,
		"database.min_conns":          d.Database.MinConns,
		"database.max_conn_lifetime":  d.Database.MaxConnLifetime,
		"database.max_conn_idle_time": d.Database.MaxConnIdleTime,
		"database.dial_timeout":       d.Database.DialTimeout,
		"database.statement_timeout":  d.Database.StatementTimeout,
		"database.connect_attempts":   d.Database.ConnectAttempts,
		"server.grpc_addr":            d.Server.GRPCAddr,
		"server.health_interval":      d.Server.HealthInterval,
		"server.watch_dir":            d.Server.WatchDir,
		"batch.max_size":              d.Batch.MaxSize,
		"batch.workers":               d.Batch.Workers,
		"batch.queue_size":            d.Batch.QueueSize,
		"upload.max_file_size":        d.Upload.MaxFileSize,
		"upload.allowed_extensions":   d.Upload.AllowedExtensions,
		"log.level":                   d.Log.Level,
		"log.format":                  d.Log.Format,
	}
}

// envAliases keeps the unprefixed variable names deployments already set.
var envAliases = map[string]string{
	"llm.provider":              "LLM_PROVIDER",
	"llm.model":                 "MODEL_NAME",
	"llm.openai_api_key":        "OPENAI_API_KEY",
	"llm.gemini_api_key":        "GEMINI_API_KEY",
	"llm.temperature":           "MODEL_TEMPERATURE",
	"llm.max_tokens":            "MAX_TOKENS",
	"ocr.tesseract":             "TESSERACT_PATH",
	"ocr.tessdata_dir":          "TESSDATA_PREFIX",
	"database.dsn":              "DB_URL",
	"server.grpc_addr":          "GRPC_ADDR",
	"batch.max_size":            "MAX_BATCH_SIZE",
	"upload.max_file_size":      "MAX_FILE_SIZE",
	"upload.allowed_extensions": "ALLOWED_EXTENSIONS",
}

const envPrefix = "MARKSHEET"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a config manager and loads the initial config.
// cfgFile may be empty, in which case ./marksheet.yaml is read if present.
func NewManager(cfgFile string) (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.init(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = cfg
	return m, nil
}

func (m *Manager) init(cfgFile string) error {
	for k, val := range flatDefaults(DefaultConfig()) {
		m.v.SetDefault(k, val)
	}

	m.v.SetEnvPrefix(envPrefix)
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()
	for key, alias := range envAliases {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := m.v.BindEnv(key, prefixed, alias); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if cfgFile != "" {
		m.v.SetConfigFile(cfgFile)
	} else {
		m.v.SetConfigName("marksheet")
		m.v.SetConfigType("yaml")
		m.v.AddConfigPath(".")
	}

	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func (m *Manager) load() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	for i, ext := range cfg.Upload.AllowedExtensions {
		cfg.Upload.AllowedExtensions[i] = constants.NormalizeExt(strings.TrimSpace(ext))
	}
	return &cfg, nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// OnChange registers a callback for config changes.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// ConfigFileUsed returns the path of the file that was read, or "".
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// WatchConfig reloads the config file on change. Invalid reloads are ignored.
// It is a no-op when no config file was read.
func (m *Manager) WatchConfig() {
	if m.v.ConfigFileUsed() == "" {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := m.load()
		if err != nil || cfg.Validate() != nil {
			return
		}

		m.mu.Lock()
		m.config = cfg
		callbacks := make([]func(*Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	m.v.WatchConfig()
}

// LoadConfig loads and validates configuration from defaults, env and cfgFile.
func LoadConfig(cfgFile string) (*Config, error) {
	m, err := NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg := m.Get()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.Provider) == "" {
		return NewAppError("CONFIG_ERROR", "llm.provider is required", ErrInvalidInput)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return NewAppError("CONFIG_ERROR", "llm.temperature must be within 0..2", ErrInvalidInput)
	}
	if c.Batch.MaxSize <= 0 {
		return NewAppError("CONFIG_ERROR", "batch.max_size must be positive", ErrInvalidInput)
	}
	if c.Batch.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "batch.workers must be positive", ErrInvalidInput)
	}
	if c.Upload.MaxFileSize <= 0 {
		return NewAppError("CONFIG_ERROR", "upload.max_file_size must be positive", ErrInvalidInput)
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return NewAppError("CONFIG_ERROR", "upload.allowed_extensions must not be empty", ErrInvalidInput)
	}
	switch c.Database.Driver {
	case "", "none":
	case "postgres", "sqlite":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "database.dsn is required for driver "+c.Database.Driver, ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown database.driver %q", c.Database.Driver), ErrInvalidInput)
	}
	return nil
}

// WriteDefaultConfig writes the default configuration as YAML to path.
func WriteDefaultConfig(path string) error {
	nested := map[string]any{}
	flat := flatDefaults(DefaultConfig())
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		val := flat[k]
		if d, ok := val.(time.Duration); ok {
			val = d.String()
		}
		section, field, _ := strings.Cut(k, ".")
		sub, ok := nested[section].(map[string]any)
		if !ok {
			sub = map[string]any{}
			nested[section] = sub
		}
		sub[field] = val
	}

	data, err := yaml.Marshal(nested)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := []byte(`# marksheet-extractor configuration
# Every key can be overridden with MARKSHEET_<SECTION>_<KEY>, e.g. MARKSHEET_LLM_PROVIDER=openai.
# API keys are usually supplied through OPENAI_API_KEY / GEMINI_API_KEY instead of this file.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}

package common_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("MARKSHEET_LLM_PROVIDER", "")

	cfg, err := common.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 0.1, cfg.LLM.Temperature)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
	assert.Equal(t, 6, cfg.OCR.PSM)
	assert.Equal(t, 10, cfg.Batch.MaxSize)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxFileSize)
	assert.Equal(t, []string{"jpg", "jpeg", "png", "pdf"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, 30*time.Second, cfg.Server.HealthInterval)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MARKSHEET_LLM_PROVIDER", "")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("MARKSHEET_BATCH_MAX_SIZE", "3")
	t.Setenv("MARKSHEET_LLM_TIMEOUT", "5s")

	cfg, err := common.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.Batch.MaxSize)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("MARKSHEET_LLM_PROVIDER", "")
	path := filepath.Join(t.TempDir(), "marksheet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: ollama
  model: llama3
database:
  driver: sqlite
  dsn: "file::memory:"
upload:
  allowed_extensions: [".PNG", "pdf"]
`), 0o644))

	cfg, err := common.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []string{"png", "pdf"}, cfg.Upload.AllowedExtensions)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*common.Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*common.Config) {}},
		{name: "missing provider", mutate: func(c *common.Config) { c.LLM.Provider = " " }, wantErr: "llm.provider"},
		{name: "bad batch size", mutate: func(c *common.Config) { c.Batch.MaxSize = 0 }, wantErr: "batch.max_size"},
		{name: "postgres without dsn", mutate: func(c *common.Config) { c.Database.Driver = "postgres" }, wantErr: "database.dsn"},
		{name: "unknown driver", mutate: func(c *common.Config) { c.Database.Driver = "mongo" }, wantErr: "unknown database.driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := common.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("MARKSHEET_LLM_PROVIDER", "")
	path := filepath.Join(t.TempDir(), "marksheet.yaml")
	require.NoError(t, common.WriteDefaultConfig(path))

	cfg, err := common.LoadConfig(path)
	require.NoError(t, err)

	want := common.DefaultConfig()
	assert.Equal(t, want.Database.MaxConnLifetime, cfg.Database.MaxConnLifetime)
	assert.Equal(t, want.OCR, cfg.OCR)
	assert.Equal(t, want.Batch, cfg.Batch)
	assert.Equal(t, want.Upload, cfg.Upload)
}

func TestManager_WatchConfigReloads(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("MARKSHEET_LLM_PROVIDER", "")
	t.Setenv("MARKSHEET_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "marksheet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	m, err := common.NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.ConfigFileUsed())
	assert.Equal(t, "info", m.Get().Log.Level)

	changed := make(chan string, 4)
	m.OnChange(func(c *common.Config) {
		select {
		case changed <- c.Log.Level:
		default:
		}
	})
	m.WatchConfig()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	require.Eventually(t, func() bool {
		return m.Get().Log.Level == "debug"
	}, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return len(changed) > 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestManager_WatchConfigWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	m, err := common.NewManager("")
	require.NoError(t, err)
	assert.Empty(t, m.ConfigFileUsed())
	m.WatchConfig()
}

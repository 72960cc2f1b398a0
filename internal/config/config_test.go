package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProperties(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "application.properties")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, []string{"http", "https"}, cfg.SupportedSchemes)
	assert.Equal(t, filepath.Join(home, "web-analyzer"), cfg.OutputDir)
	assert.Equal(t, defaultUserAgent, cfg.DefaultHeaders["User-Agent"])
	assert.Equal(t, "gzip, deflate", cfg.DefaultHeaders["Accept-Encoding"])
	assert.True(t, cfg.ReportEnabled)
	assert.Equal(t, 3, cfg.PoolSize)
}

func TestLoad_PropertiesFile(t *testing.T) {
	custom := t.TempDir()
	path := writeProperties(t, `
url.connection.timeout=5
url.connection.supported.protocols=HTTPS, ftp
analyzer.default.folder.enabled=false
analyzer.custom.absolute.folder.path=`+custom+`
http.headers.user.agent=test-agent
http.headers.accept.encoding=
analyzer.final.console.report.enabled=false
analyzer.worker.pool.size=8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, []string{"https", "ftp"}, cfg.SupportedSchemes)
	assert.Equal(t, custom, cfg.OutputDir)
	assert.Equal(t, map[string]string{"User-Agent": "test-agent"}, cfg.DefaultHeaders)
	assert.False(t, cfg.ReportEnabled)
	assert.Equal(t, 8, cfg.PoolSize)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANALYZER_URL_CONNECTION_TIMEOUT", "42")
	t.Setenv("ANALYZER_ANALYZER_WORKER_POOL_SIZE", "12")

	path := writeProperties(t, "url.connection.timeout=5\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 42*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 12, cfg.PoolSize)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		errorContains string
	}{
		{
			name:          "relative_custom_folder",
			body:          "analyzer.default.folder.enabled=false\nanalyzer.custom.absolute.folder.path=relative/out\n",
			errorContains: "絶対パス",
		},
		{
			name:          "missing_custom_folder",
			body:          "analyzer.default.folder.enabled=false\n",
			errorContains: KeyCustomFolderPath,
		},
		{
			name:          "zero_timeout",
			body:          "url.connection.timeout=0\n",
			errorContains: "FetchTimeout",
		},
		{
			name:          "no_schemes",
			body:          "url.connection.supported.protocols= , \n",
			errorContains: "SupportedSchemes",
		},
		{
			name:          "zero_pool",
			body:          "analyzer.worker.pool.size=0\n",
			errorContains: "PoolSize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			_, err := Load(writeProperties(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.properties"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "設定ファイルの読み込みに失敗しました")
}

func TestLoad_ShippedProperties(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join("..", "..", "application.properties"))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, []string{"http", "https"}, cfg.SupportedSchemes)
	assert.Equal(t, filepath.Join(home, "web-analyzer"), cfg.OutputDir)
	assert.Equal(t, defaultUserAgent, cfg.DefaultHeaders["User-Agent"])
	assert.Equal(t, "gzip, deflate", cfg.DefaultHeaders["Accept-Encoding"])
	assert.True(t, cfg.ReportEnabled)
	assert.Equal(t, 3, cfg.PoolSize)
}

func TestNestKeys(t *testing.T) {
	nested := nestKeys(map[string]string{
		"url.connection.timeout":             "5",
		"url.connection.supported.protocols": "http",
		"Analyzer.Worker.Pool.Size":          "2",
		"flat":                               "x",
	})

	assert.Equal(t, map[string]any{
		"url": map[string]any{
			"connection": map[string]any{
				"timeout":   "5",
				"supported": map[string]any{"protocols": "http"},
			},
		},
		"analyzer": map[string]any{
			"worker": map[string]any{
				"pool": map[string]any{"size": "2"},
			},
		},
		"flat": "x",
	}, nested)
}

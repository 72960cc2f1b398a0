// Package config は、プロパティファイルと環境変数からアプリケーション設定を読み込みます。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/magiconair/properties"
	"github.com/spf13/viper"
)

// 設定キー
const (
	KeyFetchTimeout      = "url.connection.timeout"
	KeySupportedSchemes  = "url.connection.supported.protocols"
	KeyDefaultFolder     = "analyzer.default.folder.enabled"
	KeyDefaultFolderName = "analyzer.default.folder.name"
	KeyCustomFolderPath  = "analyzer.custom.absolute.folder.path"
	KeyUserAgent         = "http.headers.user.agent"
	KeyAcceptEncoding    = "http.headers.accept.encoding"
	KeyReportEnabled     = "analyzer.final.console.report.enabled"
	KeyPoolSize          = "analyzer.worker.pool.size"
)

const (
	envPrefix = "ANALYZER"

	defaultTimeoutSec     = 10
	defaultSchemes        = "http,https"
	defaultFolderName     = "web-analyzer"
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
	defaultAcceptEncoding = "gzip, deflate"
	defaultPoolSize       = 3

	headerUserAgent      = "User-Agent"
	headerAcceptEncoding = "Accept-Encoding"
)

// Config は1回の実行で使用する設定です。起動時に一度だけ生成され、参照で渡されます。
type Config struct {
	FetchTimeout     time.Duration `validate:"gt=0"`
	SupportedSchemes []string      `validate:"min=1,dive,required"`
	OutputDir        string        `validate:"required"`
	DefaultHeaders   map[string]string
	ReportEnabled    bool
	PoolSize         int `validate:"min=1,max=256"`
}

// Load は設定を読み込みます。path が空の場合は既定値と環境変数のみを使用します。
// 環境変数は ANALYZER_ を接頭辞とし、キーの "." を "_" に置き換えた名前で上書きできます (例: ANALYZER_URL_CONNECTION_TIMEOUT)。
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if err := mergePropertiesFile(v, path); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました (%s): %w", path, err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値を検証します。
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("設定値が不正です: %w", err)
	}
	return nil
}

// loadEnvFile は .env を読み込みます (ファイルが存在しない場合は無視します)。
func loadEnvFile() {
	_ = godotenv.Load()
}

// mergePropertiesFile は .properties ファイルを読み込み、設定ファイル層として viper にマージします。
// 環境変数による上書きは引き続き優先されます。
func mergePropertiesFile(v *viper.Viper, path string) error {
	props, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return err
	}
	return v.MergeConfigMap(nestKeys(props.Map()))
}

// nestKeys は "a.b.c=v" 形式のフラットなキーを viper が扱う入れ子のマップに変換します。
func nestKeys(flat map[string]string) map[string]any {
	root := make(map[string]any)
	for key, value := range flat {
		parts := strings.Split(strings.ToLower(key), ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return root
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyFetchTimeout, defaultTimeoutSec)
	v.SetDefault(KeySupportedSchemes, defaultSchemes)
	v.SetDefault(KeyDefaultFolder, true)
	v.SetDefault(KeyDefaultFolderName, defaultFolderName)
	v.SetDefault(KeyCustomFolderPath, "")
	v.SetDefault(KeyUserAgent, defaultUserAgent)
	v.SetDefault(KeyAcceptEncoding, defaultAcceptEncoding)
	v.SetDefault(KeyReportEnabled, true)
	v.SetDefault(KeyPoolSize, defaultPoolSize)
}

func fromViper(v *viper.Viper) (*Config, error) {
	outputDir, err := resolveOutputDir(v)
	if err != nil {
		return nil, err
	}

	return &Config{
		FetchTimeout:     time.Duration(v.GetInt(KeyFetchTimeout)) * time.Second,
		SupportedSchemes: splitCSV(v.GetString(KeySupportedSchemes)),
		OutputDir:        outputDir,
		DefaultHeaders:   defaultHeaders(v),
		ReportEnabled:    v.GetBool(KeyReportEnabled),
		PoolSize:         v.GetInt(KeyPoolSize),
	}, nil
}

// resolveOutputDir は、既定フォルダ (ホームディレクトリ配下) またはカスタムの絶対パスから出力先を決定します。
func resolveOutputDir(v *viper.Viper) (string, error) {
	if v.GetBool(KeyDefaultFolder) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("ホームディレクトリの取得に失敗しました: %w", err)
		}
		name := strings.TrimSpace(v.GetString(KeyDefaultFolderName))
		if name == "" {
			name = defaultFolderName
		}
		return filepath.Join(home, name), nil
	}

	custom := strings.TrimSpace(v.GetString(KeyCustomFolderPath))
	if custom == "" {
		return "", errors.New("設定値が不正です: " + KeyCustomFolderPath + " が指定されていません")
	}
	if !filepath.IsAbs(custom) {
		return "", fmt.Errorf("設定値が不正です: %s は絶対パスである必要があります: %s", KeyCustomFolderPath, custom)
	}
	return filepath.Clean(custom), nil
}

func defaultHeaders(v *viper.Viper) map[string]string {
	headers := make(map[string]string, 2)
	if ua := strings.TrimSpace(v.GetString(KeyUserAgent)); ua != "" {
		headers[headerUserAgent] = ua
	}
	if ae := strings.TrimSpace(v.GetString(KeyAcceptEncoding)); ae != "" {
		headers[headerAcceptEncoding] = ae
	}
	return headers
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

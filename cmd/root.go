package cmd

import (
	"fmt"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-web-analyzer/internal/config"
	"github.com/shouni/go-web-analyzer/internal/logging"
)

// --- グローバル定数 ---

const appName = "web-analyzer"

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	PropertiesPath string // --properties 設定ファイル
	TimeoutSec     int    // --timeout 1件あたりの取得タイムアウト (0 の場合は設定ファイルの値)
}

var Flags AppFlags

var (
	appConfig *config.Config
	appLogger = zap.NewNop()
)

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(
		&Flags.PropertiesPath,
		"properties",
		"",
		"設定ファイル (.properties) のパス。未指定の場合は既定値と環境変数を使用",
	)
	rootCmd.PersistentFlags().IntVar(
		&Flags.TimeoutSec,
		"timeout",
		0,
		"1件あたりのHTTP取得タイムアウト（秒）。設定ファイルの url.connection.timeout を上書き",
	)
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// NOTE: clibaseの PersistentPreRunE チェーンにより、clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(clibase.Flags.Verbose)
	if err != nil {
		return err
	}
	appLogger = logger

	cfg, err := config.Load(Flags.PropertiesPath)
	if err != nil {
		return err
	}
	if Flags.TimeoutSec < 0 {
		return fmt.Errorf("--timeout は0以上である必要があります: %d", Flags.TimeoutSec)
	}
	if Flags.TimeoutSec > 0 {
		cfg.FetchTimeout = time.Duration(Flags.TimeoutSec) * time.Second
	}
	appConfig = cfg

	appLogger.Debug("設定を読み込みました",
		zap.String("properties", Flags.PropertiesPath),
		zap.Duration("timeout", cfg.FetchTimeout),
		zap.Strings("schemes", cfg.SupportedSchemes),
		zap.String("output_dir", cfg.OutputDir),
		zap.Int("pool_size", cfg.PoolSize),
	)
	return nil
}

// Execute は、clibase を使用してルートコマンドを実行します。
func Execute() {
	defer func() { _ = appLogger.Sync() }()

	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		analyzeCmd,
	)
}

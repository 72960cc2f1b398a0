// Package pipeline は、設定から各コンポーネントを組み立てて1回の解析実行を行います。
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"go.uber.org/zap"

	"github.com/shouni/go-web-analyzer/internal/config"
	"github.com/shouni/go-web-analyzer/pkg/analyzer"
	"github.com/shouni/go-web-analyzer/pkg/extract"
	"github.com/shouni/go-web-analyzer/pkg/feed"
	"github.com/shouni/go-web-analyzer/pkg/httpclient"
	"github.com/shouni/go-web-analyzer/pkg/metrics"
	"github.com/shouni/go-web-analyzer/pkg/pattern"
	"github.com/shouni/go-web-analyzer/pkg/source"
	"github.com/shouni/go-web-analyzer/pkg/types"
)

// Options は1回の実行ごとに指定する入力です。
type Options struct {
	// InputPath は1行1URLの入力ファイルです。FeedURL とどちらか一方を指定します。
	InputPath string
	// FeedURL は解析対象のURLリストとして使用するフィードのURLです。
	FeedURL string
	// Pattern はプリセット名 (HASHTAG, MENTION) またはキャプチャグループを1つ以上含む正規表現です。
	Pattern string
	// PoolSize が0より大きい場合、設定値のワーカー数を上書きします。
	PoolSize int
	// MetricsFile が指定された場合、実行後にメトリクスを書き出します。
	MetricsFile string
}

// Run はURLリストを取得し、解析を実行してレポートを返します。
func Run(ctx context.Context, cfg *config.Config, opts Options, logger *zap.Logger) (*analyzer.Report, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline.Run: Config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// 1. パターンの解決 (タスク生成前に検証)
	p, err := ResolvePattern(opts.Pattern)
	if err != nil {
		return nil, err
	}

	// 2. 依存性の初期化
	// HTTP 送信は httpkit に委ねる
	client := httpclient.New(cfg.FetchTimeout, httpclient.WithHTTPClient(httpkit.New(cfg.FetchTimeout)))

	extractor, err := extract.NewExtractor(client)
	if err != nil {
		return nil, fmt.Errorf("Extractorの初期化エラー: %w", err)
	}

	poolSize := cfg.PoolSize
	if opts.PoolSize > 0 {
		poolSize = opts.PoolSize
	}

	m := metrics.New()
	a, err := analyzer.New(extractor,
		analyzer.WithPoolSize(poolSize),
		analyzer.WithTimeout(cfg.FetchTimeout),
		analyzer.WithOutputDir(cfg.OutputDir),
		analyzer.WithSupportedSchemes(cfg.SupportedSchemes),
		analyzer.WithDefaultHeaders(cfg.DefaultHeaders),
		analyzer.WithLogger(logger),
		analyzer.WithRecorder(m),
	)
	if err != nil {
		return nil, fmt.Errorf("Analyzerの初期化エラー: %w", err)
	}

	// 3. URLリストの取得
	urls, err := loadURLs(ctx, client, cfg, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("URLリストを読み込みました", zap.Int("count", len(urls)))

	// 4. 解析の実行
	report, err := a.Analyze(ctx, urls, p, nil)

	// 5. メトリクスの書き出し (実行レベルのエラー時も除外件数を残す)
	if opts.MetricsFile != "" {
		if werr := m.WriteTextfile(opts.MetricsFile); werr != nil {
			logger.Warn("メトリクスの書き出しに失敗しました", zap.String("path", opts.MetricsFile), zap.Error(werr))
		}
	}

	if err != nil {
		return nil, err
	}
	return report, nil
}

// ResolvePattern はプリセット名を優先し、該当しない場合は正規表現としてコンパイルします。
func ResolvePattern(expr string) (*pattern.SearchPattern, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: パターンが指定されていません", types.ErrInvalidPattern)
	}
	if p, err := pattern.FromPreset(expr); err == nil {
		return p, nil
	}
	return pattern.Compile(expr)
}

func loadURLs(ctx context.Context, client *httpclient.Client, cfg *config.Config, opts Options) ([]string, error) {
	switch {
	case opts.InputPath != "" && opts.FeedURL != "":
		return nil, fmt.Errorf("%w: 入力ファイルとフィードURLは同時に指定できません", types.ErrInvalidInput)
	case opts.FeedURL != "":
		return feed.NewParser(client).FetchLinks(ctx, opts.FeedURL, cfg.DefaultHeaders)
	default:
		return source.ReadURLFile(opts.InputPath)
	}
}

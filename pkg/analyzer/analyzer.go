package analyzer

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shouni/go-web-analyzer/pkg/pattern"
	"github.com/shouni/go-web-analyzer/pkg/types"
)

// DefaultTimeout は、タイムアウトが設定されていない場合の1タスクあたりのフェッチのタイムアウトです。
const DefaultTimeout = 10 * time.Second

// DefaultSupportedSchemes は、スキームが設定されていない場合に許可するURLスキームです。
var DefaultSupportedSchemes = []string{"http", "https"}

// Recorder は解析結果のメトリクスを記録するインターフェースです。
type Recorder interface {
	ObserveResult(result types.AnalysisResult)
	ObserveDropped(n int)
}

// Analyzer は、URL集合の重複排除と検証を行い、URLごとのタスクを固定サイズのワーカープールで実行します。
type Analyzer struct {
	fetcher        PageFetcher
	poolSize       int
	timeout        time.Duration
	outputDir      string
	schemes        map[string]bool
	defaultHeaders map[string]string
	logger         *zap.Logger
	recorder       Recorder
}

// Option は Analyzer の設定を行うための関数型です。
type Option func(*Analyzer)

// WithPoolSize はワーカー数を設定します。
func WithPoolSize(size int) Option {
	return func(a *Analyzer) {
		if size > 0 {
			a.poolSize = size
		}
	}
}

// WithTimeout は1タスクあたりのフェッチのタイムアウトを設定します。
func WithTimeout(timeout time.Duration) Option {
	return func(a *Analyzer) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// WithOutputDir はマッチ結果の出力ディレクトリを設定します。
func WithOutputDir(dir string) Option {
	return func(a *Analyzer) {
		a.outputDir = dir
	}
}

// WithSupportedSchemes は許可するURLスキームを設定します。空の場合は DefaultSupportedSchemes を使用します。
func WithSupportedSchemes(schemes []string) Option {
	return func(a *Analyzer) {
		set := make(map[string]bool, len(schemes))
		for _, s := range schemes {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" {
				set[s] = true
			}
		}
		if len(set) > 0 {
			a.schemes = set
		}
	}
}

// WithDefaultHeaders は、呼び出し元がヘッダーを指定しなかった場合に使用するヘッダーを設定します。
func WithDefaultHeaders(headers map[string]string) Option {
	return func(a *Analyzer) {
		a.defaultHeaders = copyHeaders(headers)
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRecorder はメトリクスの記録先を設定します。
func WithRecorder(recorder Recorder) Option {
	return func(a *Analyzer) {
		a.recorder = recorder
	}
}

// New は Analyzer を初期化します。
func New(fetcher PageFetcher, options ...Option) (*Analyzer, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("analyzer.New: PageFetcher cannot be nil")
	}
	a := &Analyzer{
		fetcher:   fetcher,
		poolSize:  DefaultPoolSize,
		timeout:   DefaultTimeout,
		outputDir: os.TempDir(),
		logger:    zap.NewNop(),
	}
	WithSupportedSchemes(DefaultSupportedSchemes)(a)
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

// PoolSize はワーカー数を返します。
func (a *Analyzer) PoolSize() int { return a.poolSize }

// Analyze はURLリストを解析し、すべてのタスクの完了後に集計レポートを返します。
// パターンが nil の場合は types.ErrInvalidPattern、有効なURLが残らない場合は types.ErrNoContent を返し、タスクは1件も実行されません。
// headers が nil または空の場合は既定のヘッダーを使用します。
func (a *Analyzer) Analyze(ctx context.Context, urls []string, p *pattern.SearchPattern, headers map[string]string) (*Report, error) {
	if p == nil {
		return nil, types.ErrInvalidPattern
	}

	// 1. タスクの組み立て
	tasks, err := a.BuildTasks(urls, p, headers)
	if err != nil {
		return nil, err
	}

	a.logger.Info("解析を開始します",
		zap.Int("tasks", len(tasks)),
		zap.Int("pool_size", a.poolSize),
		zap.Duration("timeout", a.timeout),
		zap.String("pattern", p.Expression()),
	)

	// 2. ワーカープールで実行
	var onResult func(types.AnalysisResult)
	if a.recorder != nil {
		onResult = a.recorder.ObserveResult
	}
	results := runPool(ctx, tasks, a.poolSize, onResult)

	report := &Report{results: results}
	a.logger.Info("解析が完了しました",
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()),
	)
	return report, nil
}

// BuildTasks は重複排除とスキーム検証の後、有効なURLごとに1つのタスクを生成します。
func (a *Analyzer) BuildTasks(urls []string, p *pattern.SearchPattern, headers map[string]string) ([]*Task, error) {
	if p == nil {
		return nil, types.ErrInvalidPattern
	}
	plan, err := a.DispatchPlan(urls)
	if err != nil {
		return nil, err
	}

	taskHeaders := headers
	if len(taskHeaders) == 0 {
		taskHeaders = a.defaultHeaders
	}

	tasks := make([]*Task, 0, len(plan))
	for _, u := range plan {
		tasks = append(tasks, NewTask(u, p, taskHeaders, a.fetcher, a.timeout, a.outputDir, a.logger))
	}
	return tasks, nil
}

// DispatchPlan は、URLリストを完全一致で重複排除し、許可されていないURLを除外した結果を返します。
// 除外されたURLは結果にもレポートにも現れません。
func (a *Analyzer) DispatchPlan(urls []string) ([]string, error) {
	unique := dedupe(urls)
	if len(unique) == 0 {
		return nil, types.ErrNoContent
	}

	valid := make([]string, 0, len(unique))
	for _, u := range unique {
		if a.isValidURL(u) {
			valid = append(valid, u)
			continue
		}
		a.logger.Debug("サポートされていないURLを除外しました", zap.String("url", u))
	}

	if dropped := len(unique) - len(valid); dropped > 0 && a.recorder != nil {
		a.recorder.ObserveDropped(dropped)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: %d件のURLがすべて検証に失敗しました", types.ErrNoContent, len(unique))
	}
	return valid, nil
}

// isValidURL は、URLが許可されたスキームとホストを持つかを判定します。
func (a *Analyzer) isValidURL(raw string) bool {
	if raw == "" || strings.TrimSpace(raw) != raw {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return a.schemes[strings.ToLower(u.Scheme)] && u.Host != ""
}

// dedupe は最初の出現順を保ったまま重複を除去します。
func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func copyHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = v
	}
	return out
}

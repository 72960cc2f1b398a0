package analyzer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shouni/go-web-analyzer/pkg/pattern"
	"github.com/shouni/go-web-analyzer/pkg/types"
)

const (
	// outputFileExtension は、マッチ結果を書き出すファイルの拡張子です。
	outputFileExtension = ".txt"
	outputFileMode      = 0o644
	outputDirMode       = 0o755
)

// lineSeparator はプラットフォームの改行文字です。
var lineSeparator = func() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}()

// PageFetcher は、URLのページ本文をテキストとして取得する機能のインターフェースです。
// *extract.Extractor がこれを満たします。
type PageFetcher interface {
	FetchAndExtractText(ctx context.Context, url string, headers map[string]string) (string, error)
}

// WriteError は、マッチ結果のファイル書き込みに失敗したことを示すエラーです。
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("ファイル(%s)への書き込みに失敗しました: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Kind はレポートに表示するエラー種別名を返します。
func (e *WriteError) Kind() string { return "WriteError" }

// Task は1つのURLを解析する作業単位です。1回だけ実行され、必ず1つの結果を返します。
type Task struct {
	url       string
	pattern   *pattern.SearchPattern
	headers   map[string]string
	fetcher   PageFetcher
	timeout   time.Duration
	outputDir string
	logger    *zap.Logger

	// テストで差し替え可能なファイル名生成関数とファイルの作成関数
	newFileName func() string
	openFile    func(path string) (outputFile, error)
}

// outputFile はマッチ結果の書き込み先です。*os.File がこれを満たします。
type outputFile interface {
	io.StringWriter
	io.Closer
}

// NewTask は Task を生成します。pattern と headers は他のタスクと共有され、変更されません。
func NewTask(url string, p *pattern.SearchPattern, headers map[string]string, fetcher PageFetcher,
	timeout time.Duration, outputDir string, logger *zap.Logger) *Task {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Task{
		url:         url,
		pattern:     p,
		headers:     headers,
		fetcher:     fetcher,
		timeout:     timeout,
		outputDir:   outputDir,
		logger:      logger,
		newFileName: generateFileName,
		openFile:    createExclusive,
	}
}

// URL はタスクの対象URLを返します。
func (t *Task) URL() string { return t.url }

// Run はフェッチ、抽出、書き込みを実行し、結果を返します。
// 途中で発生したエラーやパニックは呼び出し元へ伝播させず、失敗結果として記録します。
func (t *Task) Run(ctx context.Context) (result types.AnalysisResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("タスク実行中に予期しないパニックが発生しました: %v", r)
			t.logFailure(err)
			result = types.NewFailedResult(t.url, start, time.Now(), err)
		}
	}()

	matches, path, err := t.analyze(ctx)
	end := time.Now()
	if err != nil {
		t.logFailure(err)
		return types.NewFailedResult(t.url, start, end, err)
	}
	if len(matches) == 0 {
		return types.NewEmptyResult(t.url, start, end)
	}
	return types.NewSuccessfulResult(t.url, start, end, len(matches), path)
}

// analyze はタスク本体の処理です。マッチが0件の場合はファイルを書き出しません。
func (t *Task) analyze(ctx context.Context) ([]string, string, error) {
	// 1. ページ本文の取得 (タスク単位のタイムアウト)
	fetchCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	text, err := t.fetcher.FetchAndExtractText(fetchCtx, t.url, t.headers)
	if err != nil {
		return nil, "", err
	}

	// 2. パターン抽出
	matches := t.pattern.ExtractAll(text)
	if len(matches) == 0 {
		return matches, "", nil
	}

	// 3. ファイル書き込み
	path, err := t.writeMatches(matches)
	if err != nil {
		return nil, "", err
	}
	return matches, path, nil
}

// writeMatches はマッチ結果を1行1件で一意な名前のファイルに書き出し、絶対パスを返します。
func (t *Task) writeMatches(matches []string) (string, error) {
	dir, err := filepath.Abs(t.outputDir)
	if err != nil {
		return "", &WriteError{Path: t.outputDir, Err: err}
	}
	if err := os.MkdirAll(dir, outputDirMode); err != nil {
		return "", &WriteError{Path: dir, Err: err}
	}

	path := filepath.Join(dir, t.newFileName())
	content := strings.Join(matches, lineSeparator)

	f, err := t.openFile(path)
	if err != nil {
		return "", &WriteError{Path: path, Err: err}
	}
	// 書き込みに失敗した場合は途中まで書かれたファイルを残さない
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", &WriteError{Path: path, Err: err}
	}
	return path, nil
}

// createExclusive は O_EXCL でファイルを作成し、既存ファイルの上書きを防ぎます。
func createExclusive(path string) (outputFile, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, outputFileMode)
}

func (t *Task) logFailure(err error) {
	t.logger.Warn("URLの解析タスクでエラーが発生しました",
		zap.String("url", t.url),
		zap.String("kind", types.ErrorKind(err)),
		zap.Error(err),
	)
}

// generateFileName はランダムな128ビットの識別子にテキスト拡張子を付けたファイル名を返します。
func generateFileName() string {
	return uuid.NewString() + outputFileExtension
}

package analyzer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-web-analyzer/pkg/extract"
	"github.com/shouni/go-web-analyzer/pkg/httpclient"
	"github.com/shouni/go-web-analyzer/pkg/pattern"
)

// fakeFetcher は URL ごとに本文またはエラーを返す PageFetcher のテスト実装です。
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	errs     map[string]error
	delay    time.Duration
	calls    map[string]int
	headers  map[string]map[string]string
	inFlight int
	maxSeen  int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:   map[string]string{},
		errs:    map[string]error{},
		calls:   map[string]int{},
		headers: map[string]map[string]string{},
	}
}

func (f *fakeFetcher) FetchAndExtractText(ctx context.Context, url string, headers map[string]string) (string, error) {
	f.mu.Lock()
	f.calls[url]++
	f.headers[url] = headers
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	return f.pages[url], nil
}

type panicFetcher struct{}

func (panicFetcher) FetchAndExtractText(ctx context.Context, url string, headers map[string]string) (string, error) {
	panic("unexpected nil page")
}

func hashtagPattern(t *testing.T) *pattern.SearchPattern {
	t.Helper()
	p, err := pattern.FromPreset("HASHTAG")
	require.NoError(t, err)
	return p
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestTask_Run_WithMatches(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	fetcher := newFakeFetcher()
	fetcher.pages["http://a.test"] = "hello #foo and #bar! again #foo"

	task := NewTask("http://a.test", hashtagPattern(t), nil, fetcher, time.Second, dir, nil)
	res := task.Run(context.Background())

	require.True(t, res.Successful(), res.Message())
	assert.Equal(t, 3, res.MatchesFound())
	assert.GreaterOrEqual(t, res.ProcessTimeSeconds(), 0.0)

	path, ok := res.OutputFilePath()
	require.True(t, ok)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, outputFileExtension))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(data), lineSeparator)
	assert.Equal(t, []string{"#foo", "#bar", "#foo"}, lines)
	assert.Len(t, lines, res.MatchesFound())
	assert.Equal(t, string(data), strings.Join(lines, lineSeparator))
	assert.Contains(t, res.Message(), "Output file is: "+path)
}

func TestTask_Run_NoMatches(t *testing.T) {
	dir := t.TempDir()
	fetcher := newFakeFetcher()
	fetcher.pages["http://a.test"] = "no tags here"

	res := NewTask("http://a.test", hashtagPattern(t), nil, fetcher, time.Second, dir, nil).Run(context.Background())

	assert.True(t, res.Successful())
	assert.Equal(t, 0, res.MatchesFound())
	_, ok := res.OutputFilePath()
	assert.False(t, ok)
	assert.Empty(t, listFiles(t, dir))
	assert.Contains(t, res.Message(), "Output file is: Not Generated")
}

func TestTask_Run_FetchError(t *testing.T) {
	dir := t.TempDir()
	fetcher := newFakeFetcher()
	fetcher.errs["http://a.test"] = &httpclient.FetchError{URL: "http://a.test", StatusCode: http.StatusInternalServerError}

	res := NewTask("http://a.test", hashtagPattern(t), nil, fetcher, time.Second, dir, nil).Run(context.Background())

	assert.False(t, res.Successful())
	assert.Equal(t, 0, res.MatchesFound())
	_, ok := res.OutputFilePath()
	assert.False(t, ok)
	assert.Contains(t, res.Message(), "Failed")
	assert.Contains(t, res.Message(), "FetchError")
	assert.Empty(t, listFiles(t, dir))
}

func TestTask_Run_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	extractor, err := extract.NewExtractor(httpclient.New(5 * time.Second))
	require.NoError(t, err)

	res := NewTask(srv.URL, hashtagPattern(t), nil, extractor, 50*time.Millisecond, t.TempDir(), nil).Run(context.Background())

	assert.False(t, res.Successful())
	assert.Equal(t, 0, res.MatchesFound())
	assert.True(t, httpclient.IsTimeout(res.FailureCause()))
	assert.Contains(t, res.Message(), "FetchTimeoutError")
	assert.Contains(t, res.Message(), "timeout")
}

func TestTask_Run_WriteError(t *testing.T) {
	// 出力先にファイルを置き、ディレクトリを作成できないようにする
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	fetcher := newFakeFetcher()
	fetcher.pages["http://a.test"] = "#tag"

	res := NewTask("http://a.test", hashtagPattern(t), nil, fetcher, time.Second, filepath.Join(blocker, "out"), nil).Run(context.Background())

	assert.False(t, res.Successful())
	assert.Equal(t, 0, res.MatchesFound())
	var we *WriteError
	assert.ErrorAs(t, res.FailureCause(), &we)
	assert.Contains(t, res.Message(), "WriteError")
}

func TestTask_Run_FileNameCollisionIsReported(t *testing.T) {
	dir := t.TempDir()
	fetcher := newFakeFetcher()
	fetcher.pages["http://a.test"] = "#a"
	fetcher.pages["http://b.test"] = "#b"

	first := NewTask("http://a.test", hashtagPattern(t), nil, fetcher, time.Second, dir, nil)
	second := NewTask("http://b.test", hashtagPattern(t), nil, fetcher, time.Second, dir, nil)
	first.newFileName = func() string { return "same.txt" }
	second.newFileName = func() string { return "same.txt" }

	require.True(t, first.Run(context.Background()).Successful())
	res := second.Run(context.Background())
	assert.False(t, res.Successful())

	data, err := os.ReadFile(filepath.Join(dir, "same.txt"))
	require.NoError(t, err)
	assert.Equal(t, "#a", string(data))
}

func TestTask_Run_PanicBecomesFailedResult(t *testing.T) {
	res := NewTask("http://a.test", hashtagPattern(t), nil, panicFetcher{}, time.Second, t.TempDir(), nil).Run(context.Background())

	assert.False(t, res.Successful())
	assert.Equal(t, "http://a.test", res.URL())
	assert.Contains(t, res.Message(), "UnexpectedError")
	assert.Contains(t, res.Message(), "unexpected nil page")
}

func TestGenerateFileName(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		name := generateFileName()
		assert.True(t, strings.HasSuffix(name, outputFileExtension))
		assert.False(t, seen[name])
		seen[name] = true
	}
}

// failingFile は実ファイルに途中まで書き込んだ後、エラーを返す outputFile です。
type failingFile struct {
	f         *os.File
	failWrite bool
	failClose bool
}

func (w *failingFile) WriteString(s string) (int, error) {
	if !w.failWrite {
		return w.f.WriteString(s)
	}
	n, _ := w.f.WriteString(s[:len(s)/2])
	return n, errors.New("disk full")
}

func (w *failingFile) Close() error {
	err := w.f.Close()
	if w.failClose {
		return errors.New("close failed")
	}
	return err
}

func TestTask_Run_FailedWriteLeavesNoFile(t *testing.T) {
	tests := []struct {
		name      string
		failWrite bool
		failClose bool
	}{
		{name: "write_failure", failWrite: true},
		{name: "close_failure", failClose: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			fetcher := newFakeFetcher()
			fetcher.pages["http://a.test"] = "#alpha #beta #gamma"

			task := NewTask("http://a.test", hashtagPattern(t), nil, fetcher, time.Second, dir, nil)
			task.openFile = func(path string) (outputFile, error) {
				f, err := createExclusive(path)
				if err != nil {
					return nil, err
				}
				return &failingFile{f: f.(*os.File), failWrite: tt.failWrite, failClose: tt.failClose}, nil
			}

			res := task.Run(context.Background())

			assert.False(t, res.Successful())
			assert.Equal(t, 0, res.MatchesFound())
			_, ok := res.OutputFilePath()
			assert.False(t, ok)
			var we *WriteError
			assert.ErrorAs(t, res.FailureCause(), &we)
			assert.Empty(t, listFiles(t, dir))
		})
	}
}

func TestTask_Run_EmptyPageIsSuccessful(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	extractor, err := extract.NewExtractor(httpclient.New(time.Second))
	require.NoError(t, err)

	dir := t.TempDir()
	res := NewTask(srv.URL, hashtagPattern(t), nil, extractor, time.Second, dir, nil).Run(context.Background())

	require.True(t, res.Successful(), res.Message())
	assert.Equal(t, 0, res.MatchesFound())
	assert.Contains(t, res.Message(), "Matches found: 0 - Result status is: Success")
	_, ok := res.OutputFilePath()
	assert.False(t, ok)
	assert.Empty(t, listFiles(t, dir))
}

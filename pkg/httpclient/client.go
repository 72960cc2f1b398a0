package httpclient

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	// DefaultHTTPTimeout は、タイムアウトが指定されなかった場合のデフォルト値です。
	DefaultHTTPTimeout = 10 * time.Second

	// UserAgent は、ヘッダーが一つも指定されなかった場合に付与する User-Agent です。
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
)

const (
	kindFetch        = "FetchError"
	kindFetchTimeout = "FetchTimeoutError"
)

// FetchError は、1つのURLの取得に失敗したことを示すエラーです。
// Timeout が true の場合はタイムアウトによる失敗です。
type FetchError struct {
	URL        string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("URL(%s)のフェッチがタイムアウトしました (timeout): %v", e.URL, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("URL(%s)のフェッチに失敗しました: ステータスコード %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("URL(%s)のフェッチに失敗しました: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Kind はレポートに表示するエラー種別名を返します。
func (e *FetchError) Kind() string {
	if e.Timeout {
		return kindFetchTimeout
	}
	return kindFetch
}

// IsTimeout は、エラーがフェッチのタイムアウトであるかを判定します。
func IsTimeout(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Timeout
}

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースです。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client は、ヘッダーとタイムアウトを適用してWebページを取得します。リトライは行いません。
type Client struct {
	httpClient Doer
	timeout    time.Duration
}

// ClientOption は Client の設定を行うための関数型です。
type ClientOption func(*Client)

// WithHTTPClient はカスタムの Doer を設定します。
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// New は新しい Client を生成します。timeout が0以下の場合は DefaultHTTPTimeout を使用します。
func New(timeout time.Duration, options ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Timeout は1回のフェッチに適用されるタイムアウトを返します。
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// FetchBytes はURLからコンテンツを取得し、UTF-8に変換したボディを返します。
// ボディのサイズに上限は設けません。
func (c *Client) FetchBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("GETリクエスト作成に失敗しました: %w", err)}
	}
	applyHeaders(req, headers)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.wrapError(ctx, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 接続を再利用できるようにボディを読み捨てる
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := decodeContent(resp)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, c.wrapError(ctx, url, fmt.Errorf("レスポンスボディの読み込みに失敗しました: %w", err))
	}
	// 空のボディはエラーではなく、空のページとして扱う
	if len(raw) == 0 {
		return []byte{}, nil
	}

	data, err := decodeCharset(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return data, nil
}

// wrapError は通信エラーを FetchError に変換し、タイムアウトを判別します。
func (c *Client) wrapError(ctx context.Context, url string, err error) error {
	timeout := errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	if timeout {
		return &FetchError{URL: url, Timeout: true, Err: fmt.Errorf("%s 以内に応答がありませんでした: %w", c.timeout, err)}
	}
	return &FetchError{URL: url, Err: fmt.Errorf("HTTPリクエストに失敗しました (ネットワーク/接続エラー): %w", err)}
}

// applyHeaders はヘッダーを設定します。ヘッダーが空の場合のみ既定の User-Agent を付与します。
func applyHeaders(req *http.Request, headers map[string]string) {
	if len(headers) == 0 {
		req.Header.Set("User-Agent", UserAgent)
		return
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

// decodeContent は Content-Encoding に応じてボディを展開します。
// Accept-Encoding を明示した場合、net/http は透過的な gzip 展開を行わないため、ここで展開します。
// 返される ReadCloser を閉じても resp.Body は閉じられません。
func decodeContent(resp *http.Response) (io.ReadCloser, error) {
	if resp.Uncompressed {
		return io.NopCloser(resp.Body), nil
	}
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if errors.Is(err, io.EOF) {
			return io.NopCloser(http.NoBody), nil
		}
		if err != nil {
			return nil, fmt.Errorf("gzip ボディの展開に失敗しました: %w", err)
		}
		return gz, nil
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if errors.Is(err, io.EOF) {
			return io.NopCloser(http.NoBody), nil
		}
		if err != nil {
			return nil, fmt.Errorf("deflate ボディの展開に失敗しました: %w", err)
		}
		return zr, nil
	default:
		return nil, fmt.Errorf("未対応の Content-Encoding です: %s", resp.Header.Get("Content-Encoding"))
	}
}

// decodeCharset は Content-Type と内容から文字コードを判定し、UTF-8 に変換します。
func decodeCharset(raw []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return nil, fmt.Errorf("文字コードの変換に失敗しました: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("文字コードの変換に失敗しました: %w", err)
	}
	return data, nil
}

package feed

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/shouni/go-web-analyzer/pkg/types"
)

// Fetcher は、Parserが依存するバイト列取得のインターフェースです。*httpclient.Client がこれを満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error)
}

// Parser は、RSS/Atom/JSONフィードを取得して解析します。
type Parser struct {
	client Fetcher
}

// NewParser は新しい Parser インスタンスを初期化し、依存関係を注入します。
func NewParser(client Fetcher) *Parser {
	return &Parser{client: client}
}

// FetchAndParse は指定されたURLからフィードを取得し、パースします。
func (p *Parser) FetchAndParse(ctx context.Context, feedURL string, headers map[string]string) (*gofeed.Feed, error) {
	body, err := p.client.FetchBytes(ctx, feedURL, headers)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得失敗 (URL: %s): %w", feedURL, err)
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("フィードのパース失敗 (URL: %s): %w", feedURL, err)
	}
	return parsed, nil
}

// FetchLinks はフィードのアイテムのリンクを解析対象のURLリストとして返します。
// フィードの取得や解析に失敗した場合は types.ErrInvalidInput をラップしたエラーを返します。
func (p *Parser) FetchLinks(ctx context.Context, feedURL string, headers map[string]string) ([]string, error) {
	parsed, err := p.FetchAndParse(ctx, feedURL, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	return Links(parsed, feedURL), nil
}

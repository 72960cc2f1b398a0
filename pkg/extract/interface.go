package extract

import (
	"context"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// Fetcher は、ヘッダーを適用してHTMLドキュメントの生バイト配列を取得する機能のインターフェースを定義します。
// Extractor は、この抽象に依存します。*httpclient.Client がこれを満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error)
}

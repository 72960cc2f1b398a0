package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrMalformedContent は、取得したコンテンツをHTMLとして解析できなかった場合のエラーです。
var ErrMalformedContent = errors.New("コンテンツの解析に失敗しました")

// ContentError は、取得したコンテンツの解析に失敗したことを示すエラーです。
// 取得失敗の一種として扱われ、errors.Is(err, ErrMalformedContent) が成り立ちます。
type ContentError struct {
	Err error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("%v: %v", ErrMalformedContent, e.Err)
}

func (e *ContentError) Unwrap() []error { return []error{ErrMalformedContent, e.Err} }

// Kind はレポートに表示するエラー種別名を返します。
func (e *ContentError) Kind() string { return "FetchError" }

// Extractor は、Fetcher を使ってページ本文のテキスト抽出プロセスを管理します。
type Extractor struct {
	fetcher Fetcher
}

// NewExtractor は、新しいExtractorのインスタンスを生成します。
func NewExtractor(fetcher Fetcher) (*Extractor, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("extract.NewExtractor: Fetcher cannot be nil")
	}
	return &Extractor{
		fetcher: fetcher,
	}, nil
}

// ----------------------------------------------------------------------
// 定数定義 (解析関連のみ)
// ----------------------------------------------------------------------

// noiseSelectors はレンダリングされないため本文から除去する要素です。
const noiseSelectors = "script, style, noscript, template"

// blockElements は前後に区切りを入れて描画する要素です。
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Details: true, atom.Div: true, atom.Dl: true,
	atom.Dt: true, atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true,
	atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true, atom.Hr: true,
	atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Summary: true, atom.Table: true,
	atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true, atom.Caption: true,
}

// ----------------------------------------------------------------------
// メイン関数 (メソッド化)
// ----------------------------------------------------------------------

// FetchAndExtractText は指定されたURLからコンテンツを取得し、マークアップを取り除いた本文テキストを返します。
func (e *Extractor) FetchAndExtractText(ctx context.Context, url string, headers map[string]string) (string, error) {
	// 1. Fetcherから生のバイト配列を取得 (通信の責務)
	htmlBytes, err := e.fetcher.FetchBytes(ctx, url, headers)
	if err != nil {
		return "", err
	}

	// 2. 本文テキストの描画 (解析の責務)
	return ExtractBodyText(bytes.NewReader(htmlBytes))
}

// ExtractBodyText はHTMLを解析し、<body> の描画テキストを返します。<body> がない場合はドキュメント全体を対象にします。
func ExtractBodyText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", &ContentError{Err: err}
	}

	doc.Find(noiseSelectors).Remove()

	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Selection
	}

	var sb strings.Builder
	for _, n := range root.Nodes {
		renderText(&sb, n)
	}
	return textUtils.NormalizeText(sb.String()), nil
}

// renderText はテキストノードを深さ優先で連結します。ブロック要素の前後には空白を入れ、隣接する単語が結合しないようにします。
func renderText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(sb, c)
	}
	if block {
		sb.WriteByte(' ')
	}
}

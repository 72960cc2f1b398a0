package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/go-web-analyzer/pkg/types"
)

// Preset は、あらかじめ定義された検索パターンの名前です。
type Preset string

const (
	// Hashtag は '#' で始まる単語にマッチします。
	Hashtag Preset = "HASHTAG"
	// Mention は '@' で始まる単語 (アカウント名) にマッチします。
	Mention Preset = "MENTION"

	// twitterAccount は Mention の別名です。
	twitterAccount Preset = "TWITTER_ACCOUNT"
)

var presetExpressions = map[Preset]string{
	Hashtag:        `(#\w+)\b`,
	Mention:        `(@\w+)\b`,
	twitterAccount: `(@\w+)\b`,
}

// SearchPattern は、コンパイル済みの検索パターンとその元の式を保持します。
// 生成後は変更されないため、複数のゴルーチンから同時に利用できます。
type SearchPattern struct {
	expression string
	re         *regexp.Regexp
}

// Compile は式をコンパイルし、SearchPattern を返します。
// 式が不正な場合、またはキャプチャグループを含まない場合は types.ErrInvalidPattern をラップしたエラーを返します。
func Compile(expression string) (*SearchPattern, error) {
	if expression == "" {
		return nil, fmt.Errorf("%w: 空の式", types.ErrInvalidPattern)
	}
	re, err := regexp.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidPattern, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: キャプチャグループがありません (%s)", types.ErrInvalidPattern, expression)
	}
	return &SearchPattern{expression: expression, re: re}, nil
}

// FromPreset はプリセット名 (大文字小文字を区別しない) から SearchPattern を生成します。
func FromPreset(name string) (*SearchPattern, error) {
	preset := Preset(strings.ToUpper(strings.TrimSpace(name)))
	expression, ok := presetExpressions[preset]
	if !ok {
		return nil, fmt.Errorf("%w: 未知のプリセット %q", types.ErrInvalidPattern, name)
	}
	return Compile(expression)
}

// Expression は元の式を返します。
func (p *SearchPattern) Expression() string {
	return p.expression
}

// ExtractAll は、テキスト内で重ならないすべてのマッチについて、最初のキャプチャグループの文字列を出現順に返します。
// マッチがない場合は空のスライスを返します。
func (p *SearchPattern) ExtractAll(text string) []string {
	matches := make([]string, 0)
	if text == "" {
		return matches
	}
	for _, m := range p.re.FindAllStringSubmatch(text, -1) {
		matches = append(matches, m[1])
	}
	return matches
}

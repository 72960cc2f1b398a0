package feed

import (
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Links は gofeed.Feed のアイテムからリンクを出現順に取り出します。
// 空のリンクは無視し、相対リンクは baseURL を基準に解決します。
func Links(f *gofeed.Feed, baseURL string) []string {
	if f == nil || len(f.Items) == 0 {
		return []string{}
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	urls := make([]string, 0, len(f.Items))
	for _, item := range f.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		urls = append(urls, resolve(base, link))
	}
	return urls
}

func resolve(base *url.URL, link string) string {
	if base == nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil || ref.IsAbs() {
		return link
	}
	return base.ResolveReference(ref).String()
}

package analyzer

import (
	"strings"

	"github.com/shouni/go-web-analyzer/pkg/types"
)

// Report は1回の解析実行のすべての結果を完了順に保持します。
type Report struct {
	results []types.AnalysisResult
}

// Results は結果のコピーを完了順に返します。
func (r *Report) Results() []types.AnalysisResult {
	out := make([]types.AnalysisResult, len(r.results))
	copy(out, r.results)
	return out
}

// Len は結果の件数を返します。
func (r *Report) Len() int { return len(r.results) }

// Succeeded は成功した結果の件数を返します。
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.results {
		if res.Successful() {
			n++
		}
	}
	return n
}

// Failed は失敗した結果の件数を返します。
func (r *Report) Failed() int { return r.Len() - r.Succeeded() }

// Text は各結果のメッセージを1行ずつ連結した集計レポートを返します。
func (r *Report) Text() string {
	var sb strings.Builder
	for _, res := range r.results {
		sb.WriteString(res.Message())
		sb.WriteString(lineSeparator)
	}
	return sb.String()
}

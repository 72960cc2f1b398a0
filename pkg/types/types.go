package types

import (
	"errors"
	"fmt"
	"time"
)

const (
	successMsg      = "Success"
	failMsg         = "Failed. Check logs for further details on the process. Exception cause: "
	notGeneratedMsg = "Not Generated"

	// UnexpectedErrorKind は、Kind を持たないエラーに割り当てられる種別名です。
	UnexpectedErrorKind = "UnexpectedError"
)

// Kinder は、レポートに表示するエラー種別名を提供するエラーが実装するインターフェースです。
type Kinder interface {
	Kind() string
}

// ErrorKind は、エラーチェーンから種別名を取得します。見つからない場合は UnexpectedErrorKind を返します。
func ErrorKind(err error) string {
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return UnexpectedErrorKind
}

// AnalysisResult は、1つのURLを処理した結果を保持する不変の値です。
// 生成は NewSuccessfulResult / NewEmptyResult / NewFailedResult のいずれかで行われ、生成後に変更されることはありません。
type AnalysisResult struct {
	url        string
	successful bool
	matches    int
	seconds    float64
	outputPath string
	cause      error
	message    string
}

// NewSuccessfulResult は、マッチ結果をファイルに書き出した成功結果を生成します。
func NewSuccessfulResult(url string, start, end time.Time, matches int, outputPath string) AnalysisResult {
	return newResult(url, start, end, nil, matches, outputPath)
}

// NewEmptyResult は、マッチが0件だった成功結果を生成します (出力ファイルなし)。
func NewEmptyResult(url string, start, end time.Time) AnalysisResult {
	return newResult(url, start, end, nil, 0, "")
}

// NewFailedResult は、処理中に発生したエラーを保持する失敗結果を生成します。
// cause が nil の場合でも失敗として扱われます。
func NewFailedResult(url string, start, end time.Time, cause error) AnalysisResult {
	if cause == nil {
		cause = errors.New("原因不明のエラー")
	}
	return newResult(url, start, end, cause, 0, "")
}

func newResult(url string, start, end time.Time, cause error, matches int, outputPath string) AnalysisResult {
	elapsed := end.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	r := AnalysisResult{
		url:        url,
		successful: cause == nil,
		matches:    matches,
		seconds:    elapsed.Seconds(),
		cause:      cause,
	}
	if r.successful && matches > 0 {
		r.outputPath = outputPath
	}
	if !r.successful {
		r.matches = 0
	}
	r.message = r.formatMessage()
	return r
}

func (r AnalysisResult) formatMessage() string {
	status := successMsg
	if !r.successful {
		status = failMsg + ErrorKind(r.cause) + ": " + r.cause.Error()
	}
	output := notGeneratedMsg
	if r.outputPath != "" {
		output = r.outputPath
	}
	return fmt.Sprintf("%s processed in %.4f seconds. Matches found: %d - Result status is: %s. Output file is: %s",
		r.url, r.seconds, r.matches, status, output)
}

// URL は処理対象のURLを返します。
func (r AnalysisResult) URL() string { return r.url }

// Successful は処理が成功したかどうかを返します。
func (r AnalysisResult) Successful() bool { return r.successful }

// MatchesFound は抽出されたマッチ数を返します。
func (r AnalysisResult) MatchesFound() int { return r.matches }

// ProcessTimeSeconds はタスクの処理時間 (秒) を返します。
func (r AnalysisResult) ProcessTimeSeconds() float64 { return r.seconds }

// OutputFilePath は書き出したファイルの絶対パスを返します。ファイルが生成されていない場合は false を返します。
func (r AnalysisResult) OutputFilePath() (string, bool) {
	return r.outputPath, r.outputPath != ""
}

// FailureCause は失敗の原因を返します。成功時は nil です。
func (r AnalysisResult) FailureCause() error { return r.cause }

// Message はレポート用の1行サマリーを返します。
func (r AnalysisResult) Message() string { return r.message }

func (r AnalysisResult) String() string { return r.message }

package types

import "errors"

// 実行全体を中断するエラー。タスクが1件もスケジュールされる前に呼び出し元へ返されます。
var (
	// ErrInvalidInput は、入力ファイルが指定されていない、存在しない、または通常ファイルではない場合のエラーです。
	ErrInvalidInput = errors.New("入力ファイルのパスが無効です")

	// ErrInvalidPattern は、検索パターンが未指定、またはコンパイルできない場合のエラーです。
	ErrInvalidPattern = errors.New("検索パターンが無効です。HASHTAG または MENTION を指定してください")

	// ErrNoContent は、重複排除と検証の後に処理対象のURLが残らなかった場合のエラーです。
	ErrNoContent = errors.New("入力に解析対象となる有効なURLが含まれていません")
)

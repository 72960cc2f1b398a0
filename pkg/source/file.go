package source

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/shouni/go-web-analyzer/pkg/types"
)

// maxLineSize は1行あたりに許容する最大バイト数です。
const maxLineSize = 1024 * 1024

// ReadURLFile は、1行1URLのファイルを読み込み、URLのリストを返します。
// 前後の空白は除去され、空行は無視されます。
// パスが空、存在しない、または通常ファイルではない場合は types.ErrInvalidInput をラップしたエラーを返します。
func ReadURLFile(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: パスが指定されていません", types.ErrInvalidInput)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidInput, path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: 通常ファイルではありません: %s", types.ErrInvalidInput, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidInput, path, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("入力ファイルの読み取りエラー (%s): %w", path, err)
	}
	return urls, nil
}

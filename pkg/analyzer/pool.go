package analyzer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-web-analyzer/pkg/types"
)

// DefaultPoolSize は、ワーカープールのデフォルトのワーカー数です。
const DefaultPoolSize = 3

// runPool は固定数のワーカーで全タスクを実行し、完了順に結果を返します。
// すべてのタスクが完了するまで戻りません。個々のタスクの失敗が他のタスクを止めることはありません。
func runPool(ctx context.Context, tasks []*Task, size int, onResult func(types.AnalysisResult)) []types.AnalysisResult {
	if size <= 0 {
		size = DefaultPoolSize
	}

	jobs := make(chan *Task)
	// 全件を受け取れるバッファを用意し、ワーカーが送信でブロックしないようにする
	resultsChan := make(chan types.AnalysisResult, len(tasks))

	// Task.Run はエラーを返さないため、errgroup は完了の待ち合わせにのみ使用する
	var g errgroup.Group
	for i := 0; i < size; i++ {
		g.Go(func() error {
			for task := range jobs {
				res := task.Run(ctx)
				if onResult != nil {
					onResult(res)
				}
				resultsChan <- res
			}
			return nil
		})
	}

	for _, task := range tasks {
		jobs <- task
	}
	close(jobs)

	_ = g.Wait()
	close(resultsChan)

	finalResults := make([]types.AnalysisResult, 0, len(tasks))
	for res := range resultsChan {
		finalResults = append(finalResults, res)
	}
	return finalResults
}

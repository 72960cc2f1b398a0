package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-web-analyzer/internal/pipeline"
	"github.com/shouni/go-web-analyzer/pkg/pattern"
)

var analyzeOpts pipeline.Options

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "URLリストの各ページからパターンにマッチする文字列を抽出し、ファイルに保存します",
	Long: `入力ファイル（1行1URL）またはフィードのURLリストを並列に取得し、
ページ本文から検索パターン（プリセットまたは正規表現）にマッチした文字列をURLごとのファイルに書き出します。
すべての処理の完了後、URLごとの結果レポートを表示します。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig == nil {
			return fmt.Errorf("設定が初期化されていません")
		}

		// 実行全体のタイムアウトは設けない (各タスクが個別のタイムアウトを持つ)
		report, err := pipeline.Run(context.Background(), appConfig, analyzeOpts, appLogger)
		if err != nil {
			appLogger.Error("解析を実行できませんでした", zap.Error(err))
			return err
		}

		if appConfig.ReportEnabled {
			fmt.Fprint(cmd.OutOrStdout(), report.Text())
		}

		appLogger.Info("処理が完了しました",
			zap.Int("total", report.Len()),
			zap.Int("succeeded", report.Succeeded()),
			zap.Int("failed", report.Failed()),
		)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOpts.InputPath, "input", "", "解析対象のURLを1行ずつ記載したファイル")
	analyzeCmd.Flags().StringVar(&analyzeOpts.FeedURL, "feed", "", "解析対象のURLリストとして使用するRSS/Atomフィードの URL")
	analyzeCmd.Flags().StringVar(&analyzeOpts.Pattern, "pattern", string(pattern.Hashtag), "検索パターン (HASHTAG, MENTION またはキャプチャグループを含む正規表現)")
	analyzeCmd.Flags().IntVarP(&analyzeOpts.PoolSize, "concurrency", "c", 0, "ワーカー数。設定ファイルの analyzer.worker.pool.size を上書き")
	analyzeCmd.Flags().StringVar(&analyzeOpts.MetricsFile, "metrics-file", "", "メトリクスを textfile collector 形式で書き出すパス")
}

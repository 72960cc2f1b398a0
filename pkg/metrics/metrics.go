package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shouni/go-web-analyzer/pkg/types"
)

const namespace = "web_analyzer"

// Metrics は1回の解析実行のメトリクスを専用のレジストリに記録します。
// analyzer.Recorder インターフェースを満たします。
type Metrics struct {
	registry *prometheus.Registry

	TasksTotal   *prometheus.CounterVec
	MatchesTotal prometheus.Counter
	TaskDuration prometheus.Histogram
	DroppedURLs  prometheus.Counter
}

// New はメトリクスを初期化します。
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		TasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "Total number of analysis tasks by status and failure kind.",
			},
			[]string{"status", "kind"}, // status: success, failure
		),
		MatchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Total number of pattern matches written to output files.",
		}),
		TaskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall-clock duration of analysis tasks.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		DroppedURLs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_urls_total",
			Help:      "URLs dropped because they failed scheme validation.",
		}),
	}
}

// ObserveResult は1件のタスク結果を記録します。
func (m *Metrics) ObserveResult(result types.AnalysisResult) {
	if result.Successful() {
		m.TasksTotal.WithLabelValues("success", "").Inc()
	} else {
		m.TasksTotal.WithLabelValues("failure", types.ErrorKind(result.FailureCause())).Inc()
	}
	m.MatchesTotal.Add(float64(result.MatchesFound()))
	m.TaskDuration.Observe(result.ProcessTimeSeconds())
}

// ObserveDropped は検証で除外されたURLの件数を記録します。
func (m *Metrics) ObserveDropped(n int) {
	if n > 0 {
		m.DroppedURLs.Add(float64(n))
	}
}

// Registry はメトリクスを保持するレジストリを返します。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile は node_exporter の textfile collector 形式でメトリクスをファイルに書き出します。
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

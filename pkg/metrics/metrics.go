package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		IngestDuration, IngestTotal, IngestStepTotal, IngestBytes,
		PoolAcquireDuration,
		AskDuration, AskTotal, AnswerCacheTotal,
		RateLimitWaitSeconds,
	)
}

// IngestDuration 单次入库耗时（秒）
var IngestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "planet_ingest_duration_seconds",
		Help:    "单次 PDF 入库耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

// IngestTotal 入库总数（按结果）
var IngestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "planet_ingest_total",
		Help: "PDF 入库总数（按结果）",
	},
	[]string{"outcome"}, // ok | unsupported_type | too_large | extraction_failed | storage_failed | persist_failed
)

// IngestStepTotal 管线各步骤结果
var IngestStepTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "planet_ingest_step_total",
		Help: "入库管线各步骤执行次数（按结果）",
	},
	[]string{"step", "outcome"},
)

// IngestBytes 成功入库的原始字节数
var IngestBytes = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "planet_ingest_bytes_total",
		Help: "成功入库的 PDF 字节总数",
	},
)

// PoolAcquireDuration 从连接池获取连接的耗时（秒）
var PoolAcquireDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "planet_db_pool_acquire_duration_seconds",
		Help:    "连接池 Acquire 耗时（秒）",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
	},
	[]string{"outcome"}, // ok | timeout | closed | error
)

// AskDuration 问答补全调用耗时（秒）
var AskDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "planet_ask_duration_seconds",
		Help:    "问答补全调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
)

// AskTotal 问答请求总数（按结果）
var AskTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "planet_ask_total",
		Help: "问答请求总数（按结果）",
	},
	[]string{"outcome"}, // ok | no_completion | error | cached
)

// AnswerCacheTotal 回答缓存命中情况
var AnswerCacheTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "planet_answer_cache_total",
		Help: "回答缓存查询次数（hit | miss）",
	},
	[]string{"result"},
)

// RateLimitWaitSeconds 限流等待耗时（秒），仅记录超过 100ms 的等待
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "planet_rate_limit_wait_seconds",
		Help:    "限流等待耗时（秒）",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
	},
	[]string{"scope", "provider"},
)

// PoolStats 连接池统计快照，由 pool 包实现
type PoolStats interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
	MaxConns() int32
}

// poolCollector 在抓取时读取连接池计数
type poolCollector struct {
	stat     func() PoolStats
	acquired *prometheus.Desc
	idle     *prometheus.Desc
	total    *prometheus.Desc
	max      *prometheus.Desc
}

// NewPoolCollector 创建连接池 Collector；stat 返回 nil 时（未初始化）不输出样本
func NewPoolCollector(stat func() PoolStats) prometheus.Collector {
	return &poolCollector{
		stat:     stat,
		acquired: prometheus.NewDesc("planet_db_pool_acquired_conns", "当前已借出的连接数", nil, nil),
		idle:     prometheus.NewDesc("planet_db_pool_idle_conns", "当前空闲连接数", nil, nil),
		total:    prometheus.NewDesc("planet_db_pool_total_conns", "当前连接总数", nil, nil),
		max:      prometheus.NewDesc("planet_db_pool_max_conns", "连接池上限", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stat()
	if s == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns()))
}

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。nil *Collector 上的记录方法都是空操作。
type Collector struct {
	// 列表拉取指标
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	// 线程分类指标
	threadsClassified *prometheus.CounterVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 提交指标
	submissionsTotal      *prometheus.CounterVec
	submissionDuration    *prometheus.HistogramVec
	submissionTransitions *prometheus.CounterVec
	streamEvents          *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器，注册到默认 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWithRegisterer(namespace, prometheus.DefaultRegisterer, logger)
}

// NewCollectorWithRegisterer 创建注册到指定 Registerer 的指标收集器
func NewCollectorWithRegisterer(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}
	factory := promauto.With(reg)

	// 列表拉取指标
	c.fetchTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thread_fetches_total",
			Help:      "Total number of thread list fetches by outcome",
		},
		[]string{"filter", "outcome"}, // outcome: committed, stale, failed, invalid
	)

	c.fetchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "thread_fetch_duration_seconds",
			Help:      "Thread list fetch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"filter"},
	)

	// 线程分类指标
	c.threadsClassified = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threads_classified_total",
			Help:      "Total number of classified threads by kind",
		},
		[]string{"kind"},
	)

	// 缓存指标
	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// 提交指标
	c.submissionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total number of human response submissions",
		},
		[]string{"kind", "outcome"},
	)

	c.submissionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Submission duration in seconds, stream included",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"kind"},
	)

	c.submissionTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_state_transitions_total",
			Help:      "Total number of submission state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	c.streamEvents = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_total",
			Help:      "Total number of run stream events received",
		},
		[]string{"event"},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 📋 列表拉取指标记录
// =============================================================================

// RecordFetch 记录一次列表拉取
func (c *Collector) RecordFetch(filter, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.fetchTotal.WithLabelValues(filter, outcome).Inc()
	c.fetchDuration.WithLabelValues(filter).Observe(duration.Seconds())
}

// RecordClassification 记录线程分类结果
func (c *Collector) RecordClassification(kind string) {
	if c == nil {
		return
	}
	c.threadsClassified.WithLabelValues(kind).Inc()
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// =============================================================================
// 📨 提交指标记录
// =============================================================================

// RecordSubmission 记录一次提交（submit / ignore / resolve）
func (c *Collector) RecordSubmission(kind, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.submissionsTotal.WithLabelValues(kind, outcome).Inc()
	c.submissionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordStateTransition 记录提交状态机的状态转换
func (c *Collector) RecordStateTransition(from, to string) {
	if c == nil {
		return
	}
	c.submissionTransitions.WithLabelValues(from, to).Inc()
}

// RecordStreamEvent 记录一个流式事件
func (c *Collector) RecordStreamEvent(event string) {
	if c == nil {
		return
	}
	if event == "" {
		event = "message"
	}
	c.streamEvents.WithLabelValues(event).Inc()
}

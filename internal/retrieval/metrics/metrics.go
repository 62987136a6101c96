// Package metrics 提供检索服务的业务指标收集。
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// RetrievalMetrics 检索服务业务指标。
type RetrievalMetrics struct {
	// 查询指标
	queriesTotal       uint64 // 总查询次数
	queriesCacheHits   uint64 // 缓存命中次数
	queriesCacheMisses uint64 // 缓存未命中次数
	queriesErrors      uint64 // 查询错误次数
	queriesDegraded    uint64 // 降级完成的查询次数
	queryDurationNs    int64  // 查询总耗时（纳秒）

	// 切换指标
	togglesTotal     uint64 // 成功的状态切换次数
	togglesNoop      uint64 // 幂等空操作次数
	togglesConflicts uint64 // 冲突失败次数

	// 审计指标
	auditWrites      uint64 // 审计写入次数
	auditWriteErrors uint64 // 审计写入失败次数

	// 摄取指标
	documentsIngested uint64 // 已摄取文档数
	chunksIngested    uint64 // 已摄取分块数
	ingestErrors      uint64 // 摄取错误次数

	startTime time.Time
}

var (
	global *RetrievalMetrics
	once   sync.Once
)

// Get 获取全局指标实例。
func Get() *RetrievalMetrics {
	once.Do(func() {
		global = &RetrievalMetrics{startTime: time.Now()}
	})
	return global
}

// RecordQuery 记录一次查询。
func (m *RetrievalMetrics) RecordQuery(duration time.Duration, cacheHit, degraded bool, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	atomic.AddInt64(&m.queryDurationNs, duration.Nanoseconds())
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.queriesCacheHits, 1)
	} else {
		atomic.AddUint64(&m.queriesCacheMisses, 1)
	}
	if degraded {
		atomic.AddUint64(&m.queriesDegraded, 1)
	}
}

// RecordToggle 记录一次状态切换。
func (m *RetrievalMetrics) RecordToggle(noop bool, err error) {
	if err != nil {
		atomic.AddUint64(&m.togglesConflicts, 1)
		return
	}
	if noop {
		atomic.AddUint64(&m.togglesNoop, 1)
		return
	}
	atomic.AddUint64(&m.togglesTotal, 1)
}

// RecordAuditWrite 记录一次审计写入。
func (m *RetrievalMetrics) RecordAuditWrite(err error) {
	atomic.AddUint64(&m.auditWrites, 1)
	if err != nil {
		atomic.AddUint64(&m.auditWriteErrors, 1)
	}
}

// RecordIngest 记录一次文档摄取。
func (m *RetrievalMetrics) RecordIngest(documents, chunks int, err error) {
	if err != nil {
		atomic.AddUint64(&m.ingestErrors, 1)
		return
	}
	atomic.AddUint64(&m.documentsIngested, uint64(documents))
	atomic.AddUint64(&m.chunksIngested, uint64(chunks))
}

// Stats 导出全部计数器。
func (m *RetrievalMetrics) Stats() map[string]interface{} {
	total := atomic.LoadUint64(&m.queriesTotal)
	durNs := atomic.LoadInt64(&m.queryDurationNs)

	var avgMs float64
	if total > 0 {
		avgMs = float64(durNs) / float64(total) / 1e6
	}

	return map[string]interface{}{
		"queries_total":        total,
		"queries_cache_hits":   atomic.LoadUint64(&m.queriesCacheHits),
		"queries_cache_misses": atomic.LoadUint64(&m.queriesCacheMisses),
		"queries_errors":       atomic.LoadUint64(&m.queriesErrors),
		"queries_degraded":     atomic.LoadUint64(&m.queriesDegraded),
		"query_avg_ms":         avgMs,
		"toggles_total":        atomic.LoadUint64(&m.togglesTotal),
		"toggles_noop":         atomic.LoadUint64(&m.togglesNoop),
		"toggles_conflicts":    atomic.LoadUint64(&m.togglesConflicts),
		"audit_writes":         atomic.LoadUint64(&m.auditWrites),
		"audit_write_errors":   atomic.LoadUint64(&m.auditWriteErrors),
		"documents_ingested":   atomic.LoadUint64(&m.documentsIngested),
		"chunks_ingested":      atomic.LoadUint64(&m.chunksIngested),
		"ingest_errors":        atomic.LoadUint64(&m.ingestErrors),
		"uptime_seconds":       time.Since(m.startTime).Seconds(),
	}
}

// Reset 清零所有计数器，仅用于测试。
func (m *RetrievalMetrics) Reset() {
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesCacheHits, 0)
	atomic.StoreUint64(&m.queriesCacheMisses, 0)
	atomic.StoreUint64(&m.queriesErrors, 0)
	atomic.StoreUint64(&m.queriesDegraded, 0)
	atomic.StoreInt64(&m.queryDurationNs, 0)
	atomic.StoreUint64(&m.togglesTotal, 0)
	atomic.StoreUint64(&m.togglesNoop, 0)
	atomic.StoreUint64(&m.togglesConflicts, 0)
	atomic.StoreUint64(&m.auditWrites, 0)
	atomic.StoreUint64(&m.auditWriteErrors, 0)
	atomic.StoreUint64(&m.documentsIngested, 0)
	atomic.StoreUint64(&m.chunksIngested, 0)
	atomic.StoreUint64(&m.ingestErrors, 0)
	m.startTime = time.Now()
}

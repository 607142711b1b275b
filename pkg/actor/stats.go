package actor

import (
	"sync"
	"time"
)

// ActorStats Actor 运行时统计信息
type ActorStats struct {
	MessagesReceived int64 // 接收的消息总数
	MessagesHandled  int64 // 成功处理的消息数
	Errors           int64 // 错误数

	AverageLatency time.Duration // 平均处理延迟
	MaxLatency     time.Duration // 最大处理延迟

	StartedAt     time.Time // 启动时间
	LastMessageAt time.Time // 最后消息时间
	LastError     error     // 最后一个错误
}

// StatsCollector 线程安全的统计收集器
type StatsCollector struct {
	mu           sync.RWMutex
	stats        ActorStats
	totalLatency time.Duration
}

// NewStatsCollector 创建统计收集器
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		stats: ActorStats{StartedAt: time.Now()},
	}
}

// RecordReceived 记录接收消息
func (c *StatsCollector) RecordReceived() {
	c.mu.Lock()
	c.stats.MessagesReceived++
	c.stats.LastMessageAt = time.Now()
	c.mu.Unlock()
}

// RecordHandled 记录成功处理消息
func (c *StatsCollector) RecordHandled(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.MessagesHandled++
	c.totalLatency += latency
	c.stats.AverageLatency = c.totalLatency / time.Duration(c.stats.MessagesHandled)
	if latency > c.stats.MaxLatency {
		c.stats.MaxLatency = latency
	}
}

// RecordError 记录错误
func (c *StatsCollector) RecordError(err error) {
	c.mu.Lock()
	c.stats.Errors++
	c.stats.LastError = err
	c.mu.Unlock()
}

// Stats 获取统计信息快照
func (c *StatsCollector) Stats() *ActorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := c.stats
	return &snapshot
}

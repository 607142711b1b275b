package history

import (
	"fmt"
	"sync"
	"time"
)

// SenderMismatchError 同一 message_id 下出现不同发送者
type SenderMismatchError struct {
	MessageID string
	Expected  string
	Got       string
}

// Error 实现 error 接口
func (e *SenderMismatchError) Error() string {
	return fmt.Sprintf("message_id %s belongs to sender %s, got %s", e.MessageID, e.Expected, e.Got)
}

// Log 会话历史
//
// 只追加的记录序列，支持游标式增量读取：调用方记住上次读到的
// 游标，下次只取新增部分。私下消息不应写入历史 —— 这一点由
// 路由层保证，Log 本身不区分。
//
// Thread Safety: Log 是并发安全的。
type Log struct {
	mu      sync.RWMutex
	records []Record
	senders map[string]string // message_id -> sender

	store *Store // 可选持久化
}

// LogOption Log 配置选项
type LogOption func(*Log)

// WithStore 设置持久化存储，Append 成功后同步写入
func WithStore(store *Store) LogOption {
	return func(l *Log) { l.store = store }
}

// NewLog 创建会话历史
func NewLog(opts ...LogOption) *Log {
	l := &Log{
		records: make([]Record, 0),
		senders: make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append 追加记录
//
// 不变量：同一 message_id 的所有记录必须来自同一发送者；
// 违反时拒绝追加并返回 [SenderMismatchError]。
func (l *Log) Append(r Record) error {
	if r.MessageID == "" {
		return fmt.Errorf("record message_id cannot be empty")
	}
	if r.Sender == "" {
		return fmt.Errorf("record sender cannot be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if owner, ok := l.senders[r.MessageID]; ok && owner != r.Sender {
		return &SenderMismatchError{MessageID: r.MessageID, Expected: owner, Got: r.Sender}
	}

	l.records = append(l.records, r)
	l.senders[r.MessageID] = r.Sender

	if l.store != nil {
		if err := l.store.Write(r); err != nil {
			// 内存中已提交，持久化失败只上报不回滚
			return fmt.Errorf("record persisted to memory but store write failed: %w", err)
		}
	}
	return nil
}

// Restore 从持久化存储恢复会话历史
//
// 读取时间戳不早于 since 的记录（零值表示全部）装入内存，
// 并重建 message_id 归属索引。内存中已有记录时跳过恢复。
// 返回恢复的记录条数。
func (l *Log) Restore(since time.Time) (int, error) {
	if l.store == nil {
		return 0, nil
	}

	records, err := l.store.ReadSince(since)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) > 0 {
		return 0, nil
	}

	for _, r := range records {
		l.records = append(l.records, r)
		if _, ok := l.senders[r.MessageID]; !ok {
			l.senders[r.MessageID] = r.Sender
		}
	}
	return len(records), nil
}

// Load 从游标处增量读取
//
// since 是上次读取返回的游标（首次传 0），返回新增记录的副本
// 和新的游标。游标越界时返回空片段和当前长度。
func (l *Log) Load(since int) ([]Record, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if since < 0 {
		since = 0
	}
	if since >= len(l.records) {
		return nil, len(l.records)
	}

	out := make([]Record, len(l.records)-since)
	copy(out, l.records[since:])
	return out, len(l.records)
}

// All 返回全部记录副本
func (l *Log) All() []Record {
	records, _ := l.Load(0)
	return records
}

// Len 返回记录数，可直接用作下一次 Load 的游标
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Bundles 把全部记录按 message_id 归拢为逻辑发言
//
// 归拢是幂等的：分组顺序由 message_id 的首次出现决定，
// 与碎片追加的交错方式无关，重复归拢得到相同结果。
func (l *Log) Bundles() []Bundle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return groupRecords(l.records)
}

// GroupRecords 把任意记录序列按 message_id 归拢
func GroupRecords(records []Record) []Bundle {
	return groupRecords(records)
}

func groupRecords(records []Record) []Bundle {
	index := make(map[string]int)
	bundles := make([]Bundle, 0)

	for _, r := range records {
		i, ok := index[r.MessageID]
		if !ok {
			i = len(bundles)
			index[r.MessageID] = i
			bundles = append(bundles, Bundle{
				MessageID: r.MessageID,
				Sender:    r.Sender,
			})
		}
		bundles[i].Records = append(bundles[i].Records, r)
	}
	return bundles
}

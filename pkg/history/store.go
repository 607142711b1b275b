package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store 历史记录的 JSONL 持久化
//
// 每条记录一行 JSON，只追加。适合会话重放与离线分析，
// 不做索引，读取是全量扫描。
//
// Thread Safety: Store 是并发安全的。
type Store struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
}

// OpenStore 打开（必要时创建）存储文件
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store file: %w", err)
	}

	return &Store{
		path: path,
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Write 追加一条记录
func (s *Store) Write(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("store is closed")
	}
	if err := s.enc.Encode(r); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

// ReadAll 读取全部记录
//
// 无法解析的行被跳过，不中断读取。
func (s *Store) ReadAll() ([]Record, error) {
	s.mu.Lock()
	path := s.path
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open store file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("scan store file: %w", err)
	}
	return records, nil
}

// ReadSince 读取时间戳不早于 since 的记录
func (s *Store) ReadSince(since time.Time) ([]Record, error) {
	all, err := s.ReadAll()
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, r := range all {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Close 关闭存储文件
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store 计划状态的 JSON 持久化
//
// 每个计划一个文件（<plan-id>.json），每次变更落定后整体覆写。
// 内存永远是事实来源，持久化失败只上报不回滚。
//
// Thread Safety: Store 是并发安全的。
type Store struct {
	mu  sync.Mutex
	dir string
}

// OpenPlanStore 打开（必要时创建）存储目录
func OpenPlanStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plan store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save 覆写一个计划的持久化快照
func (s *Store) Save(p *Plan) error {
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan %s: %w", p.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.path(p.ID), raw, 0o644); err != nil {
		return fmt.Errorf("write plan %s: %w", p.ID, err)
	}
	return nil
}

// Delete 移除一个计划的持久化快照
func (s *Store) Delete(planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(planID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove plan %s: %w", planID, err)
	}
	return nil
}

// LoadAll 读取全部持久化的计划
//
// 无法解析的文件被跳过，不中断读取。
func (s *Store) LoadAll() ([]*Plan, error) {
	s.mu.Lock()
	dir := s.dir
	s.mu.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read plan store directory: %w", err)
	}

	var plans []*Plan
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var p Plan
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		plans = append(plans, &p)
	}
	sortPlansByCreation(plans)
	return plans, nil
}

func (s *Store) path(planID string) string {
	return filepath.Join(s.dir, planID+".json")
}

package crew

import (
	"sort"
	"strings"
	"sync"
)

// Registry 剧组成员注册表
//
// 维护两个显式索引：按唯一名称、按职位列表。
// 解析顺序与并列规则见 [Registry.Resolve]。
//
// Thread Safety: Registry 是并发安全的，所有方法都使用读写锁保护。
type Registry struct {
	mu sync.RWMutex

	// 索引
	byName  map[string]*memberEntry
	byTitle map[Title][]*memberEntry

	// 重要性排序（配置，注册后不变）
	order []Title
	rank  map[Title]int

	// 注册序号，用于稳定并列裁决
	seq int
}

// memberEntry 成员及其注册序号
type memberEntry struct {
	member *Member
	seq    int
}

// RegistryOption Registry 配置选项
type RegistryOption func(*Registry)

// WithTitleOrder 设置职位重要性排序
// 未列出的职位排在所有已列出职位之后
func WithTitleOrder(order []Title) RegistryOption {
	return func(r *Registry) {
		r.order = order
	}
}

// NewRegistry 创建注册表
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byName:  make(map[string]*memberEntry),
		byTitle: make(map[Title][]*memberEntry),
		order:   DefaultTitleOrder,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.rank = make(map[Title]int, len(r.order))
	for i, t := range r.order {
		r.rank[t] = i
	}
	return r
}

// rankOf 返回职位的重要性等级，未列出的职位排最后
func (r *Registry) rankOf(t Title) int {
	if rank, ok := r.rank[t]; ok {
		return rank
	}
	return len(r.order)
}

// Register 注册成员
//
// 名称必须唯一，冲突返回 [DuplicateNameError]；
// 职位允许重复，多名成员可以共享同一职位。
func (r *Registry) Register(m *Member) error {
	if err := m.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.TrimSpace(m.Name)
	if _, exists := r.byName[name]; exists {
		return &DuplicateNameError{Name: name}
	}

	r.seq++
	entry := &memberEntry{member: m, seq: r.seq}
	r.byName[name] = entry
	r.byTitle[m.Title] = append(r.byTitle[m.Title], entry)
	return nil
}

// Update 更新成员定义
//
// 按名称定位，名称本身不可变；职位变更会同步重建职位索引。
// 注册序号保持不变，不影响并列裁决。
func (r *Registry) Update(name string, m *Member) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(m.Name) != strings.TrimSpace(name) {
		return &InvalidMemberError{Reason: "member name cannot be changed by update"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.byName[strings.TrimSpace(name)]
	if !exists {
		return &NotFoundError{Name: name}
	}

	oldTitle := entry.member.Title
	entry.member = m
	if oldTitle != m.Title {
		r.removeFromTitleIndex(oldTitle, entry)
		r.byTitle[m.Title] = append(r.byTitle[m.Title], entry)
	}
	return nil
}

// Remove 移除成员
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.byName[strings.TrimSpace(name)]
	if !exists {
		return &NotFoundError{Name: name}
	}

	delete(r.byName, strings.TrimSpace(name))
	r.removeFromTitleIndex(entry.member.Title, entry)
	return nil
}

// removeFromTitleIndex 从职位索引中删除条目（需持有写锁）
func (r *Registry) removeFromTitleIndex(t Title, entry *memberEntry) {
	entries := r.byTitle[t]
	for i, e := range entries {
		if e == entry {
			r.byTitle[t] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(r.byTitle[t]) == 0 {
		delete(r.byTitle, t)
	}
}

// Get 按名称精确查找
func (r *Registry) Get(name string) (*Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.byName[strings.TrimSpace(name)]; ok {
		return entry.member, true
	}
	return nil, false
}

// Resolve 按名称或职位解析成员
//
// 解析规则（显式文档化，不依赖 map 迭代顺序）：
//  1. 先按名称精确匹配；
//  2. 再按职位匹配，多名成员共享职位时选择重要性最高者，
//     重要性相同时选择最早注册者；
//  3. 都不匹配返回 [UnknownCrewMemberError]。
func (r *Registry) Resolve(identifier string) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id := strings.TrimSpace(identifier)
	if entry, ok := r.byName[id]; ok {
		return entry.member, nil
	}

	if entries, ok := r.byTitle[Title(strings.ToLower(id))]; ok && len(entries) > 0 {
		best := entries[0]
		for _, e := range entries[1:] {
			if r.less(e, best) {
				best = e
			}
		}
		return best.member, nil
	}

	return nil, &UnknownCrewMemberError{Identifier: identifier}
}

// less 判断 a 是否优先于 b：重要性高者优先，其次先注册者优先
func (r *Registry) less(a, b *memberEntry) bool {
	ra, rb := r.rankOf(a.member.Title), r.rankOf(b.member.Title)
	if ra != rb {
		return ra < rb
	}
	return a.seq < b.seq
}

// ListOrdered 返回按重要性排序的全部成员
//
// 排序依据注入的职位全序，重要性相同时按注册顺序。
func (r *Registry) ListOrdered() []*Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*memberEntry, 0, len(r.byName))
	for _, e := range r.byName {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return r.less(entries[i], entries[j])
	})

	members := make([]*Member, len(entries))
	for i, e := range entries {
		members[i] = e.member
	}
	return members
}

// Default 返回默认响应者（重要性最高的成员，通常是 producer）
func (r *Registry) Default() (*Member, bool) {
	members := r.ListOrdered()
	if len(members) == 0 {
		return nil, false
	}
	return members[0], true
}

// Len 返回成员数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

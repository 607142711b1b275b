package tool

import (
	"context"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/crew"
)

// CrewTool crew_member 技能
//
// operation 决定动作：create | delete | update | get | list。
// 名称唯一性、保留职位等校验由注册表完成。
type CrewTool struct {
	registry *crew.Registry

	// onCreate 成员注册成功后的回调（典型用法：拉起对应的
	// MemberActor）。可以为 nil。
	onCreate func(m *crew.Member) error
	// onDelete 成员移除成功后的回调。可以为 nil。
	onDelete func(name string)
}

// CrewToolOption CrewTool 配置选项
type CrewToolOption func(*CrewTool)

// WithOnCreate 设置成员注册成功后的回调
func WithOnCreate(fn func(m *crew.Member) error) CrewToolOption {
	return func(t *CrewTool) { t.onCreate = fn }
}

// WithOnDelete 设置成员移除成功后的回调
func WithOnDelete(fn func(name string)) CrewToolOption {
	return func(t *CrewTool) { t.onDelete = fn }
}

// NewCrewTool 创建 crew_member 技能
func NewCrewTool(registry *crew.Registry, opts ...CrewToolOption) *CrewTool {
	t := &CrewTool{registry: registry}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name 技能名
func (t *CrewTool) Name() string { return "crew_member" }

// crewInput crew_member 技能输入
type crewInput struct {
	Operation string       `json:"operation"`
	Name      string       `json:"name,omitempty"`
	Member    *crew.Member `json:"member,omitempty"`
}

// Handle 处理 crew_member 技能调用
func (t *CrewTool) Handle(_ context.Context, input map[string]any) Result {
	var in crewInput
	if err := decodeInto(input, &in); err != nil {
		return Fail(err)
	}

	switch in.Operation {
	case "create":
		if in.Member == nil {
			return Failf("crew_member create requires a member definition")
		}
		if err := t.registry.Register(in.Member); err != nil {
			return Fail(err)
		}
		if t.onCreate != nil {
			if err := t.onCreate(in.Member); err != nil {
				// 回滚注册，保持注册表与运行实例一致
				_ = t.registry.Remove(in.Member.Name)
				return Fail(err)
			}
		}
		return OK("crew member created: "+in.Member.Name, in.Member)

	case "delete":
		if err := t.registry.Remove(in.Name); err != nil {
			return Fail(err)
		}
		if t.onDelete != nil {
			t.onDelete(in.Name)
		}
		return OK("crew member removed: "+in.Name, nil)

	case "update":
		if in.Member == nil {
			return Failf("crew_member update requires a member definition")
		}
		name := in.Name
		if name == "" {
			name = in.Member.Name
		}
		if err := t.registry.Update(name, in.Member); err != nil {
			return Fail(err)
		}
		return OK("crew member updated: "+name, in.Member)

	case "get":
		m, ok := t.registry.Get(in.Name)
		if !ok {
			return Fail(&crew.NotFoundError{Name: in.Name})
		}
		return OK("", m)

	case "list":
		return OK("", t.registry.ListOrdered())

	default:
		return Failf("unknown crew_member operation: %q", in.Operation)
	}
}

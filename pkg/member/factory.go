package member

import (
	"fmt"
	"strings"
	"time"

	baseagent "github.com/lwmacct/251215-go-pkg-agent/pkg/agent"
	"github.com/lwmacct/251215-go-pkg-llm/pkg/llm"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/actor"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/crew"
)

// Factory 成员 Actor 工厂
//
// 从成员档案批量创建配置相似的 MemberActor 实例。
// 档案中的 soul/description/skills 被拼装为系统提示词。
type Factory struct {
	provider    llm.Provider
	defaultOpts []baseagent.Option
	memberOpts  []MemberOption
}

// NewFactory 创建工厂
//
// memberOpts 会应用到每个创建出的 MemberActor
// （典型用法：统一接上事件总线、会话历史和调度器）。
func NewFactory(p llm.Provider, memberOpts ...MemberOption) *Factory {
	return &Factory{
		provider:   p,
		memberOpts: memberOpts,
	}
}

// WithDefaultAgentOptions 设置创建底层 Agent 的默认选项
func (f *Factory) WithDefaultAgentOptions(opts ...baseagent.Option) *Factory {
	f.defaultOpts = append(f.defaultOpts, opts...)
	return f
}

// Create 从档案创建 MemberActor
func (f *Factory) Create(profile *crew.Member, opts ...baseagent.Option) (*MemberActor, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	allOpts := make([]baseagent.Option, 0, len(f.defaultOpts)+len(opts)+4)
	allOpts = append(allOpts,
		baseagent.WithID(profile.Name),
		baseagent.WithName(profile.Name),
		baseagent.WithPrompt(systemPrompt(profile)),
	)
	allOpts = append(allOpts, f.defaultOpts...)
	allOpts = append(allOpts, opts...)
	if f.provider != nil {
		allOpts = append(allOpts, baseagent.WithProvider(f.provider))
	}

	ag, err := baseagent.NewAgent(allOpts...)
	if err != nil {
		return nil, fmt.Errorf("create agent for member %s: %w", profile.Name, err)
	}

	return New(profile.Clone(), ag, f.memberOpts...), nil
}

// CreateAndSpawn 创建并在 Actor 系统中启动
//
// Actor 名取成员名，因此可以用成员名从系统中反查 PID。
func (f *Factory) CreateAndSpawn(
	system *actor.System,
	profile *crew.Member,
	opts ...baseagent.Option,
) (*actor.PID, error) {
	ma, err := f.Create(profile, opts...)
	if err != nil {
		return nil, err
	}

	props := actor.DefaultProps(profile.Name).
		WithMailboxSize(100).
		WithSupervisor(actor.NewOneForOneStrategy(3, time.Minute, actor.DefaultDecider))

	pid := system.SpawnWithProps(ma, props)
	return pid, nil
}

// systemPrompt 从成员档案拼装系统提示词
func systemPrompt(p *crew.Member) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, the %s of the crew.\n", p.Name, p.Title)
	if p.Description != "" {
		b.WriteString(p.Description)
		b.WriteString("\n")
	}
	if p.Soul != "" {
		b.WriteString("\n")
		b.WriteString(p.Soul)
		b.WriteString("\n")
	}
	if len(p.Skills) > 0 {
		b.WriteString("\nYour available skills: ")
		b.WriteString(strings.Join(p.Skills, ", "))
		b.WriteString(".\n")
	}
	if p.Prompt != "" {
		b.WriteString("\n")
		b.WriteString(p.Prompt)
	}
	return b.String()
}

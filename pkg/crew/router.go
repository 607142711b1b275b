package crew

import (
	"log/slog"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// 消息路由
// ═══════════════════════════════════════════════════════════════════════════

// DecisionMode 路由决策类别
type DecisionMode int

const (
	// ModeProducerDefault 无显式地址，路由给重要性最高的成员
	ModeProducerDefault DecisionMode = iota
	// ModeExplicitTarget 消息中带显式地址（@name 或 @title）
	ModeExplicitTarget
	// ModePrivateTarget 私信直达，绕过路由与会话历史
	ModePrivateTarget
)

// String 返回决策类别名称
func (m DecisionMode) String() string {
	switch m {
	case ModeProducerDefault:
		return "producer_default"
	case ModeExplicitTarget:
		return "explicit_target"
	case ModePrivateTarget:
		return "private_target"
	default:
		return "unknown"
	}
}

// Decision 路由决策
type Decision struct {
	Mode   DecisionMode
	Target *Member
}

// Inbound 待路由的入站消息
type Inbound struct {
	// Sender 发送者（成员名称或 "user"）
	Sender string
	// Text 消息正文
	Text string
}

// Router 消息路由器
//
// 路由是确定性的：相同的消息与相同的注册表内容必然得到相同的决策。
type Router struct {
	registry *Registry
	logger   *slog.Logger
}

// NewRouter 创建路由器
func NewRouter(registry *Registry) *Router {
	return &Router{
		registry: registry,
		logger:   slog.Default(),
	}
}

// NewRouterWithLogger 创建带日志的路由器
func NewRouterWithLogger(registry *Registry, logger *slog.Logger) *Router {
	r := NewRouter(registry)
	r.logger = logger
	return r
}

// Route 为入站消息产生路由决策
//
// 规则：
//   - 消息中（开头或文中）出现 @name 或 @title 且可解析，
//     路由为 ExplicitTarget；
//   - @地址无法解析，返回 [UnknownCrewMemberError]（不静默回退）；
//   - 解析结果是发送者自己时忽略该地址（禁止自寻址环），继续扫描；
//   - 没有任何显式地址时，路由为 ProducerDefault ——
//     重要性最高的成员兜底，发送者自己除外。
func (r *Router) Route(in Inbound) (Decision, error) {
	for _, mention := range extractMentions(in.Text) {
		target, err := r.registry.Resolve(mention)
		if err != nil {
			r.logger.Warn("unresolvable explicit address", "mention", mention, "sender", in.Sender)
			return Decision{}, err
		}
		if target.Name == in.Sender {
			// 自寻址环，忽略这条地址
			continue
		}
		return Decision{Mode: ModeExplicitTarget, Target: target}, nil
	}

	target, err := r.defaultResponder(in.Sender)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Mode: ModeProducerDefault, Target: target}, nil
}

// Specify 解析显式指定的收件人
//
// 与消息正文中的 @地址等价（ExplicitTarget），走正常的
// 会话历史；speak_to 的 specify 模式使用它。
func (r *Router) Specify(sender, recipient string) (Decision, error) {
	target, err := r.registry.Resolve(recipient)
	if err != nil {
		return Decision{}, err
	}
	if target.Name == sender {
		return Decision{}, &UnknownCrewMemberError{Identifier: recipient}
	}
	return Decision{Mode: ModeExplicitTarget, Target: target}, nil
}

// Private 解析私信收件人
//
// 私信不经过 Route，也绝不写入会话历史；这是可见性契约，
// 由调用方（speak_to 的 private 模式）保证。
func (r *Router) Private(sender, recipient string) (Decision, error) {
	target, err := r.registry.Resolve(recipient)
	if err != nil {
		return Decision{}, err
	}
	if target.Name == sender {
		return Decision{}, &UnknownCrewMemberError{Identifier: recipient}
	}
	return Decision{Mode: ModePrivateTarget, Target: target}, nil
}

// defaultResponder 按重要性排序选择兜底响应者，排除发送者自身
func (r *Router) defaultResponder(sender string) (*Member, error) {
	for _, m := range r.registry.ListOrdered() {
		if m.Name != sender {
			return m, nil
		}
	}
	return nil, &UnknownCrewMemberError{Identifier: "(default responder)"}
}

// extractMentions 提取消息中的 @地址，保持出现顺序
func extractMentions(text string) []string {
	var mentions []string
	for _, token := range strings.Fields(text) {
		if !strings.HasPrefix(token, "@") || len(token) < 2 {
			continue
		}
		mention := strings.TrimRight(token[1:], ",.!?:;")
		if mention != "" {
			mentions = append(mentions, mention)
		}
	}
	return mentions
}

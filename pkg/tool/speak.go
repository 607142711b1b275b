package tool

import (
	"context"

	"github.com/google/uuid"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/crew"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/history"
)

// DeliverFunc 把消息投递给路由决策选中的成员
//
// private 为 true 时投递方必须保证该消息不进入任何共享可见面。
type DeliverFunc func(ctx context.Context, decision crew.Decision, text, messageID string) error

// SpeakTool speak_to 技能
//
// mode 决定可见性与寻址：
//   - public: 走路由（@地址或兜底响应者），写入会话历史
//   - specify: 显式收件人，等价于 @地址，写入会话历史
//   - private: 点对点直达，绕过路由器的兜底逻辑，且绝不写入
//     会话历史
type SpeakTool struct {
	sender  string
	router  *crew.Router
	log     *history.Log
	deliver DeliverFunc
}

// NewSpeakTool 创建 speak_to 技能
//
// log 和 deliver 都可以为 nil：前者关闭历史记录（调试用），
// 后者让技能只做路由决策不实际投递。
func NewSpeakTool(sender string, router *crew.Router, log *history.Log, deliver DeliverFunc) *SpeakTool {
	return &SpeakTool{
		sender:  sender,
		router:  router,
		log:     log,
		deliver: deliver,
	}
}

// Name 技能名
func (t *SpeakTool) Name() string { return "speak_to" }

// speakInput speak_to 技能输入
type speakInput struct {
	Mode string `json:"mode"`
	To   string `json:"to,omitempty"`
	Text string `json:"text"`
}

// Handle 处理 speak_to 技能调用
func (t *SpeakTool) Handle(ctx context.Context, input map[string]any) Result {
	var in speakInput
	if err := decodeInto(input, &in); err != nil {
		return Fail(err)
	}
	if in.Text == "" {
		return Failf("speak_to requires text")
	}

	var decision crew.Decision
	var err error

	switch in.Mode {
	case "", "public":
		decision, err = t.router.Route(crew.Inbound{Sender: t.sender, Text: in.Text})
	case "specify":
		decision, err = t.router.Specify(t.sender, in.To)
	case "private":
		decision, err = t.router.Private(t.sender, in.To)
	default:
		return Failf("unknown speak_to mode: %q", in.Mode)
	}
	if err != nil {
		return Fail(err)
	}

	messageID := uuid.NewString()

	// 私下消息绕过会话历史
	if decision.Mode != crew.ModePrivateTarget && t.log != nil {
		r := history.NewRecord(messageID, t.sender, history.TextBlock(in.Text))
		r.Recipient = decision.Target.Name
		if err := t.log.Append(r); err != nil {
			return Fail(err)
		}
	}

	if t.deliver != nil {
		if err := t.deliver(ctx, decision, in.Text, messageID); err != nil {
			return Fail(err)
		}
	}

	return OK("delivered to "+decision.Target.Name, map[string]string{
		"target":     decision.Target.Name,
		"mode":       decision.Mode.String(),
		"message_id": messageID,
	})
}

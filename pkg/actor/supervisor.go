package actor

import (
	"sync"
	"time"
)

// Directive 监督指令
type Directive int

const (
	// DirectiveResume 恢复 Actor，继续处理后续消息
	DirectiveResume Directive = iota
	// DirectiveRestart 重启 Actor
	DirectiveRestart
	// DirectiveStop 停止 Actor
	DirectiveStop
)

// String 返回指令名称
func (d Directive) String() string {
	switch d {
	case DirectiveResume:
		return "Resume"
	case DirectiveRestart:
		return "Restart"
	case DirectiveStop:
		return "Stop"
	default:
		return "Unknown"
	}
}

// SupervisorStrategy 监督策略接口
type SupervisorStrategy interface {
	// HandleFailure 处理 Actor panic，返回应采取的指令
	HandleFailure(child *PID, msg Message, err any) Directive
}

// Decider 决策函数类型
type Decider func(err any) Directive

// DefaultDecider 默认决策：重启
func DefaultDecider(_ any) Directive {
	return DirectiveRestart
}

// OneForOneStrategy 一对一策略
// 只处理失败的 Actor，不影响其他 Actor。
// 时间窗口内重启次数超限后直接停止。
type OneForOneStrategy struct {
	MaxRestarts    int           // 最大重启次数
	WithinDuration time.Duration // 时间窗口
	Decider        Decider       // 决策函数

	mu            sync.Mutex
	restartWindow []time.Time
}

// NewOneForOneStrategy 创建一对一策略
func NewOneForOneStrategy(maxRestarts int, within time.Duration, decider Decider) *OneForOneStrategy {
	if decider == nil {
		decider = DefaultDecider
	}
	return &OneForOneStrategy{
		MaxRestarts:    maxRestarts,
		WithinDuration: within,
		Decider:        decider,
	}
}

// HandleFailure 实现 SupervisorStrategy
func (s *OneForOneStrategy) HandleFailure(_ *PID, _ Message, err any) Directive {
	directive := s.Decider(err)

	if directive == DirectiveRestart {
		s.mu.Lock()
		defer s.mu.Unlock()

		now := time.Now()
		cutoff := now.Add(-s.WithinDuration)

		valid := s.restartWindow[:0]
		for _, t := range s.restartWindow {
			if t.After(cutoff) {
				valid = append(valid, t)
			}
		}
		s.restartWindow = valid

		if len(s.restartWindow) >= s.MaxRestarts {
			return DirectiveStop
		}
		s.restartWindow = append(s.restartWindow, now)
	}

	return directive
}

// DefaultSupervisorStrategy 默认监督策略：1 分钟内最多重启 3 次
func DefaultSupervisorStrategy() SupervisorStrategy {
	return NewOneForOneStrategy(3, time.Minute, DefaultDecider)
}

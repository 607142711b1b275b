package member

import (
	"context"
	"time"

	agentpkg "github.com/lwmacct/251215-go-pkg-agent/pkg/agent"
	"github.com/lwmacct/251215-go-pkg-llm/pkg/llm"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/actor"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/crew"
)

// DoExecuteTask 让成员执行计划任务并等待结果
func DoExecuteTask(pid *actor.PID, planID, taskID, instruction string, timeout time.Duration) (*ExecuteResult, error) {
	replyCh := make(chan *ExecuteResult, 1)

	pid.Tell(&ExecuteTask{
		PlanID:      planID,
		TaskID:      taskID,
		Instruction: instruction,
		Context:     context.Background(),
		ReplyChan:   replyCh,
	})

	select {
	case result := <-replyCh:
		return result, result.Error
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// DoRespond 让成员产出一轮发言并等待结果
func DoRespond(pid *actor.PID, text, correlationID string, private bool, timeout time.Duration) (*RespondResult, error) {
	replyCh := make(chan *RespondResult, 1)

	pid.Tell(&Respond{
		Text:          text,
		CorrelationID: correlationID,
		Private:       private,
		Context:       context.Background(),
		ReplyChan:     replyCh,
	})

	select {
	case result := <-replyCh:
		return result, result.Error
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// DoGetProfile 获取成员档案
func DoGetProfile(pid *actor.PID, timeout time.Duration) (*crew.Member, error) {
	replyCh := make(chan *crew.Member, 1)

	pid.Tell(&GetProfile{
		ReplyChan: replyCh,
	})

	select {
	case profile := <-replyCh:
		return profile, nil
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// DoGetStatus 获取底层 Agent 状态
func DoGetStatus(pid *actor.PID, timeout time.Duration) (*agentpkg.Status, error) {
	replyCh := make(chan *agentpkg.Status, 1)

	pid.Tell(&GetStatus{
		ReplyChan: replyCh,
	})

	select {
	case status := <-replyCh:
		return status, nil
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// DoGetMessages 获取底层 Agent 消息历史
func DoGetMessages(pid *actor.PID, timeout time.Duration) ([]llm.Message, error) {
	replyCh := make(chan []llm.Message, 1)

	pid.Tell(&GetMessages{
		ReplyChan: replyCh,
	})

	select {
	case messages := <-replyCh:
		return messages, nil
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

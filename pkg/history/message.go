package history

import (
	"time"

	"github.com/google/uuid"
)

// BlockType 内容块类型
type BlockType string

const (
	BlockTypeText         BlockType = "text"
	BlockTypeToolCall     BlockType = "tool_call"
	BlockTypeToolResponse BlockType = "tool_response"
	BlockTypeThinking     BlockType = "thinking"
	BlockTypeError        BlockType = "error"
)

// ContentBlock 消息内容块
//
// 一条记录可以携带多个块：正文、技能调用及其结构化结果等。
type ContentBlock struct {
	Type BlockType `json:"type"`
	Text string    `json:"text,omitempty"`

	// 技能调用块字段
	ToolName  string         `json:"tool_name,omitempty"`
	ToolInput map[string]any `json:"tool_input,omitempty"`
	ToolData  any            `json:"tool_data,omitempty"`
}

// Record 会话历史中的一条记录
//
// MessageID 把同一逻辑发言的多条记录（文本片段、技能调用、
// 技能结果）归拢到一起；同一 MessageID 下的所有记录必须来自
// 同一发送者。
type Record struct {
	ID        string         `json:"id"`
	MessageID string         `json:"message_id"`
	Sender    string         `json:"sender"`
	Recipient string         `json:"recipient,omitempty"`
	Content   []ContentBlock `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewRecord 创建记录，自动分配记录 ID
func NewRecord(messageID, sender string, content ...ContentBlock) Record {
	return Record{
		ID:        uuid.NewString(),
		MessageID: messageID,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// TextBlock 构造文本块
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeText, Text: text}
}

// ThinkingBlock 构造思考块
func ThinkingBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeThinking, Text: text}
}

// ToolCallBlock 构造技能调用块
func ToolCallBlock(name string, input map[string]any) ContentBlock {
	return ContentBlock{Type: BlockTypeToolCall, ToolName: name, ToolInput: input}
}

// ToolResponseBlock 构造技能结果块
func ToolResponseBlock(name string, data any) ContentBlock {
	return ContentBlock{Type: BlockTypeToolResponse, ToolName: name, ToolData: data}
}

// ErrorBlock 构造错误块
func ErrorBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeError, Text: text}
}

// Bundle 按 message_id 归拢后的一次逻辑发言
type Bundle struct {
	MessageID string   `json:"message_id"`
	Sender    string   `json:"sender"`
	Records   []Record `json:"records"`
}

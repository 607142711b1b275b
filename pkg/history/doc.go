// Package history 实现会话历史：只追加的记录序列、
// 游标式增量读取、按 message_id 的幂等归拢，以及可选的
// JSONL 持久化。
//
// 一次逻辑发言（LLM 的一轮输出）可能产生多条记录：文本片段、
// 技能调用、技能结果。它们共享同一 message_id，读取方用
// [Log.Bundles] 把碎片归拢回完整的发言；归拢顺序由 message_id
// 首次出现决定，与写入交错无关。
//
// 私下消息（成员之间的点对点沟通）不经过历史，这由上层路由
// 保证；Log 收到什么就记什么。
package history

// Package member 把剧组成员档案与 LLM Agent 绑定为可执行的 Actor。
//
// MemberActor 是适配器：它不修改底层 Agent，只在执行链路上接入
// 协作设施 —— 流事件发布到事件总线、产出写入会话历史、任务状态
// 通过调度器推进。三者均可选，缺省时成员退化为普通对话 Agent。
//
// Factory 从 crew.Member 档案批量创建成员：档案中的
// soul/description/skills 拼装为系统提示词，Actor 名取成员名，
// 便于按成员名从 Actor 系统反查 PID。
package member

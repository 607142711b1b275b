// Package tool 实现剧组成员可调用的技能：
//
//   - plan: 计划的创建、更新、查询与删除
//   - crew_member: 成员的注册、更新、查询与移除
//   - todo: 成员自维护的待办清单
//   - speak_to: 成员间通信（public/specify/private 三种可见性）
//
// 技能处理器对 LLM 产出的松散 JSON 输入做解码，任何失败
// （包括处理器 panic）都折叠为 Success=false 的结构化结果，
// 绝不让错误炸穿执行循环。
package tool

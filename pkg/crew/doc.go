// Package crew 提供剧组成员注册表与消息路由
//
// # Overview
//
// crew 包维护一组固定的专业角色（producer、director、screenwriter 等）
// 并决定入站消息由谁响应，包括：
//   - [Member]: 成员定义（名称、职位、技能、行为参数）
//   - [Registry]: 按名称/职位双索引的注册表，带重要性排序
//   - [Router]: 显式寻址（@name / @title）与兜底路由
//   - [Decision]: 路由决策（ProducerDefault / ExplicitTarget / PrivateTarget）
//
// # Resolution Rules
//
// 名称全局唯一，职位允许共享。标识符解析顺序：
//
//  1. 名称精确匹配
//  2. 职位匹配 —— 多人共享职位时取重要性最高者，并列取最早注册者
//
// 重要性是注入的静态全序（[DefaultTitleOrder]），不是运行时计算的状态，
// 可以独立配置与测试。
//
// # Routing Contract
//
// 路由是纯函数式的确定性决策：
//   - @地址可解析 → ExplicitTarget
//   - @地址不可解析 → UnknownCrewMemberError（不静默回退）
//   - 无地址 → ProducerDefault（重要性最高的成员兜底）
//   - 成员永远不会收到自己发出的消息（自寻址环被忽略）
//
// 私信（private 模式）不经过 Route，也不进入会话历史。
package crew

// Package stream 提供流式事件总线
//
// # Overview
//
// stream 包在执行中的任务/回复（以 correlation_id 标识）与其观察者之间
// 传递有序的短暂事件（思考、token 增量、技能进度、完成、错误）：
//   - [Event]: 带流内递增序号的事件
//   - [Bus]: 单生产者（每 correlation_id）、多订阅者总线
//   - [Subscription]: 订阅句柄，流结束后通道关闭
//
// # Guarantees
//
//   - 同一 correlation_id 的事件按发布顺序投递给每个已注册订阅者
//   - 中途加入的订阅者只收到后续事件，除非 [WithBacklog] 显式要求回放
//   - 取消（[Bus.Cancel]）恰好发布一次携带原因的终止 error 事件，
//     并取消生产者 context，外部调用据此协作式放弃
//
// 事件不持久化，生命周期等于一次流式响应。
package stream

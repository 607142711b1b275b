// Package plan 实现基于依赖图的任务计划与调度。
//
// 核心抽象：
//   - Plan: 一组任务及其 needs 依赖边构成的有向无环图
//   - Task: 状态机 pending → ready → running → completed/failed，
//     失败会把所有传递性依赖者置为 blocked
//   - Scheduler: 持有全部计划，负责校验、就绪性计算与状态迁移，
//     同一计划的变更按计划串行化
//   - PlanActor: 消息邮箱封装，配套 Do* 便捷函数
//   - TodoBoard: 成员自维护的扁平待办清单，独立于依赖图
//
// 校验是全有或全无的：创建或更新计划时，needs 引用、受派人解析、
// 环检测任一失败都不会留下半成品状态。环检测返回具体的环路径
// （如 t1 -> t2 -> t1），而不是笼统的报错。
//
// 任务就绪的充要条件是其全部 needs 均为 completed。没有依赖边
// 的任务互相独立，可以同时就绪、同时执行。
//
// 基本用法：
//
//	registry := crew.NewRegistry()
//	// ... 注册成员 ...
//	scheduler := plan.NewScheduler(registry, plan.WithEventBus(bus))
//
//	p, err := scheduler.Create("拍摄计划", "", []plan.TaskSpec{
//	    {ID: "t1", Name: "写分镜", Title: "screenwriter"},
//	    {ID: "t2", Name: "审分镜", Title: "director", Needs: []string{"t1"}},
//	})
package plan

// Package studio 把剧组的全部部件装配为一个可运行的会话：
// 成员注册表与路由器、计划调度器、流事件总线、会话历史，
// 以及承载每名成员的 Actor 系统。
//
// 两条主链路：
//
//   - 会话：Say 把入站消息交给路由器决策（@地址显式寻址，
//     无地址兜底给重要性最高的成员），投递给目标成员并等待
//     回复；SayPrivate 点对点直达，绕过兜底逻辑且不留历史。
//   - 计划：CreatePlan 建图，RunPlan 驱动执行 —— 每轮把全部
//     就绪任务并发派发给对应职位的成员，任务落定后重新评估，
//     直到计划到达终态。
//
// 基本用法：
//
//	st := studio.New("film-crew", studio.WithProvider(provider))
//	_ = st.AddMember(&crew.Member{Name: "elena", Title: crew.TitleProducer})
//	_ = st.AddMember(&crew.Member{Name: "sam", Title: crew.TitleDirector})
//
//	turn, _ := st.Say(ctx, "user", "@director please review the cut")
//	fmt.Println(turn.Target, turn.Reply) // sam ...
package studio

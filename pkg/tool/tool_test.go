package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251215-go-pkg-crew/pkg/actor"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/crew"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/history"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/plan"
	"github.com/lwmacct/251215-go-pkg-crew/pkg/stream"
)

// ═══════════════════════════════════════════════════════════════════════════
// 测试夹具
// ═══════════════════════════════════════════════════════════════════════════

func newFilmRegistry(t *testing.T) *crew.Registry {
	t.Helper()
	r := crew.NewRegistry()
	require.NoError(t, r.Register(&crew.Member{Name: "elena", Title: crew.TitleProducer}))
	require.NoError(t, r.Register(&crew.Member{Name: "sam", Title: crew.TitleDirector}))
	require.NoError(t, r.Register(&crew.Member{Name: "wren", Title: crew.TitleScreenwriter}))
	return r
}

func newTestScheduler(t *testing.T) *plan.Scheduler {
	t.Helper()
	return plan.NewScheduler(newFilmRegistry(t))
}

// ═══════════════════════════════════════════════════════════════════════════
// Set（技能集合）
// ═══════════════════════════════════════════════════════════════════════════

func TestSet_Invoke(t *testing.T) {
	s := NewSet()
	s.Register("echo", func(_ context.Context, input map[string]any) Result {
		return OK("echoed", input["text"])
	})

	result := s.Invoke(context.Background(), "echo", map[string]any{"text": "hi"})
	assert.True(t, result.Success)
	assert.Equal(t, "hi", result.Data)
}

func TestSet_Invoke_UnknownSkill(t *testing.T) {
	s := NewSet()

	result := s.Invoke(context.Background(), "nonexistent", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "unknown skill")
}

func TestSet_Invoke_PanicRecovered(t *testing.T) {
	s := NewSet()
	s.Register("bomb", func(_ context.Context, _ map[string]any) Result {
		panic("kaboom")
	})

	result := s.Invoke(context.Background(), "bomb", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "kaboom")
}

func TestSet_InvokeStreaming_PublishesSkillUpdates(t *testing.T) {
	bus := stream.NewBus()
	s := NewSet(WithSetBus(bus))
	s.Register("echo", func(_ context.Context, input map[string]any) Result {
		return OK("echoed", input["text"])
	})

	result := s.InvokeStreaming(context.Background(), "turn-1", "echo", map[string]any{"text": "hi"})
	require.True(t, result.Success)

	backlog := bus.Backlog("turn-1")
	require.Len(t, backlog, 2)
	assert.Equal(t, stream.EventSkillUpdate, backlog[0].Type)
	assert.Equal(t, stream.EventSkillUpdate, backlog[1].Type)

	started := backlog[0].Payload.(SkillUpdatePayload)
	assert.Equal(t, "echo", started.Skill)
	assert.Equal(t, "started", started.Phase)

	done := backlog[1].Payload.(SkillUpdatePayload)
	assert.Equal(t, "completed", done.Phase)
}

func TestSet_InvokeStreaming_FailurePhase(t *testing.T) {
	bus := stream.NewBus()
	s := NewSet(WithSetBus(bus))
	s.Register("bomb", func(_ context.Context, _ map[string]any) Result {
		panic("kaboom")
	})

	result := s.InvokeStreaming(context.Background(), "turn-2", "bomb", nil)
	require.False(t, result.Success)

	backlog := bus.Backlog("turn-2")
	require.Len(t, backlog, 2)
	failed := backlog[1].Payload.(SkillUpdatePayload)
	assert.Equal(t, "failed", failed.Phase)
	assert.Contains(t, failed.Message, "kaboom")
}

func TestSet_InvokeStreaming_NoCorrelationNoEvents(t *testing.T) {
	bus := stream.NewBus()
	s := NewSet(WithSetBus(bus))
	s.Register("echo", func(_ context.Context, _ map[string]any) Result { return OK("", nil) })

	// correlation 为空时不产生事件；Invoke 是其简写
	_ = s.Invoke(context.Background(), "echo", nil)
	assert.Empty(t, bus.Backlog(""))
}

func TestSet_Names(t *testing.T) {
	s := NewSet()
	s.Register("a", func(_ context.Context, _ map[string]any) Result { return OK("", nil) })
	s.Register("b", func(_ context.Context, _ map[string]any) Result { return OK("", nil) })
	assert.ElementsMatch(t, []string{"a", "b"}, s.Names())
}

// ═══════════════════════════════════════════════════════════════════════════
// plan 技能
// ═══════════════════════════════════════════════════════════════════════════

func TestPlanTool_CreateGetList(t *testing.T) {
	pt := NewPlanTool(newTestScheduler(t))
	ctx := context.Background()

	result := pt.Handle(ctx, map[string]any{
		"operation": "create",
		"title":     "pilot episode",
		"tasks": []any{
			map[string]any{"id": "t1", "name": "outline", "title": "screenwriter"},
			map[string]any{"id": "t2", "name": "review", "title": "director", "needs": []any{"t1"}},
		},
	})
	require.True(t, result.Success, result.Message)

	created, ok := result.Data.(*plan.Plan)
	require.True(t, ok)
	assert.Len(t, created.Tasks, 2)

	result = pt.Handle(ctx, map[string]any{"operation": "get", "plan_id": created.ID})
	require.True(t, result.Success)

	result = pt.Handle(ctx, map[string]any{"operation": "list"})
	require.True(t, result.Success)
	plans, ok := result.Data.([]*plan.Plan)
	require.True(t, ok)
	assert.Len(t, plans, 1)
}

func TestPlanTool_CreateCycleFails(t *testing.T) {
	scheduler := newTestScheduler(t)
	pt := NewPlanTool(scheduler)

	result := pt.Handle(context.Background(), map[string]any{
		"operation": "create",
		"title":     "impossible",
		"tasks": []any{
			map[string]any{"id": "t1", "name": "a", "title": "director", "needs": []any{"t2"}},
			map[string]any{"id": "t2", "name": "b", "title": "director", "needs": []any{"t1"}},
		},
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "cyclic task dependency")

	// 校验失败不留痕
	assert.Empty(t, scheduler.List())
}

func TestPlanTool_UnknownOperation(t *testing.T) {
	pt := NewPlanTool(newTestScheduler(t))
	result := pt.Handle(context.Background(), map[string]any{"operation": "explode"})
	assert.False(t, result.Success)
}

// ═══════════════════════════════════════════════════════════════════════════
// crew_member 技能
// ═══════════════════════════════════════════════════════════════════════════

func TestCrewTool_CRUD(t *testing.T) {
	registry := newFilmRegistry(t)
	ct := NewCrewTool(registry)
	ctx := context.Background()

	result := ct.Handle(ctx, map[string]any{
		"operation": "create",
		"member":    map[string]any{"name": "kai", "crew_title": "editor"},
	})
	require.True(t, result.Success, result.Message)
	_, ok := registry.Get("kai")
	assert.True(t, ok)

	result = ct.Handle(ctx, map[string]any{
		"operation": "update",
		"member":    map[string]any{"name": "kai", "crew_title": "editor", "description": "final cut"},
	})
	require.True(t, result.Success, result.Message)
	m, _ := registry.Get("kai")
	assert.Equal(t, "final cut", m.Description)

	result = ct.Handle(ctx, map[string]any{"operation": "get", "name": "kai"})
	assert.True(t, result.Success)

	result = ct.Handle(ctx, map[string]any{"operation": "delete", "name": "kai"})
	require.True(t, result.Success)
	_, ok = registry.Get("kai")
	assert.False(t, ok)
}

func TestCrewTool_CreateReservedTitleFails(t *testing.T) {
	ct := NewCrewTool(newFilmRegistry(t))

	result := ct.Handle(context.Background(), map[string]any{
		"operation": "create",
		"member":    map[string]any{"name": "ghost", "crew_title": "system"},
	})
	assert.False(t, result.Success)
}

func TestCrewTool_OnCreateRollback(t *testing.T) {
	registry := newFilmRegistry(t)
	ct := NewCrewTool(registry, WithOnCreate(func(_ *crew.Member) error {
		return errors.New("actor spawn failed")
	}))

	result := ct.Handle(context.Background(), map[string]any{
		"operation": "create",
		"member":    map[string]any{"name": "kai", "crew_title": "editor"},
	})
	assert.False(t, result.Success)

	// 回调失败时回滚注册
	_, ok := registry.Get("kai")
	assert.False(t, ok)
}

func TestCrewTool_OnDelete(t *testing.T) {
	var deleted string
	ct := NewCrewTool(newFilmRegistry(t), WithOnDelete(func(name string) {
		deleted = name
	}))

	result := ct.Handle(context.Background(), map[string]any{"operation": "delete", "name": "wren"})
	require.True(t, result.Success)
	assert.Equal(t, "wren", deleted)
}

// ═══════════════════════════════════════════════════════════════════════════
// speak_to 技能
// ═══════════════════════════════════════════════════════════════════════════

type deliveredMsg struct {
	decision  crew.Decision
	text      string
	messageID string
}

func newSpeakFixture(t *testing.T) (*SpeakTool, *history.Log, *[]deliveredMsg) {
	t.Helper()

	router := crew.NewRouter(newFilmRegistry(t))
	log := history.NewLog()
	var delivered []deliveredMsg

	st := NewSpeakTool("sam", router, log, func(_ context.Context, d crew.Decision, text, messageID string) error {
		delivered = append(delivered, deliveredMsg{decision: d, text: text, messageID: messageID})
		return nil
	})
	return st, log, &delivered
}

func TestSpeakTool_PublicExplicitMention(t *testing.T) {
	st, log, delivered := newSpeakFixture(t)

	result := st.Handle(context.Background(), map[string]any{
		"mode": "public",
		"text": "@wren the third act drags",
	})
	require.True(t, result.Success, result.Message)

	require.Len(t, *delivered, 1)
	assert.Equal(t, "wren", (*delivered)[0].decision.Target.Name)
	assert.Equal(t, crew.ModeExplicitTarget, (*delivered)[0].decision.Mode)

	records := log.All()
	require.Len(t, records, 1)
	assert.Equal(t, "sam", records[0].Sender)
	assert.Equal(t, "wren", records[0].Recipient)
}

func TestSpeakTool_NoMentionFallsBackToProducer(t *testing.T) {
	st, _, delivered := newSpeakFixture(t)

	result := st.Handle(context.Background(), map[string]any{
		"text": "we're behind schedule",
	})
	require.True(t, result.Success, result.Message)

	require.Len(t, *delivered, 1)
	assert.Equal(t, "elena", (*delivered)[0].decision.Target.Name)
	assert.Equal(t, crew.ModeProducerDefault, (*delivered)[0].decision.Mode)
}

func TestSpeakTool_Specify(t *testing.T) {
	st, log, delivered := newSpeakFixture(t)

	result := st.Handle(context.Background(), map[string]any{
		"mode": "specify",
		"to":   "screenwriter",
		"text": "tighten scene twelve",
	})
	require.True(t, result.Success, result.Message)
	require.Len(t, *delivered, 1)
	assert.Equal(t, "wren", (*delivered)[0].decision.Target.Name)
	assert.Equal(t, 1, log.Len())
}

func TestSpeakTool_PrivateBypassesHistory(t *testing.T) {
	st, log, delivered := newSpeakFixture(t)

	result := st.Handle(context.Background(), map[string]any{
		"mode": "private",
		"to":   "elena",
		"text": "the lead wants out",
	})
	require.True(t, result.Success, result.Message)

	require.Len(t, *delivered, 1)
	assert.Equal(t, crew.ModePrivateTarget, (*delivered)[0].decision.Mode)

	// 私下消息绝不写入会话历史
	assert.Zero(t, log.Len())
}

func TestSpeakTool_UnresolvableTargetFails(t *testing.T) {
	st, log, delivered := newSpeakFixture(t)

	result := st.Handle(context.Background(), map[string]any{
		"mode": "public",
		"text": "@nobody are you there?",
	})
	assert.False(t, result.Success)
	assert.Empty(t, *delivered)
	assert.Zero(t, log.Len())
}

func TestSpeakTool_DeliverFailure(t *testing.T) {
	router := crew.NewRouter(newFilmRegistry(t))
	st := NewSpeakTool("sam", router, nil, func(_ context.Context, _ crew.Decision, _, _ string) error {
		return errors.New("mailbox full")
	})

	result := st.Handle(context.Background(), map[string]any{"text": "anyone?"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "mailbox full")
}

// ═══════════════════════════════════════════════════════════════════════════
// todo 技能
// ═══════════════════════════════════════════════════════════════════════════

func TestTodoTool_Operations(t *testing.T) {
	sys := actor.NewSystem("todo-test")
	t.Cleanup(sys.Shutdown)

	pid := sys.Spawn(plan.NewPlanActor(newTestScheduler(t)), "plan")
	tt := NewTodoTool(pid, "sam")
	ctx := context.Background()

	result := tt.Handle(ctx, map[string]any{"operation": "create", "content": "storyboard act one"})
	require.True(t, result.Success, result.Message)
	id := result.Data.(map[string]string)["todo_id"]
	require.NotEmpty(t, id)

	result = tt.Handle(ctx, map[string]any{"operation": "update", "todo_id": id, "status": "completed"})
	require.True(t, result.Success, result.Message)

	result = tt.Handle(ctx, map[string]any{"operation": "get", "todo_id": id})
	require.True(t, result.Success, result.Message)
	todo := result.Data.(*plan.Todo)
	assert.Equal(t, plan.TodoStatusCompleted, todo.Status)

	result = tt.Handle(ctx, map[string]any{"operation": "list"})
	require.True(t, result.Success)
	todos := result.Data.([]plan.Todo)
	require.Len(t, todos, 1)
	assert.Equal(t, plan.TodoStatusCompleted, todos[0].Status)
	assert.Equal(t, "sam", todos[0].Owner)

	result = tt.Handle(ctx, map[string]any{"operation": "delete", "todo_id": id})
	require.True(t, result.Success)

	result = tt.Handle(ctx, map[string]any{"operation": "get", "todo_id": id})
	assert.False(t, result.Success)

	result = tt.Handle(ctx, map[string]any{"operation": "update", "todo_id": id, "status": "pending"})
	assert.False(t, result.Success)
}

func TestTodoTool_AliasOperations(t *testing.T) {
	sys := actor.NewSystem("todo-alias")
	t.Cleanup(sys.Shutdown)

	pid := sys.Spawn(plan.NewPlanActor(newTestScheduler(t)), "plan")
	tt := NewTodoTool(pid, "sam")
	ctx := context.Background()

	// add/remove 作为 create/delete 的别名继续可用
	result := tt.Handle(ctx, map[string]any{"operation": "add", "content": "review dailies"})
	require.True(t, result.Success, result.Message)
	id := result.Data.(map[string]string)["todo_id"]

	result = tt.Handle(ctx, map[string]any{"operation": "remove", "todo_id": id})
	assert.True(t, result.Success, result.Message)
}

func TestTodoTool_CreateRequiresContent(t *testing.T) {
	sys := actor.NewSystem("todo-validate")
	t.Cleanup(sys.Shutdown)

	pid := sys.Spawn(plan.NewPlanActor(newTestScheduler(t)), "plan")
	tt := NewTodoTool(pid, "sam")

	result := tt.Handle(context.Background(), map[string]any{"operation": "create"})
	assert.False(t, result.Success)
}

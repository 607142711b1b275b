package stream

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan Event, n int) []Event {
	t.Helper()
	events := make([]Event, 0, n)
	timeout := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d of %d", len(events), n)
		}
	}
	return events
}

func TestBus_PublishOrdering(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("corr-1")

	for i := 0; i < 10; i++ {
		_, err := bus.Publish("corr-1", EventTokenDelta, fmt.Sprintf("chunk-%d", i))
		require.NoError(t, err)
	}

	events := collect(t, sub.C, 10)
	for i, ev := range events {
		// 同一 correlation_id 的事件按发布顺序投递，Seq 连续递增
		assert.Equal(t, int64(i+1), ev.Seq)
		assert.Equal(t, fmt.Sprintf("chunk-%d", i), ev.Payload)
		assert.Equal(t, "corr-1", ev.CorrelationID)
	}
}

func TestBus_StreamsAreIndependent(t *testing.T) {
	bus := NewBus()
	subA := bus.Subscribe("a")
	subB := bus.Subscribe("b")

	_, _ = bus.Publish("a", EventTokenDelta, "a1")
	_, _ = bus.Publish("b", EventTokenDelta, "b1")
	_, _ = bus.Publish("a", EventTokenDelta, "a2")

	evA := collect(t, subA.C, 2)
	assert.Equal(t, int64(1), evA[0].Seq)
	assert.Equal(t, int64(2), evA[1].Seq)

	evB := collect(t, subB.C, 1)
	assert.Equal(t, int64(1), evB[0].Seq)
}

func TestBus_LateSubscriberSkipsHistory(t *testing.T) {
	bus := NewBus()
	_, _ = bus.Publish("corr", EventTokenDelta, "early")

	sub := bus.Subscribe("corr")
	_, _ = bus.Publish("corr", EventTokenDelta, "late")

	events := collect(t, sub.C, 1)
	assert.Equal(t, "late", events[0].Payload)
}

func TestBus_SubscribeWithBacklog(t *testing.T) {
	bus := NewBus()
	_, _ = bus.Publish("corr", EventLLMStart, nil)
	_, _ = bus.Publish("corr", EventTokenDelta, "x")

	sub := bus.Subscribe("corr", WithBacklog())
	events := collect(t, sub.C, 2)
	assert.Equal(t, EventLLMStart, events[0].Type)
	assert.Equal(t, EventTokenDelta, events[1].Type)
}

func TestBus_CancelEmitsTerminalErrorExactlyOnce(t *testing.T) {
	bus := NewBus()
	ctx := bus.Open("corr")
	sub := bus.Subscribe("corr")

	_, _ = bus.Publish("corr", EventTokenDelta, "x")
	bus.Cancel("corr", "user abort")
	bus.Cancel("corr", "duplicate") // 幂等，不产生第二个终止事件

	// 生产者 context 被取消
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("producer context was not cancelled")
	}

	var events []Event
	for ev := range sub.C {
		events = append(events, ev)
	}
	require.Len(t, events, 2)

	terminal := events[1]
	assert.Equal(t, EventError, terminal.Type)
	assert.True(t, terminal.Terminal())
	payload := terminal.Payload.(CancelPayload)
	assert.Equal(t, "user abort", payload.Reason)

	assert.True(t, bus.Cancelled("corr"))
}

func TestBus_PublishAfterCloseRejected(t *testing.T) {
	bus := NewBus()

	// 先于 Open/Publish 到达的取消同样让流进入关闭态
	bus.Cancel("corr", "done")
	assert.True(t, bus.Cancelled("corr"))

	_, err := bus.Publish("corr", EventTokenDelta, "x")
	assert.Error(t, err)

	backlog := bus.Backlog("corr")
	require.Len(t, backlog, 1)
	assert.Equal(t, EventError, backlog[0].Type)
}

func TestBus_EndClosesSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("corr")
	_, _ = bus.Publish("corr", EventLLMEnd, "bye")
	bus.End("corr")

	events := collect(t, sub.C, 1)
	assert.Equal(t, EventLLMEnd, events[0].Type)

	_, open := <-sub.C
	assert.False(t, open)

	// 正常结束没有终止 error 事件
	for _, ev := range bus.Backlog("corr") {
		assert.NotEqual(t, EventError, ev.Type)
	}
}

func TestBus_SubscribeClosedStream(t *testing.T) {
	bus := NewBus()
	_, _ = bus.Publish("corr", EventTokenDelta, "x")
	bus.End("corr")

	// 已结束流的订阅立即得到关闭的通道，回放仍有效
	sub := bus.Subscribe("corr", WithBacklog())
	events := collect(t, sub.C, 1)
	assert.Equal(t, "x", events[0].Payload)

	_, open := <-sub.C
	assert.False(t, open)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("corr")
	bus.Unsubscribe(sub)

	_, open := <-sub.C
	assert.False(t, open)

	// 重复取消订阅无害
	bus.Unsubscribe(sub)
	bus.Unsubscribe(nil)
}

func TestEvent_Kind(t *testing.T) {
	ev := Event{Type: EventPlanUpdate}
	assert.Equal(t, "stream.plan-update", ev.Kind())
}

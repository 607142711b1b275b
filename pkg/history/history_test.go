package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_AppendAndLoad(t *testing.T) {
	l := NewLog()

	require.NoError(t, l.Append(NewRecord("m1", "elena", TextBlock("开拍"))))
	require.NoError(t, l.Append(NewRecord("m2", "sam", TextBlock("收到"))))

	records, cursor := l.Load(0)
	require.Len(t, records, 2)
	assert.Equal(t, 2, cursor)
	assert.Equal(t, "elena", records[0].Sender)

	// 增量读取：只取游标之后的新增
	require.NoError(t, l.Append(NewRecord("m3", "wren", TextBlock("分镜在写了"))))
	records, cursor = l.Load(cursor)
	require.Len(t, records, 1)
	assert.Equal(t, 3, cursor)
	assert.Equal(t, "wren", records[0].Sender)

	// 没有新增时返回空
	records, cursor = l.Load(cursor)
	assert.Empty(t, records)
	assert.Equal(t, 3, cursor)
}

func TestLog_Append_SenderInvariant(t *testing.T) {
	l := NewLog()

	require.NoError(t, l.Append(NewRecord("m1", "elena", TextBlock("part 1"))))
	require.NoError(t, l.Append(NewRecord("m1", "elena", TextBlock("part 2"))))

	// 同一 message_id 不允许换发送者
	err := l.Append(NewRecord("m1", "sam", TextBlock("hijack")))
	var mismatch *SenderMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "elena", mismatch.Expected)
	assert.Equal(t, "sam", mismatch.Got)
	assert.Equal(t, 2, l.Len())
}

func TestLog_Append_Validation(t *testing.T) {
	l := NewLog()
	assert.Error(t, l.Append(Record{MessageID: "", Sender: "elena"}))
	assert.Error(t, l.Append(Record{MessageID: "m1", Sender: ""}))
}

func TestLog_Bundles_IdempotentGrouping(t *testing.T) {
	l := NewLog()

	// 两条发言的碎片交错写入
	require.NoError(t, l.Append(NewRecord("m1", "elena", TextBlock("frag a"))))
	require.NoError(t, l.Append(NewRecord("m2", "sam", TextBlock("frag x"))))
	require.NoError(t, l.Append(NewRecord("m1", "elena", ToolCallBlock("plan", map[string]any{"operation": "list"}))))
	require.NoError(t, l.Append(NewRecord("m2", "sam", TextBlock("frag y"))))
	require.NoError(t, l.Append(NewRecord("m1", "elena", ToolResponseBlock("plan", nil))))

	bundles := l.Bundles()
	require.Len(t, bundles, 2)

	// 分组顺序由首次出现决定
	assert.Equal(t, "m1", bundles[0].MessageID)
	assert.Equal(t, "elena", bundles[0].Sender)
	assert.Len(t, bundles[0].Records, 3)
	assert.Equal(t, "m2", bundles[1].MessageID)
	assert.Len(t, bundles[1].Records, 2)

	// 幂等：重复归拢得到相同结果
	again := l.Bundles()
	assert.Equal(t, bundles, again)
}

func TestLog_LoadSnapshotIsolated(t *testing.T) {
	l := NewLog()
	require.NoError(t, l.Append(NewRecord("m1", "elena", TextBlock("original"))))

	records, _ := l.Load(0)
	records[0].Sender = "tampered"

	fresh, _ := l.Load(0)
	assert.Equal(t, "elena", fresh[0].Sender)
}

func TestStore_WriteAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "session.jsonl")

	store, err := OpenStore(path)
	require.NoError(t, err)

	r1 := NewRecord("m1", "elena", TextBlock("开拍"))
	r2 := NewRecord("m2", "sam", TextBlock("收到"), ThinkingBlock("想想"))
	require.NoError(t, store.Write(r1))
	require.NoError(t, store.Write(r2))
	require.NoError(t, store.Close())

	// 关闭后拒绝写入
	assert.Error(t, store.Write(r1))

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	records, err := reopened.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, r1.ID, records[0].ID)
	assert.Equal(t, BlockTypeThinking, records[1].Content[1].Type)
}

func TestStore_ReadAll_MissingFile(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "fresh.jsonl"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	// 文件刚创建为空
	records, err := store.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLog_WithStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	l := NewLog(WithStore(store))
	require.NoError(t, l.Append(NewRecord("m1", "elena", TextBlock("开拍"))))

	persisted, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "elena", persisted[0].Sender)
}

func TestStore_ReadSince(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "session.jsonl"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	r1 := NewRecord("m1", "elena", TextBlock("开拍"))
	r2 := NewRecord("m2", "sam", TextBlock("收到"))
	r2.Timestamp = r1.Timestamp.Add(time.Minute)
	require.NoError(t, store.Write(r1))
	require.NoError(t, store.Write(r2))

	// since 是闭区间下界
	records, err := store.ReadSince(r2.Timestamp)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "m2", records[0].MessageID)

	records, err = store.ReadSince(time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLog_Restore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	store, err := OpenStore(path)
	require.NoError(t, err)

	l1 := NewLog(WithStore(store))
	require.NoError(t, l1.Append(NewRecord("m1", "elena", TextBlock("开拍"))))
	require.NoError(t, l1.Append(NewRecord("m2", "sam", TextBlock("收到"))))
	require.NoError(t, store.Close())

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	l2 := NewLog(WithStore(reopened))
	n, err := l2.Restore(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, l2.Len())

	// message_id 归属索引同步重建：跨发送者复用仍被拒绝
	err = l2.Append(NewRecord("m1", "sam", TextBlock("冒名")))
	var mismatch *SenderMismatchError
	require.ErrorAs(t, err, &mismatch)

	// 内存非空时不重复恢复
	n, err = l2.Restore(time.Time{})
	require.NoError(t, err)
	assert.Zero(t, n)

	// 未配置存储时恢复是空操作
	n, err = NewLog().Restore(time.Time{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

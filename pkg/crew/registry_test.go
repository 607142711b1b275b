package crew

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, members ...*Member) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, m := range members {
		require.NoError(t, r.Register(m))
	}
	return r
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	err := r.Register(&Member{Name: "elena", Title: TitleProducer})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	m, ok := r.Get("elena")
	require.True(t, ok)
	assert.Equal(t, TitleProducer, m.Title)
}

func TestRegistry_Register_DuplicateName(t *testing.T) {
	r := newTestRegistry(t, &Member{Name: "elena", Title: TitleProducer})

	err := r.Register(&Member{Name: "elena", Title: TitleDirector})
	var dup *DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "elena", dup.Name)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Register_ReservedTitle(t *testing.T) {
	r := NewRegistry()

	for _, reserved := range []string{"system", "user", "System", " USER "} {
		err := r.Register(&Member{Name: "x", Title: Title(reserved)})
		var invalid *InvalidTitleError
		assert.ErrorAs(t, err, &invalid, "title %q should be rejected", reserved)
	}
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Register_Invalid(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register(&Member{Name: "", Title: TitleProducer}))
	assert.Error(t, r.Register(&Member{Name: "elena", Title: ""}))
	assert.Error(t, r.Register(nil))
}

func TestRegistry_Resolve_NameBeforeTitle(t *testing.T) {
	// 成员名恰好撞上职位名时，名称优先
	r := newTestRegistry(t,
		&Member{Name: "director", Title: TitleEditor},
		&Member{Name: "sam", Title: TitleDirector},
	)

	m, err := r.Resolve("director")
	require.NoError(t, err)
	assert.Equal(t, TitleEditor, m.Title)
}

func TestRegistry_Resolve_TitleSharedByImportance(t *testing.T) {
	r := newTestRegistry(t,
		&Member{Name: "first", Title: TitleEditor},
		&Member{Name: "second", Title: TitleEditor},
	)

	// 同职位多人、重要性相同：最早注册者胜出
	m, err := r.Resolve("editor")
	require.NoError(t, err)
	assert.Equal(t, "first", m.Name)
}

func TestRegistry_Resolve_Unknown(t *testing.T) {
	r := newTestRegistry(t, &Member{Name: "elena", Title: TitleProducer})

	_, err := r.Resolve("ghost")
	var unknown *UnknownCrewMemberError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.Identifier)
}

func TestRegistry_ListOrdered(t *testing.T) {
	// 注册顺序故意打乱，排序应当只看重要性
	r := newTestRegistry(t,
		&Member{Name: "wren", Title: TitleScreenwriter},
		&Member{Name: "elena", Title: TitleProducer},
		&Member{Name: "kai", Title: TitleEditor},
		&Member{Name: "sam", Title: TitleDirector},
	)

	names := make([]string, 0, 4)
	for _, m := range r.ListOrdered() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"elena", "sam", "wren", "kai"}, names)

	def, ok := r.Default()
	require.True(t, ok)
	assert.Equal(t, "elena", def.Name)
}

func TestRegistry_ListOrdered_UnlistedTitleLast(t *testing.T) {
	r := newTestRegistry(t,
		&Member{Name: "gaffer", Title: Title("gaffer")},
		&Member{Name: "elena", Title: TitleProducer},
	)

	members := r.ListOrdered()
	require.Len(t, members, 2)
	assert.Equal(t, "elena", members[0].Name)
	assert.Equal(t, "gaffer", members[1].Name)
}

func TestRegistry_CustomTitleOrder(t *testing.T) {
	r := NewRegistry(WithTitleOrder([]Title{TitleDirector, TitleProducer}))
	require.NoError(t, r.Register(&Member{Name: "elena", Title: TitleProducer}))
	require.NoError(t, r.Register(&Member{Name: "sam", Title: TitleDirector}))

	def, ok := r.Default()
	require.True(t, ok)
	assert.Equal(t, "sam", def.Name)
}

func TestRegistry_Update(t *testing.T) {
	r := newTestRegistry(t, &Member{Name: "sam", Title: TitleDirector})

	err := r.Update("sam", &Member{Name: "sam", Title: TitleEditor, Description: "moved"})
	require.NoError(t, err)

	m, err := r.Resolve("editor")
	require.NoError(t, err)
	assert.Equal(t, "sam", m.Name)

	// 旧职位索引已清理
	_, err = r.Resolve("director")
	assert.Error(t, err)
}

func TestRegistry_Update_NameImmutable(t *testing.T) {
	r := newTestRegistry(t, &Member{Name: "sam", Title: TitleDirector})

	err := r.Update("sam", &Member{Name: "samuel", Title: TitleDirector})
	assert.Error(t, err)
}

func TestRegistry_Remove(t *testing.T) {
	r := newTestRegistry(t,
		&Member{Name: "elena", Title: TitleProducer},
		&Member{Name: "sam", Title: TitleDirector},
	)

	require.NoError(t, r.Remove("elena"))
	assert.Equal(t, 1, r.Len())

	// elena 移除后兜底换人
	def, ok := r.Default()
	require.True(t, ok)
	assert.Equal(t, "sam", def.Name)

	var notFound *NotFoundError
	assert.ErrorAs(t, r.Remove("elena"), &notFound)
}

func TestMember_CloneAndSkills(t *testing.T) {
	m := &Member{Name: "wren", Title: TitleScreenwriter, Skills: []string{"todo", "speak_to"}}

	c := m.Clone()
	c.Skills[0] = "changed"
	assert.Equal(t, "todo", m.Skills[0])

	assert.True(t, m.HasSkill("speak_to"))
	assert.False(t, m.HasSkill("plan"))
}

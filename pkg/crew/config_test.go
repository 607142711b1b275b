package crew

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRoster(t *testing.T) {
	path := writeRoster(t, `
crew:
  - name: elena
    crew_title: producer
    skills: [plan, speak_to]
    model: claude-sonnet
  - name: sam
    crew_title: director
`)

	r, err := LoadRoster(path)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	m, ok := r.Get("elena")
	require.True(t, ok)
	assert.Equal(t, TitleProducer, m.Title)
	assert.Equal(t, "claude-sonnet", m.Model)
	assert.True(t, m.HasSkill("plan"))

	def, ok := r.Default()
	require.True(t, ok)
	assert.Equal(t, "elena", def.Name)
}

func TestLoadRoster_TitleOrderOverride(t *testing.T) {
	path := writeRoster(t, `
title_order: [director, producer]
crew:
  - name: elena
    crew_title: producer
  - name: sam
    crew_title: director
`)

	r, err := LoadRoster(path)
	require.NoError(t, err)

	def, ok := r.Default()
	require.True(t, ok)
	assert.Equal(t, "sam", def.Name)
}

func TestLoadRoster_AllOrNothing(t *testing.T) {
	// 第二个条目职位保留，整体失败
	path := writeRoster(t, `
crew:
  - name: elena
    crew_title: producer
  - name: bot
    crew_title: system
`)

	_, err := LoadRoster(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot")
}

func TestLoadRoster_MissingFile(t *testing.T) {
	_, err := LoadRoster(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

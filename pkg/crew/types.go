package crew

import "strings"

// ═══════════════════════════════════════════════════════════════════════════
// 职位与重要性排序
// ═══════════════════════════════════════════════════════════════════════════

// Title 职位类别（如 producer、director）
// 同一职位可以由多名成员担任
type Title string

const (
	TitleProducer         Title = "producer"
	TitleDirector         Title = "director"
	TitleScreenwriter     Title = "screenwriter"
	TitleCinematographer  Title = "cinematographer"
	TitleEditor           Title = "editor"
	TitleSoundDesigner    Title = "sound-designer"
	TitleVFXSupervisor    Title = "vfx-supervisor"
	TitleStoryboardArtist Title = "storyboard-artist"
)

// DefaultTitleOrder 默认职位重要性排序（静态全序）
//
// 排序作为配置传入 Registry，不属于 Registry 运行时状态，
// 未列出的职位一律排在已列出职位之后。
var DefaultTitleOrder = []Title{
	TitleProducer,
	TitleDirector,
	TitleScreenwriter,
	TitleCinematographer,
	TitleEditor,
	TitleSoundDesigner,
	TitleVFXSupervisor,
	TitleStoryboardArtist,
}

// reservedTitles 不允许分配给成员的保留类别
var reservedTitles = map[string]bool{
	"system": true,
	"user":   true,
}

// IsReservedTitle 检查是否是保留类别（system/user 等）
func IsReservedTitle(s string) bool {
	return reservedTitles[strings.ToLower(strings.TrimSpace(s))]
}

// ═══════════════════════════════════════════════════════════════════════════
// 成员定义
// ═══════════════════════════════════════════════════════════════════════════

// Member 剧组成员定义
//
// 会话期间成员定义不可变，由 Registry 持有。
// 行为参数（Model/Temperature/MaxSteps）传递给底层执行器。
type Member struct {
	Name        string   `json:"name" koanf:"name"`
	Title       Title    `json:"crew_title" koanf:"crew_title"`
	Description string   `json:"description,omitempty" koanf:"description"`
	Soul        string   `json:"soul,omitempty" koanf:"soul"`
	Skills      []string `json:"skills,omitempty" koanf:"skills"`

	// 行为参数
	Model       string  `json:"model,omitempty" koanf:"model"`
	Temperature float64 `json:"temperature,omitempty" koanf:"temperature"`
	MaxSteps    int     `json:"max_steps,omitempty" koanf:"max_steps"`

	// 展示元数据
	Color  string `json:"color,omitempty" koanf:"color"`
	Icon   string `json:"icon,omitempty" koanf:"icon"`
	Prompt string `json:"prompt,omitempty" koanf:"prompt"`
}

// HasSkill 检查成员是否具备指定技能
func (m *Member) HasSkill(name string) bool {
	for _, s := range m.Skills {
		if s == name {
			return true
		}
	}
	return false
}

// Clone 返回成员定义的深拷贝
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	c := *m
	if m.Skills != nil {
		c.Skills = make([]string, len(m.Skills))
		copy(c.Skills, m.Skills)
	}
	return &c
}

// Validate 校验成员定义
func (m *Member) Validate() error {
	if m == nil {
		return &InvalidMemberError{Reason: "member cannot be nil"}
	}
	if strings.TrimSpace(m.Name) == "" {
		return &InvalidMemberError{Reason: "name cannot be empty"}
	}
	if m.Title == "" {
		return &InvalidMemberError{Reason: "crew_title cannot be empty"}
	}
	if IsReservedTitle(string(m.Title)) {
		return &InvalidTitleError{Title: string(m.Title)}
	}
	return nil
}

package crew

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// rosterFile 花名册文件结构
//
// YAML 示例：
//
//	title_order: [producer, director, screenwriter]
//	crew:
//	  - name: elena
//	    crew_title: producer
//	    model: claude-sonnet
//	    skills: [plan, speak_to]
type rosterFile struct {
	TitleOrder []Title  `koanf:"title_order"`
	Crew       []Member `koanf:"crew"`
}

// LoadRoster 从 YAML 花名册文件构建注册表
//
// 文件中的 title_order 覆盖默认重要性排序；
// 成员按文件出现顺序注册（注册顺序参与并列裁决）。
// 任一成员校验或注册失败时整体失败，不产生半成品注册表。
func LoadRoster(path string, opts ...RegistryOption) (*Registry, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load roster %s: %w", path, err)
	}

	var cfg rosterFile
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}

	if len(cfg.TitleOrder) > 0 {
		opts = append(opts, WithTitleOrder(cfg.TitleOrder))
	}

	registry := NewRegistry(opts...)
	for i := range cfg.Crew {
		m := cfg.Crew[i]
		if err := registry.Register(&m); err != nil {
			return nil, fmt.Errorf("roster entry %d (%s): %w", i, m.Name, err)
		}
	}
	return registry, nil
}

package generation

import (
	"errors"
	"fmt"
)

// Story 故事（剧本）
type Story struct {
	ID         string      `bson:"id" json:"id"`
	Title      string      `bson:"title" json:"title"`
	Characters []Character `bson:"characters" json:"characters"`
	Setting    Setting     `bson:"setting" json:"setting"`
	Beats      []Beat      `bson:"beats" json:"beats"`
	Style      Style       `bson:"style" json:"style"`
	Duration   Duration    `bson:"duration,omitempty" json:"duration,omitempty"`
}

// Character 角色
type Character struct {
	ID         string `bson:"id" json:"id"`
	Name       string `bson:"name" json:"name"`
	Appearance string `bson:"appearance" json:"appearance"`
	Role       Role   `bson:"role" json:"role"`
}

// Setting 场景设定，每个故事一个
type Setting struct {
	Location   string `bson:"location" json:"location"`
	Time       string `bson:"time" json:"time"`
	Atmosphere string `bson:"atmosphere" json:"atmosphere"`
}

// Description 场景的文字描述
func (s Setting) Description() string {
	return fmt.Sprintf("%s. %s. %s", s.Location, s.Time, s.Atmosphere)
}

// Beat 故事节拍，一个节拍对应一个镜头
type Beat struct {
	SceneNumber   int    `bson:"scene_number" json:"scene_number"` // 从 1 开始且连续
	Description   string `bson:"description" json:"description"`
	StoryFunction string `bson:"story_function,omitempty" json:"story_function,omitempty"`
	SceneChange   bool   `bson:"scene_change" json:"scene_change"`
	Dialogue      string `bson:"dialogue,omitempty" json:"dialogue,omitempty"`
}

var (
	ErrNoProtagonist       = errors.New("story has no protagonist")
	ErrMultipleProtagonist = errors.New("story has more than one protagonist")
	ErrNoBeats             = errors.New("story has no beats")
)

// Validate 校验故事结构：恰好一个主角，节拍编号从 1 连续
func (s *Story) Validate() error {
	protagonists := 0
	for _, c := range s.Characters {
		if c.Role == RoleProtagonist {
			protagonists++
		}
	}
	switch {
	case protagonists == 0:
		return ErrNoProtagonist
	case protagonists > 1:
		return ErrMultipleProtagonist
	}

	if len(s.Beats) == 0 {
		return ErrNoBeats
	}
	for i, b := range s.Beats {
		if b.SceneNumber != i+1 {
			return fmt.Errorf("beat %d has scene number %d: beats must be numbered contiguously from 1", i+1, b.SceneNumber)
		}
	}
	return nil
}

// Protagonist 返回主角
func (s *Story) Protagonist() (Character, bool) {
	for _, c := range s.Characters {
		if c.Role == RoleProtagonist {
			return c, true
		}
	}
	return Character{}, false
}

// SupportingCast 返回除主角外的角色，保持故事中的声明顺序
func (s *Story) SupportingCast() []Character {
	cast := make([]Character, 0, len(s.Characters))
	for _, c := range s.Characters {
		if c.Role != RoleProtagonist {
			cast = append(cast, c)
		}
	}
	return cast
}

// Character 按 ID 查找角色
func (s *Story) Character(id string) (Character, bool) {
	for _, c := range s.Characters {
		if c.ID == id {
			return c, true
		}
	}
	return Character{}, false
}

// Beat 按 1 开始的编号取节拍
func (s *Story) Beat(number int) (Beat, bool) {
	if number < 1 || number > len(s.Beats) {
		return Beat{}, false
	}
	return s.Beats[number-1], true
}

// Clone 深拷贝
func (s *Story) Clone() *Story {
	if s == nil {
		return nil
	}
	out := *s
	out.Characters = append([]Character(nil), s.Characters...)
	out.Beats = append([]Beat(nil), s.Beats...)
	return &out
}

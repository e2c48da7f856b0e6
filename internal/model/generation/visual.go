package generation

// MoodboardImage 情绪板图片
// 二进制内容保存在对象存储中，这里只保留存储 key 与访问地址。
type MoodboardImage struct {
	Type     ImageType `bson:"type" json:"type"`
	MimeType string    `bson:"mime_type" json:"mime_type"`
	Prompt   string    `bson:"prompt" json:"prompt"`
	AssetKey string    `bson:"asset_key" json:"asset_key"`
	URL      string    `bson:"url" json:"url"`
}

// Ref 转成参考图引用
func (m *MoodboardImage) Ref() ImageRef {
	return ImageRef{AssetKey: m.AssetKey, MimeType: m.MimeType}
}

// ImageRef 参考图引用（指向对象存储）
type ImageRef struct {
	AssetKey string `bson:"asset_key" json:"asset_key"`
	MimeType string `bson:"mime_type" json:"mime_type"`
}

// ImageSlot 图片槽位（角色、场景、关键时刻各一个）
type ImageSlot struct {
	Key          string          `bson:"key" json:"key"` // 角色ID，或 "setting" / "key_moment"
	Image        *MoodboardImage `bson:"image,omitempty" json:"image,omitempty"`
	Approved     bool            `bson:"approved" json:"approved"`
	IsGenerating bool            `bson:"is_generating" json:"is_generating"`
	Feedback     string          `bson:"feedback,omitempty" json:"feedback,omitempty"`
	Prompt       string          `bson:"prompt,omitempty" json:"prompt,omitempty"`
	Error        string          `bson:"error,omitempty" json:"error,omitempty"`
	Attempt      int             `bson:"attempt" json:"attempt"`
}

// CanApprove 有图且不在生成中才能确认
func (s *ImageSlot) CanApprove() bool {
	return s.Image != nil && !s.IsGenerating
}

// ProtagonistSlot 主角槽位：没有 approved，只有 locked
type ProtagonistSlot struct {
	CharacterID  string          `bson:"character_id" json:"character_id"`
	Image        *MoodboardImage `bson:"image,omitempty" json:"image,omitempty"`
	Locked       bool            `bson:"locked" json:"locked"`
	IsGenerating bool            `bson:"is_generating" json:"is_generating"`
	Prompt       string          `bson:"prompt,omitempty" json:"prompt,omitempty"`
	Error        string          `bson:"error,omitempty" json:"error,omitempty"`
	Attempt      int             `bson:"attempt" json:"attempt"`
}

// KeyMomentSlot 关键时刻槽位
type KeyMomentSlot struct {
	ImageSlot       `bson:",inline"`
	BeatNumber      int            `bson:"beat_number" json:"beat_number"`
	BeatDescription string         `bson:"beat_description" json:"beat_description"`
	Bundle          *VisualsBundle `bson:"bundle" json:"bundle"`
}

// Ready 关键时刻已生成且不在生成中
func (k *KeyMomentSlot) Ready() bool {
	return k != nil && k.Image != nil && !k.IsGenerating
}

// VisualsBundle 已确认视觉素材的冻结引用集合
// CharacterImages 第一个永远是主角，其余按故事声明顺序。
type VisualsBundle struct {
	CharacterImages       []ImageRef `bson:"character_images" json:"character_images"`
	SettingImage          ImageRef   `bson:"setting_image" json:"setting_image"`
	CharacterDescriptions []string   `bson:"character_descriptions" json:"character_descriptions"`
	SettingDescription    string     `bson:"setting_description" json:"setting_description"`
}

// Clone 深拷贝
func (b *VisualsBundle) Clone() *VisualsBundle {
	if b == nil {
		return nil
	}
	out := *b
	out.CharacterImages = append([]ImageRef(nil), b.CharacterImages...)
	out.CharacterDescriptions = append([]string(nil), b.CharacterDescriptions...)
	return &out
}

// VisualDirection 视觉设定子状态
type VisualDirection struct {
	Stage       VisualStage     `bson:"stage" json:"stage"`
	Protagonist ProtagonistSlot `bson:"protagonist" json:"protagonist"`
	Characters  []ImageSlot     `bson:"characters" json:"characters"` // 非主角，按故事顺序
	Setting     ImageSlot       `bson:"setting" json:"setting"`
	KeyMoment   *KeyMomentSlot  `bson:"key_moment,omitempty" json:"key_moment,omitempty"`
}

// SettingSlotKey 场景槽位名
const SettingSlotKey = "setting"

// KeyMomentSlotKey 关键时刻槽位名
const KeyMomentSlotKey = "key_moment"

// Slot 按名称查找非主角槽位
func (v *VisualDirection) Slot(key string) *ImageSlot {
	if key == SettingSlotKey {
		return &v.Setting
	}
	for i := range v.Characters {
		if v.Characters[i].Key == key {
			return &v.Characters[i]
		}
	}
	return nil
}

// AllApproved 场景及所有非主角角色都已确认
func (v *VisualDirection) AllApproved() bool {
	if !v.Setting.Approved {
		return false
	}
	for _, s := range v.Characters {
		if !s.Approved {
			return false
		}
	}
	return true
}

// Clone 深拷贝
func (v *VisualDirection) Clone() *VisualDirection {
	if v == nil {
		return nil
	}
	out := *v
	out.Protagonist.Image = cloneImage(v.Protagonist.Image)
	out.Characters = make([]ImageSlot, len(v.Characters))
	for i, s := range v.Characters {
		out.Characters[i] = cloneSlot(s)
	}
	out.Setting = cloneSlot(v.Setting)
	if v.KeyMoment != nil {
		km := *v.KeyMoment
		km.ImageSlot = cloneSlot(v.KeyMoment.ImageSlot)
		km.Bundle = v.KeyMoment.Bundle.Clone()
		out.KeyMoment = &km
	}
	return &out
}

func cloneSlot(s ImageSlot) ImageSlot {
	s.Image = cloneImage(s.Image)
	return s
}

func cloneImage(m *MoodboardImage) *MoodboardImage {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

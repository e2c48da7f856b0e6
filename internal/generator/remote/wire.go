package remote

import (
	"encoding/base64"
	"fmt"

	"reel/internal/generator"
	model "reel/internal/model/generation"
)

// 生成服务的 JSON 结构，节拍编号字段为 beat_number，图片以 base64 传输

type wireCharacter struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Appearance string `json:"appearance"`
	Role       string `json:"role"`
}

type wireSetting struct {
	Location   string `json:"location"`
	Time       string `json:"time"`
	Atmosphere string `json:"atmosphere"`
}

type wireBeat struct {
	BeatNumber    int     `json:"beat_number"`
	Description   string  `json:"description"`
	StoryFunction string  `json:"story_function"`
	SceneChange   bool    `json:"scene_change"`
	Dialogue      *string `json:"dialogue"`
}

type wireStory struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Characters []wireCharacter `json:"characters"`
	Setting    wireSetting     `json:"setting"`
	Beats      []wireBeat      `json:"beats"`
	Duration   string          `json:"duration"`
	Style      string          `json:"style"`
}

type wireImage struct {
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

type wireMoodboardImage struct {
	Type        string `json:"type"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	PromptUsed  string `json:"prompt_used"`
}

type wireApprovedVisuals struct {
	CharacterImages       []wireImage `json:"character_images"`
	SettingImage          wireImage   `json:"setting_image"`
	CharacterDescriptions []string    `json:"character_descriptions"`
	SettingDescription    string      `json:"setting_description"`
}

type storyRequest struct {
	Idea     string `json:"idea"`
	Duration string `json:"duration"`
	Style    string `json:"style"`
	Feedback string `json:"feedback,omitempty"`
}

type storyResponse struct {
	Story   wireStory `json:"story"`
	CostUSD float64   `json:"cost_usd"`
}

type refineBeatRequest struct {
	Story      wireStory `json:"story"`
	BeatNumber int       `json:"beat_number"`
	Feedback   string    `json:"feedback"`
}

type refineBeatResponse struct {
	Beat    wireBeat `json:"beat"`
	CostUSD float64  `json:"cost_usd"`
}

type imageRequest struct {
	Story          wireStory  `json:"story"`
	CharacterID    string     `json:"character_id,omitempty"`
	Feedback       string     `json:"feedback,omitempty"`
	ReferenceImage *wireImage `json:"reference_image,omitempty"`
}

type imageResponse struct {
	CharacterID string             `json:"character_id"`
	Image       wireMoodboardImage `json:"image"`
	PromptUsed  string             `json:"prompt_used"`
	CostUSD     float64            `json:"cost_usd"`
}

type keyMomentRequest struct {
	Story           wireStory           `json:"story"`
	ApprovedVisuals wireApprovedVisuals `json:"approved_visuals"`
	Feedback        string              `json:"feedback,omitempty"`
}

type keyMomentResponse struct {
	BeatNumber      int                `json:"beat_number"`
	BeatDescription string             `json:"beat_description"`
	Image           wireMoodboardImage `json:"image"`
	PromptUsed      string             `json:"prompt_used"`
	CostUSD         float64            `json:"cost_usd"`
}

type filmRequest struct {
	Story           wireStory           `json:"story"`
	ApprovedVisuals wireApprovedVisuals `json:"approved_visuals"`
	KeyMomentImage  wireImage           `json:"key_moment_image"`
}

type filmResponse struct {
	FilmID     string `json:"film_id"`
	Status     string `json:"status"`
	TotalShots int    `json:"total_shots"`
}

type filmStatusResponse struct {
	FilmID         string                `json:"film_id"`
	Status         string                `json:"status"`
	CurrentShot    int                   `json:"current_shot"`
	TotalShots     int                   `json:"total_shots"`
	Phase          string                `json:"phase"`
	CompletedShots []model.CompletedShot `json:"completed_shots"`
	FinalVideoURL  *string               `json:"final_video_url"`
	ErrorMessage   *string               `json:"error_message"`
	Cost           model.FilmCost        `json:"cost"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func toWireStory(s *model.Story) wireStory {
	out := wireStory{
		ID:       s.ID,
		Title:    s.Title,
		Setting:  wireSetting(s.Setting),
		Duration: string(s.Duration),
		Style:    string(s.Style),
	}
	for _, c := range s.Characters {
		out.Characters = append(out.Characters, wireCharacter{
			ID: c.ID, Name: c.Name, Appearance: c.Appearance, Role: string(c.Role),
		})
	}
	for _, b := range s.Beats {
		out.Beats = append(out.Beats, toWireBeat(b))
	}
	return out
}

func toWireBeat(b model.Beat) wireBeat {
	w := wireBeat{
		BeatNumber:    b.SceneNumber,
		Description:   b.Description,
		StoryFunction: b.StoryFunction,
		SceneChange:   b.SceneChange,
	}
	if b.Dialogue != "" {
		d := b.Dialogue
		w.Dialogue = &d
	}
	return w
}

func fromWireStory(w wireStory) *model.Story {
	s := &model.Story{
		ID:       w.ID,
		Title:    w.Title,
		Setting:  model.Setting(w.Setting),
		Duration: model.Duration(w.Duration),
		Style:    model.Style(w.Style),
	}
	for _, c := range w.Characters {
		s.Characters = append(s.Characters, model.Character{
			ID: c.ID, Name: c.Name, Appearance: c.Appearance, Role: model.Role(c.Role),
		})
	}
	for _, b := range w.Beats {
		s.Beats = append(s.Beats, fromWireBeat(b))
	}
	return s
}

func fromWireBeat(w wireBeat) model.Beat {
	b := model.Beat{
		SceneNumber:   w.BeatNumber,
		Description:   w.Description,
		StoryFunction: w.StoryFunction,
		SceneChange:   w.SceneChange,
	}
	if w.Dialogue != nil {
		b.Dialogue = *w.Dialogue
	}
	return b
}

func toWireImage(img generator.Image) wireImage {
	return wireImage{
		ImageBase64: base64.StdEncoding.EncodeToString(img.Data),
		MimeType:    img.MimeType,
	}
}

func fromWireImage(w wireMoodboardImage) (generator.Image, error) {
	data, err := base64.StdEncoding.DecodeString(w.ImageBase64)
	if err != nil {
		return generator.Image{}, fmt.Errorf("decode image: %w", err)
	}
	if len(data) == 0 {
		return generator.Image{}, fmt.Errorf("generator returned an empty image")
	}
	mime := w.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return generator.Image{Data: data, MimeType: mime}, nil
}

func toWireVisuals(v *generator.ApprovedVisuals) wireApprovedVisuals {
	out := wireApprovedVisuals{
		SettingImage:          toWireImage(v.SettingImage),
		CharacterDescriptions: append([]string{}, v.CharacterDescriptions...),
		SettingDescription:    v.SettingDescription,
	}
	for _, img := range v.CharacterImages {
		out.CharacterImages = append(out.CharacterImages, toWireImage(img))
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

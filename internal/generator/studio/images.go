package studio

import (
	"context"
	"fmt"

	"reel/internal/generator"
	model "reel/internal/model/generation"
)

// GenerateProtagonist 生成主角形象，不带参考图
func (g *Generator) GenerateProtagonist(ctx context.Context, req *generator.ProtagonistRequest) (*generator.ProtagonistResult, error) {
	if req.Story == nil {
		return nil, fmt.Errorf("story is required")
	}
	protagonist, ok := req.Story.Protagonist()
	if !ok {
		return nil, model.ErrNoProtagonist
	}

	prompt := buildCharacterPrompt(req.Story, protagonist, req.Feedback)
	img, err := g.images.Generate(ctx, prompt, nil)
	if err != nil {
		return nil, fmt.Errorf("generate protagonist: %w", err)
	}
	return &generator.ProtagonistResult{
		CharacterID: protagonist.ID,
		Image:       img,
		Prompt:      prompt,
		CostUSD:     imageCostUSD,
	}, nil
}

// GenerateCharacter 生成配角形象，主角形象作为风格参考
func (g *Generator) GenerateCharacter(ctx context.Context, req *generator.CharacterRequest) (*generator.ImageResult, error) {
	return g.character(ctx, req)
}

// RefineCharacter 带反馈重新生成角色形象
func (g *Generator) RefineCharacter(ctx context.Context, req *generator.CharacterRequest) (*generator.ImageResult, error) {
	return g.character(ctx, req)
}

func (g *Generator) character(ctx context.Context, req *generator.CharacterRequest) (*generator.ImageResult, error) {
	if req.Story == nil {
		return nil, fmt.Errorf("story is required")
	}
	c, ok := req.Story.Character(req.CharacterID)
	if !ok {
		return nil, fmt.Errorf("character with id %q not found", req.CharacterID)
	}

	prompt := buildCharacterPrompt(req.Story, c, req.Feedback)
	img, err := g.images.Generate(ctx, prompt, references(req.Reference))
	if err != nil {
		return nil, fmt.Errorf("generate character %s: %w", c.ID, err)
	}
	return &generator.ImageResult{Image: img, Prompt: prompt, CostUSD: imageCostUSD}, nil
}

// GenerateSetting 生成场景图
func (g *Generator) GenerateSetting(ctx context.Context, req *generator.SettingRequest) (*generator.ImageResult, error) {
	if req.Story == nil {
		return nil, fmt.Errorf("story is required")
	}

	prompt := buildSettingPrompt(req.Story, req.Feedback)
	img, err := g.images.Generate(ctx, prompt, references(req.Reference))
	if err != nil {
		return nil, fmt.Errorf("generate setting: %w", err)
	}
	return &generator.ImageResult{Image: img, Prompt: prompt, CostUSD: imageCostUSD}, nil
}

// GenerateKeyMoment 以已确认的角色与场景为参考，生成高潮节拍的画面
func (g *Generator) GenerateKeyMoment(ctx context.Context, req *generator.KeyMomentRequest) (*generator.KeyMomentResult, error) {
	if req.Story == nil || req.Visuals == nil {
		return nil, fmt.Errorf("story and approved visuals are required")
	}
	beat, ok := keyMomentBeat(req.Story)
	if !ok {
		return nil, model.ErrNoBeats
	}

	refs := make([]generator.Image, 0, maxMomentCharacters+1)
	for i, img := range req.Visuals.CharacterImages {
		if i >= maxMomentCharacters {
			break
		}
		refs = append(refs, img)
	}
	refs = append(refs, req.Visuals.SettingImage)

	prompt := buildKeyMomentPrompt(req.Story, beat, req.Visuals, req.Feedback)
	img, err := g.images.Generate(ctx, prompt, refs)
	if err != nil {
		return nil, fmt.Errorf("generate key moment: %w", err)
	}
	return &generator.KeyMomentResult{
		BeatNumber:      beat.SceneNumber,
		BeatDescription: beat.Description,
		Image:           img,
		Prompt:          prompt,
		CostUSD:         imageCostUSD,
	}, nil
}

// keyMomentBeat 取标记为 climax 的节拍，否则取倒数第二个
func keyMomentBeat(story *model.Story) (model.Beat, bool) {
	if len(story.Beats) == 0 {
		return model.Beat{}, false
	}
	for _, b := range story.Beats {
		if b.StoryFunction == "climax" {
			return b, true
		}
	}
	if len(story.Beats) > 1 {
		return story.Beats[len(story.Beats)-2], true
	}
	return story.Beats[0], true
}

func references(ref *generator.Image) []generator.Image {
	if ref == nil || len(ref.Data) == 0 {
		return nil
	}
	return []generator.Image{*ref}
}

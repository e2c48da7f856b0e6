package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"reel/internal/generator"
	model "reel/internal/model/generation"
	"reel/internal/pkg/id"
)

type llmCharacter struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Appearance string `json:"appearance"`
	Role       string `json:"role"`
}

type llmBeat struct {
	BeatNumber    int     `json:"beat_number"`
	Description   string  `json:"description"`
	StoryFunction string  `json:"story_function"`
	SceneChange   bool    `json:"scene_change"`
	Dialogue      *string `json:"dialogue"`
}

type llmStory struct {
	Title      string         `json:"title"`
	Characters []llmCharacter `json:"characters"`
	Setting    struct {
		Location   string `json:"location"`
		Time       string `json:"time"`
		Atmosphere string `json:"atmosphere"`
	} `json:"setting"`
	Beats []llmBeat `json:"beats"`
}

// GenerateStory 根据创意生成故事
func (g *Generator) GenerateStory(ctx context.Context, req *generator.StoryRequest) (*generator.StoryResult, error) {
	return g.writeStory(ctx, req)
}

// RegenerateStory 带反馈重新生成整个故事
func (g *Generator) RegenerateStory(ctx context.Context, req *generator.StoryRequest) (*generator.StoryResult, error) {
	return g.writeStory(ctx, req)
}

func (g *Generator) writeStory(ctx context.Context, req *generator.StoryRequest) (*generator.StoryResult, error) {
	if strings.TrimSpace(req.Idea) == "" {
		return nil, fmt.Errorf("idea is required")
	}

	resp, err := g.text.Generate(ctx, []*schema.Message{
		schema.SystemMessage(storySystemPrompt),
		schema.UserMessage(buildStoryPrompt(req)),
	})
	if err != nil {
		return nil, fmt.Errorf("generate story: %w", err)
	}

	story, err := parseStory(resp.Content, req.Style, req.Duration)
	if err != nil {
		return nil, err
	}

	cost := estimateStoryCost(len(story.Beats))
	if in, out, ok := usage(resp); ok {
		cost = textCost(in, out)
	}
	g.log.Info().Str("story_id", story.ID).Str("title", story.Title).Int("beats", len(story.Beats)).
		Float64("cost_usd", cost).Msg("story generated")
	return &generator.StoryResult{Story: story, CostUSD: round4(cost)}, nil
}

// RefineBeat 按反馈改写单个节拍
func (g *Generator) RefineBeat(ctx context.Context, req *generator.RefineBeatRequest) (*generator.BeatResult, error) {
	if req.Story == nil {
		return nil, fmt.Errorf("story is required")
	}
	current, ok := req.Story.Beat(req.BeatNumber)
	if !ok {
		return nil, fmt.Errorf("beat %d not found in story", req.BeatNumber)
	}

	resp, err := g.text.Generate(ctx, []*schema.Message{
		schema.SystemMessage(beatSystemPrompt),
		schema.UserMessage(buildBeatPrompt(req.Story, current, req.Feedback)),
	})
	if err != nil {
		return nil, fmt.Errorf("refine beat: %w", err)
	}

	var raw llmBeat
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse beat response as JSON: %w", err)
	}
	if strings.TrimSpace(raw.Description) == "" {
		return nil, fmt.Errorf("refined beat has no description")
	}

	beat := model.Beat{
		SceneNumber:   current.SceneNumber,
		Description:   raw.Description,
		StoryFunction: raw.StoryFunction,
		SceneChange:   raw.SceneChange,
	}
	if beat.StoryFunction == "" {
		beat.StoryFunction = current.StoryFunction
	}
	if raw.Dialogue != nil {
		beat.Dialogue = *raw.Dialogue
	}

	var cost float64
	if in, out, ok := usage(resp); ok {
		cost = textCost(in, out)
	}
	return &generator.BeatResult{Beat: beat, CostUSD: round4(cost)}, nil
}

// stripFences 去掉模型输出外层的 markdown 代码块
func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func parseStory(text string, style model.Style, duration model.Duration) (*model.Story, error) {
	var raw llmStory
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse story response as JSON: %w", err)
	}

	story := &model.Story{
		ID:    id.New(),
		Title: raw.Title,
		Setting: model.Setting{
			Location:   raw.Setting.Location,
			Time:       raw.Setting.Time,
			Atmosphere: raw.Setting.Atmosphere,
		},
		Style:    style,
		Duration: duration,
	}

	seen := make(map[string]bool, len(raw.Characters))
	for i, c := range raw.Characters {
		charID := strings.TrimSpace(c.ID)
		if charID == "" || seen[charID] {
			charID = fmt.Sprintf("char_%d", i+1)
		}
		seen[charID] = true
		story.Characters = append(story.Characters, model.Character{
			ID:         charID,
			Name:       c.Name,
			Appearance: c.Appearance,
			Role:       parseRole(c.Role),
		})
	}

	// 节拍按出现顺序重新编号
	for i, b := range raw.Beats {
		beat := model.Beat{
			SceneNumber:   i + 1,
			Description:   b.Description,
			StoryFunction: b.StoryFunction,
			SceneChange:   b.SceneChange,
		}
		if b.Dialogue != nil {
			beat.Dialogue = *b.Dialogue
		}
		story.Beats = append(story.Beats, beat)
	}

	if err := story.Validate(); err != nil {
		return nil, fmt.Errorf("invalid story: %w", err)
	}
	return story, nil
}

func parseRole(role string) model.Role {
	switch model.Role(strings.ToLower(strings.TrimSpace(role))) {
	case model.RoleProtagonist:
		return model.RoleProtagonist
	case model.RoleAntagonist:
		return model.RoleAntagonist
	default:
		return model.RoleSupporting
	}
}

// estimateStoryCost 约 2000 输入 token，输出 500 + 每节拍 200 token
func estimateStoryCost(beats int) float64 {
	return textCost(2000, 500+beats*200)
}

func usage(msg *schema.Message) (int, int, bool) {
	if msg == nil || msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return 0, 0, false
	}
	u := msg.ResponseMeta.Usage
	if u.PromptTokens == 0 && u.CompletionTokens == 0 {
		return 0, 0, false
	}
	return u.PromptTokens, u.CompletionTokens, true
}

package studio

import (
	"fmt"
	"strings"

	"reel/internal/generator"
	model "reel/internal/model/generation"
)

// stylePrefixes 每种风格的画面前缀，图片与视频提示词共用
var stylePrefixes = map[model.Style]string{
	model.StyleCinematic:  "Cinematic still, photorealistic, shot on 35mm film, shallow depth of field, natural lighting, film grain, professional cinematography",
	model.Style3DAnimated: "3D animated, Pixar-style rendering, stylized realism, expressive features, vibrant colors, clean lighting, appealing design",
	model.Style2DAnimated: "2D animated, illustrated style, hand-drawn aesthetic, bold outlines, stylized, expressive, graphic shapes, flat lighting with soft shadows",
}

var styleDisplay = map[model.Style]string{
	model.StyleCinematic:  "Cinematic (photorealistic, shot on 35mm film)",
	model.Style3DAnimated: "3D Animated (Pixar-style rendering)",
	model.Style2DAnimated: "2D Animated (illustrated, hand-drawn aesthetic)",
}

type shotRange struct{ min, max int }

var durationShots = map[model.Duration]shotRange{
	model.DurationOne:   {7, 8},
	model.DurationTwo:   {15, 15},
	model.DurationThree: {22, 23},
}

var beatStructures = map[model.Duration]string{
	model.DurationOne: `Beats 1-2: Hook and setup
Beat 3: Inciting incident
Beats 4-5: Rising action
Beat 6: Climax
Beats 7-8: Resolution`,
	model.DurationTwo: `Beats 1-3: Setup (world, character, status quo)
Beat 4: Inciting incident
Beats 5-7: Rising action
Beats 8-9: Midpoint shift
Beats 10-12: Escalating conflict
Beat 13: Crisis / dark moment
Beat 14: Climax
Beat 15: Resolution`,
	model.DurationThree: `Beats 1-4: Setup and world establishment
Beat 5: Inciting incident
Beats 6-10: Rising action (first half)
Beats 11-12: Midpoint
Beats 13-17: Rising action (second half)
Beats 18-19: Crisis
Beats 20-21: Climax
Beats 22-23: Resolution`,
}

const storySystemPrompt = `You are a short film writer. Your job is to turn a story idea into a
structured beat sheet that can be directly visualized as video.

RULES:
1. Every beat = one short video shot
2. Each beat must show ONE clear action (no "and then")
3. Write what we SEE and HEAR, not internal thoughts
4. Dialogue (if any) must be under 15 words per beat
5. The story must have a clear emotional arc
6. Everything must be visually achievable
7. Flag any beat where the scene changes location or jumps in time
8. Exactly one character has the role "protagonist"

OUTPUT: You must respond with valid JSON only. No markdown, no explanation, just the JSON object.`

const beatSystemPrompt = `You are a short film writer refining a single beat of a story.
Keep the beat consistent with the overall story but incorporate the user's feedback.
Write what we SEE and HEAR, not internal thoughts.
OUTPUT: Valid JSON only. No markdown, no explanation.`

func stylePrefix(style model.Style) string {
	if p, ok := stylePrefixes[style]; ok {
		return p
	}
	return stylePrefixes[model.StyleCinematic]
}

func withDirection(prompt, label, feedback string) string {
	if strings.TrimSpace(feedback) == "" {
		return prompt
	}
	return prompt + "\n\n" + label + ": " + feedback
}

func buildStoryPrompt(req *generator.StoryRequest) string {
	duration := req.Duration
	if _, ok := durationShots[duration]; !ok {
		duration = model.DurationOne
	}
	shots := durationShots[duration]
	display, ok := styleDisplay[req.Style]
	if !ok {
		display = styleDisplay[model.StyleCinematic]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s-minute short film from this idea:\n\n", duration)
	fmt.Fprintf(&b, "IDEA: %q\n\n", req.Idea)
	fmt.Fprintf(&b, "STYLE: %s\n\n", display)
	fmt.Fprintf(&b, "This will be %d-%d shots.\n\n", shots.min, shots.max)
	b.WriteString(`IMPORTANT: For any beat where the location changes or time jumps
significantly from the previous beat, set "scene_change": true.

OUTPUT FORMAT (JSON):
{
  "title": "Short evocative title (2-4 words)",
  "characters": [
    {
      "id": "unique_id",
      "name": "Character Name or Description",
      "appearance": "Physical description we will see on screen (4-5 specific visual details: build, coloring, clothing, distinguishing features)",
      "role": "protagonist|antagonist|supporting"
    }
  ],
  "setting": {
    "location": "Primary location, be specific",
    "time": "Time of day / lighting quality",
    "atmosphere": "Mood and feeling of the world"
  },
  "beats": [
    {
      "beat_number": 1,
      "description": "1-2 sentences of what we SEE. Include what we HEAR if dialogue or important sound.",
      "story_function": "hook|inciting_incident|rising_action|midpoint|climax|resolution",
      "scene_change": false,
      "dialogue": null
    }
  ]
}

`)
	fmt.Fprintf(&b, "STRUCTURE FOR %s MINUTE FILM:\n\n%s", duration, beatStructures[duration])

	if strings.TrimSpace(req.Feedback) != "" {
		fmt.Fprintf(&b, "\n\nUSER FEEDBACK (incorporate this into the new version):\n%s", req.Feedback)
	}
	return b.String()
}

func buildBeatPrompt(story *model.Story, current model.Beat, feedback string) string {
	var chars, beats strings.Builder
	for _, c := range story.Characters {
		fmt.Fprintf(&chars, "- %s: %s\n", c.Name, c.Appearance)
	}
	for _, beat := range story.Beats {
		fmt.Fprintf(&beats, "Beat %d (%s): %s\n", beat.SceneNumber, beat.StoryFunction, beat.Description)
	}

	return fmt.Sprintf(`You are refining Beat %[1]d of a story.

STORY TITLE: %[2]s

CHARACTERS:
%[3]s
SETTING: %[4]s, %[5]s
ATMOSPHERE: %[6]s

ALL BEATS FOR CONTEXT:
%[7]s
CURRENT BEAT %[1]d TO REFINE:
Description: %[8]s
Story Function: %[9]s
Scene Change: %[10]t

USER FEEDBACK: %[11]s

Rewrite ONLY Beat %[1]d incorporating the feedback while maintaining story continuity.

OUTPUT FORMAT (JSON only, no explanation):
{
  "beat_number": %[1]d,
  "description": "1-2 sentences of what we SEE",
  "story_function": "%[9]s",
  "scene_change": %[10]t,
  "dialogue": null
}`,
		current.SceneNumber, story.Title, chars.String(),
		story.Setting.Location, story.Setting.Time, story.Setting.Atmosphere,
		beats.String(), current.Description, current.StoryFunction, current.SceneChange,
		feedback)
}

func buildCharacterPrompt(story *model.Story, c model.Character, feedback string) string {
	prompt := fmt.Sprintf(`%s
Portrait of %s.
Expression: %s.
Simple background that suggests %s without distracting.
Character fills most of the frame, clearly visible from head to mid-torso.
Show enough detail to establish their complete look.
Portrait orientation, 9:16 aspect ratio.`,
		stylePrefix(story.Style), c.Appearance, story.Setting.Atmosphere, story.Setting.Location)
	return withDirection(prompt, "Additional direction", feedback)
}

func buildSettingPrompt(story *model.Story, feedback string) string {
	prompt := fmt.Sprintf(`%s
%s.
%s.
Atmosphere: %s.
Wide establishing shot showing the world.
No characters in frame.
Portrait orientation, 9:16 aspect ratio.`,
		stylePrefix(story.Style), story.Setting.Location, story.Setting.Time, story.Setting.Atmosphere)
	return withDirection(prompt, "Additional direction", feedback)
}

func bulletList(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, "- "+l)
	}
	return strings.Join(out, "\n")
}

func buildKeyMomentPrompt(story *model.Story, beat model.Beat, visuals *generator.ApprovedVisuals, feedback string) string {
	prompt := fmt.Sprintf(`%s
SCENE: %s
SETTING: %s
CHARACTERS IN SCENE:
%s
MOMENT TYPE: CLIMAX - Peak dramatic moment. Maximum tension and emotion.
Mood: %s
Show the full scene with characters in action, not a close-up portrait.
Medium or wide shot showing body language and environment context.
Dynamic cinematic composition.
Portrait orientation, 9:16 aspect ratio.`,
		stylePrefix(story.Style), beat.Description, visuals.SettingDescription,
		bulletList(visuals.CharacterDescriptions), story.Setting.Atmosphere)
	return withDirection(prompt, "Additional direction", feedback)
}

func buildKeyframePrompt(story *model.Story, beat model.Beat, visuals *generator.ApprovedVisuals, feedback string) string {
	prompt := fmt.Sprintf(`%s
SCENE: %s
SETTING: %s
CHARACTERS IN SCENE:
%s
Single frame establishing shot for video.
Show characters in the setting, ready for action.
Portrait orientation, 9:16 aspect ratio.`,
		stylePrefix(story.Style), beat.Description, visuals.SettingDescription,
		bulletList(visuals.CharacterDescriptions))
	return withDirection(prompt, "ADJUSTMENT", feedback)
}

func buildShotPrompt(story *model.Story, beat model.Beat, seconds int, feedback string) string {
	chars := make([]string, 0, len(story.Characters))
	for _, c := range story.Characters {
		chars = append(chars, c.Name+": "+c.Appearance)
	}
	prompt := fmt.Sprintf(`%s
SCENE: %s
SETTING: %s, %s
ATMOSPHERE: %s
CHARACTERS:
%s
%d-second video shot. Smooth, cinematic camera movement.
Portrait orientation 9:16.`,
		stylePrefix(story.Style), beat.Description,
		story.Setting.Location, story.Setting.Time, story.Setting.Atmosphere,
		bulletList(chars), seconds)
	if beat.Dialogue != "" {
		prompt += fmt.Sprintf("\n\nDIALOGUE: %q", beat.Dialogue)
	}
	return withDirection(prompt, "ADJUSTMENT", feedback)
}

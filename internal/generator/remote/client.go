// Package remote 通过 HTTP 调用独立部署的生成服务
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reel/internal/config"
	"reel/internal/generator"
	model "reel/internal/model/generation"
	"reel/internal/pkg/logger"
)

var _ generator.Generator = (*Client)(nil)

// defaultMaxResponseBytes 响应体上限，base64 图片响应通常在数 MB 以内
const defaultMaxResponseBytes = 64 << 20

// StatusError 生成服务返回的非 2xx 响应
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("generator returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("generator returned HTTP %d: %s", e.Code, e.Detail)
}

// Client 生成服务 HTTP 客户端
type Client struct {
	baseURL     string
	apiKey      string
	maxResponse int64
	httpClient  *http.Client
	log         zerolog.Logger
}

// NewClient 创建客户端
// 单次调用的超时由调用方的 ctx 控制，这里的 Timeout 只是兜底。
func NewClient(cfg *config.RemoteConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	maxResponse := cfg.MaxResponseBytes
	if maxResponse <= 0 {
		maxResponse = defaultMaxResponseBytes
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		maxResponse: maxResponse,
		httpClient:  &http.Client{Timeout: timeout},
		log:         logger.Component("remote_generator"),
	}
}

// GenerateStory 生成故事
func (c *Client) GenerateStory(ctx context.Context, req *generator.StoryRequest) (*generator.StoryResult, error) {
	return c.story(ctx, "/story/generate", req)
}

// RegenerateStory 带反馈重新生成故事
func (c *Client) RegenerateStory(ctx context.Context, req *generator.StoryRequest) (*generator.StoryResult, error) {
	return c.story(ctx, "/story/regenerate", req)
}

func (c *Client) story(ctx context.Context, path string, req *generator.StoryRequest) (*generator.StoryResult, error) {
	body := storyRequest{
		Idea:     req.Idea,
		Duration: string(req.Duration),
		Style:    string(req.Style),
		Feedback: req.Feedback,
	}
	var resp storyResponse
	if err := c.post(ctx, path, body, &resp); err != nil {
		return nil, err
	}
	return &generator.StoryResult{Story: fromWireStory(resp.Story), CostUSD: resp.CostUSD}, nil
}

// RefineBeat 修改单个节拍
func (c *Client) RefineBeat(ctx context.Context, req *generator.RefineBeatRequest) (*generator.BeatResult, error) {
	body := refineBeatRequest{
		Story:      toWireStory(req.Story),
		BeatNumber: req.BeatNumber,
		Feedback:   req.Feedback,
	}
	var resp refineBeatResponse
	if err := c.post(ctx, "/story/refine-beat", body, &resp); err != nil {
		return nil, err
	}
	return &generator.BeatResult{Beat: fromWireBeat(resp.Beat), CostUSD: resp.CostUSD}, nil
}

// GenerateProtagonist 生成主角形象
func (c *Client) GenerateProtagonist(ctx context.Context, req *generator.ProtagonistRequest) (*generator.ProtagonistResult, error) {
	body := imageRequest{Story: toWireStory(req.Story), Feedback: req.Feedback}
	var resp imageResponse
	if err := c.post(ctx, "/moodboard/generate-protagonist", body, &resp); err != nil {
		return nil, err
	}
	img, err := fromWireImage(resp.Image)
	if err != nil {
		return nil, err
	}
	return &generator.ProtagonistResult{
		CharacterID: resp.CharacterID,
		Image:       img,
		Prompt:      promptOf(resp.PromptUsed, resp.Image),
		CostUSD:     resp.CostUSD,
	}, nil
}

// GenerateCharacter 生成角色形象
func (c *Client) GenerateCharacter(ctx context.Context, req *generator.CharacterRequest) (*generator.ImageResult, error) {
	return c.image(ctx, "/moodboard/generate-character", imageRequest{
		Story:          toWireStory(req.Story),
		CharacterID:    req.CharacterID,
		Feedback:       req.Feedback,
		ReferenceImage: reference(req.Reference),
	})
}

// RefineCharacter 带反馈修改角色形象
func (c *Client) RefineCharacter(ctx context.Context, req *generator.CharacterRequest) (*generator.ImageResult, error) {
	return c.image(ctx, "/moodboard/refine-character", imageRequest{
		Story:          toWireStory(req.Story),
		CharacterID:    req.CharacterID,
		Feedback:       req.Feedback,
		ReferenceImage: reference(req.Reference),
	})
}

// GenerateSetting 生成场景图
func (c *Client) GenerateSetting(ctx context.Context, req *generator.SettingRequest) (*generator.ImageResult, error) {
	return c.image(ctx, "/moodboard/generate-setting", imageRequest{
		Story:          toWireStory(req.Story),
		Feedback:       req.Feedback,
		ReferenceImage: reference(req.Reference),
	})
}

func (c *Client) image(ctx context.Context, path string, body imageRequest) (*generator.ImageResult, error) {
	var resp imageResponse
	if err := c.post(ctx, path, body, &resp); err != nil {
		return nil, err
	}
	img, err := fromWireImage(resp.Image)
	if err != nil {
		return nil, err
	}
	return &generator.ImageResult{Image: img, Prompt: promptOf(resp.PromptUsed, resp.Image), CostUSD: resp.CostUSD}, nil
}

// GenerateKeyMoment 生成关键时刻
func (c *Client) GenerateKeyMoment(ctx context.Context, req *generator.KeyMomentRequest) (*generator.KeyMomentResult, error) {
	body := keyMomentRequest{
		Story:           toWireStory(req.Story),
		ApprovedVisuals: toWireVisuals(req.Visuals),
		Feedback:        req.Feedback,
	}
	var resp keyMomentResponse
	if err := c.post(ctx, "/moodboard/generate-key-moment", body, &resp); err != nil {
		return nil, err
	}
	img, err := fromWireImage(resp.Image)
	if err != nil {
		return nil, err
	}
	return &generator.KeyMomentResult{
		BeatNumber:      resp.BeatNumber,
		BeatDescription: resp.BeatDescription,
		Image:           img,
		Prompt:          promptOf(resp.PromptUsed, resp.Image),
		CostUSD:         resp.CostUSD,
	}, nil
}

// StartFilm 提交成片任务
func (c *Client) StartFilm(ctx context.Context, req *generator.FilmRequest) (*generator.FilmStart, error) {
	body := filmRequest{
		Story:           toWireStory(req.Story),
		ApprovedVisuals: toWireVisuals(req.Visuals),
		KeyMomentImage:  toWireImage(req.KeyMomentImage),
	}
	var resp filmResponse
	if err := c.post(ctx, "/film/generate", body, &resp); err != nil {
		return nil, err
	}
	if resp.FilmID == "" {
		return nil, errors.New("generator accepted the film without a film_id")
	}
	return &generator.FilmStart{FilmID: resp.FilmID, TotalShots: resp.TotalShots}, nil
}

// FilmStatus 查询成片任务，404 返回 ErrFilmNotFound
func (c *Client) FilmStatus(ctx context.Context, filmID string) (*generator.FilmStatus, error) {
	var resp filmStatusResponse
	err := c.do(ctx, http.MethodGet, "/film/"+url.PathEscape(filmID), nil, &resp)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", generator.ErrFilmNotFound, filmID)
	}
	if err != nil {
		return nil, err
	}

	status := model.FilmStatus(resp.Status)
	switch status {
	case model.FilmStatusGenerating, model.FilmStatusAssembling, model.FilmStatusReady, model.FilmStatusFailed:
	default:
		return nil, fmt.Errorf("unknown film status %q", resp.Status)
	}
	shots := make([]model.CompletedShot, 0, len(resp.CompletedShots))
	for _, shot := range resp.CompletedShots {
		shot.PreviewURL = c.absolute(shot.PreviewURL)
		shots = append(shots, shot)
	}
	return &generator.FilmStatus{
		FilmID:         filmID,
		Status:         status,
		CurrentShot:    resp.CurrentShot,
		TotalShots:     resp.TotalShots,
		Phase:          model.FilmPhase(resp.Phase),
		CompletedShots: shots,
		FinalVideoURL:  c.absolute(deref(resp.FinalVideoURL)),
		ErrorMessage:   deref(resp.ErrorMessage),
		Cost:           resp.Cost,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponse+1))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if int64(len(data)) > c.maxResponse {
		return fmt.Errorf("%s response exceeds %d bytes", path, c.maxResponse)
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).Msg("generator call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Code: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(data, &er) == nil && er.Detail != "" {
			se.Detail = er.Detail
		} else {
			se.Detail = strings.TrimSpace(string(data))
		}
		return se
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// absolute 把生成服务返回的相对地址补全为绝对地址
func (c *Client) absolute(u string) string {
	if u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return c.baseURL + "/" + strings.TrimPrefix(u, "/")
}

func reference(img *generator.Image) *wireImage {
	if img == nil || len(img.Data) == 0 {
		return nil
	}
	w := toWireImage(*img)
	return &w
}

func promptOf(prompt string, img wireMoodboardImage) string {
	if prompt != "" {
		return prompt
	}
	return img.PromptUsed
}

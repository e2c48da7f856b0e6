package ark

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reel/internal/config"
)

// TaskStatus Seedance 任务状态
type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// VideoClient Seedance 图生视频客户端
// 任务接口走 HTTP：POST/GET {base_url}/contents/generations/tasks
// 参考: https://www.volcengine.com/docs/82379/1520757
type VideoClient struct {
	httpClient   *http.Client
	model        string
	baseURL      string
	apiKey       string
	pollInterval time.Duration
}

// NewVideoClient 创建视频生成客户端
func NewVideoClient(cfg *config.ArkConfig) (*VideoClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ark.api_key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	modelName := cfg.VideoModel
	if modelName == "" {
		modelName = defaultVideoModel
	}
	return &VideoClient{
		httpClient:   &http.Client{Timeout: 10 * time.Minute},
		model:        modelName,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       cfg.APIKey,
		pollInterval: 5 * time.Second,
	}, nil
}

// GenerateVideoFromImage 从首帧生成视频并下载（同步等待，受 ctx 控制）
// duration 最大 12 秒。
func (c *VideoClient) GenerateVideoFromImage(ctx context.Context, imageDataURL string, duration int, prompt string) ([]byte, error) {
	if duration > 12 {
		log.Warn().Int("original", duration).Msg("video duration capped at 12 seconds")
		duration = 12
	}

	taskID, err := c.CreateTask(ctx, imageDataURL, prompt, duration, "9:16")
	if err != nil {
		return nil, fmt.Errorf("failed to create video task: %w", err)
	}
	log.Info().Str("task_id", taskID).Str("model", c.model).Msg("video task submitted")

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, videoURL, err := c.TaskStatus(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to get task status: %w", err)
		}
		switch status {
		case TaskSucceeded:
			if videoURL == "" {
				return nil, fmt.Errorf("video task %s succeeded without a video url", taskID)
			}
			data, err := c.Download(ctx, videoURL)
			if err != nil {
				return nil, err
			}
			log.Info().Str("task_id", taskID).Int("size", len(data)).Msg("video downloaded")
			return data, nil
		case TaskFailed, TaskCancelled:
			return nil, fmt.Errorf("video task %s %s", taskID, status)
		}
		log.Debug().Str("task_id", taskID).Str("status", string(status)).Msg("video task in progress")
	}
}

// CreateTask 提交图生视频任务，返回任务ID
func (c *VideoClient) CreateTask(ctx context.Context, imageDataURL, prompt string, duration int, ratio string) (string, error) {
	body := map[string]interface{}{
		"model": c.model,
		"content": []map[string]interface{}{
			{"type": "text", "text": prompt},
			{"type": "image_url", "image_url": map[string]interface{}{"url": imageDataURL}},
		},
		"ratio":     ratio,
		"duration":  duration,
		"watermark": false,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request body: %w", err)
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/contents/generations/tasks", bytes.NewReader(payload), &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("task ID is empty in response")
	}
	return resp.ID, nil
}

// TaskStatus 查询任务状态
func (c *VideoClient) TaskStatus(ctx context.Context, taskID string) (TaskStatus, string, error) {
	var resp struct {
		Status  TaskStatus `json:"status"`
		Content struct {
			VideoURL string `json:"video_url"`
		} `json:"content"`
	}
	if err := c.call(ctx, http.MethodGet, "/contents/generations/tasks/"+taskID, nil, &resp); err != nil {
		return "", "", err
	}
	return resp.Status, resp.Content.VideoURL, nil
}

// Download 下载生成的视频
func (c *VideoClient) Download(ctx context.Context, videoURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download video: status code %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *VideoClient) call(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		log.Error().Int("status_code", resp.StatusCode).Str("path", path).Str("response_body", string(data)).
			Msg("ark API request failed")
		return fmt.Errorf("API request failed: status %d, body: %s", resp.StatusCode, string(data))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// DataURL 将图片数据转换为 data URL
func DataURL(imageData []byte, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageData))
}

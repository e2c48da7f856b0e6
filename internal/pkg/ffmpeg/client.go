package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Client FFmpeg 客户端
// 用于封装 FFmpeg 命令调用
type Client struct {
	ffmpegPath  string // FFmpeg 可执行文件路径（默认: ffmpeg）
	ffprobePath string // FFprobe 可执行文件路径（默认: ffprobe）
}

// NewClient 创建 FFmpeg 客户端
func NewClient() *Client {
	ffmpegPath := os.Getenv("FFMPEG_PATH")
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	ffprobePath := os.Getenv("FFPROBE_PATH")
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	return &Client{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// Available 检查 ffmpeg 是否可用
func (c *Client) Available() bool {
	_, err := exec.LookPath(c.ffmpegPath)
	return err == nil
}

// VideoInfo 视频信息
type VideoInfo struct {
	Width    int     // 宽度
	Height   int     // 高度
	FPS      float64 // 帧率
	Duration float64 // 时长（秒）
}

type probeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetVideoInfo 获取视频信息
func (c *Client) GetVideoInfo(ctx context.Context, videoPath string) (*VideoInfo, error) {
	// ffprobe -v error -select_streams v:0 -show_entries stream=width,height,r_frame_rate -show_entries format=duration -of json video.mp4
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbe(output)
}

func parseProbe(output []byte) (*VideoInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info VideoInfo
	if len(probe.Streams) > 0 {
		s := probe.Streams[0]
		info.Width, info.Height = s.Width, s.Height
		// r_frame_rate 格式: "30000/1001"
		if num, den, ok := strings.Cut(s.RFrameRate, "/"); ok {
			n, _ := strconv.ParseFloat(num, 64)
			d, _ := strconv.ParseFloat(den, 64)
			if d > 0 {
				info.FPS = n / d
			}
		}
	}
	info.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	return &info, nil
}

// ExtractLastFrame 截取视频最后一帧为 PNG，用作下一个镜头的首帧
func (c *Client) ExtractLastFrame(ctx context.Context, videoPath, outputPath string) error {
	// ffmpeg -sseof -0.1 -i video.mp4 -frames:v 1 -update 1 frame.png
	args := []string{
		"-y",
		"-sseof", "-0.1",
		"-i", videoPath,
		"-frames:v", "1",
		"-update", "1",
		outputPath,
	}
	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg extract last frame failed: %w", err)
	}
	return nil
}

// ConcatVideos 合并多个视频文件
// 使用 concat demuxer（需要创建 concat list 文件）
func (c *Client) ConcatVideos(ctx context.Context, videoPaths []string, outputPath string) error {
	if len(videoPaths) == 0 {
		return fmt.Errorf("no videos to concat")
	}

	listFile, err := os.CreateTemp(filepath.Dir(outputPath), "concat_list_*.txt")
	if err != nil {
		return fmt.Errorf("create concat list file: %w", err)
	}
	defer os.Remove(listFile.Name())

	for _, videoPath := range videoPaths {
		absPath, err := filepath.Abs(videoPath)
		if err != nil {
			listFile.Close()
			return fmt.Errorf("get absolute path: %w", err)
		}
		fmt.Fprintf(listFile, "file '%s'\n", strings.ReplaceAll(absPath, "'", `'\''`))
	}
	if err := listFile.Close(); err != nil {
		return fmt.Errorf("write concat list file: %w", err)
	}

	// ffmpeg -f concat -safe 0 -i concat_list.txt -c copy output.mp4
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile.Name(),
		"-c", "copy", // 使用 copy 避免重新编码
		"-movflags", "+faststart",
		outputPath,
	}
	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}

	log.Info().
		Int("count", len(videoPaths)).
		Str("output", outputPath).
		Msg("videos concatenated")
	return nil
}

func (c *Client) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.ffmpegPath, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

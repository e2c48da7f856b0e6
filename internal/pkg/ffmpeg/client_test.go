package ffmpeg

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseProbe(t *testing.T) {
	Convey("parseProbe", t, func() {
		info, err := parseProbe([]byte(`{"streams":[{"width":720,"height":1280,"r_frame_rate":"30000/1001"}],"format":{"duration":"5.041667"}}`))
		So(err, ShouldBeNil)
		So(info.Width, ShouldEqual, 720)
		So(info.Height, ShouldEqual, 1280)
		So(info.FPS, ShouldAlmostEqual, 29.97, 0.01)
		So(info.Duration, ShouldAlmostEqual, 5.041667, 0.0001)

		_, err = parseProbe([]byte("not json"))
		So(err, ShouldNotBeNil)
	})
}

func TestConcatAndLastFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ffmpeg test in short mode")
	}
	c := NewClient()
	if !c.Available() {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath(c.ffprobePath); err != nil {
		t.Skip("ffprobe not installed")
	}

	Convey("拼接并截取最后一帧", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		var clips []string
		for _, color := range []string{"red", "blue"} {
			path := filepath.Join(dir, color+".mp4")
			So(c.run(ctx, []string{"-y", "-f", "lavfi", "-i", "color=c=" + color + ":s=64x112:d=1", "-pix_fmt", "yuv420p", path}), ShouldBeNil)
			clips = append(clips, path)
		}

		out := filepath.Join(dir, "final.mp4")
		So(c.ConcatVideos(ctx, clips, out), ShouldBeNil)
		info, err := c.GetVideoInfo(ctx, out)
		So(err, ShouldBeNil)
		So(info.Width, ShouldEqual, 64)
		So(info.Duration, ShouldBeGreaterThan, 1.5)

		frame := filepath.Join(dir, "last.png")
		So(c.ExtractLastFrame(ctx, out, frame), ShouldBeNil)
		st, err := os.Stat(frame)
		So(err, ShouldBeNil)
		So(st.Size(), ShouldBeGreaterThan, 0)
	})

	Convey("空列表", t, func() {
		So(c.ConcatVideos(context.Background(), nil, "x.mp4"), ShouldNotBeNil)
	})
}

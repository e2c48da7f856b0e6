package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	. "github.com/smartystreets/goconvey/convey"

	"reel/internal/config"
)

func TestInit(t *testing.T) {
	Convey("logger.Init", t, func() {
		defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

		Convey("非法级别回退到 info", func() {
			So(Init(&config.LogConfig{Level: "chatty", Format: "json"}), ShouldBeNil)
			So(zerolog.GlobalLevel(), ShouldEqual, zerolog.InfoLevel)
		})

		Convey("文件输出", func() {
			path := filepath.Join(t.TempDir(), "reel.log")
			So(Init(&config.LogConfig{Level: "debug", Format: "json", Output: "file", FilePath: path}), ShouldBeNil)
			log.Info().Str("generation_id", "g1").Msg("hello")

			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"generation_id":"g1"`)
		})

		Convey("文件输出缺少路径", func() {
			So(Init(&config.LogConfig{Output: "file"}), ShouldNotBeNil)
		})

		Convey("未知输出", func() {
			So(Init(&config.LogConfig{Output: "syslog"}), ShouldNotBeNil)
		})
	})
}

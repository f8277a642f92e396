package media

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
)

const (
	ffmpegPathEnv  = "LEGENDAI_FFMPEG_PATH"
	ffprobePathEnv = "LEGENDAI_FFPROBE_PATH"
)

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

var (
	locateOnce sync.Once
	locatePath BinaryPaths
	locateErr  error
)

// Locate finds ffmpeg and ffprobe once per process, preferring the
// LEGENDAI_FFMPEG_PATH / LEGENDAI_FFPROBE_PATH overrides over PATH.
func Locate() (BinaryPaths, error) {
	locateOnce.Do(func() {
		locatePath, locateErr = locate(os.Getenv, exec.LookPath)
	})
	return locatePath, locateErr
}

func FFmpegPath() (string, error) {
	paths, err := Locate()
	if err != nil {
		return "", err
	}
	return paths.FFmpeg, nil
}

func FFprobePath() (string, error) {
	paths, err := Locate()
	if err != nil {
		return "", err
	}
	return paths.FFprobe, nil
}

func locate(
	getenv func(string) string,
	lookPath func(string) (string, error),
) (BinaryPaths, error) {
	paths := BinaryPaths{
		FFmpeg:  getenv(ffmpegPathEnv),
		FFprobe: getenv(ffprobePathEnv),
	}

	if paths.FFmpeg == "" {
		found, err := lookPath("ffmpeg")
		if err != nil {
			return BinaryPaths{}, fmt.Errorf("ffmpeg not found: install it or set %s", ffmpegPathEnv)
		}
		paths.FFmpeg = found
	}
	if paths.FFprobe == "" {
		found, err := lookPath("ffprobe")
		if err != nil {
			return BinaryPaths{}, fmt.Errorf("ffprobe not found: install it or set %s", ffprobePathEnv)
		}
		paths.FFprobe = found
	}

	return paths, nil
}

package frame

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// ExecFFmpeg shells out to an ffmpeg binary. Seeking from the end with a
// small back-off avoids the final frame, which many encoders leave blank.
type ExecFFmpeg struct {
	Bin string
}

func NewExecFFmpeg() *ExecFFmpeg {
	return &ExecFFmpeg{Bin: "ffmpeg"}
}

func (f *ExecFFmpeg) LastFrame(ctx context.Context, videoPath, outPath string) error {
	cmd := exec.CommandContext(ctx, f.Bin,
		"-sseof", "-0.1",
		"-i", videoPath,
		"-update", "1",
		"-q:v", "2",
		"-frames:v", "1",
		"-y", outPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg timed out: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.Bytes()))
	}
	return nil
}

func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(bytes.TrimSpace(lines[len(lines)-1]))
}

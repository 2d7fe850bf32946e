package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpegEncoder encodes a frame sequence with ffmpeg's concat demuxer.
// Each still appears once in the list file with an explicit duration.
type FFmpegEncoder struct {
	Bin string
}

func NewFFmpegEncoder() *FFmpegEncoder {
	return &FFmpegEncoder{Bin: "ffmpeg"}
}

func (e *FFmpegEncoder) Encode(ctx context.Context, frames []Frame, outPath string, fps, width, height int) error {
	listPath, err := writeConcatList(frames)
	if err != nil {
		return err
	}
	defer os.Remove(listPath)

	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,format=yuv420p",
		width, height, width, height)

	cmd := exec.CommandContext(ctx, e.Bin,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-vf", scale,
		"-r", strconv.Itoa(fps),
		"-movflags", "+faststart",
		"-y", outPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.Bytes()))
	}
	return nil
}

func writeConcatList(frames []Frame) (string, error) {
	var b strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&b, "file '%s'\n", filepath.ToSlash(f.Path))
		fmt.Fprintf(&b, "duration %.3f\n", f.Hold.Seconds())
	}
	// The concat demuxer ignores the duration of the final entry unless
	// the last file is repeated.
	if len(frames) > 0 {
		fmt.Fprintf(&b, "file '%s'\n", filepath.ToSlash(frames[len(frames)-1].Path))
	}

	list, err := os.CreateTemp("", "tussievideo-concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create concat list: %w", err)
	}
	if _, err := list.WriteString(b.String()); err != nil {
		list.Close()
		os.Remove(list.Name())
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}
	if err := list.Close(); err != nil {
		os.Remove(list.Name())
		return "", err
	}
	return list.Name(), nil
}

func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(bytes.TrimSpace(lines[len(lines)-1]))
}

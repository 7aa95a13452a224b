// Package transcode normalizes uploaded clips into the canonical WebM
// profile (VP9 video, Opus audio) by invoking an external encoder and
// atomically replacing the original artifact.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/vidnote/backend/pkg/storage"
)

// CanonicalContentType is the MIME type of every artifact after re-encoding.
const CanonicalContentType = "video/webm"

var (
	// ErrInputMissing indicates the file to re-encode does not exist.
	ErrInputMissing = errors.New("transcode input missing")
	// ErrInterrupted indicates the encoder wait was cancelled before completion.
	ErrInterrupted = errors.New("transcode interrupted")
)

// ExitError reports a non-zero encoder exit with its diagnostic output.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("encoder exited with code %d", e.Code)
}

// Transcoder re-encodes video files in place using a fixed VP9/Opus profile.
type Transcoder struct {
	binary string
	runner ExecRunner
	logger *zap.Logger
}

// New creates a Transcoder invoking the given ffmpeg binary through runner.
func New(binary string, runner ExecRunner, logger *zap.Logger) *Transcoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	if runner == nil {
		runner = OSRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcoder{binary: binary, runner: runner, logger: logger}
}

// Reencode converts the file at absPath into the canonical profile, writing
// to a sibling temporary file and atomically installing it over the original
// on success. On any failure the temporary file is removed and the original
// is left untouched.
func (t *Transcoder) Reencode(ctx context.Context, absPath string) error {
	if _, err := os.Stat(absPath); err != nil {
		return fmt.Errorf("%w: %s", ErrInputMissing, absPath)
	}

	tempPath := tempOutputPath(absPath)
	args := encodeArgs(absPath, tempPath)

	t.logger.Info("re-encoding artifact",
		zap.String("input", filepath.Base(absPath)),
		zap.String("command", t.binary+" "+strings.Join(args, " ")))

	result, err := t.runner.Run(ctx, t.binary, args)
	if err != nil {
		os.Remove(tempPath)
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrInterrupted, err)
		}
		return fmt.Errorf("invoke encoder: %w", err)
	}
	if result.ExitCode != 0 {
		os.Remove(tempPath)
		t.logger.Error("encoder failed",
			zap.Int("exit_code", result.ExitCode),
			zap.String("output", tail(result.Output, 2000)))
		return &ExitError{Code: result.ExitCode, Output: result.Output}
	}

	// Exit 0 gates the replace, so the rename target is known to exist.
	if err := os.Remove(absPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: remove original: %v", storage.ErrWrite, err)
	}
	if err := os.Rename(tempPath, absPath); err != nil {
		// The original is already gone; the temp file may be the only copy
		// left, so it is retained for manual recovery.
		t.logger.Error("install failed, temp artifact retained",
			zap.String("temp", tempPath), zap.Error(err))
		return fmt.Errorf("%w: install re-encoded artifact: %v", storage.ErrWrite, err)
	}

	t.logger.Info("re-encoded artifact", zap.String("input", filepath.Base(absPath)))
	return nil
}

// encodeArgs builds the fixed ffmpeg argument profile: VP9 at 1Mbps (1.5M max),
// CRF 31, Opus at 128k VBR, WebM container, regenerated timestamps.
func encodeArgs(input, output string) []string {
	return []string{
		"-y",
		"-fflags", "+genpts",
		"-i", input,
		"-c:v", "libvpx-vp9",
		"-b:v", "1M",
		"-crf", "31",
		"-maxrate", "1.5M",
		"-bufsize", "2M",
		"-c:a", "libopus",
		"-b:a", "128k",
		"-vbr", "on",
		"-f", "webm",
		"-avoid_negative_ts", "make_zero",
		output,
	}
}

// tempOutputPath returns "<base>_tmp<ext>" alongside the input.
func tempOutputPath(absPath string) string {
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)
	if dot := strings.LastIndexByte(filename, '.'); dot > 0 {
		return filepath.Join(dir, filename[:dot]+"_tmp"+filename[dot:])
	}
	return filepath.Join(dir, filename+"_tmp")
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

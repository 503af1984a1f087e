package encoder

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/Vovarama1992/watchparty/internal/ports"
)

type Mode string

const (
	// ModeRecode re-encodes with a fast preset and blocks inside Invoke.
	ModeRecode Mode = "recode"
	// ModeTransmux copies streams; Invoke returns as soon as ffmpeg is started.
	ModeTransmux Mode = "transmux"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRecode, "":
		return ModeRecode, nil
	case ModeTransmux:
		return ModeTransmux, nil
	default:
		return "", fmt.Errorf("unknown encoder mode %q", s)
	}
}

const maxStderrTail = 2048

type FFmpeg struct {
	bin  string
	mode Mode
}

func NewFFmpeg(bin string, mode Mode) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	if mode == "" {
		mode = ModeRecode
	}
	return &FFmpeg{bin: bin, mode: mode}
}

var _ ports.Encoder = (*FFmpeg)(nil)

func (f *FFmpeg) Mode() Mode { return f.mode }

// Args is the fixed argument template for the configured mode.
func (f *FFmpeg) Args(inputPath, outputPath string) []string {
	if f.mode == ModeTransmux {
		return []string{
			"-y",
			"-loglevel", "error",
			"-i", inputPath,
			"-c", "copy",
			outputPath,
		}
	}
	return []string{
		"-y",
		"-loglevel", "error",
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-c:a", "aac",
		outputPath,
	}
}

// Invoke launches ffmpeg. In recode mode it waits for the process and
// returns an error on a non-zero exit; in transmux mode the returned handle
// must be awaited by the caller. There is no timeout: ffmpeg is only killed
// when ctx is cancelled.
func (f *FFmpeg) Invoke(ctx context.Context, inputPath, outputPath string) (ports.EncodeHandle, error) {
	log.Printf("[ENC][START] mode=%s in=%s out=%s", f.mode, inputPath, outputPath)

	cmd := exec.CommandContext(ctx, f.bin, f.Args(inputPath, outputPath)...)
	stderr := &tailBuffer{max: maxStderrTail}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		log.Printf("[ENC][ERR-start] bin=%s err=%v", f.bin, err)
		return nil, fmt.Errorf("start %s: %w", f.bin, err)
	}

	h := &Handle{
		cmd:    cmd,
		stderr: stderr,
		start:  time.Now(),
		output: outputPath,
		done:   make(chan struct{}),
	}
	go h.reap()

	if f.mode == ModeRecode {
		if err := h.Wait(); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Handle tracks one running ffmpeg process. The process is reaped in the
// background as soon as it exits; Done is closed then and Wait returns the
// same result to every caller.
type Handle struct {
	cmd    *exec.Cmd
	stderr *tailBuffer
	start  time.Time
	output string

	done chan struct{}
	err  error
}

func (h *Handle) reap() {
	defer close(h.done)

	err := h.cmd.Wait()
	dur := time.Since(h.start)
	if err != nil {
		h.err = fmt.Errorf("ffmpeg %s: %w: %s", h.output, err, strings.TrimSpace(h.stderr.String()))
		log.Printf("[ENC][FAIL] out=%s dur=%s err=%v", h.output, dur, err)
		return
	}
	log.Printf("[ENC][OK] out=%s dur=%s", h.output, dur)
}

func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

func (h *Handle) Done() <-chan struct{} { return h.done }

// tailBuffer keeps the last max bytes written to it. exec copies stderr from
// a single goroutine and Wait returns only after that copy is done.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }

package domain

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/watchparty/internal/models"
	"github.com/Vovarama1992/watchparty/internal/ports"
	"go.uber.org/zap"
)

func nopLogger() *logger.ZapLogger {
	return logger.NewZapLogger(zap.NewNop().Sugar())
}

type published struct {
	Event   string
	Payload any
}

type recordingHub struct {
	mu     sync.Mutex
	events []published
	onPub  func(event string, payload any)
}

func (h *recordingHub) Publish(event string, payload any) {
	if h.onPub != nil {
		h.onPub(event, payload)
	}
	h.mu.Lock()
	h.events = append(h.events, published{Event: event, Payload: payload})
	h.mu.Unlock()
}

func (h *recordingHub) urls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.events {
		if p, ok := e.Payload.(ports.NewVideoPayload); ok {
			out = append(out, p.URL)
		}
	}
	return out
}

func (h *recordingHub) all() []published {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]published(nil), h.events...)
}

type resolvedHandle struct {
	err  error
	done chan struct{}
}

func newResolved(err error) *resolvedHandle {
	h := &resolvedHandle{err: err, done: make(chan struct{})}
	close(h.done)
	return h
}

func (h *resolvedHandle) Wait() error           { return h.err }
func (h *resolvedHandle) Done() <-chan struct{} { return h.done }

// copyEncoder copies input to output like a successful stream copy. With fail
// set it leaves a partial output behind and reports a non-zero exit.
type copyEncoder struct {
	calls    atomic.Int32
	fail     bool
	onInvoke func(in, out string)
}

func (e *copyEncoder) Invoke(ctx context.Context, in, out string) (ports.EncodeHandle, error) {
	e.calls.Add(1)
	if e.onInvoke != nil {
		e.onInvoke(in, out)
	}
	if e.fail {
		if err := os.WriteFile(out, []byte("partial"), 0644); err != nil {
			return nil, err
		}
		return newResolved(errors.New("exit status 1")), nil
	}
	src, err := os.Open(in)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	dst, err := os.Create(out)
	if err != nil {
		return nil, err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return nil, err
	}
	return newResolved(nil), nil
}

type failingMediaRepo struct{}

func (failingMediaRepo) InsertMedia(context.Context, *models.Media) (*models.Media, error) {
	return nil, errors.New("connection refused")
}

func (failingMediaRepo) ListMedia(context.Context) ([]models.Media, error) {
	return nil, errors.New("connection refused")
}

type failingNoteRepo struct{}

func (failingNoteRepo) InsertNote(context.Context, *models.Note) (*models.Note, error) {
	return nil, errors.New("connection refused")
}

func (failingNoteRepo) ListNotes(context.Context) ([]models.Note, error) {
	return nil, errors.New("connection refused")
}

// probeStore wraps a blob store and runs hook at the start of every Save.
type probeStore struct {
	ports.BlobStore
	hook func()
	fail atomic.Bool
}

func (p *probeStore) Save(name string, r io.Reader) (string, error) {
	if p.hook != nil {
		p.hook()
	}
	if p.fail.Load() {
		return "", errors.New("disk full")
	}
	return p.BlobStore.Save(name, r)
}

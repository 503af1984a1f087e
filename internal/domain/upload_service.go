package domain

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/watchparty/internal/metrics"
	"github.com/Vovarama1992/watchparty/internal/models"
	"github.com/Vovarama1992/watchparty/internal/ports"
)

const (
	convertedPrefix = "converted_"
	convertedExt    = ".mp4"
	uploadsPath     = "/uploads/"

	// bounds an insert that no longer follows its caller's cancellation
	persistTimeout = 10 * time.Second
)

// UploadService stores uploads and drives their background conversion.
//
// mu serializes the whole store → insert → publish sequence of an upload,
// so at most one upload is in that section at a time. Conversions are spawned
// after mu is released and run concurrently with each other and with later
// uploads. Records are always inserted before their new_video event.
type UploadService struct {
	store   ports.BlobStore
	repo    ports.MediaRepository
	hub     ports.Broadcaster
	encoder ports.Encoder
	log     *logger.ZapLogger

	// base context of spawned conversions; cancelled only on shutdown
	baseCtx context.Context

	mu       sync.Mutex
	inflight sync.WaitGroup
}

func NewUploadService(
	baseCtx context.Context,
	store ports.BlobStore,
	repo ports.MediaRepository,
	hub ports.Broadcaster,
	encoder ports.Encoder,
	log *logger.ZapLogger,
) *UploadService {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &UploadService{
		store:   store,
		repo:    repo,
		hub:     hub,
		encoder: encoder,
		log:     log,
		baseCtx: baseCtx,
	}
}

var _ ports.UploadService = (*UploadService)(nil)

// ServedURL is the path clients fetch a stored file from.
func ServedURL(name string) string { return uploadsPath + name }

// ConvertedName derives the converted file name: "converted_" prefix and an
// .mp4 extension in place of the original one.
func ConvertedName(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return convertedPrefix + stem + convertedExt
}

// ========================================================================
// UPLOAD
// ========================================================================
func (s *UploadService) Upload(ctx context.Context, req ports.UploadRequest) (*models.Media, error) {
	if req.Body == nil {
		return nil, ErrNoFile
	}

	media, err := s.storeAndAnnounce(ctx, req)
	if err != nil {
		return nil, err
	}
	metrics.Uploads.Inc()

	if !req.NoConvert {
		s.spawnConversion(media.Title)
	}
	return media, nil
}

func (s *UploadService) storeAndAnnounce(ctx context.Context, req ports.UploadRequest) (*models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.store.Save(req.Filename, req.Body)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	name := filepath.Base(path)

	media := s.record(ctx, name)

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "upload stored",
		Fields:  map[string]any{"title": name, "mediaID": media.ID},
	})
	return media, nil
}

// record inserts a media row for name and then publishes new_video. A failed
// insert is logged and the event still goes out, the file is already stored.
// The insert ignores cancellation of ctx: a client hanging up or shutdown
// starting must not drop the row of a file that is stored and announced.
func (s *UploadService) record(ctx context.Context, name string) *models.Media {
	media := &models.Media{
		Title:      name,
		URL:        ServedURL(name),
		UploadedBy: models.Anonymous,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if saved, err := s.repo.InsertMedia(ctx, media); err != nil {
		metrics.PersistErrors.WithLabelValues("media").Inc()
		s.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "insert media failed",
			Fields:  map[string]any{"title": name},
			Error:   err,
		})
	} else {
		media = saved
	}

	s.hub.Publish(ports.EventNewVideo, ports.NewVideoPayload{URL: media.URL})
	return media
}

// ========================================================================
// CONVERSION
// ========================================================================
func (s *UploadService) spawnConversion(name string) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.convert(name)
	}()
}

// convert encodes name into a temp file of the store and commits it as the
// converted name only on success, so a half-written output is never served.
func (s *UploadService) convert(name string) {
	start := time.Now()
	outName := ConvertedName(name)
	in := s.store.Path(name)
	tmp := s.store.TempPath(outName)

	metrics.ConversionsInFlight.Inc()
	defer metrics.ConversionsInFlight.Dec()

	h, err := s.encoder.Invoke(s.baseCtx, in, tmp)
	if err == nil {
		err = h.Wait()
	}
	if err == nil {
		_, err = s.store.Commit(tmp, outName)
	}
	metrics.ConversionSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		s.store.Discard(tmp)
		metrics.Conversions.WithLabelValues("failed").Inc()
		s.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "conversion failed",
			Fields:  map[string]any{"title": name, "dur": time.Since(start).String()},
			Error:   err,
		})
		return
	}

	metrics.Conversions.WithLabelValues("ok").Inc()
	media := s.record(s.baseCtx, outName)

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "conversion done",
		Fields: map[string]any{
			"title":   outName,
			"mediaID": media.ID,
			"dur":     time.Since(start).String(),
		},
	})
}

// Wait blocks until every spawned conversion has finished.
func (s *UploadService) Wait() {
	s.inflight.Wait()
}

func (s *UploadService) ListMedia(ctx context.Context) ([]models.Media, error) {
	return s.repo.ListMedia(ctx)
}

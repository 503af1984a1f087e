package infra

import (
	"context"
	"sync"
	"time"

	"github.com/Vovarama1992/watchparty/internal/models"
	"github.com/Vovarama1992/watchparty/internal/ports"
)

// MemoryRepo keeps media and notes in process memory. It backs STORE=memory
// and the service tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	media  []models.Media
	notes  []models.Note
	nextID int
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

var (
	_ ports.MediaRepository = (*MemoryRepo)(nil)
	_ ports.NoteRepository  = (*MemoryRepo)(nil)
)

func (r *MemoryRepo) InsertMedia(ctx context.Context, media *models.Media) (*models.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	media.ID = r.nextID
	media.CreatedAt = time.Now().UTC()
	r.media = append(r.media, *media)
	return media, nil
}

func (r *MemoryRepo) ListMedia(ctx context.Context) ([]models.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Media, len(r.media))
	copy(out, r.media)
	return out, nil
}

func (r *MemoryRepo) InsertNote(ctx context.Context, note *models.Note) (*models.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	note.ID = r.nextID
	note.CreatedAt = time.Now().UTC()
	r.notes = append(r.notes, *note)
	return note, nil
}

func (r *MemoryRepo) ListNotes(ctx context.Context) ([]models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Note, len(r.notes))
	copy(out, r.notes)
	return out, nil
}

package ports

import (
	"context"

	"github.com/Vovarama1992/watchparty/internal/models"
)

type MediaRepository interface {
	InsertMedia(ctx context.Context, media *models.Media) (*models.Media, error)
	ListMedia(ctx context.Context) ([]models.Media, error)
}

type NoteRepository interface {
	InsertNote(ctx context.Context, note *models.Note) (*models.Note, error)
	ListNotes(ctx context.Context) ([]models.Note, error)
}

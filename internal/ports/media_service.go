package ports

import (
	"context"
	"io"
	"os"

	"github.com/Vovarama1992/watchparty/internal/models"
)

// Push-channel event names.
const (
	EventNewVideo    = "new_video"
	EventVideo       = "video_event"
	EventChatMessage = "chat_message"
)

type NewVideoPayload struct {
	URL string `json:"url"`
}

// Broadcaster fans an event out to every live connection.
type Broadcaster interface {
	Publish(event string, payload any)
}

type BlobStore interface {
	Save(name string, r io.Reader) (string, error)
	Open(name string) (*os.File, error)
	Path(name string) string

	// TempPath, Commit and Discard stage an output that is produced in place
	// (by the encoder) so it only appears under its final name once complete.
	TempPath(name string) string
	Commit(tempPath, name string) (string, error)
	Discard(tempPath string)
}

// EncodeHandle resolves once the encoder process has exited. Done is closed
// at exit even if nobody calls Wait.
type EncodeHandle interface {
	Wait() error
	Done() <-chan struct{}
}

type Encoder interface {
	Invoke(ctx context.Context, inputPath, outputPath string) (EncodeHandle, error)
}

type UploadRequest struct {
	Filename  string
	Body      io.Reader
	NoConvert bool
}

type UploadService interface {
	Upload(ctx context.Context, req UploadRequest) (*models.Media, error)
	ListMedia(ctx context.Context) ([]models.Media, error)
}

type ChatService interface {
	HandleChat(ctx context.Context, content string) (*models.Note, error)
	ListNotes(ctx context.Context) ([]models.Note, error)
}

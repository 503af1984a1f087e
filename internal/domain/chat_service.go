package domain

import (
	"context"
	"strings"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/watchparty/internal/metrics"
	"github.com/Vovarama1992/watchparty/internal/models"
	"github.com/Vovarama1992/watchparty/internal/ports"
)

const maxNoteRunes = 500

type ChatService struct {
	repo ports.NoteRepository
	hub  ports.Broadcaster
	log  *logger.ZapLogger
}

func NewChatService(repo ports.NoteRepository, hub ports.Broadcaster, log *logger.ZapLogger) *ChatService {
	return &ChatService{repo: repo, hub: hub, log: log}
}

var _ ports.ChatService = (*ChatService)(nil)

// HandleChat stores the message as a note and relays it to every connection,
// the sender included. The text goes out as sent, cut to maxNoteRunes. Only a
// blank message is rejected; a failed insert is logged and the message is
// still relayed.
func (c *ChatService) HandleChat(ctx context.Context, content string) (*models.Note, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	if r := []rune(content); len(r) > maxNoteRunes {
		content = string(r[:maxNoteRunes])
	}

	note := &models.Note{Content: content, Author: models.Anonymous}
	if saved, err := c.repo.InsertNote(ctx, note); err != nil {
		metrics.PersistErrors.WithLabelValues("note").Inc()
		c.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "insert note failed",
			Error:   err,
		})
	} else {
		note = saved
	}

	c.hub.Publish(ports.EventChatMessage, note.Content)
	metrics.ChatMessages.Inc()
	return note, nil
}

func (c *ChatService) ListNotes(ctx context.Context) ([]models.Note, error) {
	return c.repo.ListNotes(ctx)
}

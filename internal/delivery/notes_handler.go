package delivery

import (
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/watchparty/internal/ports"
)

type NotesHandler struct {
	chat ports.ChatService
	log  *logger.ZapLogger
}

func NewNotesHandler(chat ports.ChatService, log *logger.ZapLogger) *NotesHandler {
	return &NotesHandler{chat: chat, log: log}
}

type noteDTO struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

// GET /notes
func (h *NotesHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.chat.ListNotes(r.Context())
	if err != nil {
		h.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "list notes failed",
			Error:   err,
		})
		writeError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}

	out := make([]noteDTO, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteDTO{Content: n.Content, Author: n.Author})
	}
	writeJSON(w, http.StatusOK, out)
}

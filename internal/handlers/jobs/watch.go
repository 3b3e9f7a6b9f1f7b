package jobs

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"gitlab.com/scenecast.net/internal/handlers/response"
	"gitlab.com/scenecast.net/internal/static/errs"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Watch pushes the job record over a websocket every time it changes and
// closes the connection once the job left pending.
func (h *JobHandler) Watch(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, err := h.dispatchService.Watch(ctx, jobID)
	if errors.Is(err, errs.JobNotFound) {
		response.WriteError(w, response.ErrorMessage{Message: "Invalid job ID", StatusCode: http.StatusNotFound})
		return
	}
	if err != nil {
		h.logger.Error("Failed to watch job", "jobId", jobID, "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "Failed to watch job", StatusCode: http.StatusInternalServerError})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "jobId", jobID, "error", err)
		return
	}
	defer conn.Close()

	// The server timeouts still apply to the hijacked connection.
	_ = conn.SetReadDeadline(time.Time{})

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for rec := range updates {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(rec); err != nil {
			h.logger.Debug("Watcher went away", "jobId", jobID, "error", err)
			return
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job settled"),
		time.Now().Add(writeWait))
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/edumentor/edumentor/internal/orchestrator"
)

const maxChatBodyBytes = 1 << 20

// chatHandler serves the two chat endpoints. Both go through the same
// orchestrator; the streaming variant delivers the reply over SSE as the
// model produces it.
type chatHandler struct {
	orch   Orchestrator
	logger *slog.Logger
}

// send handles POST /api/v1/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err, h.logger)
		return
	}

	resp, err := h.orch.Handle(r.Context(), req)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoUser) || errors.Is(err, orchestrator.ErrNoMessage) {
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
			return
		}
		// The orchestrator absorbs agent failures itself, so anything
		// else here is unexpected. The chat contract is still "never
		// 5xx after validation": apologise at 200 like the agents do.
		h.logger.Error("chat request failed", "error", err)
		WriteJSON(w, http.StatusOK, &orchestrator.ChatResponse{
			SessionID: req.SessionID,
			Agent:     "orchestrator",
			Answer:    orchestrator.ReplyInternalError,
		})
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// SSE event types for chat streaming.
const (
	eventChunk = "chunk"
	eventDone  = "done"
	eventError = "error"
)

// chunkPayload is the SSE data payload for streaming text chunks.
type chunkPayload struct {
	Text string `json:"text"`
}

// errorPayload is the SSE data payload when an error occurs.
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// stream handles POST /api/v1/chat/stream. Replies stream as chunk events
// followed by a done event carrying the same payload the plain endpoint
// returns. Validation failures arrive as error events because the SSE
// headers are committed before the body is read.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var req orchestrator.ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = writeEvent(w, flusher, eventError, errorPayload{Code: "invalid_body", Message: "invalid request body"})
		return
	}

	resp, err := h.orch.HandleStream(r.Context(), req, func(chunk string) error {
		return writeEvent(w, flusher, eventChunk, chunkPayload{Text: chunk})
	})
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoUser) || errors.Is(err, orchestrator.ErrNoMessage) {
			_ = writeEvent(w, flusher, eventError, errorPayload{Code: "invalid_request", Message: err.Error()})
			return
		}
		// Chunk delivery failed, which usually means the client went
		// away. Try to say so; if the connection is truly gone the
		// write is a no-op.
		h.logger.Debug("chat stream aborted", "error", err)
		_ = writeEvent(w, flusher, eventError, errorPayload{Code: "stream_error", Message: "stream interrupted"})
		return
	}

	_ = writeEvent(w, flusher, eventDone, resp)
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	flusher.Flush()
	return nil
}

// writeDecodeError maps request body decoding failures to responses,
// keeping an oversized body distinguishable from malformed JSON.
func writeDecodeError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", logger)
		return
	}
	WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", logger)
}

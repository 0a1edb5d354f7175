// Package relay implements the stateless notification relay: the
// provider webhook handshake, inbound event unwrapping, and the
// send-message endpoint the task daemon calls.
package relay

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/rs/cors"

	"github.com/nhle/daily-todo/internal/messenger"
)

// Handler serves the relay's HTTP surface. It holds only read-only
// configuration; concurrent requests share no mutable state.
type Handler struct {
	verifyToken string
	client      *messenger.Client // nil when no provider credential is configured
	logger      *log.Logger
}

// New creates a relay handler. client may be nil, in which case every
// send attempt fails with a configuration error.
func New(verifyToken string, client *messenger.Client, logger *log.Logger) *Handler {
	return &Handler{
		verifyToken: verifyToken,
		client:      client,
		logger:      logger,
	}
}

// Routes builds the relay's route table with CORS applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /webhook", h.verifyWebhook)
	mux.HandleFunc("POST /webhook", h.receiveEvent)
	mux.HandleFunc("POST /send-message", h.sendMessage)
	mux.HandleFunc("GET /health", h.health)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	return c.Handler(mux)
}

// verifyWebhook answers the provider's subscription handshake: echo the
// challenge iff the mode is "subscribe" and the token matches.
func (h *Handler) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if h.verifyToken == "" || mode != "subscribe" || token != h.verifyToken {
		h.logger.Warn("webhook verification rejected", "mode", mode)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	h.logger.Info("webhook verified")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, challenge)
}

// receiveEvent unwraps an inbound provider event. Every sender id is
// logged so the user can copy it into their settings; sub-events
// carrying text get a canned welcome reply. Receipt is always
// acknowledged regardless of reply delivery.
func (h *Handler) receiveEvent(w http.ResponseWriter, r *http.Request) {
	var event messenger.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if event.Object != "page" {
		writeError(w, http.StatusNotFound, "unknown event object")
		return
	}

	for _, entry := range event.Entry {
		for _, m := range entry.Messaging {
			if m.Sender.ID == "" {
				continue
			}

			h.logger.Info("sender id received, paste it into the app settings",
				"senderId", m.Sender.ID)

			if m.Message == nil || m.Message.Text == "" || h.client == nil {
				continue
			}

			reply := welcomeMessage(m.Sender.ID, m.Message.Text)
			if err := h.client.SendText(r.Context(), m.Sender.ID, reply); err != nil {
				// The webhook contract requires acknowledgment, not
				// delivery, so the reply failure only gets logged.
				h.logger.Warn("welcome reply failed", "senderId", m.Sender.ID, "err", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

// sendRequest is the body of POST /send-message.
type sendRequest struct {
	RecipientID string `json:"recipientId"`
	Message     string `json:"message"`
}

// sendMessage validates the request and forwards it to the provider.
// Single attempt, no retry.
func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var body sendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if body.RecipientID == "" || body.Message == "" {
		writeError(w, http.StatusBadRequest, "recipientId and message are required")
		return
	}

	if h.client == nil {
		writeError(w, http.StatusInternalServerError, "provider access token not configured")
		return
	}

	if err := h.client.SendText(r.Context(), body.RecipientID, body.Message); err != nil {
		h.logger.Error("provider send failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to send")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// health reports configuration presence. Booleans only; the token is
// never echoed beyond a short diagnostic prefix.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":                "ok",
		"providerConfigured":    h.client != nil,
		"verifyTokenConfigured": h.verifyToken != "",
	}
	if h.client != nil {
		resp["tokenPreview"] = h.client.TokenPreview()
	}

	writeJSON(w, http.StatusOK, resp)
}

// welcomeMessage builds the canned reply for an inbound text, embedding
// the sender id the user needs to copy.
func welcomeMessage(senderID, received string) string {
	return fmt.Sprintf(
		"Connected! I received: %q\n\nYour user id is: %s\n\n"+
			"Paste this id into the app's settings and enable notifications "+
			"to receive daily reminders.",
		received, senderID,
	)
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

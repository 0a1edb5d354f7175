package todo

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/rs/cors"
)

// Handler exposes the task store over a small JSON HTTP API for the
// presentation layer.
type Handler struct {
	store  *Store
	logger *log.Logger
}

// NewHandler creates the daemon's HTTP handler around store.
func NewHandler(store *Store, logger *log.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Routes builds the daemon's route table with CORS applied, since the
// expected caller is a browser frontend.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /tasks", h.listTasks)
	mux.HandleFunc("POST /tasks", h.addTask)
	mux.HandleFunc("POST /tasks/{id}/toggle", h.toggleTask)
	mux.HandleFunc("PATCH /tasks/{id}", h.updateTask)
	mux.HandleFunc("DELETE /tasks/{id}", h.deleteTask)
	mux.HandleFunc("GET /settings", h.getSettings)
	mux.HandleFunc("PATCH /settings", h.patchSettings)
	mux.HandleFunc("GET /celebration", h.getCelebration)
	mux.HandleFunc("POST /celebration/dismiss", h.dismissCelebration)
	mux.HandleFunc("GET /health", h.health)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	return c.Handler(mux)
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Tasks())
}

func (h *Handler) addTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	task, err := h.store.AddTask(r.Context(), body.Text)
	if err != nil {
		h.logger.Error("adding task", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to save task")
		return
	}
	if task == nil {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

func (h *Handler) toggleTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.ToggleTask(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("toggling task", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to save task")
		return
	}
	if task == nil {
		// Unknown id is a no-op, not an error.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	task, err := h.store.UpdateTask(r.Context(), r.PathValue("id"), body.Text)
	if err != nil {
		h.logger.Error("updating task", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to save task")
		return
	}
	if task == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		h.logger.Error("deleting task", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to save tasks")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Settings())
}

func (h *Handler) patchSettings(w http.ResponseWriter, r *http.Request) {
	var patch SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	settings, err := h.store.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) getCelebration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"celebrating": h.store.Celebrating(),
	})
}

func (h *Handler) dismissCelebration(w http.ResponseWriter, r *http.Request) {
	h.store.DismissCelebration()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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

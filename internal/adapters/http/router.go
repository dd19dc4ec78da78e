package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/vportnov/briefly/internal/core/domain"
	"github.com/vportnov/briefly/internal/core/ports"
)

// maxUploadBytes bounds multipart uploads read into memory.
const maxUploadBytes = 32 << 20

type Router struct {
	submitter ports.SummarySubmitter
	repo      ports.SummaryRepository
	queue     ports.MessageQueue
}

func NewRouter(
	submitter ports.SummarySubmitter,
	repo ports.SummaryRepository,
	queue ports.MessageQueue,
) *Router {
	return &Router{
		submitter: submitter,
		repo:      repo,
		queue:     queue,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/summaries", rt.summariesCollection)
	mux.HandleFunc("/v1/summaries/upload", rt.uploadDocument)
	mux.HandleFunc("/v1/summaries/", rt.summaryResource)
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) summariesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.submitText(w, r)
	case http.MethodGet:
		rt.listSummaries(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

type submitRequest struct {
	Text      string `json:"text"`
	Style     string `json:"style"`
	MaxLength int    `json:"max_length"`
	Language  string `json:"language"`
}

func (rt *Router) submitText(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	persona, known := domain.ParsePersona(req.Style)
	if !known {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown style: " + req.Style})
		return
	}

	summary, err := rt.submitter.SubmitText(r.Context(), domain.SummarizeRequest{
		Text:           req.Text,
		Persona:        persona,
		MaxLengthChars: req.MaxLength,
		Language:       req.Language,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, viewOf(summary))
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read upload"})
		return
	}

	persona, known := domain.ParsePersona(r.FormValue("style"))
	if !known {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown style: " + r.FormValue("style")})
		return
	}

	summary, err := rt.submitter.SubmitDocument(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		data,
		domain.SummarizeRequest{
			Persona:  persona,
			Language: r.FormValue("language"),
		},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, viewOf(summary))
}

func (rt *Router) listSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := rt.repo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]summaryView, 0, len(summaries))
	for i := range summaries {
		views = append(views, viewOf(&summaries[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": views})
}

// summaryResource handles /v1/summaries/{id} and the control verbs
// /v1/summaries/{id}/pause|resume|cancel.
func (rt *Router) summaryResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/summaries/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "summary id is required"})
		return
	}

	if action != "" {
		rt.controlJob(w, r, id, action)
		return
	}

	switch r.Method {
	case http.MethodGet:
		rt.getSummary(w, r, id)
	case http.MethodDelete:
		rt.deleteSummary(w, r, id)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) getSummary(w http.ResponseWriter, r *http.Request, id string) {
	summary, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(summary))
}

func (rt *Router) deleteSummary(w http.ResponseWriter, r *http.Request, id string) {
	if err := rt.repo.DeleteByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var signalByAction = map[string]domain.JobSignal{
	"pause":  domain.SignalPause,
	"resume": domain.SignalResume,
	"cancel": domain.SignalCancel,
}

func (rt *Router) controlJob(w http.ResponseWriter, r *http.Request, id, action string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	signal, ok := signalByAction[action]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action: " + action})
		return
	}

	// signals only make sense for jobs that exist
	if _, err := rt.repo.GetByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if err := rt.queue.PublishJobSignal(r.Context(), id, signal); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     id,
		"signal": string(signal),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	app := domain.Classify(err)
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{
		"error": err.Error(),
		"code":  string(app.Code),
	})
}

package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vportnov/briefly/internal/core/domain"
	"github.com/vportnov/briefly/internal/core/usecase"
)

// EventsHandler streams per-job progress events as server-sent events from
// the worker's broadcaster. A new subscriber first receives the latest event
// for the job, then live updates until the client disconnects.
func EventsHandler(events *usecase.EventBroadcaster) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jobID := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
		jobID = strings.TrimSuffix(jobID, "/events")
		if jobID == "" || strings.Contains(jobID, "/") {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
			return
		}

		ch, cancel := events.Subscribe(jobID)
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event := <-ch:
				name, payload := encodeEvent(event)
				if _, err := w.Write([]byte("event: " + name + "\ndata: " + payload + "\n\n")); err != nil {
					return
				}
				flusher.Flush()
				switch event.(type) {
				case domain.ProcessingComplete, domain.ProcessingError:
					return
				}
			}
		}
	})
}

func encodeEvent(event domain.StreamingEvent) (string, string) {
	var (
		name    string
		payload any
	)
	switch ev := event.(type) {
	case domain.SectionStarted:
		name = "section_started"
		payload = map[string]any{"section_id": ev.SectionID, "index": ev.Index}
	case domain.SectionCompleted:
		name = "section_completed"
		payload = map[string]any{
			"section_id": ev.Section.ID,
			"title":      ev.Section.Title,
			"summary":    ev.Section.Summary,
		}
	case domain.SectionFailed:
		name = "section_failed"
		payload = map[string]any{"section_id": ev.SectionID, "error": ev.Err}
	case domain.ProgressUpdate:
		name = "progress"
		payload = map[string]any{
			"current":    ev.Current,
			"total":      ev.Total,
			"percentage": ev.Percentage,
			"paused":     ev.Paused,
		}
	case domain.OverallSummaryReady:
		name = "summary_ready"
		payload = ev.Summary
	case domain.ProcessingComplete:
		name = "complete"
		payload = map[string]any{}
	case domain.ProcessingError:
		name = "error"
		payload = map[string]any{"error": ev.Err}
	default:
		name = "unknown"
		payload = map[string]any{}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return name, "{}"
	}
	return name, string(raw)
}

package statusapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"inputpipe/internal/input"
	"inputpipe/internal/macro"
	"inputpipe/internal/pipeline"
)

// maxBodyBytes caps control request bodies.
const maxBodyBytes = 4 << 10

var macroActions = map[string]pipeline.EventKind{
	"record":   pipeline.EventMacroRecord,
	"pause":    pipeline.EventMacroPause,
	"play":     pipeline.EventMacroPlay,
	"takeover": pipeline.EventMacroTakeover,
	"truncate": pipeline.EventMacroTruncate,
	"save":     pipeline.EventMacroSave,
	"load":     pipeline.EventMacroLoad,
}

type featureView struct {
	Name    pipeline.Feature `json:"name"`
	Enabled bool             `json:"enabled"`
}

type macroRequest struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (h *routerHandlers) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

func (h *routerHandlers) handleGetFeatures(w http.ResponseWriter, r *http.Request) {
	st := h.ctrl.Status()
	on := make(map[pipeline.Feature]bool, len(st.Features))
	for _, f := range st.Features {
		on[f] = true
	}

	out := make([]featureView, 0, len(pipeline.AllFeatures))
	for _, f := range pipeline.AllFeatures {
		out = append(out, featureView{Name: f, Enabled: on[f]})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *routerHandlers) handleSetFeature(w http.ResponseWriter, r *http.Request) {
	f, err := pipeline.ParseFeature(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Enabled == nil {
		writeError(w, "enabled is required", http.StatusBadRequest)
		return
	}
	h.enqueue(w, pipeline.Event{Kind: pipeline.EventSetFeature, Feature: f, Enabled: *req.Enabled})
}

func (h *routerHandlers) handleToggleFeature(w http.ResponseWriter, r *http.Request) {
	f, err := pipeline.ParseFeature(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.enqueue(w, pipeline.Event{Kind: pipeline.EventToggleFeature, Feature: f})
}

func (h *routerHandlers) handleMacro(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	kind, ok := macroActions[action]
	if !ok {
		writeError(w, fmt.Sprintf("unknown macro action %q", action), http.StatusNotFound)
		return
	}

	var req macroRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if (kind == pipeline.EventMacroSave || kind == pipeline.EventMacroLoad) && req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Name != "" {
		if _, err := (macro.Store{}).Path(req.Name); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.Count < 0 {
		writeError(w, "count must not be negative", http.StatusBadRequest)
		return
	}
	h.enqueue(w, pipeline.Event{Kind: kind, Name: req.Name, Count: req.Count})
}

func (h *routerHandlers) handleSetFOV(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FOV *float64 `json:"fov"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.FOV == nil || *req.FOV < 0 || *req.FOV > 360 {
		writeError(w, "fov must be within [0, 360]", http.StatusBadRequest)
		return
	}
	h.enqueue(w, pipeline.Event{Kind: pipeline.EventSetFOV, Value: *req.FOV})
}

func (h *routerHandlers) handleSetChannel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel string `json:"channel"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var ch input.Channel
	switch req.Channel {
	case input.Primary.String():
		ch = input.Primary
	case input.Secondary.String():
		ch = input.Secondary
	default:
		writeError(w, "channel must be primary or secondary", http.StatusBadRequest)
		return
	}
	h.enqueue(w, pipeline.Event{Kind: pipeline.EventSetChannel, Count: int(ch)})
}

// enqueue hands the event to the tick thread. The outcome shows up in the
// next status, so success is 202.
func (h *routerHandlers) enqueue(w http.ResponseWriter, ev pipeline.Event) {
	if !h.ctrl.Enqueue(ev) {
		h.log.Warn("control queue full, event dropped", zap.String("kind", string(ev.Kind)))
		writeError(w, "control queue full", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"queued": string(ev.Kind)})
}

// decodeBody reads an optional JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

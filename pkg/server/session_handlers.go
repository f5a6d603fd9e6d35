package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/luongdev/rtcqos/pkg/logger"
	"github.com/luongdev/rtcqos/pkg/processor"
	"github.com/luongdev/rtcqos/pkg/stats"
	"github.com/luongdev/rtcqos/pkg/store"
)

// StoredResponse acknowledges an uploaded capture
type StoredResponse struct {
	SessionID string `json:"session_id"`
	Peer      string `json:"peer"`
}

// ExtractRequest is the body of POST /extract. A missing selectedStats keeps
// every stat type and the session descriptors.
type ExtractRequest struct {
	Local         *stats.RawCapture   `json:"local"`
	Remotes       []*stats.RawCapture `json:"remotes"`
	SelectedStats stats.Filter        `json:"selectedStats"`
}

func (s *HTTPServer) decodeCapture(w http.ResponseWriter, r *http.Request) (*stats.RawCapture, bool) {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	capture, err := stats.DecodeCapture(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return capture, true
}

func (s *HTTPServer) storeError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, processor.ErrEmptyCapture):
		writeError(w, http.StatusBadRequest, err)
	default:
		logger.ErrorWithFields(map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		}, "Session request failed")
		writeError(w, http.StatusInternalServerError, err)
	}
}

// handlePutLocal handles PUT /sessions/{id}/local
func (s *HTTPServer) handlePutLocal(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	capture, ok := s.decodeCapture(w, r)
	if !ok {
		return
	}

	if err := s.deps.Sessions.StoreLocal(r.Context(), sessionID, capture); err != nil {
		s.storeError(w, sessionID, err)
		return
	}
	writeJSON(w, http.StatusCreated, StoredResponse{SessionID: sessionID, Peer: processor.KeyLocalPeer})
}

// handlePostRemote handles POST /sessions/{id}/remotes
func (s *HTTPServer) handlePostRemote(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	capture, ok := s.decodeCapture(w, r)
	if !ok {
		return
	}

	idx, err := s.deps.Sessions.StoreRemote(r.Context(), sessionID, capture)
	if err != nil {
		s.storeError(w, sessionID, err)
		return
	}
	writeJSON(w, http.StatusCreated, StoredResponse{SessionID: sessionID, Peer: processor.RemotePeerKey(idx)})
}

// handleReport handles GET /sessions/{id}/report[?export=true]
func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	export := false
	if v := r.URL.Query().Get("export"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid export flag"))
			return
		}
		export = b
	}

	report, err := s.deps.Sessions.Report(r.Context(), sessionID, export)
	if err != nil {
		s.storeError(w, sessionID, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleDelete handles DELETE /sessions/{id}
func (s *HTTPServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	if err := s.deps.Sessions.Delete(r.Context(), sessionID); err != nil {
		s.storeError(w, sessionID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExtract handles POST /extract, a stateless run of the pipeline
func (s *HTTPServer) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode extract request"))
		return
	}

	report := s.deps.Extractor.ExtractRaw(req.Local, req.Remotes, req.SelectedStats)
	writeJSON(w, http.StatusOK, report)
}

// ClassifyRequest is the body of POST /classify: one raw capture plus the
// allow-list. A missing selectedStats keeps every type and the descriptors.
type ClassifyRequest struct {
	stats.RawCapture
	SelectedStats stats.Filter `json:"selectedStats"`
}

// ClassifyResponse is the classified capture, with the media sections of
// the descriptors when they were kept.
type ClassifyResponse struct {
	*stats.Capture
	Media *stats.SDPSummary `json:"media,omitempty"`
}

// handleClassify handles POST /classify
func (s *HTTPServer) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode classify request"))
		return
	}

	capture := stats.BuildCapture(&req.RawCapture, req.SelectedStats)
	resp := ClassifyResponse{Capture: capture}
	media, err := capture.SDP.Summary()
	if err != nil {
		logger.Warn("Failed to summarize session descriptors: %v", err)
	} else {
		resp.Media = media
	}
	writeJSON(w, http.StatusOK, resp)
}

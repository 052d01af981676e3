package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"rdapi/internal/domain"
	"rdapi/internal/dto"
	"rdapi/internal/service"
)

const maxRecordChunk = 32 << 20

// auditConn takes connection events from the relay. Peer holds the
// controlling peer id first and its username last.
func (h *handler) auditConn(w http.ResponseWriter, r *http.Request) {
	var req dto.AuditConnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e := service.ConnEvent{
		ConnID:         req.ConnID,
		Action:         req.Action,
		ControlledUUID: req.UUID,
		IP:             req.IP,
		SessionID:      sessionString(req.SessionID),
		Type:           req.Type,
	}
	if n := len(req.Peer); n > 0 {
		e.ControllerPeerID = req.Peer[0]
		if n > 1 {
			e.Username = req.Peer[n-1]
		}
	}
	if err := h.svc.Audit.RecordConn(r.Context(), e); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handler) auditFile(w http.ResponseWriter, r *http.Request) {
	var req dto.AuditFileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	_, err := h.svc.Audit.RecordFile(r.Context(), service.FileEvent{
		SourceID:      req.PeerID,
		TargetID:      req.ID,
		TargetUUID:    req.UUID,
		OperationType: req.Type,
		IsFile:        req.IsFile,
		Path:          req.Path,
		Info:          req.Info,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// record receives session recordings. The chunk kind, file name and
// position travel in the query string; the body is the raw chunk.
func (h *handler) record(w http.ResponseWriter, r *http.Request) {
	if h.svc.Records == nil {
		writeFail(w, http.StatusNotFound, "recording disabled")
		return
	}
	q := r.URL.Query()
	offset, err := int64Param(q.Get("offset"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	length, err := int64Param(q.Get("length"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	chunk := service.RecordChunk{
		Type:   q.Get("type"),
		File:   q.Get("file"),
		Offset: offset,
		Length: length,
		Data:   http.MaxBytesReader(w, r.Body, maxRecordChunk),
	}
	if err := h.svc.Records.Write(r.Context(), chunk); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func int64Param(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidArgument, raw)
	}
	return n, nil
}

// sessionString accepts session ids sent either as strings or numbers.
// Numbers keep their literal digits.
func sessionString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

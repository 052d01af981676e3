package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"rdapi/internal/domain"
	"rdapi/internal/dto"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func parseGUID(raw string) (domain.GUID, error) {
	g, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid address book id", domain.ErrInvalidArgument)
	}
	return g, nil
}

func guidParam(r *http.Request) (domain.GUID, error) {
	return parseGUID(chi.URLParam(r, "guid"))
}

func (h *handler) abPersonal(w http.ResponseWriter, r *http.Request) {
	u := caller(r).User
	p, err := h.svc.Personals.Default(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PersonalResponse{GUID: p.GUID.String(), Name: u.Username})
}

func (h *handler) abSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.AbSettingsResponse{MaxPeerOneAb: 0})
}

func (h *handler) abSharedProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Personals.ListProfiles(r.Context(), caller(r).User)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]dto.SharedProfile, 0, len(list))
	for _, a := range list {
		out = append(out, dto.SharedProfile{
			GUID:  a.Personal.GUID.String(),
			Name:  a.Personal.Name,
			Owner: a.Owner,
			Rule:  int(a.Rule),
		})
	}
	writeJSON(w, http.StatusOK, dto.Page[dto.SharedProfile]{Total: int64(len(out)), Data: out})
}

func (h *handler) abPeers(w http.ResponseWriter, r *http.Request) {
	guid, err := parseGUID(r.URL.Query().Get("ab"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, size := pageParams(r)
	list, total, err := h.svc.Personals.ListPeers(r.Context(), caller(r).User, guid, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]dto.AbPeer, 0, len(list))
	for _, p := range list {
		item := dto.AbPeer{ID: p.Alias.PeerID, Alias: p.Alias.Alias, Tags: p.Tags}
		if p.Peer != nil {
			item.Username = p.Peer.Username
			item.Hostname = p.Peer.DeviceName
			item.Platform = domain.Platform(p.Peer.OS)
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, dto.Page[dto.AbPeer]{Total: total, Data: out})
}

func (h *handler) abTags(w http.ResponseWriter, r *http.Request) {
	guid, err := guidParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tags, err := h.svc.Tags.List(r.Context(), caller(r).User, guid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]dto.TagPayload, 0, len(tags))
	for _, t := range tags {
		out = append(out, dto.TagPayload{Name: t.Name, Color: t.Color})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) abPeerAdd(w http.ResponseWriter, r *http.Request) {
	guid, err := guidParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.AbPeerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u := caller(r).User
	alias := ""
	if req.Alias != nil {
		alias = *req.Alias
	}
	if err := h.svc.Personals.AddPeer(r.Context(), u, guid, req.ID, alias); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Tags != nil {
		if err := h.svc.Tags.SetForDevice(r.Context(), u, guid, req.ID, *req.Tags); err != nil {
			writeError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handler) abPeerUpdate(w http.ResponseWriter, r *http.Request) {
	guid, err := guidParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.AbPeerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Personals.UpdatePeer(r.Context(), caller(r).User, guid, req.ID, req.Alias, req.Tags); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// abPeerDelete takes a peer id or a list of them as the body.
func (h *handler) abPeerDelete(w http.ResponseWriter, r *http.Request) {
	guid, err := guidParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var ids dto.StringList
	if err := decodeJSON(r, &ids); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Personals.RemovePeers(r.Context(), caller(r).User, guid, ids); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// abTagAdd creates the tag on POST and recolours it on PUT. Posting an
// existing name updates its colour.
func (h *handler) abTagAdd(w http.ResponseWriter, r *http.Request) {
	guid, err := guidParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.TagPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u := caller(r).User
	if r.Method == http.MethodPost {
		_, err = h.svc.Tags.Create(r.Context(), u, guid, req.Name, req.Color)
		if !errors.Is(err, domain.ErrTagExists) {
			if err != nil {
				writeError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	if err := h.svc.Tags.Update(r.Context(), u, guid, req.Name, nil, &req.Color); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handler) abTagRename(w http.ResponseWriter, r *http.Request) {
	guid, err := guidParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.TagRenameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Tags.Update(r.Context(), caller(r).User, guid, req.Old, &req.New, nil); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handler) abTagUpdate(w http.ResponseWriter, r *http.Request) {
	guid, err := guidParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.TagPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Tags.Update(r.Context(), caller(r).User, guid, req.Name, nil, &req.Color); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// abTagDelete takes a list of tag names as the body.
func (h *handler) abTagDelete(w http.ResponseWriter, r *http.Request) {
	guid, err := guidParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var names dto.StringList
	if err := decodeJSON(r, &names); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Tags.Delete(r.Context(), caller(r).User, guid, names...); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

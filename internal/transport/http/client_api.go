package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"rdapi/internal/domain"
	"rdapi/internal/dto"
	"rdapi/internal/netutil"
	"rdapi/internal/service"
)

func (h *handler) heartbeat(w http.ResponseWriter, r *http.Request) {
	var req dto.HeartbeatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Devices.Heartbeat(r.Context(), req.UUID, req.ID, versionString(req.Ver))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.HeartbeatResponse{
		Status:     "ok",
		ModifiedAt: res.At.Unix(),
		Sysinfo:    res.NeedSysinfo,
	})
}

func (h *handler) sysinfo(w http.ResponseWriter, r *http.Request) {
	var req dto.SysinfoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	_, err := h.svc.Devices.Upsert(r.Context(), service.PeerFacts{
		UUID:     req.UUID,
		PeerID:   req.ID,
		CPU:      req.CPU,
		Hostname: req.Hostname,
		Memory:   req.Memory,
		OS:       req.OS,
		Username: req.Username,
		Version:  req.Version,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.StatusResponse{Status: "ok"})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ip := netutil.ClientIP(r, h.opts.TrustProxy)
	res, err := h.svc.Auth.Login(r.Context(), req, ip, netutil.TruncateUserAgent(r.UserAgent()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.LoginResponse{
		AccessToken: res.AccessToken,
		Type:        "access_token",
		User:        userPayload(res.User),
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	var req dto.LogoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Auth.Logout(r.Context(), caller(r), req.UUID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CodeResponse{Code: 1})
}

func (h *handler) currentUser(w http.ResponseWriter, r *http.Request) {
	p := caller(r)
	writeJSON(w, http.StatusOK, dto.CurrentUserResponse{
		Name:        p.User.Username,
		Email:       p.User.Email,
		IsAdmin:     p.User.IsAdmin(),
		AccessToken: p.Token.Token,
		Type:        "access_token",
	})
}

// users lists accounts for admins; everyone else only sees themselves.
func (h *handler) users(w http.ResponseWriter, r *http.Request) {
	p := caller(r)
	if !p.User.IsAdmin() {
		writeJSON(w, http.StatusOK, dto.Page[dto.UserListItem]{Total: 1, Data: []dto.UserListItem{userListItem(p.User)}})
		return
	}
	page, size := pageParams(r)
	status := service.StatusActive
	if v := strings.TrimSpace(r.URL.Query().Get("status")); v != "" {
		switch v {
		case "0":
			status = service.StatusInactive
		case "-1", "all":
			status = service.StatusAll
		}
	}
	list, total, err := h.svc.Users.List(r.Context(), status, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]dto.UserListItem, 0, len(list))
	for i := range list {
		out = append(out, userListItem(&list[i]))
	}
	writeJSON(w, http.StatusOK, dto.Page[dto.UserListItem]{Total: total, Data: out})
}

// peers lists every device for admins and the caller's own logins otherwise.
// The device making the request is left out.
func (h *handler) peers(w http.ResponseWriter, r *http.Request) {
	p := caller(r)
	var (
		list  []domain.Peer
		total int64
		err   error
	)
	if p.User.IsAdmin() {
		page, size := pageParams(r)
		list, total, err = h.svc.Devices.List(r.Context(), page, size)
	} else {
		list, err = h.svc.Devices.ListForUser(r.Context(), p.User, p.Token.UUID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	ids := make([]string, 0, len(list))
	for _, d := range list {
		ids = append(ids, d.PeerID)
	}
	online, err := h.svc.Devices.OnlineStatuses(r.Context(), ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]dto.PeerListItem, 0, len(list))
	for _, d := range list {
		if d.UUID == p.Token.UUID {
			total--
			continue
		}
		item := dto.PeerListItem{
			ID:   d.PeerID,
			Info: dto.PeerInfo{DeviceName: d.DeviceName, OS: d.OS, Username: d.Username},
		}
		if online[d.PeerID] {
			item.Status = 1
		}
		out = append(out, item)
	}
	if !p.User.IsAdmin() {
		total = int64(len(out))
	}
	writeJSON(w, http.StatusOK, dto.Page[dto.PeerListItem]{Total: total, Data: out})
}

// deviceGroups reports the caller's group as the only accessible device group.
func (h *handler) deviceGroups(w http.ResponseWriter, r *http.Request) {
	grp, err := h.svc.Users.GroupOf(r.Context(), caller(r).User)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Page[dto.GroupItem]{Total: 1, Data: []dto.GroupItem{{Name: grp.Name}}})
}

func userPayload(u *domain.User) dto.UserPayload {
	return dto.UserPayload{
		Name:    u.Username,
		Email:   u.Email,
		IsAdmin: u.IsAdmin(),
		Status:  boolInt(u.IsActive),
	}
}

func userListItem(u *domain.User) dto.UserListItem {
	return dto.UserListItem{
		Name:    u.Username,
		Email:   u.Email,
		IsAdmin: u.IsAdmin(),
		Status:  boolInt(u.IsActive),
		Info:    map[string]any{},
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// versionString turns the heartbeat "ver" into the dotted form sysinfo
// reports. Clients send it as a number packing three digits per component,
// e.g. 1002003 for 1.2.3.
func versionString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		n := int64(t)
		if n <= 0 || float64(n) != t {
			return fmt.Sprint(t)
		}
		var parts []string
		for n > 0 || len(parts) < 3 {
			parts = append([]string{strconv.FormatInt(n%1000, 10)}, parts...)
			n /= 1000
		}
		return strings.Join(parts, ".")
	default:
		return fmt.Sprint(t)
	}
}

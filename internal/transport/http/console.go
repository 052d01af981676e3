package http

import (
	"fmt"
	"net/http"
	"strings"

	"rdapi/internal/domain"
	"rdapi/internal/dto"
	"rdapi/internal/service"

	"github.com/go-chi/chi/v5"
)

func (h *handler) consoleRoutes(r chi.Router) {
	r.Route("/personals", func(r chi.Router) {
		r.Get("/", h.consolePersonals)
		r.Post("/", h.consoleCreatePersonal)
		r.Route("/{guid}", func(r chi.Router) {
			r.Get("/", h.consolePersonalDetail)
			r.Put("/", h.consoleRenamePersonal)
			r.Delete("/", h.consoleDeletePersonal)

			r.Get("/shares", h.consoleShares)
			r.Post("/shares", h.consoleShare)
			r.Delete("/shares", h.consoleUnshare)

			r.Post("/devices", h.consoleAddDevice)
			r.Put("/devices/{peerID}", h.consoleUpdateDevice)
			r.Delete("/devices/{peerID}", h.consoleRemoveDevice)
		})
	})
	r.Post("/devices/statuses", h.consoleDeviceStatuses)
	r.Get("/me/config", h.consoleConfig)
	r.Put("/me/config", h.consoleSetConfig)

	r.Group(func(r chi.Router) {
		r.Use(RequireStaff)

		r.Get("/users", h.consoleUsers)
		r.Post("/users", h.consoleCreateUser)
		r.Get("/users/{username}", h.consoleUser)
		r.Patch("/users/{username}", h.consoleUpdateUser)
		r.Delete("/users/{username}", h.consoleDeleteUser)
		r.Put("/users/{username}/password", h.consoleSetPassword)
		r.Put("/users/{username}/group", h.consoleAssignGroup)

		r.Get("/groups", h.consoleGroups)
		r.Post("/groups", h.consoleCreateGroup)
	})
}

// personals

func (h *handler) consolePersonals(w http.ResponseWriter, r *http.Request) {
	u := caller(r).User
	owned, err := h.svc.Personals.ListOwned(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	shared, err := h.svc.Personals.ListSharedTo(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	all := append(owned, shared...)
	guids := make([]domain.GUID, 0, len(all))
	for _, a := range all {
		guids = append(guids, a.Personal.GUID)
	}
	counts, err := h.svc.Personals.DeviceCounts(r.Context(), guids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]dto.PersonalView, 0, len(all))
	for _, a := range all {
		out = append(out, personalView(a, counts[a.Personal.GUID]))
	}
	writeOK(w, out)
}

func (h *handler) consoleCreatePersonal(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePersonalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t := domain.PersonalType(strings.ToLower(strings.TrimSpace(req.Type)))
	if t == "" {
		t = domain.PersonalPublic
	}
	u := caller(r).User
	p, err := h.svc.Personals.Create(r.Context(), u, req.Name, t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, personalView(service.PersonalAccess{Personal: *p, Owner: u.Username, Rule: domain.RuleFull}, 0))
}

func (h *handler) consolePersonalDetail(w http.ResponseWriter, r *http.Request) {
	guid, err := guidParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	u := caller(r).User
	acc, err := h.svc.Personals.Access(ctx, u, guid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, size := pageParams(r)
	peers, total, err := h.svc.Personals.ListPeers(ctx, u, guid, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tags, err := h.svc.Tags.List(ctx, u, guid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ids := make([]string, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, p.Alias.PeerID)
	}
	online, err := h.svc.Devices.OnlineStatuses(ctx, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	seen, err := h.svc.Devices.LastSeen(ctx, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}

	detail := dto.PersonalDetail{
		Personal: personalView(*acc, total),
		Devices:  make([]dto.PersonalDevice, 0, len(peers)),
		Total:    total,
		Tags:     make([]dto.TagPayload, 0, len(tags)),
		Shares:   []dto.ShareView{},
	}
	for _, p := range peers {
		d := dto.PersonalDevice{
			PeerID: p.Alias.PeerID,
			Alias:  p.Alias.Alias,
			Tags:   p.Tags,
			Online: online[p.Alias.PeerID],
		}
		if p.Peer != nil {
			d.Hostname = p.Peer.DeviceName
			d.Username = p.Peer.Username
			d.Platform = domain.Platform(p.Peer.OS)
			d.OS = p.Peer.OS
			d.Version = p.Peer.Version
		}
		if t, ok := seen[p.Alias.PeerID]; ok {
			ts := t.Unix()
			d.LastSeenAt = &ts
		}
		detail.Devices = append(detail.Devices, d)
	}
	for _, t := range tags {
		detail.Tags = append(detail.Tags, dto.TagPayload{Name: t.Name, Color: t.Color})
	}
	if acc.Personal.OwnerID == u.ID {
		grants, err := h.svc.Personals.Shares(ctx, u, guid)
		if err != nil {
			writeError(w, r, err)
			return
		}
		for _, g := range grants {
			detail.Shares = append(detail.Shares, shareView(g))
		}
	}
	writeOK(w, detail)
}

func (h *handler) consoleRenamePersonal(w http.ResponseWriter, r *http.Request) {
	guid, err := guidParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.RenamePersonalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Personals.Rename(r.Context(), caller(r).User, guid, req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (h *handler) consoleDeletePersonal(w http.ResponseWriter, r *http.Request) {
	guid, err := guidParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Personals.Delete(r.Context(), caller(r).User, guid); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (h *handler) consoleShares(w http.ResponseWriter, r *http.Request) {
	guid, err := guidParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	grants, err := h.svc.Personals.Shares(r.Context(), caller(r).User, guid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]dto.ShareView, 0, len(grants))
	for _, g := range grants {
		out = append(out, shareView(g))
	}
	writeOK(w, out)
}

func (h *handler) consoleShare(w http.ResponseWriter, r *http.Request) {
	guid, req, tt, ok := h.shareInput(w, r)
	if !ok {
		return
	}
	if err := h.svc.Personals.Share(r.Context(), caller(r).User, guid, tt, req.Target, domain.ShareRule(req.Rule)); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (h *handler) consoleUnshare(w http.ResponseWriter, r *http.Request) {
	guid, req, tt, ok := h.shareInput(w, r)
	if !ok {
		return
	}
	if err := h.svc.Personals.Unshare(r.Context(), caller(r).User, guid, tt, req.Target); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (h *handler) shareInput(w http.ResponseWriter, r *http.Request) (domain.GUID, dto.ShareRequest, domain.ShareTargetType, bool) {
	var req dto.ShareRequest
	guid, err := guidParam(r)
	if err == nil {
		err = decodeJSON(r, &req)
	}
	var tt domain.ShareTargetType
	if err == nil {
		tt, err = shareTargetType(req.TargetType)
	}
	if err != nil {
		writeError(w, r, err)
		return guid, req, tt, false
	}
	return guid, req, tt, true
}

func (h *handler) consoleAddDevice(w http.ResponseWriter, r *http.Request) {
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
	writeOK(w, nil)
}

// consoleUpdateDevice changes the alias and/or the caller's tags of one device.
func (h *handler) consoleUpdateDevice(w http.ResponseWriter, r *http.Request) {
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
	peerID := chi.URLParam(r, "peerID")
	if err := h.svc.Personals.UpdatePeer(r.Context(), caller(r).User, guid, peerID, req.Alias, req.Tags); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (h *handler) consoleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	guid, err := guidParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	peerID := chi.URLParam(r, "peerID")
	if err := h.svc.Personals.RemovePeers(r.Context(), caller(r).User, guid, []string{peerID}); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (h *handler) consoleDeviceStatuses(w http.ResponseWriter, r *http.Request) {
	var req dto.DeviceStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	online, err := h.svc.Devices.OnlineStatuses(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, online)
}

func (h *handler) consoleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Users.Config(r.Context(), caller(r).User)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, cfg)
}

func (h *handler) consoleSetConfig(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Users.SetConfig(r.Context(), caller(r).User, req.Name, req.Value); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

// users and groups

func (h *handler) consoleUsers(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	status := service.StatusAll
	switch r.URL.Query().Get("status") {
	case "1":
		status = service.StatusActive
	case "0":
		status = service.StatusInactive
	}
	list, total, err := h.svc.Users.List(r.Context(), status, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	groups, err := h.svc.Users.GroupNames(r.Context(), list)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]dto.UserView, 0, len(list))
	for i := range list {
		out = append(out, userView(&list[i], groups[list[i].ID]))
	}
	writeOK(w, dto.Page[dto.UserView]{Total: total, Data: out})
}

func (h *handler) consoleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Password != req.PasswordConfirm {
		writeError(w, r, service.ErrPasswordConfirm)
		return
	}
	u, err := h.svc.Users.Create(r.Context(), service.CreateUserInput{
		Username:    req.Username,
		Password:    req.Password,
		Email:       req.Email,
		FullName:    req.FullName,
		IsStaff:     req.IsStaff,
		IsSuperuser: req.IsSuperuser && caller(r).User.IsSuperuser,
		Group:       req.Group,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeUser(w, r, u)
}

func (h *handler) consoleUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeUser(w, r, u)
}

func (h *handler) consoleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.svc.Users.Update(r.Context(), caller(r).User, chi.URLParam(r, "username"), service.UpdateUserInput{
		Email:    req.Email,
		FullName: req.FullName,
		IsStaff:  req.IsStaff,
		IsActive: req.IsActive,
		Group:    req.Group,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeUser(w, r, u)
}

func (h *handler) consoleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Users.Delete(r.Context(), caller(r).User, chi.URLParam(r, "username")); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (h *handler) consoleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.SetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Password != req.PasswordConfirm {
		writeError(w, r, service.ErrPasswordConfirm)
		return
	}
	if err := h.svc.Users.SetPassword(r.Context(), chi.URLParam(r, "username"), req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (h *handler) consoleAssignGroup(w http.ResponseWriter, r *http.Request) {
	var req dto.GroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Users.AssignGroup(r.Context(), chi.URLParam(r, "username"), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (h *handler) consoleGroups(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Users.ListGroups(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]dto.GroupView, 0, len(list))
	for _, g := range list {
		out = append(out, dto.GroupView{ID: g.Group.ID.String(), Name: g.Group.Name, Members: g.Members})
	}
	writeOK(w, out)
}

func (h *handler) consoleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req dto.GroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := h.svc.Users.CreateGroup(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, dto.GroupView{ID: g.ID.String(), Name: g.Name})
}

func (h *handler) writeUser(w http.ResponseWriter, r *http.Request, u *domain.User) {
	grp, err := h.svc.Users.GroupOf(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, userView(u, grp.Name))
}

func personalView(a service.PersonalAccess, devices int64) dto.PersonalView {
	return dto.PersonalView{
		GUID:      a.Personal.GUID.String(),
		Name:      a.Personal.Name,
		Type:      string(a.Personal.Type),
		Owner:     a.Owner,
		Rule:      int(a.Rule),
		Devices:   devices,
		CreatedAt: a.Personal.CreatedAt,
	}
}

func shareView(g service.ShareGrant) dto.ShareView {
	t := "user"
	if g.Share.TargetType == domain.ShareTargetGroup {
		t = "group"
	}
	return dto.ShareView{
		TargetType: t,
		Target:     g.TargetName,
		Rule:       int(g.Share.Rule),
		CreatedAt:  g.Share.CreatedAt,
	}
}

func shareTargetType(s string) (domain.ShareTargetType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "user":
		return domain.ShareTargetUser, nil
	case "group":
		return domain.ShareTargetGroup, nil
	default:
		return 0, fmt.Errorf("%w: target type %q", domain.ErrInvalidArgument, s)
	}
}

func userView(u *domain.User, group string) dto.UserView {
	return dto.UserView{
		ID:          u.ID.String(),
		Username:    u.Username,
		Email:       u.Email,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		Group:       group,
		CreatedAt:   u.CreatedAt,
		DeletedAt:   u.DeletedAt,
	}
}

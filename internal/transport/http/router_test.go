package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rdapi/internal/dto"
	"rdapi/internal/service"
	"rdapi/internal/service/impl"
	"rdapi/internal/store"
	"rdapi/pkg/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	users   *impl.UserServiceImpl
	audit   *impl.AuditServiceImpl
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	gdb, err := db.OpenGorm(db.Config{
		Driver:  "sqlite",
		DSN:     fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpen: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	st := store.New(gdb)
	require.NoError(t, st.AutoMigrate(context.Background()))

	passwords := impl.NewPasswordServiceWithParams(impl.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	tokens, err := impl.NewTokenService(impl.TokenConfig{
		Issuer:      "rdapi-test",
		IdleTimeout: time.Hour,
		SigningKey:  []byte("test-signing-key"),
	}, st)
	require.NoError(t, err)
	users := impl.NewUserServiceImpl(st, passwords, tokens, "Default")
	audit := impl.NewAuditServiceImpl(st)
	records, err := impl.NewRecordServiceImpl(t.TempDir())
	require.NoError(t, err)

	svc := Services{
		Auth:      impl.NewAuthServiceImpl(st, passwords, tokens, users, nil),
		Tokens:    tokens,
		Users:     users,
		Devices:   impl.NewDeviceServiceImpl(st, tokens, time.Minute),
		Personals: impl.NewPersonalServiceImpl(st, users),
		Tags:      impl.NewTagServiceImpl(st, users),
		Audit:     audit,
		Records:   records,
	}
	return &testAPI{t: t, handler: NewRouter(svc, Options{}), users: users, audit: audit}
}

func (a *testAPI) createUser(name string, staff bool) {
	a.t.Helper()
	_, err := a.users.Create(context.Background(), service.CreateUserInput{
		Username: name,
		Password: name + "-password",
		IsStaff:  staff,
	})
	require.NoError(a.t, err)
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login(name, deviceUUID string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/login", "", dto.LoginRequest{
		Username:   name,
		Password:   name + "-password",
		UUID:       deviceUUID,
		DeviceInfo: dto.DeviceInfo{OS: "linux", Type: "client", Name: name + "-pc"},
	})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var res dto.LoginResponse
	decodeBody(a.t, rec, &res)
	require.NotEmpty(a.t, res.AccessToken)
	return res.AccessToken
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestLoginLogoutFlow(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("alice", false)

	rec := api.do(http.MethodPost, "/api/login", "", dto.LoginRequest{Username: "alice", Password: "nope", UUID: "dev-1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := api.login("alice", "dev-1")

	rec = api.do(http.MethodPost, "/api/currentUser", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me dto.CurrentUserResponse
	decodeBody(t, rec, &me)
	assert.Equal(t, "alice", me.Name)
	assert.False(t, me.IsAdmin)

	rec = api.do(http.MethodPost, "/api/logout", token, dto.LogoutRequest{UUID: "dev-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var code dto.CodeResponse
	decodeBody(t, rec, &code)
	assert.Equal(t, 1, code.Code)

	rec = api.do(http.MethodPost, "/api/currentUser", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var env dto.Envelope
	decodeBody(t, rec, &env)
	assert.False(t, env.OK)
	assert.NotEmpty(t, env.Error)
}

func TestBearerSchemeIsCaseInsensitive(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("alice", false)
	token := api.login("alice", "dev-1")

	for _, scheme := range []string{"bearer", "BEARER", "Bearer"} {
		req := httptest.NewRequest(http.MethodPost, "/api/currentUser", nil)
		req.Header.Set("Authorization", scheme+" "+token)
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, scheme)
	}

	rec := api.do(http.MethodPost, "/api/currentUser", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHeartbeatAndSysinfo(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/heartbeat", "", dto.HeartbeatRequest{UUID: "dev-1", ID: "111", Ver: 1003000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var hb dto.HeartbeatResponse
	decodeBody(t, rec, &hb)
	assert.Equal(t, "ok", hb.Status)
	assert.True(t, hb.Sysinfo)
	assert.NotZero(t, hb.ModifiedAt)

	rec = api.do(http.MethodPost, "/api/sysinfo", "", dto.SysinfoRequest{
		UUID: "dev-1", ID: "111", Hostname: "box", OS: "linux / Ubuntu", Username: "root", Version: "1.3.0",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st dto.StatusResponse
	decodeBody(t, rec, &st)
	assert.Equal(t, "ok", st.Status)

	rec = api.do(http.MethodPost, "/api/heartbeat", "", dto.HeartbeatRequest{UUID: "dev-1", ID: "111", Ver: 1003000})
	require.Equal(t, http.StatusOK, rec.Code)
	hb = dto.HeartbeatResponse{}
	decodeBody(t, rec, &hb)
	assert.False(t, hb.Sysinfo)

	rec = api.do(http.MethodPost, "/api/heartbeat", "", dto.HeartbeatRequest{ID: "111"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSharedAddressBook(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("alice", false)
	api.createUser("bob", false)

	rec := api.do(http.MethodPost, "/api/sysinfo", "", dto.SysinfoRequest{
		UUID: "dev-1", ID: "111", Hostname: "box", OS: "linux / Ubuntu", Username: "root",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	alice := api.login("alice", "alice-dev")
	bob := api.login("bob", "bob-dev")

	rec = api.do(http.MethodPost, "/api/ab/personal", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var def dto.PersonalResponse
	decodeBody(t, rec, &def)
	assert.Equal(t, "alice", def.Name)
	_, err := uuid.Parse(def.GUID)
	require.NoError(t, err)

	rec = api.do(http.MethodPost, "/api/console/personals", alice, dto.CreatePersonalRequest{Name: "team"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created struct {
		OK   bool             `json:"ok"`
		Data dto.PersonalView `json:"data"`
	}
	decodeBody(t, rec, &created)
	require.True(t, created.OK)
	team := created.Data.GUID

	alias := "build box"
	rec = api.do(http.MethodPost, "/api/ab/peer/add/"+team, alice, dto.AbPeerRequest{ID: "111", Alias: &alias})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = api.do(http.MethodPost, "/api/ab/tag/add/"+team, alice, dto.TagPayload{Name: "linux", Color: 42})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// not shared yet
	rec = api.do(http.MethodPost, "/api/ab/peers?ab="+team, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, "/api/console/personals/"+team+"/shares", alice, dto.ShareRequest{TargetType: "user", Target: "bob", Rule: 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPost, "/api/ab/shared/profiles", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profiles dto.Page[dto.SharedProfile]
	decodeBody(t, rec, &profiles)
	var found *dto.SharedProfile
	for i := range profiles.Data {
		if profiles.Data[i].GUID == team {
			found = &profiles.Data[i]
		}
	}
	require.NotNil(t, found, rec.Body.String())
	assert.Equal(t, "alice", found.Owner)
	assert.Equal(t, 1, found.Rule)

	rec = api.do(http.MethodPost, "/api/ab/peers?ab="+team+"&current=1&pageSize=10", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var peers dto.Page[dto.AbPeer]
	decodeBody(t, rec, &peers)
	require.EqualValues(t, 1, peers.Total)
	assert.Equal(t, "111", peers.Data[0].ID)
	assert.Equal(t, "build box", peers.Data[0].Alias)
	assert.Equal(t, "Linux", peers.Data[0].Platform)
	assert.Equal(t, []string{}, peers.Data[0].Tags)

	rec = api.do(http.MethodPost, "/api/ab/tags/"+team, bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tags []dto.TagPayload
	decodeBody(t, rec, &tags)
	assert.Equal(t, []dto.TagPayload{{Name: "linux", Color: 42}}, tags)

	// read-only grant
	rec = api.do(http.MethodDelete, "/api/ab/peer/"+team, bob, []string{"111"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodDelete, "/api/ab/peer/"+team, alice, "111")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = api.do(http.MethodPost, "/api/ab/peers?ab="+team, alice, nil)
	peers = dto.Page[dto.AbPeer]{}
	decodeBody(t, rec, &peers)
	assert.Zero(t, peers.Total)

	rec = api.do(http.MethodPost, "/api/ab/peers?ab=not-a-guid", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConsoleStaffOnly(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("admin", true)
	api.createUser("bob", false)

	bob := api.login("bob", "bob-dev")
	rec := api.do(http.MethodGet, "/api/console/users", bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := api.login("admin", "admin-dev")
	rec = api.do(http.MethodPost, "/api/console/users", admin, dto.CreateUserRequest{
		Username: "carol", Password: "carol-password", PasswordConfirm: "other",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/console/users", admin, dto.CreateUserRequest{
		Username: "carol", Password: "carol-password", PasswordConfirm: "carol-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/console/users?status=1", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		OK   bool                   `json:"ok"`
		Data dto.Page[dto.UserView] `json:"data"`
	}
	decodeBody(t, rec, &page)
	assert.True(t, page.OK)
	assert.EqualValues(t, 3, page.Data.Total)

	rec = api.do(http.MethodGet, "/api/users", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var self dto.Page[dto.UserListItem]
	decodeBody(t, rec, &self)
	require.Len(t, self.Data, 1)
	assert.Equal(t, "bob", self.Data[0].Name)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var env dto.Envelope
	decodeBody(t, rec, &env)
	assert.False(t, env.OK)
	assert.Equal(t, "not found", env.Error)
}

func TestAuditConnKeepsSessionIDDigits(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/audit/conn", "", json.RawMessage(
		`{"action":"new","conn_id":7,"ip":"192.0.2.7","uuid":"dev-1","session_id":12345678901234567891}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = api.do(http.MethodPost, "/api/audit/conn", "", json.RawMessage(
		`{"action":"new","conn_id":8,"uuid":"dev-2","session_id":"18446744073709551615"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ctx := context.Background()
	row, err := api.audit.GetConn(ctx, 7, "")
	require.NoError(t, err)
	assert.Equal(t, "12345678901234567891", row.SessionID)
	row, err = api.audit.GetConn(ctx, 8, "")
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551615", row.SessionID)
}

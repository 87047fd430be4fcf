package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/dmitrijs2005/gophadmin/internal/server/auth"
	"github.com/dmitrijs2005/gophadmin/internal/server/config"
	"github.com/dmitrijs2005/gophadmin/internal/server/identity"
	"github.com/dmitrijs2005/gophadmin/internal/server/metrics"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
	"github.com/dmitrijs2005/gophadmin/internal/server/push"
	"github.com/dmitrijs2005/gophadmin/internal/server/upload"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// --- fakes ---

type fakeIdentities struct {
	users      map[string]*models.Identity
	tokens     map[string][]string
	listQuery  models.QueryOptions
	listResult []models.Identity
	listTotal  int64
	roles      []string
	ensured    []string
	ensureErr  error
	err        error
}

func (f *fakeIdentities) EnsureExternal(_ context.Context, ext *models.Identity) (*models.Identity, error) {
	f.ensured = append(f.ensured, ext.ID)
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	if u, ok := f.users[ext.ID]; ok {
		return u, nil
	}
	u := &models.Identity{ID: ext.ID, Email: ext.Email, Roles: []string{"user"}}
	f.users[ext.ID] = u
	return u, nil
}

func (f *fakeIdentities) Register(_ context.Context, email, _, name string) (*models.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Identity{ID: "new", Email: email, DisplayName: name, Roles: []string{"user"}}, nil
}

func (f *fakeIdentities) Login(_ context.Context, email, password string) (string, *models.Identity, error) {
	if password != "secret123" {
		return "", nil, common.ErrorUnauthorized
	}
	return "tok", &models.Identity{ID: "u-1", Email: email}, nil
}

func (f *fakeIdentities) Get(_ context.Context, id string) (*models.Identity, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeIdentities) UpdateProfile(_ context.Context, id string, upd identity.ProfileUpdate) (*models.Identity, error) {
	u := &models.Identity{ID: id}
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	return u, nil
}

func (f *fakeIdentities) SetRoles(_ context.Context, id string, roles []string) (*models.Identity, error) {
	f.roles = roles
	return &models.Identity{ID: id, Roles: roles}, nil
}

func (f *fakeIdentities) List(_ context.Context, q models.QueryOptions) ([]models.Identity, int64, error) {
	f.listQuery = q
	return f.listResult, f.listTotal, f.err
}

func (f *fakeIdentities) RegisterDevice(_ context.Context, userID, token, platform string) (*models.DeviceToken, error) {
	return &models.DeviceToken{ID: "d-1", UserID: userID, Token: token, Platform: platform}, nil
}

func (f *fakeIdentities) DeviceTokens(_ context.Context, userID string) ([]string, error) {
	return f.tokens[userID], nil
}

type fakeUploads struct {
	compressed bool
	gotDir     string
	removed    string
	removeErr  error
}

func (f *fakeUploads) Validate(file *upload.File) upload.ValidationResult {
	return upload.Validate(file)
}

func (f *fakeUploads) Compress(file *upload.File, _ int, _ float64) *upload.File {
	f.compressed = true
	return file
}

func (f *fakeUploads) Upload(_ context.Context, file *upload.File, dir string) (models.UploadResult, error) {
	f.gotDir = dir
	return models.UploadResult{URL: "https://cdn/" + file.Name, FileName: file.Name, Size: file.Size()}, nil
}

func (f *fakeUploads) UploadMultiple(ctx context.Context, files []*upload.File, dir string) ([]models.UploadResult, error) {
	out := make([]models.UploadResult, len(files))
	for i, file := range files {
		out[i], _ = f.Upload(ctx, file, dir)
	}
	return out, nil
}

func (f *fakeUploads) Remove(_ context.Context, rawURL string) error {
	f.removed = rawURL
	return f.removeErr
}

type fakeDispatcher struct {
	tokens []string
}

func (f *fakeDispatcher) Send(_ context.Context, tokens []string, _ models.PushPayload) (int, error) {
	if len(tokens) == 0 {
		return 0, push.ErrNoDevices
	}
	f.tokens = tokens
	return len(tokens), nil
}

type fakeEvents struct {
	events    []push.Event
	receivers int64
}

func (f *fakeEvents) Publish(_ context.Context, ev push.Event) (int64, error) {
	f.events = append(f.events, ev)
	return f.receivers, nil
}

// --- harness ---

type harness struct {
	handler    http.Handler
	identities *fakeIdentities
	uploads    *fakeUploads
	dispatcher *fakeDispatcher
	events     *fakeEvents
	metrics    *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, auth.NewJWTVerifier(testSecret))
}

func newHarnessWith(t *testing.T, v auth.Verifier) *harness {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = testSecret
	cfg.UploadRatePerMinute = 2

	h := &harness{
		identities: &fakeIdentities{users: map[string]*models.Identity{}, tokens: map[string][]string{}},
		uploads:    &fakeUploads{},
		dispatcher: &fakeDispatcher{},
		events:     &fakeEvents{receivers: 1},
		metrics:    metrics.New(),
	}
	h.handler = NewRouter(Deps{
		Config:     cfg,
		Logger:     logging.Nop{},
		Verifier:   v,
		Identities: h.identities,
		Uploads:    h.uploads,
		Dispatcher: h.dispatcher,
		Events:     h.events,
		Metrics:    h.metrics,
	})
	return h
}

func bearer(t *testing.T, id string, roles ...string) string {
	t.Helper()
	tok, err := auth.GenerateToken(&models.Identity{ID: id, Roles: roles}, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (h *harness) do(req *http.Request, authz string) *httptest.ResponseRecorder {
	if authz != "" {
		req.Header.Set(common.AuthorizationHeaderName, authz)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) models.Envelope[T] {
	t.Helper()
	var env models.Envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// --- tests ---

func TestHealthAndRequestID(t *testing.T) {
	h := newHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/health", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(common.RequestIDHeaderName))

	env := decodeEnvelope[healthResponse](t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "ok", env.Data.Status)
	assert.Equal(t, rec.Header().Get(common.RequestIDHeaderName), env.Metadata.RequestID)
}

func TestGuard_RedirectsAnonymousToSignIn(t *testing.T) {
	h := newHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/me", nil), "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin", rec.Header().Get("Location"))

	rec = h.do(httptest.NewRequest(http.MethodGet, "/me", nil), "Bearer garbage")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin", rec.Header().Get("Location"))

	rec = h.do(httptest.NewRequest(http.MethodGet, "/signin", nil), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthenticated, decodeEnvelope[struct{}](t, rec).Error.Code)

	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.GuardDecisions.WithLabelValues("unauthenticated")))
}

func TestGuard_RoleAndPermissionChecks(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		method string
		path   string
		roles  []string
		want   int
	}{
		{"user cannot upload", http.MethodDelete, "/uploads?url=x", []string{"user"}, http.StatusSeeOther},
		{"editor can upload", http.MethodDelete, "/uploads?url=x", []string{"editor"}, http.StatusNoContent},
		{"no roles defaults to user", http.MethodGet, "/admin/users", nil, http.StatusSeeOther},
		{"editor is not admin", http.MethodGet, "/admin/users", []string{"editor"}, http.StatusSeeOther},
		{"secondary admin role ignored", http.MethodGet, "/admin/users", []string{"user", "admin"}, http.StatusSeeOther},
		{"admin passes", http.MethodGet, "/admin/users", []string{"admin"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(httptest.NewRequest(tt.method, tt.path, nil), bearer(t, "u-"+tt.name, tt.roles...))
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusSeeOther {
				assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))
			}
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)

	body := `{"email":"a@example.com","password":"secret123","displayName":"Alice"}`
	rec := h.do(httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body)), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Alice", decodeEnvelope[models.Identity](t, rec).Data.DisplayName)

	rec = h.do(httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@example.com","password":"secret123"}`)), "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope[loginResponse](t, rec)
	assert.Equal(t, "tok", env.Data.AccessToken)
	assert.Equal(t, "Bearer", env.Data.TokenType)

	rec = h.do(httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@example.com","password":"nope"}`)), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"bogus":1}`)), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, decodeEnvelope[struct{}](t, rec).Error.Code)

	h.identities.err = common.ErrorAlreadyExists
	rec = h.do(httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body)), "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestMeAndProfile(t *testing.T) {
	h := newHarness(t)
	h.identities.users["u-1"] = &models.Identity{ID: "u-1", Email: "a@example.com", Roles: []string{"user"}}
	authz := bearer(t, "u-1", "user")

	rec := h.do(httptest.NewRequest(http.MethodGet, "/me", nil), authz)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@example.com", decodeEnvelope[models.Identity](t, rec).Data.Email)

	rec = h.do(httptest.NewRequest(http.MethodPatch, "/me/profile", strings.NewReader(`{"displayName":"Al"}`)), authz)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Al", decodeEnvelope[models.Identity](t, rec).Data.DisplayName)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/me", nil), bearer(t, "ghost"))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

type verifierFunc func(ctx context.Context, token string) (*models.Identity, error)

func (f verifierFunc) Verify(ctx context.Context, token string) (*models.Identity, error) {
	return f(ctx, token)
}

func TestExternalIdentity_ProvisionedOnFirstRequest(t *testing.T) {
	const uid = "kX9bT2mQ7rLw4ZpA1sD8fG3hJ6k2"
	provider := verifierFunc(func(_ context.Context, token string) (*models.Identity, error) {
		if token != "firebase-id-token" {
			return nil, common.ErrInvalidToken
		}
		return &models.Identity{ID: uid, Email: "g@example.com", Provider: models.ProviderFirebase}, nil
	})
	h := newHarnessWith(t, auth.ChainVerifier{auth.NewJWTVerifier(testSecret), provider})
	h.identities.users["u-1"] = &models.Identity{ID: "u-1", Roles: []string{"user"}}
	external := "Bearer firebase-id-token"

	rec := h.do(httptest.NewRequest(http.MethodGet, "/me", nil), external)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uid, decodeEnvelope[models.Identity](t, rec).Data.ID)

	rec = h.do(httptest.NewRequest(http.MethodPost, "/notifications/devices", strings.NewReader(`{"token":"t9","platform":"web"}`)), external)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, uid, decodeEnvelope[models.DeviceToken](t, rec).Data.UserID)
	assert.Equal(t, []string{uid, uid}, h.identities.ensured)

	// locally issued tokens keep working and never trigger provisioning
	rec = h.do(httptest.NewRequest(http.MethodGet, "/me", nil), bearer(t, "u-1", "user"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.identities.ensured, 2)

	h.identities.ensureErr = errors.New("db down")
	rec = h.do(httptest.NewRequest(http.MethodGet, "/me", nil), external)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestListUsers(t *testing.T) {
	h := newHarness(t)
	h.identities.listResult = []models.Identity{{ID: "u-3"}}
	h.identities.listTotal = 21

	req := httptest.NewRequest(http.MethodGet, "/admin/users?filter=email:contains:example&filter=or:role:eq:editor&sort=createdAt:desc&limit=10&page=2", nil)
	rec := h.do(req, bearer(t, "admin-1", "admin"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	q := h.identities.listQuery
	require.Len(t, q.Filters, 2)
	assert.Equal(t, models.QueryFilter{Field: "role", Operator: "eq", Value: "editor", Logic: "or"}, q.Filters[1])
	assert.Equal(t, []models.QuerySort{{Field: "createdAt", Direction: "desc"}}, q.Sort)

	env := decodeEnvelope[[]models.Identity](t, rec)
	require.Len(t, *env.Data, 1)
	p := env.Metadata.Pagination
	require.NotNil(t, p)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)
	assert.Equal(t, int64(21), *env.Metadata.TotalCount)

	h.identities.err = common.ErrUnsupportedQuery
	rec = h.do(httptest.NewRequest(http.MethodGet, "/admin/users?filter=password:eq:x", nil), bearer(t, "admin-1", "admin"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/admin/users?limit=-1", nil), bearer(t, "admin-1", "admin"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetRoles(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPut, "/admin/users/u-9/roles", strings.NewReader(`{"roles":["editor"]}`))
	rec := h.do(req, bearer(t, "admin-1", "admin"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"editor"}, h.identities.roles)
	assert.Equal(t, "u-9", decodeEnvelope[models.Identity](t, rec).Data.ID)
}

func TestNotifications(t *testing.T) {
	h := newHarness(t)
	h.identities.tokens["u-2"] = []string{"t1", "t2"}

	rec := h.do(httptest.NewRequest(http.MethodPost, "/notifications/devices", strings.NewReader(`{"token":"t3","platform":"web"}`)), bearer(t, "u-2"))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "u-2", decodeEnvelope[models.DeviceToken](t, rec).Data.UserID)

	body := `{"userId":"u-2","payload":{"notification":{"title":"Hi"},"data":{"id":"5"}}}`
	rec = h.do(httptest.NewRequest(http.MethodPost, "/admin/notifications", strings.NewReader(body)), bearer(t, "admin-1", "admin"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"t1", "t2"}, h.dispatcher.tokens)
	assert.Equal(t, 2, decodeEnvelope[sendNotificationResponse](t, rec).Data.Delivered)

	rec = h.do(httptest.NewRequest(http.MethodPost, "/admin/notifications", strings.NewReader(`{"userId":"nobody"}`)), bearer(t, "admin-1", "admin"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNoDevices, decodeEnvelope[struct{}](t, rec).Error.Code)

	rec = h.do(httptest.NewRequest(http.MethodPost, "/notifications/clicks", strings.NewReader(`{"tag":"notification-5","action":"close"}`)), bearer(t, "u-2"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, h.events.events, 1)
	assert.Equal(t, push.Event{Type: push.EventClick, Tag: "notification-5", Action: "close"}, h.events.events[0])

	h.events.receivers = 0
	rec = h.do(httptest.NewRequest(http.MethodPost, "/notifications/clicks", strings.NewReader(`{"tag":"notification-6"}`)), bearer(t, "u-2"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeUnavailable, decodeEnvelope[struct{}](t, rec).Error.Code)
}

func multipartBody(t *testing.T, fields map[string]string, files ...*upload.File) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+f.Name+`"`)
		hdr.Set("Content-Type", f.ContentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(f.Data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCreateUpload(t *testing.T) {
	h := newHarness(t)
	authz := bearer(t, "ed-1", "editor")

	body, ct := multipartBody(t, map[string]string{"path": "avatars", "compress": "true"},
		&upload.File{Name: "a.png", ContentType: "image/png", Data: []byte("png")})
	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", ct)
	rec := h.do(req, authz)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, h.uploads.compressed)
	assert.Equal(t, "avatars", h.uploads.gotDir)
	assert.Equal(t, "https://cdn/a.png", decodeEnvelope[models.UploadResult](t, rec).Data.URL)

	body, ct = multipartBody(t, nil,
		&upload.File{Name: "a.png", ContentType: "image/png", Data: []byte("1")},
		&upload.File{Name: "b.gif", ContentType: "image/gif", Data: []byte("2")})
	req = httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", ct)
	rec = h.do(req, authz)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope[struct{}](t, rec)
	assert.Equal(t, CodeValidation, env.Error.Code)
	assert.Contains(t, rec.Body.String(), upload.ErrMsgType)

	// budget of 2 per minute is spent
	rec = h.do(httptest.NewRequest(http.MethodDelete, "/uploads?url=x", nil), authz)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCreateUpload_Multiple(t *testing.T) {
	h := newHarness(t)

	body, ct := multipartBody(t, map[string]string{"path": "gallery"},
		&upload.File{Name: "one.jpg", ContentType: "image/jpeg", Data: []byte("1")},
		&upload.File{Name: "two.webp", ContentType: "image/webp", Data: []byte("2")})
	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", ct)
	rec := h.do(req, bearer(t, "admin-1", "admin"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env := decodeEnvelope[[]models.UploadResult](t, rec)
	require.Len(t, *env.Data, 2)
	assert.Equal(t, "one.jpg", (*env.Data)[0].FileName)
	assert.Equal(t, "two.webp", (*env.Data)[1].FileName)
	assert.False(t, h.uploads.compressed)
}

func TestCreateUpload_BodyTooLarge(t *testing.T) {
	orig := maxMultipartBody
	maxMultipartBody = 1024
	t.Cleanup(func() { maxMultipartBody = orig })

	h := newHarness(t)
	body, ct := multipartBody(t, nil,
		&upload.File{Name: "big.png", ContentType: "image/png", Data: bytes.Repeat([]byte("x"), 4096)})
	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", ct)
	rec := h.do(req, bearer(t, "ed-1", "editor"))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	env := decodeEnvelope[struct{}](t, rec)
	assert.Equal(t, CodeValidation, env.Error.Code)
	assert.Contains(t, env.Error.Message, "request body exceeds 1024 bytes")
	assert.Empty(t, h.uploads.gotDir)
}

func TestDeleteUpload(t *testing.T) {
	h := newHarness(t)
	authz := bearer(t, "admin-1", "admin")

	rec := h.do(httptest.NewRequest(http.MethodDelete, "/uploads?url=https%3A%2F%2Fcdn%2Fa.png", nil), authz)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://cdn/a.png", h.uploads.removed)

	h.uploads.removeErr = errors.New("s3 exploded")
	rec = h.do(httptest.NewRequest(http.MethodDelete, "/uploads?url=x", nil), authz)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded")
}

func TestClientConfig(t *testing.T) {
	h := newHarness(t)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/config", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope[clientConfig](t, rec).Success)
}

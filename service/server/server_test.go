package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"flame/service/app"
	"flame/service/config"
	"flame/service/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Port:        5005,
		APIKey:      testAPIKey,
		StoragePath: filepath.Join(dir, "db.sqlite"),
		UploadsPath: filepath.Join(dir, "uploads"),
		MaxIconSize: 1 << 20,
	}

	srv, err := New(cfg, util.NewLoggerTo(io.Discard, false), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown() })

	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	return req
}

func seedApp(t *testing.T, srv *Server, fields app.NewApp) *app.App {
	t.Helper()
	a, err := srv.apps.Add(context.Background(), app.PlainPayload(fields))
	require.NoError(t, err)
	return a
}

type multipartField struct {
	name, value string
}

func multipartBody(t *testing.T, fields []multipartField, icon *app.Icon) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		require.NoError(t, mw.WriteField(f.name, f.value))
	}
	if icon != nil {
		part, err := mw.CreateFormFile("icon", icon.Filename)
		require.NoError(t, err)
		_, err = part.Write(icon.Data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func hxTriggers(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()

	events := map[string]json.RawMessage{}
	if header := rec.Header().Get("HX-Trigger"); header != "" {
		require.NoError(t, json.Unmarshal([]byte(header), &events))
	}
	return events
}

// --- health ---

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	seedApp(t, srv, app.NewApp{Name: "Bookstack", URL: "bookstack.example.com", Icon: "book", IsPublic: true})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "test", body.Version)
	assert.Equal(t, 1, body.Apps)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
}

// --- JSON API ---

func TestListApps_HidesPrivateAppsWithoutKey(t *testing.T) {
	srv := newTestServer(t)
	seedApp(t, srv, app.NewApp{Name: "Public", URL: "a.example.com", Icon: "web", IsPublic: true})
	seedApp(t, srv, app.NewApp{Name: "Private", URL: "b.example.com", Icon: "lock", IsPublic: false})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/apps", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var apps []app.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, "Public", apps[0].Name)

	rec = serve(srv, authed(httptest.NewRequest(http.MethodGet, "/api/apps", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
	assert.Len(t, apps, 2)
}

func TestGetApp_HiddenIsNotFoundWithoutKey(t *testing.T) {
	srv := newTestServer(t)
	hidden := seedApp(t, srv, app.NewApp{Name: "Private", URL: "b.example.com", Icon: "lock", IsPublic: false})
	path := "/api/apps/" + strconv.FormatInt(hidden.ID, 10)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(srv, authed(httptest.NewRequest(http.MethodGet, path, nil)))
	require.Equal(t, http.StatusOK, rec.Code)

	var got app.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, hidden.ID, got.ID)
	assert.False(t, got.IsPublic)
}

func TestGetApp_InvalidID(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/apps/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateApp_RequiresKey(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/apps", strings.NewReader(`{"name":"x","url":"y","icon":"z"}`))
	rec := serve(srv, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	count, err := srv.apps.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateApp_JSON(t *testing.T) {
	srv := newTestServer(t)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/apps",
		strings.NewReader(`{"name":"Bookstack","url":"bookstack.example.com","icon":"book-open-outline"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(srv, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created app.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Bookstack", created.Name)
	assert.Equal(t, "book-open-outline", created.Icon)
	assert.True(t, created.IsPublic, "omitted isPublic keeps the default")
}

func TestCreateApp_Invalid(t *testing.T) {
	srv := newTestServer(t)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/apps", strings.NewReader(`{"name":"","url":"x","icon":"y"}`)))
	rec := serve(srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = authed(httptest.NewRequest(http.MethodPost, "/api/apps", strings.NewReader(`{not json`)))
	rec = serve(srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateApp_MultipartStoresIcon(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, []multipartField{
		{"name", "Grafana"},
		{"url", "grafana.example.com"},
		{"isPublic", "false"},
	}, &app.Icon{Filename: "grafana.png", Data: pngHeader})

	req := authed(httptest.NewRequest(http.MethodPost, "/api/apps", body))
	req.Header.Set("Content-Type", contentType)
	rec := serve(srv, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created app.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.False(t, created.IsPublic)
	assert.True(t, srv.apps.Icons().IsUploaded(created.Icon))
	assert.FileExists(t, filepath.Join(srv.apps.Icons().Dir(), created.Icon))

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/uploads/"+created.Icon, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngHeader, rec.Body.Bytes())
}

func TestCreateApp_MultipartRejectsUnsupportedIcon(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, []multipartField{
		{"name", "Grafana"},
		{"url", "grafana.example.com"},
	}, &app.Icon{Filename: "grafana.gif", Data: []byte("GIF89a")})

	req := authed(httptest.NewRequest(http.MethodPost, "/api/apps", body))
	req.Header.Set("Content-Type", contentType)
	rec := serve(srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateApp(t *testing.T) {
	srv := newTestServer(t)
	existing := seedApp(t, srv, app.NewApp{Name: "Old", URL: "old.example.com", Icon: "web", IsPublic: true})
	path := "/api/apps/" + strconv.FormatInt(existing.ID, 10)

	req := authed(httptest.NewRequest(http.MethodPut, path,
		strings.NewReader(`{"name":"New","url":"new.example.com","icon":"web","isPublic":false}`)))
	rec := serve(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated app.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, existing.ID, updated.ID)
	assert.Equal(t, "New", updated.Name)
	assert.False(t, updated.IsPublic)

	req = authed(httptest.NewRequest(http.MethodPut, "/api/apps/9999",
		strings.NewReader(`{"name":"New","url":"new.example.com","icon":"web"}`)))
	rec = serve(srv, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteApp(t *testing.T) {
	srv := newTestServer(t)
	existing := seedApp(t, srv, app.NewApp{Name: "Gone", URL: "gone.example.com", Icon: "web", IsPublic: true})
	path := "/api/apps/" + strconv.FormatInt(existing.ID, 10)

	rec := serve(srv, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(srv, authed(httptest.NewRequest(http.MethodDelete, path, nil)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(srv, authed(httptest.NewRequest(http.MethodDelete, path, nil)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAppQRCode(t *testing.T) {
	srv := newTestServer(t)
	public := seedApp(t, srv, app.NewApp{Name: "Public", URL: "a.example.com", Icon: "web", IsPublic: true})
	hidden := seedApp(t, srv, app.NewApp{Name: "Private", URL: "b.example.com", Icon: "lock", IsPublic: false})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/apps/"+strconv.FormatInt(public.ID, 10)+"/qr", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngHeader))

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/api/apps/"+strconv.FormatInt(hidden.ID, 10)+"/qr", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- dashboard ---

func TestIndex_RequiresKey(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("anyone", testAPIKey)
	rec = serve(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="app-modal"`)
}

func TestFragmentApps_ListsHiddenApps(t *testing.T) {
	srv := newTestServer(t)
	seedApp(t, srv, app.NewApp{Name: "Private", URL: "https://b.example.com/", Icon: "lock", IsPublic: false})

	rec := serve(srv, authed(httptest.NewRequest(http.MethodGet, "/fragment/apps", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Private")
	assert.Contains(t, rec.Body.String(), "mdi-lock")
	assert.Contains(t, rec.Body.String(), "Hidden")
}

func TestFragmentAppForm(t *testing.T) {
	srv := newTestServer(t)
	existing := seedApp(t, srv, app.NewApp{Name: "Bookstack", URL: "bookstack.example.com", Icon: "book", IsPublic: false})

	rec := serve(srv, authed(httptest.NewRequest(http.MethodGet, "/fragment/app-form", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Add new application")
	assert.Contains(t, rec.Body.String(), `hx-post="/action/app"`)

	rec = serve(srv, authed(httptest.NewRequest(http.MethodGet, "/fragment/app-form/"+strconv.FormatInt(existing.ID, 10), nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Update application")
	assert.Contains(t, body, `value="Bookstack"`)
	assert.Contains(t, body, `<option value="0" selected>`)

	rec = serve(srv, authed(httptest.NewRequest(http.MethodGet, "/fragment/app-form/9999", nil)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFragmentAppFormToggle_KeepsTypedValues(t *testing.T) {
	srv := newTestServer(t)

	query := url.Values{
		"name":          {"Typed"},
		"url":           {"typed.example.com"},
		"icon":          {"web"},
		"isPublic":      {"0"},
		"useCustomIcon": {"0"},
	}
	rec := serve(srv, authed(httptest.NewRequest(http.MethodGet, "/fragment/app-form/toggle?"+query.Encode(), nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `type="file"`)
	assert.Contains(t, body, `value="Typed"`)
	assert.Contains(t, body, `name="useCustomIcon" value="1"`)
	assert.Contains(t, body, `<option value="0" selected>`)

	query.Set("useCustomIcon", "1")
	rec = serve(srv, authed(httptest.NewRequest(http.MethodGet, "/fragment/app-form/toggle?"+query.Encode(), nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `type="file"`)
	assert.Contains(t, rec.Body.String(), `name="useCustomIcon" value="0"`)
}

func TestSubmitAppForm_AddDoesNotCloseModal(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartBody(t, []multipartField{
		{"name", "Bookstack"},
		{"url", "bookstack.example.com"},
		{"icon", "book-open-outline"},
		{"isPublic", "1"},
	}, nil)
	req := authed(httptest.NewRequest(http.MethodPost, "/action/app", body))
	req.Header.Set("Content-Type", contentType)
	rec := serve(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	events := hxTriggers(t, rec)
	assert.Contains(t, events, "showToast")
	assert.NotContains(t, events, "closeModal")
	assert.Contains(t, rec.Body.String(), "Bookstack")
	assert.Contains(t, rec.Body.String(), `hx-swap-oob="innerHTML"`)

	apps, err := srv.apps.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "book-open-outline", apps[0].Icon)
}

func TestSubmitAppForm_UpdateWithoutFileClosesModal(t *testing.T) {
	srv := newTestServer(t)
	existing := seedApp(t, srv, app.NewApp{Name: "Old", URL: "old.example.com", Icon: "web", IsPublic: true})

	body, contentType := multipartBody(t, []multipartField{
		{"id", strconv.FormatInt(existing.ID, 10)},
		{"name", "New"},
		{"url", "new.example.com"},
		{"icon", "web"},
		{"isPublic", "0"},
	}, nil)
	req := authed(httptest.NewRequest(http.MethodPost, "/action/app/"+strconv.FormatInt(existing.ID, 10), body))
	req.Header.Set("Content-Type", contentType)
	rec := serve(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	events := hxTriggers(t, rec)
	assert.Contains(t, events, "showToast")
	assert.Contains(t, events, "closeModal")

	got, err := srv.apps.Get(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.False(t, got.IsPublic)
}

func TestSubmitAppForm_UpdateWithFileKeepsModalOpen(t *testing.T) {
	srv := newTestServer(t)
	existing := seedApp(t, srv, app.NewApp{Name: "Old", URL: "old.example.com", Icon: "web", IsPublic: true})

	body, contentType := multipartBody(t, []multipartField{
		{"name", "Old"},
		{"url", "old.example.com"},
		{"isPublic", "1"},
	}, &app.Icon{Filename: "old.png", Data: pngHeader})
	req := authed(httptest.NewRequest(http.MethodPost, "/action/app/"+strconv.FormatInt(existing.ID, 10), body))
	req.Header.Set("Content-Type", contentType)
	rec := serve(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	events := hxTriggers(t, rec)
	assert.Contains(t, events, "showToast")
	assert.NotContains(t, events, "closeModal")

	got, err := srv.apps.Get(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.True(t, srv.apps.Icons().IsUploaded(got.Icon))
}

func TestSubmitAppForm_FailureShowsErrorToast(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{"name": {""}, "url": {"x.example.com"}, "icon": {"web"}}
	req := authed(httptest.NewRequest(http.MethodPost, "/action/app", strings.NewReader(form.Encode())))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var toast map[string]string
	require.NoError(t, json.Unmarshal(hxTriggers(t, rec)["showToast"], &toast))
	assert.Equal(t, "error", toast["type"])

	count, err := srv.apps.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteAppAction(t *testing.T) {
	srv := newTestServer(t)
	existing := seedApp(t, srv, app.NewApp{Name: "Gone", URL: "gone.example.com", Icon: "web", IsPublic: true})

	rec := serve(srv, authed(httptest.NewRequest(http.MethodDelete, "/action/app/"+strconv.FormatInt(existing.ID, 10), nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, hxTriggers(t, rec), "showToast")
	assert.NotContains(t, rec.Body.String(), "Gone")

	got, err := srv.apps.Get(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStart_ReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	srv := newTestServer(t)
	srv.cfg.Port = ln.Addr().(*net.TCPAddr).Port

	err = srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP server failed")
}

func TestUpdateApp_KeepsOmittedFields(t *testing.T) {
	srv := newTestServer(t)
	hidden := seedApp(t, srv, app.NewApp{Name: "Vault", URL: "vault.example.com", Icon: "lock", IsPublic: false})

	req := authed(httptest.NewRequest(http.MethodPut, "/api/apps/"+strconv.FormatInt(hidden.ID, 10),
		strings.NewReader(`{"name":"Vault 2"}`)))
	rec := serve(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated app.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Vault 2", updated.Name)
	assert.Equal(t, "vault.example.com", updated.URL)
	assert.Equal(t, "lock", updated.Icon)
	assert.False(t, updated.IsPublic, "omitted isPublic keeps the app hidden")
}

func TestCreateApp_JSONNumericVisibility(t *testing.T) {
	srv := newTestServer(t)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/apps",
		strings.NewReader(`{"name":"Vault","url":"vault.example.com","icon":"lock","isPublic":0}`)))
	rec := serve(srv, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created app.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.False(t, created.IsPublic)
}

func TestUploads_SandboxedAndUnlisted(t *testing.T) {
	srv := newTestServer(t)

	created, err := srv.apps.Add(context.Background(), app.MultipartPayload(
		app.NewApp{Name: "Logo", URL: "logo.example.com", IsPublic: true},
		&app.Icon{Filename: "logo.svg", Data: []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)},
	))
	require.NoError(t, err)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/uploads/"+created.Icon, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "sandbox")
	assert.Contains(t, csp, "default-src 'none'")

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/uploads/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitAppForm_InvalidIcon(t *testing.T) {
	srv := newTestServer(t)

	newReq := func() *http.Request {
		body, contentType := multipartBody(t, []multipartField{
			{"name", "Gif"},
			{"url", "gif.example.com"},
		}, &app.Icon{Filename: "anim.gif", Data: []byte("GIF89a")})
		req := authed(httptest.NewRequest(http.MethodPost, "/action/app", body))
		req.Header.Set("Content-Type", contentType)
		return req
	}

	rec := serve(srv, newReq())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("HX-Trigger"))

	req := newReq()
	req.Header.Set("HX-Request", "true")
	rec = serve(srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var toast map[string]string
	require.NoError(t, json.Unmarshal(hxTriggers(t, rec)["showToast"], &toast))
	assert.Equal(t, "error", toast["type"])
	assert.Contains(t, toast["message"], "Invalid icon")

	count, err := srv.apps.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

package server

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	internalauth "picstore/internal/auth"
	"picstore/internal/models"
	"picstore/internal/store"
	"picstore/internal/upload"
)

type testEnv struct {
	srv     *Server
	store   *store.Store
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLogger(t, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestEnvWithLogger(t *testing.T, logger *slog.Logger) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "picstore.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	placeholder, err := LoadPlaceholder("")
	if err != nil {
		t.Fatalf("load placeholder: %v", err)
	}
	srv := New("127.0.0.1:0", st, upload.NewStager(t.TempDir()), placeholder, logger)
	return &testEnv{srv: srv, store: st, handler: srv.Handler()}
}

func (e *testEnv) seedUser(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()
	hash, err := internalauth.HashPassword("password-" + username)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := e.store.CreateUser(context.Background(), username, hash, role, time.Now().UTC())
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// sessionCookie opens a session for user directly in the store.
func (e *testEnv) sessionCookie(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	token, err := internalauth.NewSessionToken()
	if err != nil {
		t.Fatalf("new session token: %v", err)
	}
	now := time.Now().UTC()
	if err := e.store.CreateSession(context.Background(), user.ID, internalauth.HashSessionToken(token), now.Add(time.Hour), now); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &http.Cookie{Name: sessionCookieName, Value: token}
}

func (e *testEnv) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) imageCount(t *testing.T) int {
	t.Helper()
	counts, err := e.store.CountImagesByOwner(context.Background())
	if err != nil {
		t.Fatalf("count images: %v", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

func (e *testEnv) profileImageID(t *testing.T, userID int64) *int64 {
	t.Helper()
	user, err := e.store.GetUserByID(context.Background(), userID)
	if err != nil || user == nil {
		t.Fatalf("get user %d: %v", userID, err)
	}
	return user.ProfileImageID
}

type uploadForm struct {
	ownerID     string
	creatorID   string
	context     string
	label       string
	filename    string
	contentType string
	content     []byte
	noFile      bool
}

func newUploadRequest(t *testing.T, form uploadForm) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := []struct{ name, value string }{
		{"owner_id", form.ownerID},
		{"creator_id", form.creatorID},
		{"context", form.context},
		{"label", form.label},
	}
	for _, field := range fields {
		if field.value == "" {
			continue
		}
		if err := mw.WriteField(field.name, field.value); err != nil {
			t.Fatalf("write field %s: %v", field.name, err)
		}
	}
	if !form.noFile {
		filename := form.filename
		if filename == "" {
			filename = "upload.bin"
		}
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
		contentType := form.contentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header["Content-Type"] = []string{contentType}
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(form.content); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// testNoisePNG encodes random pixels so the payload does not compress.
func testNoisePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	rng := rand.New(rand.NewPCG(uint64(width), uint64(height)))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Uint32())
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 5), B: uint8(x ^ y), A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

type staticSessions struct {
	user *models.User
	err  error
}

func (s staticSessions) ValidateSession(context.Context, *http.Request) (*models.User, bool, error) {
	return s.user, s.user != nil, s.err
}

func TestConfigureKeepsSessionValidator(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice", models.RoleMember)
	env.srv.SetSessionValidator(staticSessions{user: alice})
	env.srv.Configure(Options{RegisterPath: "/signup"})

	w := env.do(httptest.NewRequest(http.MethodGet, "/image", nil), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected installed validator to admit the request, got %d", w.Code)
	}

	env.srv.SetSessionValidator(nil)
	w = env.do(httptest.NewRequest(http.MethodGet, "/image", nil), nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/signup" {
		t.Fatalf("expected cookie sessions restored, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestServerLoggerReachesImageService(t *testing.T) {
	var logs bytes.Buffer
	env := newTestEnvWithLogger(t, slog.New(slog.NewTextHandler(&logs, nil)))
	alice := env.seedUser(t, "alice", models.RoleMember)

	w := env.do(newUploadRequest(t, uploadForm{
		ownerID:   idString(alice.ID),
		creatorID: idString(alice.ID),
		content:   testPNG(t, 4, 4),
	}), env.sessionCookie(t, alice))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	out := logs.String()
	if !strings.Contains(out, `msg="image stored"`) || !strings.Contains(out, "component=images") {
		t.Fatalf("expected image service to log through the server logger, got %q", out)
	}
}

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:7480")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:7480" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		_, err := ListenAddr("http://0.0.0.0:7480")
		if err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:7480")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:7480" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("requires url", func(t *testing.T) {
		if _, err := ListenAddr(""); err == nil {
			t.Fatal("expected error for empty api url")
		}
	})
}

func TestOptionsNormalized(t *testing.T) {
	opts := Options{RegisterPath: "signup", SettingsPath: "/account"}.normalized()
	if opts.MaxUploadBytes != upload.DefaultMaxFileBytes {
		t.Fatalf("expected default max upload bytes, got %d", opts.MaxUploadBytes)
	}
	if opts.MultipartMaxMemory != upload.DefaultMaxMemory {
		t.Fatalf("expected default multipart memory, got %d", opts.MultipartMaxMemory)
	}
	if opts.SessionTTL != 24*time.Hour {
		t.Fatalf("expected default ttl, got %s", opts.SessionTTL)
	}
	if opts.RegisterPath != "/register" {
		t.Fatalf("expected relative register path to fall back, got %q", opts.RegisterPath)
	}
	if opts.SettingsPath != "/account" {
		t.Fatalf("expected settings path kept, got %q", opts.SettingsPath)
	}
}

func TestHealthSkipsSession(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "" {
		t.Fatal("health responses should not carry a request id")
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

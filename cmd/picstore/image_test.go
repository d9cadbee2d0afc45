package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"picstore/internal/api"
	internalauth "picstore/internal/auth"
	"picstore/internal/config"
	"picstore/internal/format"
	"picstore/internal/models"
	"picstore/internal/server"
	"picstore/internal/store"
	"picstore/internal/upload"
)

type imageCLIEnv struct {
	cfg   *config.Config
	store *store.Store
	alice *models.User
}

// newImageCLIEnv serves the real handler over httptest and signs in as alice.
func newImageCLIEnv(t *testing.T) *imageCLIEnv {
	t.Helper()
	cfg := testConfig(t)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hash, err := internalauth.HashPassword("password-123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	alice, err := st.CreateUser(context.Background(), "alice", hash, models.RoleMember, time.Now().UTC())
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	placeholder, err := server.LoadPlaceholder("")
	if err != nil {
		t.Fatalf("placeholder: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := server.New("127.0.0.1:0", st, upload.NewStager(t.TempDir()), placeholder, logger)
	srv.Configure(serverOptions(cfg))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg.APIURL = ts.URL
	t.Setenv(usernameEnvKey, "alice")
	t.Setenv(passwordEnvKey, "password-123")
	return &imageCLIEnv{cfg: cfg, store: st, alice: alice}
}

func writeTestPNG(t *testing.T, width, height int) (string, []byte) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x40, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(t.TempDir(), "picture.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path, buf.Bytes()
}

func TestImageCommandsRoundTrip(t *testing.T) {
	env := newImageCLIEnv(t)
	path, payload := writeTestPNG(t, 12, 8)

	out := captureOutput(t, format.JSONFormatter{})
	if err := runCmd(t, newImageUploadCmd(env.cfg), "", path, "--label", "beach"); err != nil {
		t.Fatalf("image upload: %v", err)
	}
	var created api.ImageResponse
	if err := json.Unmarshal(out.Bytes(), &created); err != nil {
		t.Fatalf("decode upload output %q: %v", out.String(), err)
	}
	if created.OwnerID != env.alice.ID || created.CreatorID != env.alice.ID {
		t.Fatalf("expected signed-in user as owner and creator, got %+v", created)
	}
	if created.MediaType != "image/png" || created.Label != "beach" || created.SizeBytes != int64(len(payload)) {
		t.Fatalf("unexpected image %+v", created)
	}

	out = captureOutput(t, nil)
	target := filepath.Join(t.TempDir(), "copy.png")
	id := strconv.FormatInt(created.ID, 10)
	if err := runCmd(t, newImageGetCmd(env.cfg), "", id, "--out", target); err != nil {
		t.Fatalf("image get: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read downloaded image: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("downloaded bytes differ from upload")
	}
	if !strings.Contains(out.String(), "(image/png)") {
		t.Fatalf("unexpected get output %q", out.String())
	}

	out.Reset()
	if err := runCmd(t, newImageDeleteCmd(env.cfg), "", id); err != nil {
		t.Fatalf("image delete: %v", err)
	}
	if out.String() != "deleted image "+id+"\n" {
		t.Fatalf("unexpected delete output %q", out.String())
	}

	err = runCmd(t, newImageDeleteCmd(env.cfg), "", id)
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 404 {
		t.Fatalf("expected 404 for deleted image, got %v", err)
	}
}

func TestImageUploadProfile(t *testing.T) {
	env := newImageCLIEnv(t)
	path, _ := writeTestPNG(t, 4, 4)
	out := captureOutput(t, nil)

	if err := runCmd(t, newImageUploadCmd(env.cfg), "", path, "--profile"); err != nil {
		t.Fatalf("profile upload: %v", err)
	}
	want := "profile picture updated for user 1 (/settings?id=1)\n"
	if out.String() != want {
		t.Fatalf("expected %q, got %q", want, out.String())
	}
	user, err := env.store.GetUserByID(context.Background(), env.alice.ID)
	if err != nil || user == nil || user.ProfileImageID == nil {
		t.Fatalf("expected profile reference set, got %+v (%v)", user, err)
	}
}

func TestImageUploadRejected(t *testing.T) {
	env := newImageCLIEnv(t)
	captureOutput(t, nil)

	textPath := filepath.Join(t.TempDir(), "notes.png")
	if err := os.WriteFile(textPath, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	err := runCmd(t, newImageUploadCmd(env.cfg), "", textPath)
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode != server.ErrCodeImageFormat {
		t.Fatalf("expected format error, got %v", err)
	}

	path, _ := writeTestPNG(t, 4, 4)
	err = runCmd(t, newImageUploadCmd(env.cfg), "", path, "--creator", "99")
	if !errors.As(err, &apiErr) || apiErr.Status != 404 {
		t.Fatalf("expected unknown creator to be rejected, got %v", err)
	}
}

func TestImageGetPlaceholderToStdout(t *testing.T) {
	env := newImageCLIEnv(t)
	out := captureOutput(t, nil)

	if err := runCmd(t, newImageGetCmd(env.cfg), "", "default"); err != nil {
		t.Fatalf("image get default: %v", err)
	}
	placeholder, _ := server.LoadPlaceholder("")
	if !bytes.Equal(out.Bytes(), placeholder.Content) {
		t.Fatal("expected placeholder bytes on stdout")
	}
}

func TestImageCommandsRequireCredentials(t *testing.T) {
	env := newImageCLIEnv(t)
	captureOutput(t, nil)

	t.Setenv(passwordEnvKey, "")
	err := runCmd(t, newImageGetCmd(env.cfg), "", "1")
	if err == nil || !strings.Contains(err.Error(), passwordEnvKey) {
		t.Fatalf("expected missing credential error, got %v", err)
	}

	t.Setenv(passwordEnvKey, "wrong-password")
	err = runCmd(t, newImageGetCmd(env.cfg), "", "1")
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 401 {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestImageDeleteValidatesID(t *testing.T) {
	cfg := testConfig(t)
	captureOutput(t, nil)
	if err := runCmd(t, newImageDeleteCmd(cfg), "", "abc"); err == nil || !strings.Contains(err.Error(), "invalid image id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}

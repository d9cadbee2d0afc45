package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"picstore/internal/store"
	"picstore/internal/upload"
)

const (
	allowRemoteEnvKey = "PICSTORE_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Store is the persistence surface the server needs.
type Store interface {
	store.UserStore
	store.SessionStore
	store.ImageStore
}

// Options tunes the image endpoints and the session gate.
type Options struct {
	MaxUploadBytes     int64
	MultipartMaxMemory int64
	AcceptedMediaTypes []string
	SessionTTL         time.Duration
	RegisterPath       string
	SettingsPath       string
}

func (o Options) normalized() Options {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = upload.DefaultMaxFileBytes
	}
	if o.MultipartMaxMemory <= 0 {
		o.MultipartMaxMemory = upload.DefaultMaxMemory
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = 24 * time.Hour
	}
	if !strings.HasPrefix(o.RegisterPath, "/") {
		o.RegisterPath = "/register"
	}
	if !strings.HasPrefix(o.SettingsPath, "/") {
		o.SettingsPath = "/settings"
	}
	return o
}

// Server wraps HTTP handlers for the picstore API.
type Server struct {
	addr         string
	store        Store
	images       *ImageService
	authService  *AuthService
	sessions     SessionValidator
	customAuth   bool
	stager       *upload.Stager
	placeholder  Placeholder
	options      Options
	loginLimiter *loginRateLimiter
	logger       *slog.Logger
}

// New creates a new server instance.
func New(addr string, st Store, stager *upload.Stager, placeholder Placeholder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if stager == nil {
		stager = upload.NewStager("")
	}
	stager.SetLogger(logger)

	s := &Server{
		addr:         addr,
		store:        st,
		stager:       stager,
		placeholder:  placeholder,
		loginLimiter: newLoginRateLimiter(defaultLoginMaxFailures, defaultLoginWindow, defaultLoginBlockFor),
		logger:       logger,
	}
	s.Configure(Options{})
	return s
}

// Configure applies options and rebuilds the services that depend on them.
// A validator installed with SetSessionValidator survives reconfiguration.
func (s *Server) Configure(opts Options) {
	s.options = opts.normalized()
	s.images = NewImageService(s.store, s.options.MaxUploadBytes, s.options.AcceptedMediaTypes, s.logger)
	s.authService = NewAuthService(s.store, s.options.SessionTTL)
	if s.authService != nil && !s.customAuth {
		s.sessions = s.authService
	}
}

// SetSessionValidator replaces the cookie session lookup. Passing nil
// restores it.
func (s *Server) SetSessionValidator(validator SessionValidator) {
	if validator == nil {
		s.customAuth = false
		s.sessions = nil
		if s.authService != nil {
			s.sessions = s.authService
		}
		return
	}
	s.customAuth = true
	s.sessions = validator
}

// ListenAndServe starts the HTTP server and stops it when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr, "scratch_dir", s.stager.Dir())
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

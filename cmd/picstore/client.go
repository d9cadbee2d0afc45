package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"picstore/internal/api"
	"picstore/internal/config"
)

const (
	serverStartTimeout = 3 * time.Second
	serverPollInterval = 100 * time.Millisecond

	usernameEnvKey = "PICSTORE_USERNAME"
	passwordEnvKey = "PICSTORE_PASSWORD"
)

// withSession logs in with the credentials from the environment, runs fn with
// the signed-in client and user id, then logs out.
func withSession(ctx context.Context, cfg *config.Config, fn func(client *api.Client, userID int64) error) error {
	username := strings.TrimSpace(os.Getenv(usernameEnvKey))
	password := os.Getenv(passwordEnvKey)
	if username == "" || password == "" {
		return fmt.Errorf("%s and %s are required", usernameEnvKey, passwordEnvKey)
	}

	return withClient(cfg, func(client *api.Client) error {
		userID, err := client.Login(ctx, username, password)
		if err != nil {
			return err
		}
		defer func() {
			_ = client.Logout(context.WithoutCancel(ctx))
		}()
		return fn(client, userID)
	})
}

func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	cleanup, err := ensureServer(cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	return fn(api.NewClient(cfg.APIURL))
}

// ensureServer starts a local "picstore srv" when nothing answers at the API URL.
func ensureServer(cfg *config.Config) (func(), error) {
	client := api.NewClient(cfg.APIURL)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := client.Ping(ctx); err == nil {
		return nil, nil
	}

	cmd, err := startServerProcess(cfg)
	if err != nil {
		return nil, err
	}

	stop := func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
	if err := waitForServer(client, serverStartTimeout); err != nil {
		stop()
		return nil, err
	}
	return stop, nil
}

func startServerProcess(cfg *config.Config) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(),
		"PICSTORE_DB="+cfg.DBPath,
		"PICSTORE_API_URL="+cfg.APIURL,
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func waitForServer(client *api.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := client.Ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if !isConnRefused(err) {
			// Something else owns the port.
			return err
		}
		time.Sleep(serverPollInterval)
	}
	return errors.New("server did not start in time")
}

func isConnRefused(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

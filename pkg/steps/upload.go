package steps

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/systemstart/torii/pkg/api"
)

const defaultUploadMethod = http.MethodPut

type uploadAction struct {
	endpoint string
	method   string
	headers  map[string]string
	client   *http.Client
}

func (a *uploadAction) perform(ctx context.Context, workDir string) error {
	files, err := matchFiles(os.DirFS(workDir), api.DefaultKeep)
	if err != nil {
		return fmt.Errorf("walking workspace: %w", err)
	}

	slog.Info("running upload", "endpoint", a.endpoint, "files", len(files))

	for _, key := range files {
		if err := a.send(ctx, workDir, key); err != nil {
			return err
		}
	}
	return nil
}

func (a *uploadAction) send(ctx context.Context, workDir, key string) error {
	target, err := url.JoinPath(a.endpoint, key)
	if err != nil {
		return fmt.Errorf("building upload URL for %s: %w", key, err)
	}

	f, err := os.Open(filepath.Join(workDir, filepath.FromSlash(key)))
	if err != nil {
		return fmt.Errorf("opening %s: %w", key, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", key, err)
	}

	req, err := http.NewRequestWithContext(ctx, a.method, target, f)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", key, err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("uploading %s: %s: %s", key, resp.Status, strings.TrimSpace(string(body)))
	}

	slog.Debug("uploaded file", "key", key, "status", resp.StatusCode)
	return nil
}

package importer

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/hazyhaar/recruitmatch/pkg/institution"
)

// Download retry policy. downloadDelay is the base backoff between attempts.
var (
	downloadAttempts uint = 3
	downloadDelay         = 2 * time.Second
)

// statusError is a non-200 download response.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.code, e.url)
}

// permanent marks a local failure another attempt cannot fix.
type permanent struct{ error }

func (p permanent) Unwrap() error { return p.error }

// retryable reports whether a failed download is worth another attempt.
// Client errors other than 429 are permanent.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	var p permanent
	return !errors.As(err, &p)
}

// downloadFile downloads url to dest with retries and timeout.
func downloadFile(ctx context.Context, url, dest string) error {
	client := &http.Client{Timeout: 10 * time.Minute}

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return permanent{fmt.Errorf("create request: %w", err)}
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return &statusError{code: resp.StatusCode, url: url}
			}

			f, err := os.Create(dest)
			if err != nil {
				return permanent{fmt.Errorf("create file: %w", err)}
			}
			if _, err := io.Copy(f, resp.Body); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
		retry.Context(ctx),
		retry.Attempts(downloadAttempts),
		retry.Delay(downloadDelay),
		retry.MaxJitter(downloadDelay/2),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("download retry", "attempt", n+1, "url", url, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	return nil
}

// unzipFile extracts a ZIP archive to destDir and returns the list of extracted file paths.
func unzipFile(src, destDir string) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var paths []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		destPath := filepath.Join(destDir, filepath.Base(f.Name))
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open zip entry %s: %w", f.Name, err)
		}

		out, err := os.Create(destPath)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("create %s: %w", destPath, err)
		}

		if _, err := io.Copy(out, rc); err != nil {
			rc.Close()
			out.Close()
			return nil, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		rc.Close()
		out.Close()
		paths = append(paths, destPath)
	}
	return paths, nil
}

// writeCorpus writes entities as data.gob plus a gob manifest into
// outputDir/m.ID.
func writeCorpus(outputDir string, m *institution.Manifest, entities []institution.Entity) error {
	dir := filepath.Join(outputDir, m.ID)
	if err := ensureDir(dir); err != nil {
		return err
	}
	m.DataFile = "data.gob"
	m.Format = institution.FormatSpec{Type: institution.FormatGob}
	m.MetadataCols = nil

	if err := institution.SaveGob(entities, filepath.Join(dir, m.DataFile)); err != nil {
		return fmt.Errorf("save gob: %w", err)
	}
	return institution.WriteManifest(filepath.Join(dir, "manifest.yaml"), m)
}

// ensureDir creates a directory if it doesn't exist.
func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

package importer

import (
	"archive/zip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func init() {
	downloadDelay = 5 * time.Millisecond
}

func TestDownloadFile(t *testing.T) {
	content := "hello world"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "test.txt")
	if err := downloadFile(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("downloadFile: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != content {
		t.Errorf("content = %q, want %q", data, content)
	}
}

func TestDownloadFile_Retries(t *testing.T) {
	tests := []struct {
		name         string
		failures     int32
		failCode     int
		wantAttempts int32
		wantErr      bool
	}{
		{"recovers from 503", 2, http.StatusServiceUnavailable, 3, false},
		{"retries 429", 1, http.StatusTooManyRequests, 2, false},
		{"gives up after attempts", 10, http.StatusInternalServerError, 3, true},
		{"404 is permanent", 10, http.StatusNotFound, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) <= tt.failures {
					w.WriteHeader(tt.failCode)
					return
				}
				w.Write([]byte("ok"))
			}))
			defer ts.Close()

			err := downloadFile(context.Background(), ts.URL, filepath.Join(t.TempDir(), "f"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := attempts.Load(); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
			var se *statusError
			if tt.wantErr && !errors.As(err, &se) {
				t.Errorf("error %v should carry the HTTP status", err)
			}
		})
	}
}

func TestDownloadFile_Canceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := downloadFile(ctx, ts.URL, filepath.Join(t.TempDir(), "f")); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func writeZip(t *testing.T, path string, files map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestUnzipFile_FlattensPaths(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.zip")
	writeZip(t, src, map[string][]byte{
		"nested/hd2023.csv": []byte("x"),
		"../../escape.txt":  []byte("y"),
	})

	out := filepath.Join(dir, "out")
	if err := ensureDir(out); err != nil {
		t.Fatal(err)
	}
	paths, err := unzipFile(src, out)
	if err != nil {
		t.Fatalf("unzipFile: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v", paths)
	}
	for _, p := range paths {
		if filepath.Dir(p) != out {
			t.Errorf("%s extracted outside %s", p, out)
		}
	}
}

func TestIPEDSDirectoryFile(t *testing.T) {
	tests := []struct {
		files []string
		want  string
	}{
		{[]string{"/x/readme.txt", "/x/hd2023.csv"}, "/x/hd2023.csv"},
		{[]string{"/x/HD2022.csv", "/x/hd2022_rv.csv"}, "/x/hd2022_rv.csv"},
		{[]string{"/x/hd2022_rv.csv", "/x/HD2022.csv"}, "/x/hd2022_rv.csv"},
		{[]string{"/x/ic2023.csv", "/x/hd2023.xlsx"}, ""},
	}
	for _, tt := range tests {
		if got := ipedsDirectoryFile(tt.files); got != tt.want {
			t.Errorf("ipedsDirectoryFile(%v) = %q, want %q", tt.files, got, tt.want)
		}
	}
}

package importer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func statusServer(t *testing.T, code int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		if code == http.StatusMovedPermanently {
			w.Header().Set("Location", "https://example.com/moved")
		}
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func quietChecker(sdb *SourceDB) *Checker {
	return NewChecker(sdb, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
}

func TestCheckAll(t *testing.T) {
	sdb := seeded(t,
		&fakeAdapter{"ok", "c1", "ok", statusServer(t, http.StatusOK), "CC0"},
		&fakeAdapter{"moved", "c2", "redirect", statusServer(t, http.StatusMovedPermanently), "CC0"},
		&fakeAdapter{"missing", "c3", "404", statusServer(t, http.StatusNotFound), "CC0"},
		&fakeAdapter{"broken", "c4", "500", statusServer(t, http.StatusInternalServerError), "CC0"},
		&fakeAdapter{"dead", "c5", "refused", "http://127.0.0.1:1", "CC0"},
	)

	sum := quietChecker(sdb).CheckAll(context.Background())
	if sum.OK != 2 || sum.Failed != 3 {
		t.Errorf("summary = %+v, want 2 ok / 3 failed", sum)
	}

	sources, err := sdb.ListSources(context.Background())
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	want := map[string]int{"ok": 200, "moved": 301, "missing": 404, "broken": 500, "dead": 0}
	for _, src := range sources {
		if src.LastStatus == nil || *src.LastStatus != want[src.AdapterID] {
			t.Errorf("%s: status = %v, want %d", src.AdapterID, src.LastStatus, want[src.AdapterID])
		}
		if src.AdapterID == "dead" && (src.LastError == nil || *src.LastError == "") {
			t.Error("dead: expected a network error")
		}
	}
}

func TestCheckAll_EmptyAndCanceled(t *testing.T) {
	sdb := tempSourceDB(t)
	if sum := quietChecker(sdb).CheckAll(context.Background()); sum != (CheckSummary{}) {
		t.Errorf("empty db summary = %+v", sum)
	}

	sdb = seeded(t, &fakeAdapter{"ok", "c1", "ok", statusServer(t, http.StatusOK), "CC0"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sum := quietChecker(sdb).CheckAll(ctx); sum != (CheckSummary{}) {
		t.Errorf("canceled summary = %+v", sum)
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	sdb := seeded(t, &fakeAdapter{"ok", "c1", "ok", statusServer(t, http.StatusOK), "CC0"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		quietChecker(sdb).Start(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for {
		sources, _ := sdb.ListSources(context.Background())
		if len(sources) == 1 && sources[0].LastStatus != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial check never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/recruitmatch/pkg/kit"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func scrape(m *Manager) string {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager()

			Convey("Then it gets its own registry", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Registry(), ShouldNotBeNil)
				So(NewManager().Registry(), ShouldNotEqual, manager.Registry())
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("engine"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordScore("high")

			Convey("Then metrics use the namespace and registry", func() {
				So(manager.Registry(), ShouldEqual, registry)
				So(scrape(manager), ShouldContainSubstring, `test_engine_scores_total{level="high"} 1`)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given a manager", t, func() {
		m := NewManager()

		Convey("When recording engine outcomes", func() {
			m.RecordResolution("schools-us", "exact_primary")
			m.RecordResolution("schools-us", "exact_primary")
			m.RecordResolution("schools-us", "")
			m.RecordScore("medium")
			m.RecordDuplicateLookup(3)
			m.UpdateCorpusEntities(42)
			out := scrape(m)

			Convey("Then they are exposed", func() {
				So(out, ShouldContainSubstring, `recruitmatch_resolutions_total{corpus="schools-us",stage="exact_primary"} 2`)
				So(out, ShouldContainSubstring, `recruitmatch_resolutions_total{corpus="schools-us",stage="none"} 1`)
				So(out, ShouldContainSubstring, `recruitmatch_scores_total{level="medium"} 1`)
				So(out, ShouldContainSubstring, `recruitmatch_duplicate_lookups_total 1`)
				So(out, ShouldContainSubstring, `recruitmatch_duplicate_results_sum 3`)
				So(out, ShouldContainSubstring, `recruitmatch_corpus_entities 42`)
			})
		})

		Convey("When an endpoint runs through the middleware", func() {
			ok := m.Middleware("resolve")(func(context.Context, any) (any, error) { return "x", nil })
			bad := m.Middleware("score")(func(context.Context, any) (any, error) { return nil, errors.New("boom") })

			resp, err := ok(kit.WithTransport(context.Background(), "mcp"), nil)
			So(err, ShouldBeNil)
			So(resp, ShouldEqual, "x")
			_, err = bad(context.Background(), nil)
			So(err, ShouldNotBeNil)
			out := scrape(m)

			Convey("Then calls are counted by outcome and timed", func() {
				So(out, ShouldContainSubstring, `recruitmatch_endpoint_requests_total{endpoint="resolve",outcome="ok",transport="mcp"} 1`)
				So(out, ShouldContainSubstring, `recruitmatch_endpoint_requests_total{endpoint="score",outcome="error",transport="http"} 1`)
				So(out, ShouldContainSubstring, `recruitmatch_endpoint_duration_milliseconds_count{endpoint="resolve",transport="mcp"} 1`)
			})
		})
	})

	Convey("A nil manager records nothing and does not panic", t, func() {
		var m *Manager
		So(func() {
			m.RecordResolution("c", "none")
			m.RecordScore("low")
			m.RecordDuplicateLookup(0)
			m.UpdateCorpusEntities(1)
		}, ShouldNotPanic)

		ep := m.Middleware("resolve")(func(context.Context, any) (any, error) { return 1, nil })
		resp, err := ep(context.Background(), nil)
		So(err, ShouldBeNil)
		So(resp, ShouldEqual, 1)
	})
}

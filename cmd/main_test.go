package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/visage/internal/adapters/storage"
	"github.com/okian/visage/internal/config"
	"github.com/okian/visage/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the application wired from environment config", t, func() {
		_ = os.Setenv("VISAGE_STORAGE_BACKEND", "memory")
		_ = os.Setenv("VISAGE_DESCRIPTOR_DIM", "3")
		_ = os.Setenv("VISAGE_FRAME_QUEUE_SIZE", "4")
		defer func() {
			_ = os.Unsetenv("VISAGE_STORAGE_BACKEND")
			_ = os.Unsetenv("VISAGE_DESCRIPTOR_DIM")
			_ = os.Unsetenv("VISAGE_FRAME_QUEUE_SIZE")
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		backend, err := storage.Open(ctx, cfg.StorageBackend, cfg.DataDir, cfg.SQLitePath)
		convey.So(err, convey.ShouldBeNil)
		defer func() { _ = backend.Close() }()

		svc := newService(cfg, backend, logger.Nop())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		srv := httptest.NewServer(newMux(ctx, svc))
		defer srv.Close()

		post := func(path, body string) *http.Response {
			resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			return resp
		}

		convey.Convey("When a person is enrolled and then seen", func() {
			resp := post("/people/descriptor", `{"name":"Alice","descriptor":[0.1,0.2,0.3]}`)
			resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)

			resp = post("/frames/sync", `{"frame_id":"a","detections":[{"descriptor":[0.1,0.2,0.3]}]}`)
			var tick struct {
				State  string `json:"state"`
				Result struct {
					Predicted string `json:"predicted"`
				} `json:"result"`
			}
			convey.So(json.NewDecoder(resp.Body).Decode(&tick), convey.ShouldBeNil)
			resp.Body.Close()

			convey.Convey("Then she is recognized and feedback is accepted", func() {
				convey.So(tick.Result.Predicted, convey.ShouldEqual, "Alice")
				convey.So(tick.State, convey.ShouldEqual, "awaiting_feedback")

				resp := post("/feedback", `{"type":"confirmed"}`)
				resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

				resp = post("/feedback", `{"type":"confirmed"}`)
				resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusConflict)
			})
		})

		convey.Convey("When the wrong descriptor length is enrolled", func() {
			resp := post("/people/descriptor", `{"name":"Bob","descriptor":[0.1,0.2]}`)
			resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusUnprocessableEntity)
		})

		convey.Convey("When a frame carries the wrong descriptor length", func() {
			sync := post("/frames/sync", `{"frame_id":"b","detections":[{"descriptor":[0.5,0]}]}`)
			sync.Body.Close()
			queued := post("/frames", `{"frame_id":"c","detections":[{"descriptor":[0.5,0]}]}`)
			queued.Body.Close()

			convey.Convey("Then both intakes answer 422 and nothing awaits feedback", func() {
				convey.So(sync.StatusCode, convey.ShouldEqual, http.StatusUnprocessableEntity)
				convey.So(queued.StatusCode, convey.ShouldEqual, http.StatusUnprocessableEntity)

				resp := post("/feedback", `{"type":"corrected","actual_name":"Bob"}`)
				resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusConflict)
			})
		})

		convey.Convey("When docs and metrics are requested", func() {
			for _, path := range []string{"/api-docs", "/openapi.yaml", "/healthz", "/status"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a service metrics updater", t, func() {
		cfg := config.New()
		svc := newService(cfg, storage.NewMemory(), logger.Nop())

		convey.Convey("Then it returns when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})
	})
}

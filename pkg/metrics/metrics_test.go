package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func gatheredNames(registry *prometheus.Registry) map[string]bool {
	families, err := registry.Gather()
	So(err, ShouldBeNil)
	out := make(map[string]bool, len(families))
	for _, f := range families {
		out[f.GetName()] = true
	}
	return out
}

// sample reads one gauge or counter series from the global registry. An empty
// label matches the first series of the family.
func sample(family, label, value string) (float64, bool) {
	families, err := GetRegistry().Gather()
	So(err, ShouldBeNil)
	for _, f := range families {
		if f.GetName() != family {
			continue
		}
		for _, m := range f.GetMetric() {
			matched := label == ""
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					matched = true
				}
			}
			if !matched {
				continue
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue(), true
			}
			return m.GetCounter().GetValue(), true
		}
	}
	return 0, false
}

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating a manager with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("pre"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
			})

			Convey("Then metric names should carry namespace, subsystem and prefix", func() {
				manager.snapshotRecords.Set(3)
				names := gatheredNames(registry)
				So(names["test_namespace_test_subsystem_pre_snapshot_records"], ShouldBeTrue)
			})
		})

		Convey("When creating a manager with empty or invalid options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithMetricPrefix(""),
				WithHistogramBuckets(nil),
				WithCustomLabels(nil),
				WithRefreshInterval(-1*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
				So(manager.Enabled(), ShouldBeTrue)
				manager.snapshotPlayers.Set(1)
				So(gatheredNames(registry)["squadmetrics_dashboard_snapshot_players"], ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording snapshot and cache metrics", func() {
			So(func() {
				RecordSnapshotFetch("http", "ok")
				RecordSnapshotFetch("file", "error")
				RecordSnapshotFetchDuration("http", 12.5)
				UpdateSnapshotSize(40, 5)
				UpdateSnapshotLastFetch(time.Now())
				RecordCacheHit("memory")
				RecordCacheMiss("redis", "expired")
				RecordCacheOperationLatency("redis", "load", 1.5)
				UpdateCachePayloadSize(2048)
			}, ShouldNotPanic)

			Convey("Then they should be exposed on the custom registry", func() {
				names := gatheredNames(GetRegistry())
				So(names["squadmetrics_dashboard_snapshot_fetches_total"], ShouldBeTrue)
				So(names["squadmetrics_dashboard_snapshot_records"], ShouldBeTrue)
				So(names["squadmetrics_dashboard_cache_hits_total"], ShouldBeTrue)
				So(names["squadmetrics_dashboard_cache_misses_total"], ShouldBeTrue)
			})
		})

		Convey("When recording evaluation metrics", func() {
			So(func() {
				RecordEvaluation(3.2)
				UpdateMissingOverall(2)
				UpdateRankedPlayers(5)
			}, ShouldNotPanic)

			Convey("Then they should be exposed", func() {
				names := gatheredNames(GetRegistry())
				So(names["squadmetrics_dashboard_evaluations_total"], ShouldBeTrue)
				So(names["squadmetrics_dashboard_missing_overall_records"], ShouldBeTrue)
			})
		})

		Convey("When recording HTTP, error and system metrics", func() {
			So(func() {
				RecordHTTPRequest("/leaderboard", "GET", "200")
				RecordHTTPRequestDuration("/leaderboard", "GET", "200", 5.0)
				RecordErrorByComponent("source", "fetch_failed")
				RecordErrorByType("validation_error", "warning")
				RecordErrorByEndpoint("/players/{player}", "GET", "not_found")
				UpdateSystemMemoryUsage(1024 * 1024 * 100)
				UpdateSystemGoroutineCount(100)
				RecordSystemGCPauseTime(1.0)
			}, ShouldNotPanic)
		})

		Convey("When recording with edge values", func() {
			So(func() {
				UpdateSnapshotSize(0, 0)
				UpdateMissingOverall(-1)
				RecordEvaluation(0)
				RecordHTTPRequest("", "", "200")
				RecordErrorByComponent("", "")
				RecordErrorByEndpoint("", "", "")
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsConfigure(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Reset(func() {
			Configure(WithMetricsEnabled(true), WithRefreshInterval(defaultRefreshInterval))
		})

		Convey("When recording is disabled", func() {
			Configure(WithMetricsEnabled(false))
			UpdateCachePayloadSize(123)
			RecordCacheHit("disabled")

			Convey("Then the helpers should not touch the collectors", func() {
				So(Enabled(), ShouldBeFalse)
				size, _ := sample("squadmetrics_dashboard_cache_payload_bytes", "", "")
				So(size, ShouldNotEqual, 123)
				_, found := sample("squadmetrics_dashboard_cache_hits_total", "store", "disabled")
				So(found, ShouldBeFalse)
			})
		})

		Convey("When recording is enabled again", func() {
			Configure(WithMetricsEnabled(true))
			UpdateCachePayloadSize(456)

			Convey("Then the helpers should record", func() {
				So(Enabled(), ShouldBeTrue)
				size, found := sample("squadmetrics_dashboard_cache_payload_bytes", "", "")
				So(found, ShouldBeTrue)
				So(size, ShouldEqual, 456)
			})
		})

		Convey("When the refresh interval is configured", func() {
			Configure(WithRefreshInterval(250 * time.Millisecond))
			So(RefreshInterval(), ShouldEqual, 250*time.Millisecond)

			Configure(WithRefreshInterval(0))
			So(RefreshInterval(), ShouldEqual, 250*time.Millisecond)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given metrics concurrency", t, func() {
		Convey("When recording metrics concurrently", func() {
			done := make(chan bool, 10)

			for i := 0; i < 10; i++ {
				go func() {
					for j := 0; j < 100; j++ {
						RecordCacheHit("memory")
						UpdateSnapshotSize(j, j/2)
						RecordEvaluation(float64(j))
						RecordHTTPRequest("/test", "GET", "200")
					}
					done <- true
				}()
			}

			for i := 0; i < 10; i++ {
				<-done
			}

			Convey("Then it should handle concurrent access without panics", func() {
				So(true, ShouldBeTrue)
			})
		})
	})
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			manager := NewManager(WithRegistry(prometheus.NewRegistry()))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
				So(manager.histogramBuckets, ShouldResemble, DefaultLatencyBuckets)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			labels := map[string]string{"env": "test"}
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithLatencyBuckets([]float64{5, 50, 500}),
				WithEnabled(true),
				WithRefreshInterval(5*time.Second),
				WithConstLabels(labels),
				WithRegistry(registry),
			)
			labels["env"] = "changed"
			manager.RecordStoreLatency("list_members", 7)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() != "test_namespace_service_store_query_latency_milliseconds" {
						continue
					}
					found = true
					metric := f.GetMetric()[0]
					So(metric.GetHistogram().GetBucket(), ShouldHaveLength, 3)
					So(metric.GetLabel()[0].GetName(), ShouldEqual, "env")
					So(metric.GetLabel()[0].GetValue(), ShouldEqual, "test")
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty or zero options are given", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithRegistry(registry),
				WithNamespace(""),
				WithRefreshInterval(0),
				WithLatencyBuckets(nil),
				WithConstLabels(nil),
				WithRegistry(nil),
			)

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, defaultNamespace)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
				So(manager.histogramBuckets, ShouldResemble, DefaultLatencyBuckets)
				So(manager.registry, ShouldEqual, registry)
			})
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given the global manager is rebuilt from options", t, func() {
		previous, previousRegistry := globalManager, customRegistry
		defer func() { globalManager, customRegistry = previous, previousRegistry }()

		m := Init(WithNamespace("lb"), WithRefreshInterval(3*time.Second), WithEnabled(false))

		Convey("Then package helpers use it", func() {
			So(globalManager, ShouldEqual, m)
			So(RefreshInterval(), ShouldEqual, 3*time.Second)
			So(GetRegistry(), ShouldNotEqual, previousRegistry)
		})

		Convey("Then a disabled manager drops package level observations", func() {
			RecordHTTPRequest("leaderboard", "GET", "200")
			UpdateSystemGoroutineCount(12)
			So(testutil.ToFloat64(m.httpRequests.WithLabelValues("leaderboard", "GET", "200")), ShouldEqual, 0)
			So(testutil.ToFloat64(m.systemGoroutineCount), ShouldEqual, 0)
		})

		Convey("Then the new registry carries the new namespace", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := map[string]bool{}
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["lb_service_leaderboard_cache_hits_total"], ShouldBeTrue)
			So(names["reputation_service_leaderboard_cache_hits_total"], ShouldBeFalse)
		})
	})
}

func TestManagerRecorders(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		m := NewManager(WithRegistry(prometheus.NewRegistry()))

		Convey("Cache counters move independently", func() {
			m.RecordCacheHit()
			m.RecordCacheHit()
			m.RecordCacheMiss()
			m.RecordCacheStale()
			So(testutil.ToFloat64(m.cacheHits), ShouldEqual, 2)
			So(testutil.ToFloat64(m.cacheMisses), ShouldEqual, 1)
			So(testutil.ToFloat64(m.cacheStale), ShouldEqual, 1)
		})

		Convey("Awards split positive and negative deltas", func() {
			m.RecordAward("Achievements", 50, true)
			m.RecordAward("Penalty", -10, true)
			m.RecordAward("Penalty", -99, false)
			So(testutil.ToFloat64(m.pointsAwarded), ShouldEqual, 50)
			So(testutil.ToFloat64(m.pointsDeducted), ShouldEqual, 10)
			So(testutil.ToFloat64(m.awardsTotal.WithLabelValues("Penalty", "false")), ShouldEqual, 1)
		})

		Convey("Store metrics are labelled by op", func() {
			m.RecordStoreError("list_members")
			m.RecordStoreLatency("list_members", 3)
			So(testutil.ToFloat64(m.storeErrors.WithLabelValues("list_members")), ShouldEqual, 1)
		})
	})

	Convey("Given a disabled manager", t, func() {
		m := NewManager(WithRegistry(prometheus.NewRegistry()), WithEnabled(false))

		Convey("Observations are dropped", func() {
			m.RecordCacheHit()
			m.RecordMemberCreated()
			So(testutil.ToFloat64(m.cacheHits), ShouldEqual, 0)
			So(testutil.ToFloat64(m.membersCreated), ShouldEqual, 0)
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Package level recorders never panic", func() {
			So(func() {
				RecordCacheHit()
				RecordCacheMiss()
				RecordCacheStale()
				UpdateCacheAge(3 * time.Second)
				RecordAward("Bonus & Special", 5, true)
				RecordMemberCreated()
				UpdateTotalMembers(12)
				RecordSearchMiss()
				RecordStoreLatency("count_members", 1.5)
				RecordStoreError("count_members")
				RecordHTTPRequest("leaderboard", "GET", "200")
				RecordHTTPRequestDuration("leaderboard", "GET", "200", 4)
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("search", "GET", "not_found")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("The registry exposes our families", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := map[string]bool{}
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["reputation_service_leaderboard_cache_hits_total"], ShouldBeTrue)
		})
	})
}

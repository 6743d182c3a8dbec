package config_test

import (
	"context"
	"runtime"
	"testing"

	"github.com/okian/bracketd/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.VisibilityThreshold, convey.ShouldEqual, 0.5)
			convey.So(cfg.MaxSearchLimit, convey.ShouldEqual, 20)
		})

		convey.Convey("And they should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New(context.Background())

		cases := []struct {
			name   string
			mutate func()
		}{
			{"an empty addr", func() { cfg.Addr = "" }},
			{"an unknown store", func() { cfg.Store = "redis" }},
			{"a mongo store without a uri", func() { cfg.Store = config.StoreMongo }},
			{"a zero threshold", func() { cfg.VisibilityThreshold = 0 }},
			{"a threshold above one", func() { cfg.VisibilityThreshold = 1.5 }},
			{"a zero queue size", func() { cfg.QueueSize = 0 }},
			{"a zero worker count", func() { cfg.WorkerCount = 0 }},
			{"a negative max level", func() { cfg.MaxLevel = -1 }},
			{"a negative rate", func() { cfg.RateLimitRPS = -1 }},
			{"a zero search limit", func() { cfg.MaxSearchLimit = 0 }},
		}
		for _, c := range cases {
			convey.Convey("When it has "+c.name, func() {
				c.mutate()

				convey.Convey("Then validation fails", func() {
					convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
				})
			})
		}

		convey.Convey("When the mongo store has a uri", func() {
			cfg.Store = config.StoreMongo
			cfg.MongoURI = "mongodb://localhost:27017"

			convey.Convey("Then validation passes", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the threshold is exactly one", func() {
			cfg.VisibilityThreshold = 1

			convey.Convey("Then validation passes", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/bracketd/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

// isolate points the loader at files inside a fresh temp dir so a stray
// .env in the working directory cannot leak into the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BRACKETD_ENV_FILE", filepath.Join(dir, ".env"))
	t.Setenv("BRACKETD_CONFIG", "")
	return dir
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	convey.Convey("Given no config sources", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then the defaults are returned", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.MongoDatabase, convey.ShouldEqual, "bracketd")
		})
	})
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("BRACKETD_ADDR", ":8080")
	t.Setenv("BRACKETD_QUEUE_SIZE", "500")
	t.Setenv("BRACKETD_WORKER_COUNT", "3")
	t.Setenv("BRACKETD_VISIBILITY_THRESHOLD", "0.75")
	t.Setenv("BRACKETD_RATE_LIMIT_RPS", "2.5")

	convey.Convey("Given BRACKETD_ env vars", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then they override the defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
			convey.So(cfg.VisibilityThreshold, convey.ShouldEqual, 0.75)
			convey.So(cfg.RateLimitRPS, convey.ShouldEqual, 2.5)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
		})
	})
}

func TestLoad_Layers(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, ".env"), "BRACKETD_ADDR=:7000\nBRACKETD_MAX_LEVEL=5\nBRACKETD_LOG_LEVEL=debug\nOTHER=ignored\n")
	yamlPath := filepath.Join(dir, "bracketd.yaml")
	write(t, yamlPath, "addr: \":7100\"\nmax_level: 6\nstore: mongo\nmongo_uri: mongodb://db:27017\n")
	t.Setenv("BRACKETD_CONFIG", yamlPath)
	t.Setenv("BRACKETD_MAX_LEVEL", "7")

	convey.Convey("Given a .env file, a YAML file and env vars", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then each layer overrides the one below", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			convey.So(cfg.Addr, convey.ShouldEqual, ":7100")
			convey.So(cfg.MaxLevel, convey.ShouldEqual, 7)
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMongo)
			convey.So(cfg.MongoURI, convey.ShouldEqual, "mongodb://db:27017")
		})

		convey.Convey("And the .env file does not leak into the process environment", func() {
			_, ok := os.LookupEnv("BRACKETD_LOG_LEVEL")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestLoad_Invalid(t *testing.T) {
	convey.Convey("Given an invalid threshold", t, func() {
		isolate(t)
		t.Setenv("BRACKETD_VISIBILITY_THRESHOLD", "0")

		_, err := config.Load(context.Background())

		convey.Convey("Then loading fails validation", func() {
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
		})
	})

	convey.Convey("Given a missing YAML file", t, func() {
		isolate(t)
		t.Setenv("BRACKETD_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

		_, err := config.Load(context.Background())

		convey.Convey("Then loading fails", func() {
			convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
		})
	})

	convey.Convey("Given a malformed YAML file", t, func() {
		dir := isolate(t)
		path := filepath.Join(dir, "bad.yaml")
		write(t, path, "addr: [unterminated\n")
		t.Setenv("BRACKETD_CONFIG", path)

		_, err := config.Load(context.Background())

		convey.Convey("Then loading fails", func() {
			convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
		})
	})
}

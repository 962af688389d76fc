package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardwise/notifq/pkg/config"
)

type loaderTestConfig struct {
	Name     string        `env:"LOADER_TEST_NAME" envDefault:"fallback"`
	Workers  int           `env:"LOADER_TEST_WORKERS" envDefault:"3"`
	Interval time.Duration `env:"LOADER_TEST_INTERVAL" envDefault:"5s"`
}

type cachedTestConfig struct {
	Value string `env:"CACHED_TEST_VALUE" envDefault:"initial"`
}

type brokenTestConfig struct {
	Count int `env:"BROKEN_TEST_COUNT"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults and environment", func(t *testing.T) {
		t.Setenv("LOADER_TEST_WORKERS", "7")

		var cfg loaderTestConfig
		require.NoError(t, config.Load(&cfg))

		assert.Equal(t, "fallback", cfg.Name)
		assert.Equal(t, 7, cfg.Workers)
		assert.Equal(t, 5*time.Second, cfg.Interval)
	})

	t.Run("second load returns the cached copy", func(t *testing.T) {
		t.Setenv("CACHED_TEST_VALUE", "first")

		var cfg cachedTestConfig
		require.NoError(t, config.Load(&cfg))
		require.Equal(t, "first", cfg.Value)

		// Changing the environment after the first parse must not change
		// what later loads of the same type observe.
		t.Setenv("CACHED_TEST_VALUE", "second")

		var again cachedTestConfig
		require.NoError(t, config.Load(&again))
		assert.Equal(t, "first", again.Value)
	})

	t.Run("nil pointer", func(t *testing.T) {
		t.Parallel()

		err := config.Load[loaderTestConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})

	t.Run("parse failure", func(t *testing.T) {
		t.Setenv("BROKEN_TEST_COUNT", "not-a-number")

		var cfg brokenTestConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})
}

func TestMustLoadPanicsOnFailure(t *testing.T) {
	t.Setenv("BROKEN_TEST_COUNT", "still-not-a-number")

	type mustLoadTestConfig struct {
		Count int `env:"BROKEN_TEST_COUNT"`
	}

	assert.Panics(t, func() {
		var cfg mustLoadTestConfig
		config.MustLoad(&cfg)
	})
}

package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuconvo/auth/pkg/config"
)

type defaultsConfig struct {
	Name    string `env:"CFG_TEST_DEFAULT_NAME" envDefault:"docuconvo"`
	Port    int    `env:"CFG_TEST_DEFAULT_PORT" envDefault:"8080"`
	Enabled bool   `env:"CFG_TEST_DEFAULT_ENABLED" envDefault:"true"`
}

type valuesConfig struct {
	Name string `env:"CFG_TEST_VALUES_NAME"`
	Port int    `env:"CFG_TEST_VALUES_PORT"`
}

type cachedConfig struct {
	Value string `env:"CFG_TEST_CACHED_VALUE"`
}

type requiredConfig struct {
	Secret string `env:"CFG_TEST_REQUIRED_SECRET,required"`
}

type concurrentConfig struct {
	Value string `env:"CFG_TEST_CONCURRENT" envDefault:"shared"`
}

type envFileConfig struct {
	FromFile string `env:"CFG_TEST_FROM_FILE"`
	Override string `env:"CFG_TEST_FILE_OVERRIDE"`
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("CFG_TEST_DEFAULT_NAME")
	os.Unsetenv("CFG_TEST_DEFAULT_PORT")
	os.Unsetenv("CFG_TEST_DEFAULT_ENABLED")

	var cfg defaultsConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "docuconvo", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Enabled)
}

func TestLoad_Values(t *testing.T) {
	t.Setenv("CFG_TEST_VALUES_NAME", "auth")
	t.Setenv("CFG_TEST_VALUES_PORT", "9090")

	var cfg valuesConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "auth", cfg.Name)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoad_Cached(t *testing.T) {
	t.Setenv("CFG_TEST_CACHED_VALUE", "first")

	var first cachedConfig
	require.NoError(t, config.Load(&first))

	t.Setenv("CFG_TEST_CACHED_VALUE", "second")

	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value, "second load should be served from cache")

	config.Reset()

	var third cachedConfig
	require.NoError(t, config.Load(&third))
	assert.Equal(t, "second", third.Value, "reset should force a re-parse")
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("CFG_TEST_REQUIRED_SECRET")

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	// A failed parse is not cached.
	t.Setenv("CFG_TEST_REQUIRED_SECRET", "s3cr3t")
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "s3cr3t", cfg.Secret)
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *valuesConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestLoad_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]concurrentConfig, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, config.Load(&results[i]))
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "shared", r.Value)
	}
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on missing required", func(t *testing.T) {
		os.Unsetenv("CFG_TEST_REQUIRED_SECRET")
		config.Reset()
		assert.Panics(t, func() {
			var cfg requiredConfig
			config.MustLoad(&cfg)
		})
	})

	t.Run("loads", func(t *testing.T) {
		t.Setenv("CFG_TEST_VALUES_NAME", "must")
		config.Reset()
		var cfg valuesConfig
		assert.NotPanics(t, func() { config.MustLoad(&cfg) })
		assert.Equal(t, "must", cfg.Name)
	})
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env.test")
	require.NoError(t, os.WriteFile(path, []byte("CFG_TEST_FROM_FILE=file\nCFG_TEST_FILE_OVERRIDE=file\n"), 0o600))

	os.Unsetenv("CFG_TEST_FROM_FILE")
	t.Setenv("CFG_TEST_FILE_OVERRIDE", "process")
	t.Cleanup(func() { os.Unsetenv("CFG_TEST_FROM_FILE") })

	require.NoError(t, config.LoadEnv(path))

	var cfg envFileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "file", cfg.FromFile)
	assert.Equal(t, "process", cfg.Override, "process env wins over .env files")

	t.Run("missing file", func(t *testing.T) {
		err := config.LoadEnv(filepath.Join(dir, "nope.env"))
		assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
	})

	t.Run("no paths", func(t *testing.T) {
		assert.NoError(t, config.LoadEnv())
	})
}

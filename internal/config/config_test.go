package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestPresetsAreIndependentValues(t *testing.T) {
	t.Parallel()
	a := Development()
	a.Addr = ":1"
	a.AllowedOrigins[0] = "changed"
	b := Development()
	require.Equal(t, ":5000", b.Addr)
	require.Equal(t, "http://localhost:3000", b.AllowedOrigins[0])

	require.Equal(t, StorageMemory, Test().Storage)
	require.True(t, Production().CookieSecure)
}

func TestLoad_EnvThenFlags(t *testing.T) {
	t.Parallel()
	cfg, err := Load([]string{"-addr", ":9999"}, env(map[string]string{
		"APP_ENV":               "development",
		"ADDR":                  ":7000",
		"DATABASE_URL":          "postgres://u:p@db:5432/m",
		"SECRET_KEY":            "s3cret",
		"CALORIE_NINJA_API_KEY": "ninja",
		"ALLOWED_ORIGINS":       "https://a.example, https://b.example",
	}))
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Addr, "flags win over env")
	require.Equal(t, "postgres://u:p@db:5432/m", cfg.DatabaseURL)
	require.Equal(t, "s3cret", cfg.SessionSecret)
	require.Equal(t, "ninja", cfg.NutritionAPIKey)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	require.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Parallel()
	_, err := Load(nil, env(map[string]string{"APP_ENV": "production"}))
	require.Error(t, err)
	require.ErrorContains(t, err, "SECRET_KEY")
	require.ErrorContains(t, err, "DATABASE_URL")
	require.ErrorContains(t, err, "CALORIE_NINJA_API_KEY")

	cfg, err := Load(nil, env(map[string]string{
		"APP_ENV":               "production",
		"SECRET_KEY":            "x",
		"DATABASE_URL":          "postgres://db/m",
		"CALORIE_NINJA_API_KEY": "k",
	}))
	require.NoError(t, err)
	require.Equal(t, EnvProduction, cfg.Env)
}

func TestLoad_UnknownEnvAndStorage(t *testing.T) {
	t.Parallel()
	_, err := Load(nil, env(map[string]string{"APP_ENV": "staging"}))
	require.Error(t, err)

	_, err = Load([]string{"-storage", "mongo"}, env(map[string]string{"APP_ENV": "test"}))
	require.ErrorContains(t, err, "unknown storage")

	cfg, err := Load(nil, env(map[string]string{"APP_ENV": "TEST"}))
	require.NoError(t, err)
	require.Equal(t, StorageMemory, cfg.Storage)
}

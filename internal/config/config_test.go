package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vtecchio/dadosbr-pipeline/internal/models"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("DESTINATION_BUCKET_NAME", "dadosbr")

	cfg, err := New()
	assert.NoError(t, err)

	assert.Equal(t, "dadosbr", cfg.BucketName)
	assert.Equal(t, "receita_federal", cfg.ReceitaBasePath)
	assert.Equal(t, "fazenda_nacional", cfg.FazendaBasePath)
	assert.Equal(t, "banco_central", cfg.BacenBasePath)
	assert.Equal(t, "receita_federal/regime_tributario", cfg.LucrosBasePath)
	assert.Equal(t, "pgfn_fgts", cfg.TableFGTS)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 500, cfg.DownloadTimeoutSeconds)
	assert.Equal(t, 4.0, cfg.RequestsPerSecond)
	assert.True(t, cfg.FirstPeriodReplace)
	assert.Empty(t, cfg.AllowedMonths)
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("START_YEAR_MONTH", "2023-01")
	t.Setenv("END_YEAR_MONTH", "2023-03")
	t.Setenv("ALLOWED_MONTHS", "01, 03,")
	t.Setenv("MAX_RETRIES", "2")
	t.Setenv("FIRST_PERIOD_REPLACE", "false")

	cfg, err := New()
	assert.NoError(t, err)

	assert.Equal(t, []string{"01", "03"}, cfg.AllowedMonths)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.False(t, cfg.FirstPeriodReplace)

	window, err := cfg.Window()
	assert.NoError(t, err)
	assert.Equal(t, models.MonthPeriod(2023, time.January), window.Start)
	assert.Equal(t, models.MonthPeriod(2023, time.March), window.End)
}

func TestNewInvalidValues(t *testing.T) {
	t.Run("BadInt", func(t *testing.T) {
		t.Setenv("MAX_RETRIES", "many")
		_, err := New()
		assert.Error(t, err)
	})

	t.Run("BadBool", func(t *testing.T) {
		t.Setenv("FIRST_PERIOD_REPLACE", "yes please")
		_, err := New()
		assert.Error(t, err)
	})

	t.Run("BadWindow", func(t *testing.T) {
		t.Setenv("START_YEAR_MONTH", "202301")
		cfg, err := New()
		assert.NoError(t, err)
		_, err = cfg.Window()
		assert.Error(t, err)
	})
}

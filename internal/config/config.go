package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vtecchio/dadosbr-pipeline/internal/models"
)

// Config is built once per invocation from the environment and passed down.
// Nothing in the pipeline reads the environment after this point.
type Config struct {
	// Remote sources
	ReceitaBaseURL string
	FazendaBaseURL string
	BacenBaseURL   string
	LucrosBaseURL  string

	// Destination object store
	BucketName      string
	ReceitaBasePath string
	FazendaBasePath string
	BacenBasePath   string
	LucrosBasePath  string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioUseSSL     bool

	// Period window (receita, YYYY-MM) and allowed-months filter
	StartYearMonth string
	EndYearMonth   string
	AllowedMonths  []string

	// Year range (fazenda quarters)
	StartYear int
	EndYear   int

	// Download behaviour
	MaxRetries             int
	DownloadTimeoutSeconds int
	RequestsPerSecond      float64

	// Warehouse
	DatabaseURL            string
	DatasetID              string
	TableEstabelecimentos  string
	TableEmpresas          string
	TableNaoPrevidenciario string
	TableFGTS              string
	TablePrevidenciario    string
	FirstPeriodReplace     bool
	IndicatorsStartDate    string
}

func New() (*Config, error) {
	cfg := &Config{
		ReceitaBaseURL:         getEnv("RECEITA_BASE_URL", "https://arquivos.receitafederal.gov.br/dados/cnpj/dados_abertos_cnpj/"),
		FazendaBaseURL:         getEnv("FAZENDA_BASE_URL", "https://dadosabertos.pgfn.gov.br"),
		BacenBaseURL:           getEnv("BACEN_BASE_URL", "https://api.bcb.gov.br"),
		LucrosBaseURL:          getEnv("LUCROS_BASE_URL", "https://arquivos.receitafederal.gov.br/dados/cnpj/regime_tributario/"),
		BucketName:             os.Getenv("DESTINATION_BUCKET_NAME"),
		ReceitaBasePath:        getEnv("RECEITA_BASE_PATH", "receita_federal"),
		FazendaBasePath:        getEnv("FAZENDA_BASE_PATH", "fazenda_nacional"),
		BacenBasePath:          getEnv("BACEN_BASE_PATH", "banco_central"),
		LucrosBasePath:         getEnv("LUCROS_BASE_PATH", "receita_federal/regime_tributario"),
		MinioEndpoint:          os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:         os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:         os.Getenv("MINIO_SECRET_KEY"),
		StartYearMonth:         getEnv("START_YEAR_MONTH", "2020-01"),
		EndYearMonth:           getEnv("END_YEAR_MONTH", "2025-12"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		DatasetID:              getEnv("DATASET_ID", "main_database"),
		TableEstabelecimentos:  getEnv("TABLE_NAME_ESTABELECIMENTOS", "receita_estabelecimentos"),
		TableEmpresas:          getEnv("TABLE_NAME_EMPRESAS", "receita_empresas"),
		TableNaoPrevidenciario: getEnv("TABLE_NAME_PGFN_NAO_PREVIDENCIARIO", "pgfn_nao_previdenciario"),
		TableFGTS:              getEnv("TABLE_NAME_PGFN_FGTS", "pgfn_fgts"),
		TablePrevidenciario:    getEnv("TABLE_NAME_PGFN_PREVIDENCIARIO", "pgfn_previdenciario"),
		IndicatorsStartDate:    getEnv("INDICATORS_START_DATE", "01/01/2016"),
	}

	if months := os.Getenv("ALLOWED_MONTHS"); months != "" {
		for _, m := range strings.Split(months, ",") {
			if m = strings.TrimSpace(m); m != "" {
				cfg.AllowedMonths = append(cfg.AllowedMonths, m)
			}
		}
	}

	var err error
	if cfg.StartYear, err = getEnvAsInt("START_YEAR", 2020); err != nil {
		return nil, err
	}
	if cfg.EndYear, err = getEnvAsInt("END_YEAR", 2025); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getEnvAsInt("MAX_RETRIES", 5); err != nil {
		return nil, err
	}
	if cfg.DownloadTimeoutSeconds, err = getEnvAsInt("DOWNLOAD_TIMEOUT_SECONDS", 500); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond, err = getEnvAsFloat("REQUESTS_PER_SECOND", 4); err != nil {
		return nil, err
	}
	if cfg.MinioUseSSL, err = getEnvAsBool("MINIO_USE_SSL", false); err != nil {
		return nil, err
	}
	if cfg.FirstPeriodReplace, err = getEnvAsBool("FIRST_PERIOD_REPLACE", true); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Window parses the configured YYYY-MM bounds.
func (c *Config) Window() (models.Window, error) {
	start, err := models.ParseMonthPeriod(c.StartYearMonth)
	if err != nil {
		return models.Window{}, fmt.Errorf("START_YEAR_MONTH: %w", err)
	}
	end, err := models.ParseMonthPeriod(c.EndYearMonth)
	if err != nil {
		return models.Window{}, fmt.Errorf("END_YEAR_MONTH: %w", err)
	}
	return models.Window{Start: start, End: end}, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}

	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected a number, got '%s'", key, valueStr)
	}

	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: expected a boolean, got '%s'", key, valueStr)
	}

	return value, nil
}

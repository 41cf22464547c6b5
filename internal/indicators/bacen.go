package indicators

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/vtecchio/dadosbr-pipeline/internal/models"
	"github.com/vtecchio/dadosbr-pipeline/internal/storage"
)

// Series maps Banco Central SGS series codes to output column names. These
// are the monthly indicators the analysis models consume.
var Series = map[int]string{
	4390:  "selic_meta_mensal",
	433:   "ipca_acumulado_12m",
	21082: "inadimplencia_pj_livre",
	10813: "cambio_dolar_venda",
	24363: "ibc_br_dessazonalizado",
}

// ArtifactName is the single consolidated table the collector persists.
const ArtifactName = "indicadores.csv"

// Downloader fetches one URL fully into memory.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Collector pulls SGS time series from the Banco Central JSON API and pivots
// them into one monthly CSV artifact keyed by ano_mes.
type Collector struct {
	downloader Downloader
	store      storage.ObjectStore
	baseURL    string
	basePath   string
	startDate  string
}

func NewCollector(downloader Downloader, store storage.ObjectStore, baseURL, basePath, startDate string) *Collector {
	return &Collector{
		downloader: downloader,
		store:      store,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		basePath:   strings.TrimSuffix(basePath, "/"),
		startDate:  startDate,
	}
}

// observation is one SGS data point. Values arrive as strings with the date
// in dd/mm/yyyy form.
type observation struct {
	Date  string `json:"data"`
	Value string `json:"valor"`
}

func (c *Collector) seriesURL(code int) string {
	return fmt.Sprintf("%s/dados/serie/bcdata.sgs.%d/dados?formato=json&dataInicial=%s",
		c.baseURL, code, url.QueryEscape(c.startDate))
}

// fetchSeries returns the series pivoted by ano_mes; the last observation in
// a month wins, matching the monthly cadence of the configured series.
func (c *Collector) fetchSeries(ctx context.Context, code int) (map[string]string, error) {
	body, err := c.downloader.Download(ctx, c.seriesURL(code))
	if err != nil {
		return nil, err
	}

	var observations []observation
	if err := json.Unmarshal(body, &observations); err != nil {
		return nil, fmt.Errorf("series %d: decode response: %w", code, err)
	}

	byMonth := make(map[string]string, len(observations))
	for _, obs := range observations {
		date, err := time.Parse("02/01/2006", obs.Date)
		if err != nil {
			continue
		}
		byMonth[date.Format("2006-01")] = obs.Value
	}
	return byMonth, nil
}

// Run fetches every configured series and persists the consolidated table.
// A failed series is recorded and the others continue; the artifact is only
// written when at least one series succeeded.
func (c *Collector) Run(ctx context.Context) (models.ExecutionResult, error) {
	var result models.ExecutionResult

	columns := make([]string, 0, len(Series))
	codeByColumn := make(map[string]int, len(Series))
	for code, name := range Series {
		columns = append(columns, name)
		codeByColumn[name] = code
	}
	sort.Strings(columns)

	data := make(map[string]map[string]string)
	fetched := 0
	for _, column := range columns {
		code := codeByColumn[column]
		log.Printf("collecting series %s (code %d)", column, code)

		byMonth, err := c.fetchSeries(ctx, code)
		if err != nil {
			log.Printf("series %s: %v", column, err)
			result.RecordFailure(fmt.Sprintf("bcdata.sgs.%d", code), err)
			continue
		}
		for anoMes, value := range byMonth {
			if data[anoMes] == nil {
				data[anoMes] = make(map[string]string, len(columns))
			}
			data[anoMes][column] = value
		}
		fetched++
		result.Counts.Downloaded++
	}

	if fetched == 0 {
		result.Finalize()
		return result, fmt.Errorf("no series could be collected")
	}

	artifact, err := renderCSV(columns, data)
	if err != nil {
		result.Finalize()
		return result, err
	}

	key := path.Join(c.basePath, ArtifactName)
	if err := c.store.Put(ctx, key, artifact, "text/csv"); err != nil {
		perr := &models.PersistenceError{Key: key, Err: err}
		result.RecordFailure(key, perr)
		result.Finalize()
		return result, perr
	}
	log.Printf("persisted %s (%d months, %d series)", key, len(data), fetched)

	result.Finalize()
	return result, nil
}

func renderCSV(columns []string, data map[string]map[string]string) ([]byte, error) {
	months := make([]string, 0, len(data))
	for anoMes := range data {
		months = append(months, anoMes)
	}
	sort.Strings(months)

	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	header := append([]string{"ano_mes"}, columns...)
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, anoMes := range months {
		row := make([]string, 0, len(header))
		row = append(row, anoMes)
		for _, column := range columns {
			row = append(row, data[anoMes][column])
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

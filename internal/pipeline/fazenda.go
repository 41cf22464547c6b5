package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/vtecchio/dadosbr-pipeline/internal/models"
)

// FazendaDataTypes are the PGFN open-data archives published per quarter.
var FazendaDataTypes = []string{
	"Dados_abertos_Nao_Previdenciario",
	"Dados_abertos_FGTS",
	"Dados_abertos_Previdenciario",
}

// FazendaService crawls the PGFN treasury source. There is no remote listing
// page: the download targets are the cartesian product of the configured year
// range, the four quarters and the three data types, each at a predictable
// URL.
type FazendaService struct {
	pipeline  *Pipeline
	baseURL   string
	startYear int
	endYear   int
}

func NewFazendaService(pipe *Pipeline, baseURL string, startYear, endYear int) *FazendaService {
	return &FazendaService{
		pipeline:  pipe,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		startYear: startYear,
		endYear:   endYear,
	}
}

// Target builds the download target for one (year, quarter, dataType) cell.
// Extracted tables land under <year>/<q>trimestre/<short type>/ and the
// completion marker is the bare ".extracted" sentinel in that prefix.
func (s *FazendaService) Target(year, quarter int, dataType string) models.RemoteFile {
	shortType := strings.TrimPrefix(dataType, "Dados_abertos_")
	return models.RemoteFile{
		Name:       fmt.Sprintf("%s.zip", dataType),
		URL:        fmt.Sprintf("%s/%d_trimestre_%02d/%s.zip", s.baseURL, year, quarter, dataType),
		DestPrefix: fmt.Sprintf("%d/%dtrimestre/%s", year, quarter, shortType),
		MarkerStem: "",
	}
}

// Run executes one invocation scope. A payload with year and quarter bounds
// the run to that quarter; data_type narrows it to one archive. An empty
// payload walks the full configured range.
func (s *FazendaService) Run(ctx context.Context, payload models.TriggerPayload) (models.ExecutionResult, error) {
	dataTypes := FazendaDataTypes
	if payload.DataType != "" && payload.DataType != "all" {
		full := payload.DataType
		if !strings.HasPrefix(full, "Dados_abertos_") {
			full = "Dados_abertos_" + full
		}
		if !contains(FazendaDataTypes, full) {
			return models.ExecutionResult{}, fmt.Errorf("unknown data_type %q", payload.DataType)
		}
		dataTypes = []string{full}
	}

	var targets []models.RemoteFile
	if payload.Year != 0 {
		quarters := []int{1, 2, 3, 4}
		if payload.Quarter != 0 {
			if payload.Quarter < 1 || payload.Quarter > 4 {
				return models.ExecutionResult{}, fmt.Errorf("quarter %d out of range", payload.Quarter)
			}
			quarters = []int{payload.Quarter}
		}
		for _, quarter := range quarters {
			for _, dataType := range dataTypes {
				targets = append(targets, s.Target(payload.Year, quarter, dataType))
			}
		}
	} else {
		for year := s.startYear; year <= s.endYear; year++ {
			for quarter := 1; quarter <= 4; quarter++ {
				for _, dataType := range dataTypes {
					targets = append(targets, s.Target(year, quarter, dataType))
				}
			}
		}
	}

	return s.pipeline.ProcessScope(ctx, targets), nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

package pipeline

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/vtecchio/dadosbr-pipeline/internal/discovery"
	"github.com/vtecchio/dadosbr-pipeline/internal/models"
)

// ReceitaService resolves a trigger payload into concrete crawl targets for
// the Receita Federal CNPJ mirror and runs them through the pipeline.
//
// Resolution policy: an explicit (folder, file) pair bypasses discovery
// entirely, which is the recommended path because it bounds one invocation to
// one file. A folder alone expands to all files in the period. An empty
// payload expands to the whole configured window; callers are expected to
// fan out one message per file instead of relying on that mode.
type ReceitaService struct {
	lister   discovery.DirectoryLister
	pipeline *Pipeline
	baseURL  string
}

func NewReceitaService(lister discovery.DirectoryLister, pipe *Pipeline, baseURL string) *ReceitaService {
	return &ReceitaService{
		lister:   lister,
		pipeline: pipe,
		baseURL:  strings.TrimSuffix(baseURL, "/") + "/",
	}
}

// DataTypePattern maps the payload's data_type to an archive name filter.
func DataTypePattern(dataType string) (*regexp.Regexp, error) {
	switch strings.ToLower(dataType) {
	case "empresas":
		return discovery.EmpresasPattern, nil
	case "estabelecimentos":
		return discovery.EstabelecimentosPattern, nil
	case "", "all":
		return discovery.ReceitaArchivePattern, nil
	default:
		return nil, fmt.Errorf("unknown data_type %q", dataType)
	}
}

// Run executes one invocation scope. Discovery failures fail the invocation;
// per-file failures are recorded in the result and processing continues.
func (s *ReceitaService) Run(ctx context.Context, payload models.TriggerPayload) (models.ExecutionResult, error) {
	// Explicit file scope: direct construction, no discovery round-trip.
	if payload.PeriodScope() != "" && payload.File != "" {
		period, err := models.ParseMonthPeriod(payload.PeriodScope())
		if err != nil {
			return models.ExecutionResult{}, err
		}
		target := models.RemoteFile{
			Name:       payload.File,
			URL:        s.baseURL + period.String() + "/" + payload.File,
			DestPrefix: period.String(),
			MarkerStem: payload.File,
		}
		return s.pipeline.ProcessScope(ctx, []models.RemoteFile{target}), nil
	}

	// Listing-only mode: report what exists without fetching anything.
	if payload.PeriodScope() != "" && payload.ListFiles {
		period, err := models.ParseMonthPeriod(payload.PeriodScope())
		if err != nil {
			return models.ExecutionResult{}, err
		}
		files, err := s.lister.ListFiles(ctx, period)
		if err != nil {
			return models.ExecutionResult{}, err
		}
		result := models.ExecutionResult{Status: models.StatusOK}
		for _, f := range files {
			result.Listing = append(result.Listing, f.Name)
		}
		return result, nil
	}

	// Period scope: all files in one period.
	if payload.PeriodScope() != "" {
		period, err := models.ParseMonthPeriod(payload.PeriodScope())
		if err != nil {
			return models.ExecutionResult{}, err
		}
		files, err := s.lister.ListFiles(ctx, period)
		if err != nil {
			return models.ExecutionResult{}, err
		}
		return s.pipeline.ProcessScope(ctx, files), nil
	}

	// Full scope: every in-window period. Long-running; fan-out is preferred.
	periods, err := s.lister.ListPeriods(ctx)
	if err != nil {
		return models.ExecutionResult{}, err
	}
	log.Printf("resolved %d periods in configured window", len(periods))

	var targets []models.RemoteFile
	for _, period := range periods {
		files, err := s.lister.ListFiles(ctx, period)
		if err != nil {
			return models.ExecutionResult{}, err
		}
		targets = append(targets, files...)
	}
	return s.pipeline.ProcessScope(ctx, targets), nil
}

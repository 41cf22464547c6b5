package pipeline

import (
	"context"
	"net/url"
	"strings"

	"github.com/vtecchio/dadosbr-pipeline/internal/models"
)

// RegimeFiles are the tax-regime archives the Receita Federal publishes under
// regime_tributario/. Unlike the CNPJ mirror there are no period folders; the
// four archives are republished in place.
var RegimeFiles = []string{
	"Imunes e Isentas.zip",
	"Lucro Arbitrado.zip",
	"Lucro Presumido.zip",
	"Lucro Real.zip",
}

// LucrosService crawls the tax-regime source. Targets are fixed names, so
// there is no discovery round-trip; extracted tables land under a per-regime
// prefix named after the archive stem.
type LucrosService struct {
	pipeline *Pipeline
	baseURL  string
}

func NewLucrosService(pipe *Pipeline, baseURL string) *LucrosService {
	return &LucrosService{
		pipeline: pipe,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}
}

// Target builds the download target for one regime archive. Archive names
// contain spaces, so the URL path is escaped.
func (s *LucrosService) Target(name string) models.RemoteFile {
	stem := strings.TrimSuffix(name, ".zip")
	return models.RemoteFile{
		Name:       name,
		URL:        s.baseURL + "/" + url.PathEscape(name),
		DestPrefix: stem,
		MarkerStem: name,
	}
}

// Run executes one invocation scope: a payload file bounds the run to one
// archive, list_files reports the known set, an empty payload processes all
// four.
func (s *LucrosService) Run(ctx context.Context, payload models.TriggerPayload) (models.ExecutionResult, error) {
	if payload.File != "" {
		return s.pipeline.ProcessScope(ctx, []models.RemoteFile{s.Target(payload.File)}), nil
	}

	if payload.ListFiles {
		result := models.ExecutionResult{Status: models.StatusOK}
		result.Listing = append(result.Listing, RegimeFiles...)
		return result, nil
	}

	targets := make([]models.RemoteFile, 0, len(RegimeFiles))
	for _, name := range RegimeFiles {
		targets = append(targets, s.Target(name))
	}
	return s.pipeline.ProcessScope(ctx, targets), nil
}

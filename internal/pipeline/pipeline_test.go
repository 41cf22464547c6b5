package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vtecchio/dadosbr-pipeline/internal/models"
	"github.com/vtecchio/dadosbr-pipeline/internal/storage"
)

// stubDownloader serves canned archive bytes by URL.
type stubDownloader struct {
	payloads map[string][]byte
	errs     map[string]error
	calls    map[string]int
}

func newStubDownloader() *stubDownloader {
	return &stubDownloader{
		payloads: make(map[string][]byte),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (d *stubDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	d.calls[url]++
	if err, ok := d.errs[url]; ok {
		return nil, err
	}
	payload, ok := d.payloads[url]
	if !ok {
		return nil, &models.NotFoundError{Target: url}
	}
	return payload, nil
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		assert.NoError(t, err)
		_, err = f.Write([]byte(content))
		assert.NoError(t, err)
	}
	assert.NoError(t, w.Close())
	return buf.Bytes()
}

func empresasTarget() models.RemoteFile {
	return models.RemoteFile{
		Name:       "Empresas0.zip",
		URL:        "https://example.org/cnpj/2023-01/Empresas0.zip",
		DestPrefix: "2023-01",
		MarkerStem: "Empresas0.zip",
	}
}

func TestProcessFilePersistsTablesThenMarker(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	downloader := newStubDownloader()
	downloader.payloads[empresasTarget().URL] = buildZip(t, map[string]string{
		"K3241.K03200Y0.D30114.EMPRECSV": "00000001;EMPRESA A;2046;;1000,00;01;\n",
	})

	pipe := New(store, downloader, "receita_federal", Options{})

	outcome, err := pipe.ProcessFile(ctx, empresasTarget())
	assert.NoError(t, err)
	assert.Equal(t, OutcomeDownloaded, outcome)

	table, err := store.Get(ctx, "receita_federal/2023-01/K3241.K03200Y0.D30114.EMPRECSV")
	assert.NoError(t, err)
	assert.Contains(t, string(table), "EMPRESA A")

	marker, err := store.Get(ctx, "receita_federal/2023-01/.Empresas0.extracted")
	assert.NoError(t, err)
	assert.NotEmpty(t, marker, "marker body carries the archive checksum")
}

func TestProcessFileIdempotence(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	downloader := newStubDownloader()
	downloader.payloads[empresasTarget().URL] = buildZip(t, map[string]string{
		"K3241.EMPRECSV": "00000001;EMPRESA A;2046;;1000,00;01;\n",
	})

	pipe := New(store, downloader, "receita_federal", Options{})

	first := pipe.ProcessScope(ctx, []models.RemoteFile{empresasTarget()})
	assert.Equal(t, models.StatusOK, first.Status)
	assert.Equal(t, 1, first.Counts.Downloaded)
	objectsAfterFirst := store.Len()

	second := pipe.ProcessScope(ctx, []models.RemoteFile{empresasTarget()})
	assert.Equal(t, models.StatusOK, second.Status)
	assert.Equal(t, 0, second.Counts.Downloaded)
	assert.Equal(t, 1, second.Counts.Skipped)

	assert.Equal(t, objectsAfterFirst, store.Len(), "second run must not touch the store")
	assert.Equal(t, 1, downloader.calls[empresasTarget().URL], "second run must not re-download")
}

func TestProcessFileMarkerWrittenLast(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	store.FailPutKeys = map[string]bool{
		"receita_federal/2023-01/K3241.EMPRECSV": true,
	}
	downloader := newStubDownloader()
	downloader.payloads[empresasTarget().URL] = buildZip(t, map[string]string{
		"K3241.EMPRECSV": "00000001;EMPRESA A;2046;;1000,00;01;\n",
	})

	pipe := New(store, downloader, "receita_federal", Options{})

	outcome, err := pipe.ProcessFile(ctx, empresasTarget())
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, "PersistenceError", models.ErrorClass(err))

	exists, _ := store.Exists(ctx, "receita_federal/2023-01/.Empresas0.extracted")
	assert.False(t, exists, "no marker may exist while a table write failed")
}

func TestProcessFileCorruptArchive(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	downloader := newStubDownloader()
	downloader.payloads[empresasTarget().URL] = []byte("<html>proxy error page</html>")

	pipe := New(store, downloader, "receita_federal", Options{})

	outcome, err := pipe.ProcessFile(ctx, empresasTarget())
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, "IntegrityError", models.ErrorClass(err))
	assert.Equal(t, 0, store.Len(), "nothing from a corrupt archive may be persisted")
}

func TestProcessScopePartialFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	downloader := newStubDownloader()

	var targets []models.RemoteFile
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("Empresas%d.zip", i)
		target := models.RemoteFile{
			Name:       name,
			URL:        "https://example.org/cnpj/2023-01/" + name,
			DestPrefix: "2023-01",
			MarkerStem: name,
		}
		targets = append(targets, target)
		downloader.payloads[target.URL] = buildZip(t, map[string]string{
			fmt.Sprintf("K3241.Y%d.EMPRECSV", i): "00000001;EMPRESA;2046;;0,00;01;\n",
		})
	}
	downloader.errs[targets[1].URL] = &models.TransientFetchError{Target: targets[1].URL, Attempts: 5}

	pipe := New(store, downloader, "receita_federal", Options{})
	result := pipe.ProcessScope(ctx, targets)

	assert.Equal(t, models.StatusPartial, result.Status)
	assert.Equal(t, 2, result.Counts.Downloaded)
	assert.Equal(t, 1, result.Counts.Failed)
	assert.Len(t, result.Failures, 1)
	assert.Equal(t, "2023-01/Empresas1.zip", result.Failures[0].Target)
	assert.Equal(t, "TransientFetchError", result.Failures[0].ErrorClass)
}

func TestProcessFileAdoptsExistingArtifacts(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	// A previous run persisted tables but crashed before marking.
	assert.NoError(t, store.Put(ctx, "fazenda_nacional/2023/1trimestre/FGTS/arquivo_fgts.csv", []byte("x;y\n"), "text/csv"))

	downloader := newStubDownloader()
	pipe := New(store, downloader, "fazenda_nacional", Options{SkipIfArtifactsExist: true})

	target := models.RemoteFile{
		Name:       "Dados_abertos_FGTS.zip",
		URL:        "https://example.org/pgfn/2023_trimestre_01/Dados_abertos_FGTS.zip",
		DestPrefix: "2023/1trimestre/FGTS",
	}

	outcome, err := pipe.ProcessFile(ctx, target)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Empty(t, downloader.calls, "existing artifacts must be adopted without a download")

	exists, _ := store.Exists(ctx, "fazenda_nacional/2023/1trimestre/FGTS/.extracted")
	assert.True(t, exists)
}

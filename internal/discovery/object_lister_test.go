package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vtecchio/dadosbr-pipeline/internal/storage"
)

func TestObjectListerPeriods(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	for _, key := range []string{
		"receita_federal/2023-02/K3241.EMPRECSV",
		"receita_federal/2023-02/K3241.ESTABELE",
		"receita_federal/2023-01/K3241.EMPRECSV",
		"receita_federal/2023-01/.Empresas0.extracted",
		"receita_federal/notes.txt",
		"fazenda_nacional/2023/1trimestre/FGTS/data.csv",
	} {
		assert.NoError(t, store.Put(ctx, key, []byte("x"), "text/plain"))
	}

	lister := NewObjectLister(store, "receita_federal")

	periods, err := lister.ListPeriods(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"2023-01", "2023-02"}, periods)
}

func TestQuarterObjectListerPeriods(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	for _, key := range []string{
		"fazenda_nacional/2022/2trimestre/FGTS/arquivo_fgts.csv",
		"fazenda_nacional/2022/1trimestre/FGTS/arquivo_fgts.csv",
		"fazenda_nacional/2022/1trimestre/Previdenciario/arquivo_prev.csv",
		"fazenda_nacional/2022/1trimestre/FGTS/.extracted",
		"fazenda_nacional/readme.txt",
	} {
		assert.NoError(t, store.Put(ctx, key, []byte("x"), "text/plain"))
	}

	lister := NewQuarterObjectLister(store, "fazenda_nacional")

	periods, err := lister.ListPeriods(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"2022/1trimestre", "2022/2trimestre"}, periods)

	files, err := lister.ListFiles(ctx, "2022/1trimestre")
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"fazenda_nacional/2022/1trimestre/FGTS/arquivo_fgts.csv",
		"fazenda_nacional/2022/1trimestre/Previdenciario/arquivo_prev.csv",
	}, files)
}

func TestObjectListerFilesExcludesMarkers(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	for _, key := range []string{
		"receita_federal/2023-01/K3241.EMPRECSV",
		"receita_federal/2023-01/K3241.ESTABELE",
		"receita_federal/2023-01/.Empresas0.extracted",
		"receita_federal/2023-01/.Estabelecimentos0.extracted",
	} {
		assert.NoError(t, store.Put(ctx, key, []byte("x"), "text/plain"))
	}

	lister := NewObjectLister(store, "receita_federal")

	files, err := lister.ListFiles(ctx, "2023-01")
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"receita_federal/2023-01/K3241.EMPRECSV",
		"receita_federal/2023-01/K3241.ESTABELE",
	}, files)
}

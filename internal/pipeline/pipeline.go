package pipeline

import (
	"context"
	"errors"
	"log"
	"path"
	"strings"

	"github.com/vtecchio/dadosbr-pipeline/internal/archive"
	"github.com/vtecchio/dadosbr-pipeline/internal/models"
	"github.com/vtecchio/dadosbr-pipeline/internal/storage"
	"github.com/vtecchio/dadosbr-pipeline/pkg/checksum"
)

// Downloader fetches one URL fully into memory.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Outcome is the terminal state of one file's pipeline run.
type Outcome int

const (
	OutcomeDownloaded Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

// Options tune source-specific behaviour.
type Options struct {
	// SkipIfArtifactsExist writes the marker and skips the download when data
	// objects already exist under the destination prefix without a marker.
	// The PGFN layout relies on this to adopt artifacts persisted by runs
	// that crashed between persisting and marking.
	SkipIfArtifactsExist bool
}

// Pipeline delivers one remote archive's content into durable storage
// idempotently: check marker, fetch, validate, extract, persist each table,
// then write the completion marker strictly last. A crash at any earlier
// point leaves no marker, so the next invocation redoes the file; re-uploads
// are idempotent overwrites, so that is safe.
type Pipeline struct {
	store      storage.ObjectStore
	downloader Downloader
	basePath   string
	opts       Options
}

func New(store storage.ObjectStore, downloader Downloader, basePath string, opts Options) *Pipeline {
	return &Pipeline{
		store:      store,
		downloader: downloader,
		basePath:   strings.TrimSuffix(basePath, "/"),
		opts:       opts,
	}
}

// ProcessFile runs the full state machine for one file. The returned error is
// non-nil only for OutcomeFailed and carries the taxonomy class.
func (p *Pipeline) ProcessFile(ctx context.Context, file models.RemoteFile) (Outcome, error) {
	destPrefix := path.Join(p.basePath, file.DestPrefix)

	done, err := storage.HasMarker(ctx, p.store, destPrefix, file.MarkerStem)
	if err != nil {
		return OutcomeFailed, &models.PersistenceError{Key: storage.MarkerKey(destPrefix, file.MarkerStem), Err: err}
	}
	if done {
		log.Printf("%s: already extracted, skipping", file.Name)
		return OutcomeSkipped, nil
	}

	if p.opts.SkipIfArtifactsExist {
		existing, err := p.store.List(ctx, destPrefix+"/")
		if err == nil && countData(existing) > 0 {
			log.Printf("%s: %d artifacts already present, marking and skipping", file.Name, countData(existing))
			if err := storage.WriteMarker(ctx, p.store, destPrefix, file.MarkerStem, ""); err != nil {
				return OutcomeFailed, &models.PersistenceError{Key: storage.MarkerKey(destPrefix, file.MarkerStem), Err: err}
			}
			return OutcomeSkipped, nil
		}
	}

	log.Printf("%s: downloading %s", file.Name, file.URL)
	body, err := p.downloader.Download(ctx, file.URL)
	if err != nil {
		return OutcomeFailed, err
	}
	archiveChecksum := checksum.Bytes(body)
	log.Printf("%s: downloaded %.1f MB (checksum %s)", file.Name, float64(len(body))/1024/1024, archiveChecksum)

	// Validation and extraction happen entirely from the in-memory copy; the
	// original archive never touches durable storage.
	entries, err := archive.ExtractAll(body)
	if err != nil {
		return OutcomeFailed, &models.IntegrityError{Target: file.Name, Err: err}
	}
	body = nil

	for i, entry := range entries {
		key := path.Join(destPrefix, entry.Name)
		if err := p.store.Put(ctx, key, entry.Data, "text/csv"); err != nil {
			return OutcomeFailed, &models.PersistenceError{Key: key, Err: err}
		}
		if (i+1)%5 == 0 {
			log.Printf("%s: %d/%d tables persisted", file.Name, i+1, len(entries))
		}
	}

	// The marker is written only after every table landed. Ordering here is
	// the resumability invariant.
	if err := storage.WriteMarker(ctx, p.store, destPrefix, file.MarkerStem, archiveChecksum); err != nil {
		return OutcomeFailed, &models.PersistenceError{Key: storage.MarkerKey(destPrefix, file.MarkerStem), Err: err}
	}

	log.Printf("%s: %d tables extracted to %s", file.Name, len(entries), destPrefix)
	return OutcomeDownloaded, nil
}

// ProcessScope runs each file sequentially. Failures local to one file are
// recorded and do not stop the remaining scope.
func (p *Pipeline) ProcessScope(ctx context.Context, files []models.RemoteFile) models.ExecutionResult {
	var result models.ExecutionResult

	for idx, file := range files {
		log.Printf("[%d/%d] %s", idx+1, len(files), file.Name)

		outcome, err := p.ProcessFile(ctx, file)
		switch outcome {
		case OutcomeDownloaded:
			result.Counts.Downloaded++
		case OutcomeSkipped:
			result.Counts.Skipped++
		case OutcomeFailed:
			log.Printf("%s: %v", file.Name, err)
			result.RecordFailure(path.Join(file.DestPrefix, file.Name), err)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.Finalize()
				return result
			}
		}
	}

	result.Finalize()
	return result
}

func countData(keys []string) int {
	n := 0
	for _, key := range keys {
		if !storage.IsMarker(key) {
			n++
		}
	}
	return n
}

package discovery

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/vtecchio/dadosbr-pipeline/internal/storage"
)

// Stored period layouts: the Receita crawler writes YYYY-MM prefixes, the
// PGFN crawler writes YYYY/<q>trimestre prefixes.
var (
	storedMonthPattern   = regexp.MustCompile(`^(\d{4}-\d{2})/`)
	storedQuarterPattern = regexp.MustCompile(`^(\d{4}/\dtrimestre)/`)
)

// ObjectLister resolves periods from the durable store's layout instead of
// the remote source. The warehouse loader uses it: period keys are derived
// from storage paths, never re-parsed from file content.
type ObjectLister struct {
	store    storage.ObjectStore
	basePath string
	pattern  *regexp.Regexp
}

func NewObjectLister(store storage.ObjectStore, basePath string) *ObjectLister {
	return &ObjectLister{store: store, basePath: strings.TrimSuffix(basePath, "/"), pattern: storedMonthPattern}
}

// NewQuarterObjectLister lists quarter-shaped periods as persisted by the
// PGFN crawler.
func NewQuarterObjectLister(store storage.ObjectStore, basePath string) *ObjectLister {
	return &ObjectLister{store: store, basePath: strings.TrimSuffix(basePath, "/"), pattern: storedQuarterPattern}
}

// ListPeriods returns every period prefix with at least one object under it,
// ascending.
func (l *ObjectLister) ListPeriods(ctx context.Context) ([]string, error) {
	keys, err := l.store.List(ctx, l.basePath+"/")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var periods []string
	for _, key := range keys {
		rel := strings.TrimPrefix(key, l.basePath+"/")
		m := l.pattern.FindStringSubmatch(rel)
		if m == nil || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		periods = append(periods, m[1])
	}

	sort.Strings(periods)
	return periods, nil
}

// ListFiles returns the data objects stored under one period, excluding
// completion markers.
func (l *ObjectLister) ListFiles(ctx context.Context, period string) ([]string, error) {
	keys, err := l.store.List(ctx, l.basePath+"/"+period+"/")
	if err != nil {
		return nil, err
	}

	files := keys[:0]
	for _, key := range keys {
		if storage.IsMarker(key) {
			continue
		}
		files = append(files, key)
	}
	return files, nil
}

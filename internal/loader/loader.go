package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/vtecchio/dadosbr-pipeline/internal/models"
	"github.com/vtecchio/dadosbr-pipeline/internal/storage"
	"github.com/vtecchio/dadosbr-pipeline/internal/warehouse"
)

// Warehouse is the destination the loader projects artifacts into.
type Warehouse interface {
	EnsureTable(ctx context.Context, spec warehouse.TableSpec) error
	LoadPeriod(ctx context.Context, spec warehouse.TableSpec, period string, rows [][]string, mode models.WriteMode) (int64, error)
}

// PeriodLister resolves load scope from the durable store's layout.
type PeriodLister interface {
	ListPeriods(ctx context.Context) ([]string, error)
	ListFiles(ctx context.Context, period string) ([]string, error)
}

// Loader projects persisted artifacts into warehouse tables. Each period is
// one load job; a failed period is recorded and the siblings continue, the
// same partial-failure tolerance the crawl pipeline applies per file.
type Loader struct {
	store     storage.ObjectStore
	lister    PeriodLister
	warehouse Warehouse
	dataTypes map[string]warehouse.TableSpec

	// loadOrder fixes the fan-out sequence for data_type "all".
	loadOrder []string

	// firstPeriodReplace makes the first period of a run default to REPLACE
	// and the rest to APPEND, so a "load everything" run rebuilds the table
	// from scratch. Kept as policy rather than invariant; an explicit
	// write_mode in the request overrides it uniformly.
	firstPeriodReplace bool
}

func New(store storage.ObjectStore, lister PeriodLister, wh Warehouse, dataTypes map[string]warehouse.TableSpec, loadOrder []string, firstPeriodReplace bool) *Loader {
	return &Loader{
		store:              store,
		lister:             lister,
		warehouse:          wh,
		dataTypes:          dataTypes,
		loadOrder:          loadOrder,
		firstPeriodReplace: firstPeriodReplace,
	}
}

// Load executes one warehouse-loading run scoped by req.
func (l *Loader) Load(ctx context.Context, req models.LoadRequest) (models.ExecutionResult, error) {
	var result models.ExecutionResult

	switch req.WriteMode {
	case "", models.WriteReplace, models.WriteAppend:
	default:
		return result, fmt.Errorf("unknown write_mode %q", req.WriteMode)
	}

	var specs []warehouse.TableSpec
	switch req.DataType {
	case "", "all":
		for _, key := range l.loadOrder {
			specs = append(specs, l.dataTypes[key])
		}
	default:
		spec, ok := l.dataTypes[req.DataType]
		if !ok {
			return result, fmt.Errorf("unknown data_type %q", req.DataType)
		}
		specs = append(specs, spec)
	}

	var periods []string
	if req.Period != "" {
		periods = []string{req.Period}
	} else {
		var err error
		periods, err = l.lister.ListPeriods(ctx)
		if err != nil {
			return result, err
		}
	}
	if len(periods) == 0 {
		return result, fmt.Errorf("no periods found in durable storage")
	}
	log.Printf("load scope: %d periods, %d sub-tables", len(periods), len(specs))

	for _, spec := range specs {
		if err := l.warehouse.EnsureTable(ctx, spec); err != nil {
			log.Printf("%s: %v", spec.Name, err)
			result.RecordFailure(spec.Name, &models.LoadJobError{Table: spec.Name, Err: err})
			continue
		}
		l.loadTable(ctx, spec, periods, req.WriteMode, &result)
	}

	result.Finalize()
	return result, nil
}

func (l *Loader) loadTable(ctx context.Context, spec warehouse.TableSpec, periods []string, explicit models.WriteMode, result *models.ExecutionResult) {
	for idx, period := range periods {
		mode := explicit
		if mode == "" {
			if idx == 0 && l.firstPeriodReplace {
				mode = models.WriteReplace
			} else {
				mode = models.WriteAppend
			}
		}

		target := fmt.Sprintf("%s/%s", spec.Name, period)
		log.Printf("[%d/%d] %s (%s)", idx+1, len(periods), target, mode)

		rows, files, err := l.readPeriodRows(ctx, spec, period)
		if err != nil {
			jobErr := &models.LoadJobError{Period: period, Table: spec.Name, Err: err}
			log.Printf("%s: %v", target, jobErr)
			result.RecordFailure(target, jobErr)
			continue
		}
		if files == 0 {
			log.Printf("%s: no %s artifacts, skipping", target, spec.FileSuffix)
			result.Counts.Skipped++
			continue
		}

		count, err := l.warehouse.LoadPeriod(ctx, spec, period, rows, mode)
		if err != nil {
			jobErr := &models.LoadJobError{Period: period, Table: spec.Name, Err: err}
			log.Printf("%s: %v", target, jobErr)
			result.RecordFailure(target, jobErr)
			continue
		}

		log.Printf("%s: %d rows loaded", target, count)
		result.Counts.Loaded++
	}
}

// readPeriodRows streams every matching artifact of one period into memory
// rows. Both sources publish ;-delimited ISO-8859-1 files; the Receita tables
// are headerless, the PGFN ones carry one header row.
func (l *Loader) readPeriodRows(ctx context.Context, spec warehouse.TableSpec, period string) ([][]string, int, error) {
	keys, err := l.lister.ListFiles(ctx, period)
	if err != nil {
		return nil, 0, err
	}

	var rows [][]string
	files := 0
	for _, key := range keys {
		if !strings.HasSuffix(strings.ToUpper(key), spec.FileSuffix) {
			continue
		}
		if spec.PathSegment != "" && !strings.Contains(key, "/"+spec.PathSegment+"/") {
			continue
		}
		files++

		data, err := l.store.Get(ctx, key)
		if err != nil {
			return nil, files, err
		}

		parsed, err := parseArtifact(data, len(spec.Columns), spec.HeaderRows)
		if err != nil {
			return nil, files, fmt.Errorf("parse %s: %w", key, err)
		}
		rows = append(rows, parsed...)
	}

	return rows, files, nil
}

func parseArtifact(data []byte, columns, headerRows int) ([][]string, error) {
	decoded := charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(data))

	reader := csv.NewReader(decoded)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	read := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		read++
		if read <= headerRows {
			continue
		}
		if len(record) > columns {
			record = record[:columns]
		}
		rows = append(rows, record)
	}
	return rows, nil
}

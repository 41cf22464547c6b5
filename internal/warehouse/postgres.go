package warehouse

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vtecchio/dadosbr-pipeline/internal/models"
)

func ConnectDB(connStr string) (*pgxpool.Pool, error) {
	dbpool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return dbpool, nil
}

// PostgresClient runs warehouse load jobs. One job covers one period: rows
// are bulk-copied into a per-job staging table and moved into the final
// table in a single transaction, stamped with the period key. REPLACE
// truncates the final table inside the same transaction before inserting.
type PostgresClient struct {
	dbpool *pgxpool.Pool
	schema string
}

func NewPostgresClient(pool *pgxpool.Pool, schema string) *PostgresClient {
	return &PostgresClient{dbpool: pool, schema: schema}
}

func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s;`, pgx.Identifier{c.schema}.Sanitize())
	if _, err := c.dbpool.Exec(ctx, query); err != nil {
		return fmt.Errorf("error creating schema %s: %w", c.schema, err)
	}
	return nil
}

// EnsureTable creates the final table with the fixed sub-table schema plus
// the ano_mes period column.
func (c *PostgresClient) EnsureTable(ctx context.Context, spec TableSpec) error {
	defs := make([]string, 0, len(spec.Columns)+1)
	for _, column := range spec.Columns {
		defs = append(defs, fmt.Sprintf("%s TEXT", pgx.Identifier{column}.Sanitize()))
	}
	defs = append(defs, "ano_mes TEXT")

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s);`,
		c.qualified(spec.Name), strings.Join(defs, ", "))

	if _, err := c.dbpool.Exec(ctx, query); err != nil {
		return fmt.Errorf("error creating table %s: %w", spec.Name, err)
	}
	return nil
}

// LoadPeriod submits one load job. Returns the number of rows landed in the
// final table.
func (c *PostgresClient) LoadPeriod(ctx context.Context, spec TableSpec, period string, rows [][]string, mode models.WriteMode) (int64, error) {
	tx, err := c.dbpool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stagingName := fmt.Sprintf("staging_%s_%s", spec.Name, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])

	defs := make([]string, 0, len(spec.Columns))
	for _, column := range spec.Columns {
		defs = append(defs, fmt.Sprintf("%s TEXT", pgx.Identifier{column}.Sanitize()))
	}
	createQuery := fmt.Sprintf(`CREATE TEMP TABLE %s (%s) ON COMMIT DROP;`,
		pgx.Identifier{stagingName}.Sanitize(), strings.Join(defs, ", "))
	if _, err := tx.Exec(ctx, createQuery); err != nil {
		return 0, fmt.Errorf("error creating staging table %s: %w", stagingName, err)
	}

	log.Printf("bulk loading %d rows into staging table %s", len(rows), stagingName)
	copySource := pgx.CopyFromSlice(len(rows), func(i int) ([]interface{}, error) {
		row := rows[i]
		values := make([]interface{}, len(spec.Columns))
		for j := range spec.Columns {
			if j < len(row) {
				values[j] = row[j]
			} else {
				values[j] = ""
			}
		}
		return values, nil
	})

	columnNames := make([]string, len(spec.Columns))
	copy(columnNames, spec.Columns)
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stagingName}, columnNames, copySource); err != nil {
		return 0, fmt.Errorf("unable to copy rows to staging table %s: %w", stagingName, err)
	}

	if mode == models.WriteReplace {
		log.Printf("REPLACE mode: truncating %s before insert", spec.Name)
		truncateQuery := fmt.Sprintf(`TRUNCATE %s;`, c.qualified(spec.Name))
		if _, err := tx.Exec(ctx, truncateQuery); err != nil {
			return 0, fmt.Errorf("error truncating table %s: %w", spec.Name, err)
		}
	}

	quoted := make([]string, 0, len(spec.Columns))
	for _, column := range spec.Columns {
		quoted = append(quoted, pgx.Identifier{column}.Sanitize())
	}
	insertQuery := fmt.Sprintf(`
	INSERT INTO %s (%s, ano_mes)
	SELECT %s, $1
	FROM %s;`,
		c.qualified(spec.Name), strings.Join(quoted, ", "),
		strings.Join(quoted, ", "), pgx.Identifier{stagingName}.Sanitize())

	tag, err := tx.Exec(ctx, insertQuery, period)
	if err != nil {
		return 0, fmt.Errorf("error inserting from staging table %s: %w", stagingName, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("error committing transaction: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (c *PostgresClient) qualified(table string) string {
	return pgx.Identifier{c.schema, table}.Sanitize()
}

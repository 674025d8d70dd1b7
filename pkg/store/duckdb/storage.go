package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const SnapshotsTableSchema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		slot VARCHAR PRIMARY KEY,
		payload JSON NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
`

const RunsTableSchema = `
	CREATE TABLE IF NOT EXISTS runs (
		id VARCHAR PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		state VARCHAR NOT NULL,
		total VARCHAR NOT NULL,
		currency VARCHAR NOT NULL,
		failed_providers VARCHAR NOT NULL DEFAULT ''
	);
`

var bootQueries = []string{
	SnapshotsTableSchema,
	RunsTableSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			if _, err := exec.ExecContext(context.Background(), query, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sql.OpenDB(c), nil
}

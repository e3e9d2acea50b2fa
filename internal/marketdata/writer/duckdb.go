package writer

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

const (
	barsTable = "bars"
	barsDDL   = `CREATE TABLE bars (
		time TIMESTAMP,
		open DOUBLE,
		high DOUBLE,
		low DOUBLE,
		close DOUBLE,
		tick_volume BIGINT,
		spread INTEGER,
		real_volume BIGINT
	)`
	barsInsert = `INSERT INTO bars VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	ticksTable = "ticks"
	ticksDDL   = `CREATE TABLE ticks (
		time TIMESTAMP,
		bid DOUBLE,
		ask DOUBLE,
		last DOUBLE,
		volume UBIGINT,
		time_msc BIGINT,
		flags INTEGER,
		volume_real DOUBLE
	)`
	ticksInsert = `INSERT INTO ticks VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

// duckdbFile stages rows in an in-memory DuckDB table and exports them as a
// parquet file on Finalize. All inserts run inside a single transaction
// through a prepared statement, so a writer that never reaches Finalize
// leaves no file behind.
type duckdbFile struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	table      string
	ddl        string
	insertSQL  string
	outputPath string
}

func (f *duckdbFile) initialize() error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to open staging database")
	}

	if _, err := db.Exec(f.ddl); err != nil {
		db.Close()

		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to create staging table %s", f.table)
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()

		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to begin staging transaction")
	}

	stmt, err := tx.Prepare(f.insertSQL)
	if err != nil {
		_ = tx.Rollback()
		db.Close()

		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to prepare insert into %s", f.table)
	}

	f.db, f.tx, f.stmt = db, tx, stmt

	return nil
}

func (f *duckdbFile) write(args ...interface{}) error {
	if f.stmt == nil {
		return errors.New(errors.ErrCodeNotInitialized, "writer is not initialized")
	}

	if _, err := f.stmt.Exec(args...); err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to stage row into %s", f.table)
	}

	return nil
}

func (f *duckdbFile) finalize() (string, error) {
	if f.tx == nil {
		return "", errors.New(errors.ErrCodeNotInitialized, "writer is not initialized")
	}

	if f.stmt != nil {
		if err := f.stmt.Close(); err != nil {
			return "", errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to close insert statement")
		}

		f.stmt = nil
	}

	// The commit consumes the transaction whether it succeeds or not.
	err := f.tx.Commit()
	f.tx = nil

	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to commit staged rows")
	}

	if err := os.MkdirAll(filepath.Dir(f.outputPath), 0o755); err != nil {
		return "", errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to create output directory for %s", f.outputPath)
	}

	escaped := strings.ReplaceAll(f.outputPath, "'", "''")
	if _, err := f.db.Exec(fmt.Sprintf("COPY %s TO '%s' (FORMAT PARQUET)", f.table, escaped)); err != nil {
		return "", errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to export %s", f.outputPath)
	}

	return f.outputPath, nil
}

func (f *duckdbFile) close() error {
	var errs []error

	if f.stmt != nil {
		if err := f.stmt.Close(); err != nil {
			errs = append(errs, err)
		}

		f.stmt = nil
	}

	if f.tx != nil {
		if err := f.tx.Rollback(); err != nil {
			errs = append(errs, err)
		}

		f.tx = nil
	}

	if f.db != nil {
		if err := f.db.Close(); err != nil {
			errs = append(errs, err)
		}

		f.db = nil
	}

	if len(errs) > 0 {
		return errors.Newf(errors.ErrCodeWriteFailed, "failed to close writer cleanly: %v", errs)
	}

	return nil
}

// DuckDBBarWriter stages bars in DuckDB and exports them as one monthly
// parquet file.
type DuckDBBarWriter struct {
	file duckdbFile
}

var _ BarWriter = (*DuckDBBarWriter)(nil)

// NewDuckDBBarWriter creates a bar writer targeting outputPath. Nothing is
// written to disk until Finalize.
func NewDuckDBBarWriter(outputPath string) (*DuckDBBarWriter, error) {
	if outputPath == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "output path is required")
	}

	return &DuckDBBarWriter{
		file: duckdbFile{
			table:      barsTable,
			ddl:        barsDDL,
			insertSQL:  barsInsert,
			outputPath: outputPath,
		},
	}, nil
}

// Initialize sets up the staging table and the insert statement.
func (w *DuckDBBarWriter) Initialize() error {
	return w.file.initialize()
}

// Write stages a single bar.
func (w *DuckDBBarWriter) Write(bar types.Rate) error {
	return w.file.write(
		bar.Time.UTC(),
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		bar.TickVolume,
		bar.Spread,
		bar.RealVolume,
	)
}

// Finalize commits the staged bars and exports the parquet file.
func (w *DuckDBBarWriter) Finalize() (string, error) {
	return w.file.finalize()
}

// Close releases the staging database.
func (w *DuckDBBarWriter) Close() error {
	return w.file.close()
}

// OutputPath returns the configured output file path.
func (w *DuckDBBarWriter) OutputPath() string {
	return w.file.outputPath
}

// DuckDBTickWriter stages ticks in DuckDB and exports them as one monthly
// parquet file.
type DuckDBTickWriter struct {
	file duckdbFile
}

var _ TickWriter = (*DuckDBTickWriter)(nil)

// NewDuckDBTickWriter creates a tick writer targeting outputPath. Nothing is
// written to disk until Finalize.
func NewDuckDBTickWriter(outputPath string) (*DuckDBTickWriter, error) {
	if outputPath == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "output path is required")
	}

	return &DuckDBTickWriter{
		file: duckdbFile{
			table:      ticksTable,
			ddl:        ticksDDL,
			insertSQL:  ticksInsert,
			outputPath: outputPath,
		},
	}, nil
}

// Initialize sets up the staging table and the insert statement.
func (w *DuckDBTickWriter) Initialize() error {
	return w.file.initialize()
}

// Write stages a single tick.
func (w *DuckDBTickWriter) Write(tick types.Tick) error {
	return w.file.write(
		tick.Time.UTC(),
		tick.Bid,
		tick.Ask,
		tick.Last,
		tick.Volume,
		tick.TimeMsc,
		int(tick.Flags),
		tick.VolumeReal,
	)
}

// Finalize commits the staged ticks and exports the parquet file.
func (w *DuckDBTickWriter) Finalize() (string, error) {
	return w.file.finalize()
}

// Close releases the staging database.
func (w *DuckDBTickWriter) Close() error {
	return w.file.close()
}

// OutputPath returns the configured output file path.
func (w *DuckDBTickWriter) OutputPath() string {
	return w.file.outputPath
}

package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// Store queries the parquet history under a root directory through an
// in-memory DuckDB instance. Each (symbol, timeframe) gets a lazily created
// view over its monthly files, so queries stay plain SQL over one relation.
type Store struct {
	db     *sql.DB
	root   string
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	views  map[string]bool
}

// NewStore opens a store over the given history root. The root does not
// need to exist yet; individual queries fail with a coded error when the
// requested symbol has no data.
func NewStore(root string, logger *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, err
	}

	// Set DuckDB-specific optimizations
	_, err = db.Exec(`
		SET memory_limit='8GB';
		SET threads=4;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to set DuckDB optimizations: %w", err)
	}

	return &Store{
		db:     db,
		root:   root,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		views:  make(map[string]bool),
	}, nil
}

// Root returns the history root directory the store reads from.
func (s *Store) Root() string {
	return s.root
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

// ensureView creates the view over the directory's monthly parquet files if
// it is not registered yet, returning the view name.
func (s *Store) ensureView(name, dir string) (string, error) {
	if s.views[name] {
		return name, nil
	}

	pattern := filepath.Join(dir, "*.parquet")

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("failed to scan history directory: %w", err)
	}

	if len(matches) == 0 {
		return "", errors.Newf(errors.ErrCodeNoHistoryData, "no history data under %s", dir)
	}

	s.logger.Debug("Creating history view",
		zap.String("view", name),
		zap.String("pattern", pattern),
		zap.Int("files", len(matches)))

	// read_parquet takes the glob directly; squirrel has no CREATE VIEW
	query := fmt.Sprintf(`
		CREATE OR REPLACE VIEW %s AS
		SELECT * FROM read_parquet('%s');
	`, name, strings.ReplaceAll(pattern, "'", "''"))

	if _, err := s.db.Exec(query); err != nil {
		return "", errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to create view over %s", dir)
	}

	s.views[name] = true

	return name, nil
}

func (s *Store) barsView(symbol string, tf types.Timeframe) (string, error) {
	return s.ensureView(viewName("bars", symbol, tf), BarsDir(s.root, symbol, tf))
}

func (s *Store) ticksView(symbol string) (string, error) {
	return s.ensureView(viewName("ticks", symbol, 0), TicksDir(s.root, symbol))
}

// RatesFrom returns up to count bars with open time at or before from,
// oldest first. When fewer bars exist the partial result is returned
// together with an InsufficientDataError.
func (s *Store) RatesFrom(symbol string, tf types.Timeframe, from time.Time, count int) ([]types.Rate, error) {
	view, err := s.barsView(symbol, tf)
	if err != nil {
		return nil, err
	}

	query, args, err := s.sq.
		Select("time", "open", "high", "low", "close", "tick_volume", "spread", "real_volume").
		From(view).
		Where(squirrel.LtOrEq{"time": from.UTC()}).
		OrderBy("time DESC").
		Limit(uint64(count)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rates, err := s.queryRates(query, args...)
	if err != nil {
		return nil, err
	}

	// Reverse the slice to get chronological order (oldest to newest)
	for i, j := 0, len(rates)-1; i < j; i, j = i+1, j-1 {
		rates[i], rates[j] = rates[j], rates[i]
	}

	if len(rates) < count {
		return rates, errors.NewInsufficientDataErrorf(count, len(rates), symbol,
			"insufficient bars for symbol %s: requested %d, got %d", symbol, count, len(rates))
	}

	return rates, nil
}

// RatesFromPos returns count bars ending at the bar start positions back
// from the anchor, where position 0 is the bar the anchor falls in.
func (s *Store) RatesFromPos(symbol string, tf types.Timeframe, anchor time.Time, start, count int) ([]types.Rate, error) {
	end := anchor.UTC().Add(-time.Duration(start) * tf.Duration())

	return s.RatesFrom(symbol, tf, end, count)
}

// RatesRange returns all bars with open time inside [from, to], oldest
// first.
func (s *Store) RatesRange(symbol string, tf types.Timeframe, from, to time.Time) ([]types.Rate, error) {
	view, err := s.barsView(symbol, tf)
	if err != nil {
		return nil, err
	}

	query, args, err := s.sq.
		Select("time", "open", "high", "low", "close", "tick_volume", "spread", "real_volume").
		From(view).
		Where(squirrel.And{
			squirrel.GtOrEq{"time": from.UTC()},
			squirrel.LtOrEq{"time": to.UTC()},
		}).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return s.queryRates(query, args...)
}

// TicksFrom returns up to count ticks at or after from matching the flag
// mask, in (time, time_msc) order.
func (s *Store) TicksFrom(symbol string, from time.Time, count int, flags types.CopyTicks) ([]types.Tick, error) {
	view, err := s.ticksView(symbol)
	if err != nil {
		return nil, err
	}

	builder := s.sq.
		Select("time", "bid", "ask", "last", "volume", "time_msc", "flags", "volume_real").
		From(view).
		Where(squirrel.GtOrEq{"time": from.UTC()})

	if mask := flags.FlagMask(); mask != 0 {
		builder = builder.Where(squirrel.Expr("(flags & ?) <> 0", int(mask)))
	}

	query, args, err := builder.
		OrderBy("time ASC", "time_msc ASC").
		Limit(uint64(count)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return s.queryTicks(query, args...)
}

// TicksRange returns all ticks inside [from, to] matching the flag mask, in
// (time, time_msc) order.
func (s *Store) TicksRange(symbol string, from, to time.Time, flags types.CopyTicks) ([]types.Tick, error) {
	view, err := s.ticksView(symbol)
	if err != nil {
		return nil, err
	}

	builder := s.sq.
		Select("time", "bid", "ask", "last", "volume", "time_msc", "flags", "volume_real").
		From(view).
		Where(squirrel.And{
			squirrel.GtOrEq{"time": from.UTC()},
			squirrel.LtOrEq{"time": to.UTC()},
		})

	if mask := flags.FlagMask(); mask != 0 {
		builder = builder.Where(squirrel.Expr("(flags & ?) <> 0", int(mask)))
	}

	query, args, err := builder.
		OrderBy("time ASC", "time_msc ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return s.queryTicks(query, args...)
}

// CountBars returns the number of stored bars, optionally bounded by start
// and end.
func (s *Store) CountBars(symbol string, tf types.Timeframe, start, end optional.Option[time.Time]) (int, error) {
	view, err := s.barsView(symbol, tf)
	if err != nil {
		return 0, err
	}

	return s.countView(view, start, end)
}

// CountTicks returns the number of stored ticks, optionally bounded by
// start and end.
func (s *Store) CountTicks(symbol string, start, end optional.Option[time.Time]) (int, error) {
	view, err := s.ticksView(symbol)
	if err != nil {
		return 0, err
	}

	return s.countView(view, start, end)
}

func (s *Store) countView(view string, start, end optional.Option[time.Time]) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", view)

	var params []interface{}

	paramCount := 0

	if start.IsSome() {
		paramCount++
		query += fmt.Sprintf(" WHERE time >= $%d", paramCount)

		params = append(params, start.Unwrap().UTC())
	}

	if end.IsSome() {
		paramCount++
		if paramCount == 1 {
			query += " WHERE"
		} else {
			query += " AND"
		}

		query += fmt.Sprintf(" time <= $%d", paramCount)

		params = append(params, end.Unwrap().UTC())
	}

	var count int
	if err := s.db.QueryRow(query, params...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count history rows", err)
	}

	return count, nil
}

// ReadBars yields the stored bars of a symbol in chronological order,
// optionally bounded by start and end. Rows are fetched in batches so large
// histories never sit in memory at once.
func (s *Store) ReadBars(symbol string, tf types.Timeframe, start, end optional.Option[time.Time]) func(yield func(types.Rate, error) bool) {
	const batchSize = 1000

	return func(yield func(types.Rate, error) bool) {
		view, err := s.barsView(symbol, tf)
		if err != nil {
			yield(types.Rate{}, err)

			return
		}

		query, params := rangedReadQuery(view,
			"time, open, high, low, close, tick_volume, spread, real_volume", start, end)

		rows, err := s.db.Query(query, params...)
		if err != nil {
			yield(types.Rate{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read bars", err))

			return
		}
		defer rows.Close()

		batch := make([]types.Rate, 0, batchSize)

		for rows.Next() {
			rate, err := scanRate(rows)
			if err != nil {
				yield(types.Rate{}, err)

				return
			}

			batch = append(batch, rate)

			if len(batch) >= batchSize {
				for _, r := range batch {
					if !yield(r, nil) {
						return
					}
				}

				batch = batch[:0]
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Rate{}, err)

			return
		}

		for _, r := range batch {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// ReadTicks yields the stored ticks of a symbol in chronological order,
// optionally bounded by start and end.
func (s *Store) ReadTicks(symbol string, start, end optional.Option[time.Time]) func(yield func(types.Tick, error) bool) {
	const batchSize = 1000

	return func(yield func(types.Tick, error) bool) {
		view, err := s.ticksView(symbol)
		if err != nil {
			yield(types.Tick{}, err)

			return
		}

		query, params := rangedReadQuery(view,
			"time, bid, ask, last, volume, time_msc, flags, volume_real", start, end)

		rows, err := s.db.Query(query, params...)
		if err != nil {
			yield(types.Tick{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read ticks", err))

			return
		}
		defer rows.Close()

		batch := make([]types.Tick, 0, batchSize)

		for rows.Next() {
			tick, err := scanTick(rows)
			if err != nil {
				yield(types.Tick{}, err)

				return
			}

			batch = append(batch, tick)

			if len(batch) >= batchSize {
				for _, t := range batch {
					if !yield(t, nil) {
						return
					}
				}

				batch = batch[:0]
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Tick{}, err)

			return
		}

		for _, t := range batch {
			if !yield(t, nil) {
				return
			}
		}
	}
}

// rangedReadQuery builds the chronological read query shared by ReadBars
// and ReadTicks.
func rangedReadQuery(view, columns string, start, end optional.Option[time.Time]) (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM %s", columns, view)

	var conditions []string

	var params []interface{}

	paramCount := 0

	if start.IsSome() {
		paramCount++
		conditions = append(conditions, fmt.Sprintf("time >= $%d", paramCount))
		params = append(params, start.Unwrap().UTC())
	}

	if end.IsSome() {
		paramCount++
		conditions = append(conditions, fmt.Sprintf("time <= $%d", paramCount))
		params = append(params, end.Unwrap().UTC())
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY time ASC"

	return query, params
}

// Symbols lists the symbols with a captured specification in the store.
func (s *Store) Symbols() ([]string, error) {
	entries, err := os.ReadDir(SymbolsDir(s.root))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}

	symbols := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		symbols = append(symbols, strings.TrimSuffix(name, ".json"))
	}

	return symbols, nil
}

func (s *Store) queryRates(query string, args ...interface{}) ([]types.Rate, error) {
	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare query: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err)
	}
	defer rows.Close()

	result := make([]types.Rate, 0, 1000)

	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, err
		}

		result = append(result, rate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

func (s *Store) queryTicks(query string, args ...interface{}) ([]types.Tick, error) {
	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare query: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query ticks", err)
	}
	defer rows.Close()

	result := make([]types.Tick, 0, 1000)

	for rows.Next() {
		tick, err := scanTick(rows)
		if err != nil {
			return nil, err
		}

		result = append(result, tick)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

func scanRate(rows *sql.Rows) (types.Rate, error) {
	var (
		timestamp              time.Time
		open, high, low, close float64
		tickVolume, realVolume int64
		spread                 int
	)

	if err := rows.Scan(&timestamp, &open, &high, &low, &close, &tickVolume, &spread, &realVolume); err != nil {
		return types.Rate{}, fmt.Errorf("failed to scan bar row: %w", err)
	}

	return types.Rate{
		Time:       timestamp.UTC(),
		Open:       open,
		High:       high,
		Low:        low,
		Close:      close,
		TickVolume: tickVolume,
		Spread:     spread,
		RealVolume: realVolume,
	}, nil
}

func scanTick(rows *sql.Rows) (types.Tick, error) {
	var (
		timestamp            time.Time
		bid, ask, last, vReal float64
		volume               uint64
		timeMsc              int64
		flags                int64
	)

	if err := rows.Scan(&timestamp, &bid, &ask, &last, &volume, &timeMsc, &flags, &vReal); err != nil {
		return types.Tick{}, fmt.Errorf("failed to scan tick row: %w", err)
	}

	return types.Tick{
		Time:       timestamp.UTC(),
		Bid:        bid,
		Ask:        ask,
		Last:       last,
		Volume:     volume,
		TimeMsc:    timeMsc,
		Flags:      types.TickFlag(flags),
		VolumeReal: vReal,
	}, nil
}

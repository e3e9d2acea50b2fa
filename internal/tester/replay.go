package tester

import (
	"context"
	"iter"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
	"github.com/rxtech-lab/mtsim/pkg/strategy"
)

// OnTickCallback reports replay progress after each processed tick.
type OnTickCallback func(processed, total int)

// tickStream is one symbol's pull-based tick source for the replay loop.
type tickStream struct {
	symbol string
	next   func() (types.Tick, error, bool)
	stop   func()
	done   bool
}

// Run replays the configured period against a strategy. Every round first
// runs the monitoring passes, then advances each symbol's stream by one
// tick, feeding the strategy after each update; the replay ends when all
// streams are exhausted or the context is cancelled. The strategy is
// initialized with strategyConfig before the first tick and deinitialized
// when the replay ends, whatever ended it.
func (s *Simulator) Run(ctx context.Context, strat strategy.Strategy, strategyConfig string, onTick optional.Option[OnTickCallback]) error {
	if err := s.ready(); err != nil {
		return s.fail(err)
	}

	streams, total, err := s.tickStreams()
	if err != nil {
		return s.fail(err)
	}

	defer func() {
		for _, stream := range streams {
			stream.stop()
		}
	}()

	if total == 0 {
		s.log.Warn("no history in the test period",
			zap.Strings("symbols", s.config.Symbols),
			zap.Time("start", s.config.StartDate),
			zap.Time("end", s.config.EndDate),
		)
	}

	if err := strat.Initialize(s, strategyConfig); err != nil {
		return s.fail(errors.Wrapf(errors.ErrCodeStrategyFailed, err,
			"strategy %s failed to initialize", strat.Name()))
	}

	defer strat.OnDeinit(s)

	s.log.Info("replay started",
		zap.String("strategy", strat.Name()),
		zap.String("modelling", string(s.config.Modelling)),
		zap.Int("total", total),
	)

	processed := 0

	for {
		if err := ctx.Err(); err != nil {
			return s.fail(errors.Wrap(errors.ErrCodeReplayFailed, "replay cancelled", err))
		}

		s.accountMonitoring()
		s.positionsMonitoring()
		s.pendingMonitoring()

		advanced := false

		for _, stream := range streams {
			if stream.done {
				continue
			}

			tick, err, ok := stream.next()
			if !ok {
				stream.done = true

				continue
			}

			if err != nil {
				return s.fail(errors.Wrapf(errors.ErrCodeReplayFailed, err,
					"failed to read history for %s", stream.symbol))
			}

			s.tickUpdate(stream.symbol, tick)

			if err := strat.OnTick(s, tick); err != nil {
				return s.fail(errors.Wrapf(errors.ErrCodeStrategyFailed, err,
					"strategy %s failed on a %s tick", strat.Name(), stream.symbol))
			}

			processed++
			advanced = true

			if onTick.IsSome() {
				onTick.Unwrap()(processed, total)
			}
		}

		if !advanced {
			break
		}
	}

	s.log.Info("replay finished",
		zap.Int("processed", processed),
		zap.Int("deals", len(s.dealsHistory)),
		zap.Float64("balance", s.account.Balance),
		zap.Float64("equity", s.account.Equity),
	)

	return nil
}

// tickStreams opens one stream per configured symbol for the replay period
// and returns the total number of steps across all of them. In real_ticks
// modelling the streams carry stored ticks, in new_bar modelling one
// synthetic tick per stored bar.
func (s *Simulator) tickStreams() ([]*tickStream, int, error) {
	start := optional.Some(s.config.StartDate)
	end := optional.Some(s.config.EndDate)

	streams := make([]*tickStream, 0, len(s.config.Symbols))
	total := 0

	closeAll := func() {
		for _, stream := range streams {
			stream.stop()
		}
	}

	for _, symbol := range s.config.Symbols {
		var (
			count int
			err   error
			seq   iter.Seq2[types.Tick, error]
		)

		if s.config.Modelling == ModellingNewBar {
			count, err = s.store.CountBars(symbol, s.config.Timeframe, start, end)
			seq = s.barTickSeq(symbol, start, end)
		} else {
			count, err = s.store.CountTicks(symbol, start, end)
			seq = s.store.ReadTicks(symbol, start, end)
		}

		if err != nil {
			closeAll()

			return nil, 0, errors.Wrapf(errors.ErrCodeReplayFailed, err,
				"failed to count history for %s", symbol)
		}

		next, stop := iter.Pull2(seq)
		streams = append(streams, &tickStream{symbol: symbol, next: next, stop: stop})
		total += count
	}

	return streams, total, nil
}

// barTickSeq maps a symbol's stored bars onto synthetic ticks.
func (s *Simulator) barTickSeq(symbol string, start, end optional.Option[time.Time]) iter.Seq2[types.Tick, error] {
	return func(yield func(types.Tick, error) bool) {
		for rate, err := range s.store.ReadBars(symbol, s.config.Timeframe, start, end) {
			if err != nil {
				yield(types.Tick{}, err)

				return
			}

			if !yield(s.barTick(symbol, rate), nil) {
				return
			}
		}
	}
}

// barTick builds the synthetic tick a bar contributes in new_bar modelling:
// both sides priced off the bar open, the ask lifted by the bar's recorded
// spread (falling back to the spec spread for sources that don't record it).
func (s *Simulator) barTick(symbol string, rate types.Rate) types.Tick {
	points := rate.Spread

	var point float64

	if state, ok := s.symbols[symbol]; ok {
		point = state.spec.Point

		if points == 0 {
			points = state.spec.Spread
		}
	}

	return types.Tick{
		Time:    rate.Time,
		Bid:     rate.Open,
		Ask:     rate.Open + float64(points)*point,
		Last:    rate.Open,
		TimeMsc: rate.Time.UnixMilli(),
	}
}

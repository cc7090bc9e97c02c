package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/realmlist/metarboard/internal/display"
	"github.com/realmlist/metarboard/internal/logger"
	"github.com/realmlist/metarboard/internal/metar"
	"github.com/realmlist/metarboard/internal/metrics"
	"github.com/realmlist/metarboard/internal/models"
	"github.com/realmlist/metarboard/internal/pipeline"
	"github.com/realmlist/metarboard/internal/store"
)

// Tick outcomes, recorded on ingest runs and as the ticks_total label.
const (
	OutcomeRendered   = "rendered"
	OutcomeNoData     = "no_data"
	OutcomeFetchError = "fetch_error"
	OutcomeParseError = "parse_error"
	OutcomeSinkError  = "sink_error"
)

// Fetcher supplies raw provider payloads.
type Fetcher interface {
	Fetch(ctx context.Context, kind models.ReportKind, station string) ([]byte, *FetchResult, error)
}

type Options struct {
	// RetryInterval replaces the normal interval after a failed tick.
	RetryInterval time.Duration
	// RawRetention bounds the raw payload archive; zero keeps everything.
	RawRetention time.Duration
	// Location is the timezone of the HHMM stamp.
	Location *time.Location
	Clock    clockwork.Clock
}

// TickResult is the outcome of one tick.
type TickResult struct {
	TickID   string
	At       time.Time
	Settings models.Settings
	Outcome  string
	Output   pipeline.Output
	Message  *models.BoardMessage
	Err      error
}

// Scheduler drives the pipeline: fetch, audit, archive, render, record and
// deliver, once per interval.
type Scheduler struct {
	store   *store.Store
	fetcher Fetcher
	sink    display.Sink
	log     *logger.Logger

	clock         clockwork.Clock
	loc           *time.Location
	retryInterval time.Duration
	rawRetention  time.Duration

	reconfigure chan struct{}

	mu       sync.RWMutex
	settings models.Settings
	last     *TickResult
}

func NewScheduler(st *store.Store, fetcher Fetcher, sink display.Sink, log *logger.Logger, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = time.Minute
	}
	return &Scheduler{
		store:         st,
		fetcher:       fetcher,
		sink:          sink,
		log:           log.Named("scheduler"),
		clock:         opts.Clock,
		loc:           opts.Location,
		retryInterval: opts.RetryInterval,
		rawRetention:  opts.RawRetention,
		reconfigure:   make(chan struct{}, 1),
	}
}

// LoadSettings reads the runtime settings from the store.
func (s *Scheduler) LoadSettings() error {
	st, err := s.store.GetSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	s.mu.Lock()
	s.settings = st
	s.mu.Unlock()
	return nil
}

// Settings returns the settings the next tick will use.
func (s *Scheduler) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Last returns the most recent tick result, or nil before the first tick.
func (s *Scheduler) Last() *TickResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Reconfigure asks a running scheduler to reload settings and tick at once.
// It never blocks; requests made while one is pending are merged.
func (s *Scheduler) Reconfigure() {
	select {
	case s.reconfigure <- struct{}{}:
	default:
	}
}

// Run ticks immediately and then after every interval until ctx is done.
// After a failed tick the retry interval is used instead.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.LoadSettings(); err != nil {
		return err
	}
	st := s.Settings()
	s.log.Info("starting",
		logger.String("station", st.StationID),
		logger.String("kind", string(st.ReportKind)),
		logger.Duration("interval", st.Interval))

	for {
		wait := s.Settings().Interval
		if _, err := s.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait = s.retryInterval
		}

		timer := s.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("shutting down")
			return nil
		case <-s.reconfigure:
			timer.Stop()
			if err := s.LoadSettings(); err != nil {
				s.log.Error("reload settings failed", logger.Error(err))
			} else {
				st := s.Settings()
				s.log.Info("settings reloaded",
					logger.String("station", st.StationID),
					logger.String("kind", string(st.ReportKind)),
					logger.Duration("interval", st.Interval))
			}
		case <-timer.Chan():
		}
	}
}

// Tick runs one fetch-render-deliver cycle. The returned error is non-nil
// when the board was not updated. On fetch or parse failure nothing is sent
// to the sink, so the board keeps its previous text.
func (s *Scheduler) Tick(ctx context.Context) (*TickResult, error) {
	res := &TickResult{
		TickID:   uuid.NewString(),
		At:       s.clock.Now(),
		Settings: s.Settings(),
	}
	log := s.log.With(
		logger.String("tick_id", res.TickID),
		logger.String("station", res.Settings.StationID),
		logger.String("kind", string(res.Settings.ReportKind)))

	err := s.tick(ctx, res, log)
	res.Err = err
	metrics.TicksTotal.WithLabelValues(res.Outcome).Inc()

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
	return res, err
}

func (s *Scheduler) tick(ctx context.Context, res *TickResult, log *logger.Logger) error {
	st := res.Settings
	kind := string(st.ReportKind)

	run, err := s.store.StartIngestRun(res.TickID, SourceAviationWeather, kind, st.StationID)
	if err != nil {
		log.Warn("start ingest run failed", logger.Error(err))
	}
	finish := func(outcome string, success bool, cause error) {
		res.Outcome = outcome
		if run == nil {
			return
		}
		run.Outcome = sql.NullString{String: outcome, Valid: true}
		run.Success = success
		if cause != nil {
			run.ErrorMessage = sql.NullString{String: cause.Error(), Valid: true}
		}
		if err := s.store.CompleteIngestRun(run); err != nil {
			log.Warn("complete ingest run failed", logger.Error(err))
		}
	}

	payload, fr, err := s.fetcher.Fetch(ctx, st.ReportKind, st.StationID)
	if run != nil && fr != nil {
		run.HTTPStatus = sql.NullInt64{Int64: int64(fr.HTTPStatus), Valid: fr.HTTPStatus > 0}
		run.ResponseSizeBytes = sql.NullInt64{Int64: int64(fr.ResponseSize), Valid: err == nil}
	}
	if err != nil {
		log.Error("fetch failed", logger.Error(err))
		finish(OutcomeFetchError, false, err)
		return err
	}

	if len(payload) > 0 {
		var runID *int64
		if run != nil {
			runID = &run.ID
		}
		if _, err := s.store.StoreRawPayload(runID, SourceAviationWeather, kind, st.StationID, payload); err != nil {
			log.Warn("store raw payload failed", logger.Error(err))
		}
		if s.rawRetention > 0 {
			if n, err := s.store.CleanupOldRawPayloads(s.rawRetention); err != nil {
				log.Warn("raw payload cleanup failed", logger.Error(err))
			} else if n > 0 {
				log.Debug("raw payloads pruned", logger.Int64("deleted", n))
			}
		}
	}

	out, err := pipeline.Render(pipeline.Input{
		Kind:    st.ReportKind,
		Station: st.StationID,
		Payload: payload,
		Now:     res.At.In(s.loc),
	})
	if err != nil {
		var perr *metar.ParseError
		if errors.As(err, &perr) {
			log.Error("parse failed", logger.String("reason", perr.Reason), logger.Error(err))
		} else {
			log.Error("render failed", logger.Error(err))
		}
		finish(OutcomeParseError, false, err)
		return err
	}
	res.Output = out

	if out.NoData {
		log.Info("no report available")
	} else {
		if flags := ValidateReport(st.StationID, out.Report); len(flags) > 0 {
			log.Warn("report quality flags", logger.Any("flags", flags))
			if run != nil {
				run.QualityFlags = sql.NullString{String: QualityFlagsToJSON(flags), Valid: true}
			}
		}
		if out.Fallback {
			log.Warn("no category band matched, showing VFR",
				logger.Float64("visibility_sm", out.Report.VisibilitySM()),
				logger.Int("ceiling_ft", out.Report.CeilingFeet()))
			metrics.ClassificationFallbacks.WithLabelValues(out.StationID).Inc()
		}
		metrics.SetFlightCategory(out.StationID, out.Category)
	}

	msg := &models.BoardMessage{
		TickID:     res.TickID,
		RenderedAt: res.At,
		StationID:  out.StationID,
		Kind:       out.Kind,
		Category:   out.Category,
		NoData:     out.NoData,
		Text:       out.Text,
	}
	if err := s.store.InsertBoardMessage(msg); err != nil {
		log.Warn("record board message failed", logger.Error(err))
	}
	res.Message = msg
	metrics.LastRenderTimestamp.Set(float64(res.At.Unix()))

	outcome := OutcomeRendered
	if out.NoData {
		outcome = OutcomeNoData
	}

	if s.sink != nil {
		err := s.sink.Write(ctx, display.Message{
			TickID:     res.TickID,
			Text:       out.Text,
			StationID:  out.StationID,
			Kind:       out.Kind,
			Category:   out.Category,
			NoData:     out.NoData,
			RenderedAt: res.At,
		})
		if err != nil {
			log.Error("display write failed", logger.Error(err))
			finish(OutcomeSinkError, false, err)
			return err
		}
		if msg.ID != 0 {
			if err := s.store.MarkBoardMessageSent(msg.ID); err != nil {
				log.Warn("mark board message sent failed", logger.Error(err))
			}
		}
		msg.Sent = true
	}

	log.Info("board updated",
		logger.String("category", string(out.Category)),
		logger.Bool("no_data", out.NoData))
	finish(outcome, true, nil)
	return nil
}

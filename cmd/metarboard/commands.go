package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/realmlist/metarboard/internal/api"
	"github.com/realmlist/metarboard/internal/config"
	"github.com/realmlist/metarboard/internal/display"
	"github.com/realmlist/metarboard/internal/models"
	"github.com/realmlist/metarboard/internal/pipeline"
	"github.com/realmlist/metarboard/internal/store"
)

type ServeCmd struct {
	Addr   string `help:"Override server.addr."`
	NoPoll bool   `help:"Serve the web UI without updating the board." name:"no-poll"`
}

func (c *ServeCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hub := display.NewHub(a.log)
	defer hub.Close()

	sinks := a.sinks(false, false)
	sinks.Add("websocket", hub)
	sched := a.scheduler(sinks)

	addr := a.cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}
	srv := api.NewServer(a.store, sched, a.log, api.Options{
		Addr:     addr,
		Location: a.loc,
		Hub:      hub,
	})

	errs := make(chan error, 2)
	running := 1
	go func() { errs <- srv.Run(ctx) }()
	if c.NoPoll {
		a.log.Info("polling disabled (--no-poll)")
	} else {
		running++
		go func() { errs <- sched.Run(ctx) }()
	}

	var result error
	for i := 0; i < running; i++ {
		if err := <-errs; err != nil && result == nil {
			result = err
			cancel()
		}
	}
	a.log.Info("stopped")
	return result
}

type OnceCmd struct {
	NoWebhook bool `help:"Print only; do not post to the webhook." name:"no-webhook"`
}

func (c *OnceCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := a.scheduler(a.sinks(true, c.NoWebhook))
	if err := sched.LoadSettings(); err != nil {
		return err
	}
	res, err := sched.Tick(ctx)
	if err != nil {
		return fmt.Errorf("update failed (%s): %w", res.Outcome, err)
	}
	return nil
}

// RenderCmd runs the pipeline on a payload saved from the provider, or on
// one archived in the database with --payload-id. It never touches the
// network.
type RenderCmd struct {
	Kind      string `help:"Report kind of the payload (metar or taf)." default:"metar"`
	File      string `help:"Payload file, - for stdin." default:"-" short:"f"`
	PayloadID int64  `help:"Replay an archived payload by ID. Its kind and station replace --kind and --station." name:"payload-id"`
	Station   string `help:"Station used when the payload has none."`
	At        string `help:"Clock stamp as HHMM instead of the current time."`
}

func (c *RenderCmd) Run(g *Globals) error {
	cfg, cfgErr := config.LoadWithFallback(g.Config)

	kindName, station := c.Kind, c.Station
	var payload []byte
	if c.PayloadID != 0 {
		if cfgErr != nil {
			return fmt.Errorf("--payload-id needs the database from the config file: %w", cfgErr)
		}
		p, err := loadArchivedPayload(cfg.Storage.DBPath, c.PayloadID)
		if err != nil {
			return err
		}
		kindName, station, payload = p.Endpoint, p.StationID, p.Payload
	} else {
		var err error
		if payload, err = readPayload(c.File); err != nil {
			return err
		}
	}

	kind, err := models.ParseReportKind(kindName)
	if err != nil {
		return err
	}

	now := time.Now()
	if cfgErr == nil {
		if loc, err := cfg.Location(); err == nil {
			now = now.In(loc)
		}
	}
	if c.At != "" {
		at, err := time.Parse("1504", c.At)
		if err != nil {
			return fmt.Errorf("--at must be HHMM: %w", err)
		}
		now = time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	}

	out, err := pipeline.Render(pipeline.Input{
		Kind:    kind,
		Station: strings.ToUpper(station),
		Payload: payload,
		Now:     now,
	})
	if err != nil {
		return err
	}
	if out.Fallback {
		fmt.Fprintln(os.Stderr, "warning: no flight category band matched, showing VFR")
	}
	fmt.Println(out.Text)
	return nil
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func loadArchivedPayload(dbPath string, id int64) (*store.RawPayload, error) {
	st, err := store.Open(dbPath, nil, nil)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	p, err := st.GetRawPayload(id)
	if err != nil {
		return nil, fmt.Errorf("load payload %d: %w", id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("no archived payload with id %d in %s", id, dbPath)
	}
	return p, nil
}

type SettingsCmd struct {
	JSON bool `help:"Print as JSON."`
}

func (c *SettingsCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	defer a.close()

	st, err := a.store.GetSettings()
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"station":      st.StationID,
			"weather_type": st.ReportKind.Upper(),
			"interval":     int(st.Interval / time.Minute),
			"config":       a.cfg.Path,
			"database":     a.cfg.Storage.DBPath,
		})
	}

	fmt.Printf("station:      %s\n", st.StationID)
	fmt.Printf("weather_type: %s\n", st.ReportKind.Upper())
	fmt.Printf("interval:     %s\n", st.Interval)
	fmt.Printf("config:       %s\n", a.cfg.Path)
	fmt.Printf("database:     %s\n", a.cfg.Storage.DBPath)
	return nil
}

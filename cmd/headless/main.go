// Command headless plays runs with the autopilot as fast as the CPU allows
// and prints a summary of each, for balancing content.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/config"
	"github.com/cory-johannsen/survivors/internal/game/content"
	"github.com/cory-johannsen/survivors/internal/game/dice"
	"github.com/cory-johannsen/survivors/internal/game/event"
	"github.com/cory-johannsen/survivors/internal/game/meta"
	"github.com/cory-johannsen/survivors/internal/game/sim"
	"github.com/cory-johannsen/survivors/internal/observability"
	"github.com/cory-johannsen/survivors/internal/storage"
)

type options struct {
	character string
	stage     string
	seed      uint64
	runs      int
	profile   string
	step      time.Duration
	maxTicks  int
}

func main() {
	configPath := flag.String("config", "", "path to configuration file (empty = defaults)")
	opts := options{}
	flag.StringVar(&opts.character, "character", "", "character id (default from config)")
	flag.StringVar(&opts.stage, "stage", "", "stage id (default from config)")
	flag.Uint64Var(&opts.seed, "seed", 1, "seed of the first run; run i uses seed+i")
	flag.IntVar(&opts.runs, "runs", 1, "number of runs")
	flag.StringVar(&opts.profile, "profile", "", "meta profile to load and save; empty plays without meta")
	flag.DurationVar(&opts.step, "step", time.Second/60, "simulated time per tick")
	flag.IntVar(&opts.maxTicks, "max-ticks", 1_000_000, "tick cap per run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := observability.NewLogger(cfg.Logging, "headless")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if opts.character == "" {
		opts.character = cfg.Content.DefaultCharacter
	}
	if opts.stage == "" {
		opts.stage = cfg.Content.DefaultStage
	}
	if err := run(context.Background(), cfg, opts, logger); err != nil {
		logger.Fatal("headless failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, opts options, logger *zap.Logger) error {
	cat, err := content.Load(cfg.Content.Root, logger)
	if err != nil {
		return fmt.Errorf("loading content: %w", err)
	}

	var backend *storage.Backend
	var ms *meta.State
	if opts.profile != "" {
		backend, err = storage.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer backend.Close()
		st, err := meta.LoadState(ctx, backend.Store, opts.profile, logger)
		if err != nil {
			return err
		}
		ms = &st
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "seed\tcharacter\tstage\tsurvived\tcompleted\tlevel\tkills\tcurrency\twall")
	for i := 0; i < opts.runs; i++ {
		seed := opts.seed + uint64(i)
		wallStart := time.Now()
		res, err := playOne(cfg, cat, ms, seed, opts, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%d\t%d\t%d\t%s\n",
			seed, res.Character, res.Stage, res.Survived.Round(time.Second), res.Completed,
			res.Level, res.Kills, res.Currency, time.Since(wallStart).Round(time.Millisecond))

		if backend != nil {
			if err := meta.SaveState(ctx, backend.Store, opts.profile, *ms); err != nil {
				return err
			}
			if err := backend.Runs.Append(ctx, meta.RunRecord{
				Profile: opts.profile, Character: res.Character, Stage: res.Stage,
				Survived: res.Survived, Completed: res.Completed, Level: res.Level,
				Kills: res.Kills, Currency: res.Currency,
			}); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func playOne(cfg config.Config, cat *content.Catalog, ms *meta.State, seed uint64, opts options, logger *zap.Logger) (sim.Result, error) {
	s := sim.New(cfg.Simulation.SimConfig(), sim.Deps{
		Content: cat,
		Source:  dice.NewSeededSource(seed),
		Meta:    ms,
		Logger:  logger,
	}, event.NewLogSink(logger))
	if err := s.StartRun(opts.character, opts.stage); err != nil {
		return sim.Result{}, err
	}
	ap := sim.NewAutopilot()
	for tick := 0; tick < opts.maxTicks && s.State() != sim.StateEnded; tick++ {
		if err := ap.Steer(s); err != nil {
			return sim.Result{}, fmt.Errorf("steering at tick %d: %w", tick, err)
		}
		s.Update(opts.step)
	}
	res, ok := s.Result()
	if !ok {
		return sim.Result{}, fmt.Errorf("run on %s did not end within %d ticks", opts.stage, opts.maxTicks)
	}
	return res, nil
}

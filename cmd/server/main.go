package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"dogwalker-server/internal/config"
	"dogwalker-server/internal/httpapi"
	"dogwalker-server/internal/leaderboard"
	"dogwalker-server/internal/model"
	"dogwalker-server/internal/players"
	"dogwalker-server/internal/sim"
	"dogwalker-server/internal/snapshot"
)

func main() {
	configFile := pflag.String("config-file", "", "path to the map descriptor JSON (required)")
	wwwRoot := pflag.String("www-root", "", "directory of static client files to serve (required)")
	tickPeriodMS := pflag.Int("tick-period", 0, "internal tick period in ms; omit for test mode (enables POST /api/v1/game/tick)")
	randomizeSpawn := pflag.Bool("randomize-spawn-points", false, "spawn dogs and loot at random positions on their road instead of the road's start")
	stateFile := pflag.String("state-file", "", "path to the snapshot file (optional)")
	saveStatePeriodMS := pflag.Int("save-state-period", 0, "autosave period in ms; 0 disables periodic autosave")
	addr := pflag.String("listen", ":8080", "HTTP listen address")
	pflag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	if *configFile == "" {
		logger.Fatal().Msg("--config-file is required")
	}
	if *wwwRoot == "" {
		logger.Fatal().Msg("--www-root is required")
	}
	dbURL := os.Getenv("GAME_DB_URL")
	if dbURL == "" {
		logger.Fatal().Msg("GAME_DB_URL environment variable is required")
	}

	loaded, err := config.LoadFile(*configFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config file")
	}

	reg := players.NewRegistry()

	if *stateFile != "" {
		snap, ok, err := snapshot.Load(*stateFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load snapshot")
		}
		if ok {
			if err := restoreSnapshot(loaded, reg, snap); err != nil {
				logger.Fatal().Err(err).Msg("failed to restore snapshot")
			}
			logger.Info().Int("sessions", len(snap.Sessions)).Int("players", len(snap.Players)).Msg("restored snapshot")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	board, err := leaderboard.Open(ctx, dbURL)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to leaderboard database")
	}
	defer board.Close()

	strand := sim.NewStrand()
	engine := sim.NewEngine(loaded.World, loaded.NewLootGenerator)

	server := httpapi.NewServer(httpapi.Config{
		Strand:         strand,
		Engine:         engine,
		Players:        reg,
		Board:          board,
		RandomizeSpawn: *randomizeSpawn,
		TestMode:       *tickPeriodMS == 0,
		Logger:         logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", server)
	mux.Handle("/", http.FileServer(http.Dir(*wwwRoot)))

	httpServer := &http.Server{Addr: *addr, Handler: mux}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var tickerDone chan struct{}
	if *tickPeriodMS > 0 {
		tickerDone = runTicker(strand, engine, board, *tickPeriodMS, logger)
	}
	var autosaveDone chan struct{}
	if *saveStatePeriodMS > 0 && *stateFile != "" {
		autosaveDone = runAutosave(strand, engine, reg, *stateFile, *saveStatePeriodMS, logger)
	}

	go func() {
		logger.Info().Str("addr", *addr).Bool("testMode", *tickPeriodMS == 0).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	<-stop
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}

	if tickerDone != nil {
		close(tickerDone)
	}
	if autosaveDone != nil {
		close(autosaveDone)
	}

	if *stateFile != "" {
		saveNow(strand, engine, reg, *stateFile, logger)
	}
	strand.Close()
}

// runTicker drives the simulation at a fixed period, submitting each tick
// onto the strand (§5: the ticker schedules itself on the same strand as API
// handlers). Retirement records are persisted to the leaderboard after each
// tick.
func runTicker(strand *sim.Strand, engine *sim.Engine, board *leaderboard.Sink, periodMS int, logger zerolog.Logger) chan struct{} {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(periodMS) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				records := sim.Run(strand, func() []leaderboard.Record {
					rs := engine.Tick(periodMS)
					out := make([]leaderboard.Record, 0, len(rs))
					for _, r := range rs {
						out = append(out, leaderboard.Record{Name: r.Name, Score: r.Score, PlayingTimeMS: r.PlayingTimeMS})
					}
					return out
				})
				if len(records) > 0 {
					saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					if err := board.Save(saveCtx, records); err != nil {
						logger.Error().Err(err).Msg("leaderboard save failed")
					}
					cancel()
				}
			}
		}
	}()
	return done
}

// runAutosave periodically snapshots world state to disk.
func runAutosave(strand *sim.Strand, engine *sim.Engine, reg *players.Registry, path string, periodMS int, logger zerolog.Logger) chan struct{} {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(periodMS) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				saveNow(strand, engine, reg, path, logger)
			}
		}
	}()
	return done
}

func saveNow(strand *sim.Strand, engine *sim.Engine, reg *players.Registry, path string, logger zerolog.Logger) {
	snap := sim.Run(strand, func() snapshot.Snapshot {
		return snapshot.FromWorld(engine.World, reg)
	})
	if err := snapshot.Save(path, snap); err != nil {
		logger.Error().Err(err).Msg("snapshot save failed")
	}
}

// restoreSnapshot re-populates a freshly loaded World and Players registry
// from a saved snapshot, before any client traffic is accepted.
func restoreSnapshot(loaded *config.Loaded, reg *players.Registry, snap snapshot.Snapshot) error {
	sessionByOldID := make(map[uint32]*model.Session, len(snap.Sessions))
	for _, sr := range snap.Sessions {
		dogs, objects := sr.Restore()
		session, err := loaded.World.RestoreSession(model.MapID(sr.MapID), dogs, objects)
		if err != nil {
			return err
		}
		sessionByOldID[sr.ID] = session
	}
	for _, pr := range snap.Players {
		session, ok := sessionByOldID[pr.SessionID]
		if !ok {
			continue
		}
		if _, err := reg.AddRestored(model.DogID(pr.DogID), session.ID, pr.Token); err != nil {
			return err
		}
	}
	return nil
}

package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/config"
	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/infra/audit"
	"quiz-session-engine/internal/infra/memory"
	natsnotify "quiz-session-engine/internal/infra/nats"
	"quiz-session-engine/internal/infra/postgres"
	redisinfra "quiz-session-engine/internal/infra/redis"
	"quiz-session-engine/internal/logger"
	"quiz-session-engine/internal/metrics"
	"quiz-session-engine/internal/telemetry"
	transport "quiz-session-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log)
	log := logger.New("server")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := telemetry.MonitorRedis(redisClient); err != nil {
			return err
		}
	}

	var (
		pool *pgxpool.Pool
		db   *bun.DB
	)
	if cfg.Postgres.URL != "" {
		db, err = openBun(cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := runMigrations(ctx, db); err != nil {
			return err
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(sampleQuestions())
	switch {
	case pool != nil:
		loader = postgres.NewQuestionLoader(pool)
	case cfg.Questions.File != "":
		loader = memory.NewFileCatalogLoader(cfg.Questions.File)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var bank app.QuestionBank
	if redisClient != nil {
		bank = redisinfra.NewQuestionBank(redisClient, loader, questionTTL)
	} else {
		bank = memory.NewQuestionBank(loader, questionTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		store = memory.NewSessionStore()
	}

	overrides, err := cfg.Game.RoundOverrides()
	if err != nil {
		return err
	}

	var sinks audit.Tee
	if cfg.Audit.File != "" {
		fileSink := audit.NewFileSink(cfg.Audit.File, cfg.Audit.MaxSizeMB, cfg.Audit.MaxBackups)
		defer fileSink.Close()
		sinks = append(sinks, fileSink)
	}
	if db != nil {
		sinks = append(sinks, postgres.NewAuditSink(db))
	}

	hub := transport.NewHub()
	recorder := metrics.NewRecorder()
	notifiers := app.Notifiers{hub, recorder}
	if cfg.NATS.URL != "" {
		nc, err := natsnotify.Connect(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer nc.Close()
		notifiers = append(notifiers, natsnotify.NewNotifier(nc, cfg.NATS.Subject))
	}

	service := app.NewQuizService(app.Config{
		Sessions:     store,
		Questions:    app.NewPlaylist(bank, overrides),
		Options:      app.NewOptionGenerator(bank),
		Roster:       hub,
		Notifier:     notifiers,
		Audit:        sinks,
		RoundsLimit:  cfg.Game.RoundsLimit(),
		AnswerWindow: cfg.Game.Window(),
		Overrides:    overrides,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", recorder.Handler())
	mux.HandleFunc("/ws", transport.NewWSHandler(service, hub).ServeWS)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).
			Int("rounds", cfg.Game.RoundsLimit()).
			Dur("answer_window", cfg.Game.Window()).
			Msg("starting quiz engine")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// sampleQuestions is the built-in catalog used when neither Postgres nor a
// question file is configured.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "bohemian-rhapsody", Title: "Bohemian Rhapsody", Artist: "Queen", Media: "https://www.youtube.com/watch?v=fJ9rUzIMcZQ"},
		{ID: "billie-jean", Title: "Billie Jean", Artist: "Michael Jackson", Media: "https://www.youtube.com/watch?v=Zi_XLOBDo_Y"},
		{ID: "smells-like-teen-spirit", Title: "Smells Like Teen Spirit", Artist: "Nirvana", Media: "https://www.youtube.com/watch?v=hTWKbfoikeg"},
		{ID: "hey-jude", Title: "Hey Jude", Artist: "The Beatles", Media: "https://www.youtube.com/watch?v=A_MjCqQoLLA"},
		{ID: "take-on-me", Title: "Take On Me", Artist: "a-ha", Media: "https://www.youtube.com/watch?v=djV11Xbc914"},
		{ID: "wonderwall", Title: "Wonderwall", Artist: "Oasis", Media: "https://www.youtube.com/watch?v=bx1Bh8ZvH84"},
	}
}

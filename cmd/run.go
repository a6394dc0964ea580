package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"aulabot/internal/booker"
	"aulabot/internal/config"
	"aulabot/internal/edisu"
	"aulabot/internal/ledger"
	"aulabot/internal/metrics"
	"aulabot/internal/notify"
	"aulabot/internal/planner"
)

func newRunCmd(cfgFile *string) *cobra.Command {
	var (
		room    string
		fromStr string
		toStr   string
		days    int
		start   string
		end     string
		exclude string
		dryRun  bool
		daemon  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Plan and book the shift for a range of days",
		Long: `Fetches seat availability for each day of the range, computes the
seat plan covering the shift with the fewest seat switches, and books
every segment the user does not already hold.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			loc, err := cfg.Location()
			if err != nil {
				return fmt.Errorf("timezone: %w", err)
			}

			opts, err := buildOptions(cfg, loc, room, fromStr, toStr, days, start, end, exclude, dryRun)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, rdb, err := newSignedInClient(ctx, cfg, &logger)
			if err != nil {
				return err
			}

			led, err := ledger.Open(cfg.Ledger.Path, &logger)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer led.Close()

			var m *metrics.Metrics
			if cfg.Monitoring.PrometheusEnabled {
				m = metrics.New("aulabot")
				client.SetObserver(m.ObserveAPICall)
			}

			var notifier *notify.Notifier
			if cfg.Telegram.Enabled {
				notifier, err = notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, &logger)
				if err != nil {
					return fmt.Errorf("telegram: %w", err)
				}
			}

			svc := booker.New(client, led, m, notifier, &logger)

			if daemon {
				return runDaemon(ctx, cfg, svc, opts, led, rdb, &logger)
			}

			outcomes, err := svc.Run(ctx, opts)
			if err != nil {
				return err
			}
			if err := writeReports(ctx, cfg, led, &logger); err != nil {
				logger.Error().Err(err).Msg("report generation failed")
			}

			failed := 0
			for _, o := range outcomes {
				if o.Outcome == booker.OutcomeError {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d days failed", failed, len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&room, "room", "", "room to book (overrides config)")
	cmd.Flags().StringVar(&fromStr, "from", "", "first day to book, DD-MM-YYYY")
	cmd.Flags().StringVar(&toStr, "to", "", "last day to book, DD-MM-YYYY")
	cmd.Flags().IntVar(&days, "days", 0, "book this many days starting today (overrides --from/--to)")
	cmd.Flags().StringVar(&start, "start", "", "shift start, HH:MM")
	cmd.Flags().StringVar(&end, "end", "", "shift end, HH:MM")
	cmd.Flags().StringVar(&exclude, "exclude", "", "ISO weekday digits to skip, e.g. 67 for the weekend")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan without issuing reservations")
	cmd.Flags().BoolVar(&daemon, "daemon", false, "keep re-planning the rolling range on an interval")

	return cmd
}

// buildOptions merges flags over config, flags winning.
func buildOptions(cfg *config.Config, loc *time.Location, room, fromStr, toStr string, days int, start, end, exclude string, dryRun bool) (booker.Options, error) {
	if room == "" {
		room = cfg.Booking.Room
	}
	hallID, err := cfg.HallID(room)
	if err != nil {
		return booker.Options{}, err
	}

	if start == "" {
		start = cfg.Booking.ShiftStart
	}
	if start == "" {
		start = "09:00"
	}
	if end == "" {
		end = cfg.Booking.ShiftEnd
	}
	if end == "" {
		end = "19:00"
	}
	shiftStart, err := booker.ParseClock(start)
	if err != nil {
		return booker.Options{}, fmt.Errorf("shift start: %w", err)
	}
	var shiftEnd planner.TimePoint
	if end == "24:00" {
		shiftEnd = planner.MinutesPerDay
	} else if shiftEnd, err = booker.ParseClock(end); err != nil {
		return booker.Options{}, fmt.Errorf("shift end: %w", err)
	}

	opts := booker.Options{
		Room:       room,
		Hall:       edisu.Hall{Name: room, ID: hallID},
		ShiftStart: shiftStart,
		ShiftEnd:   shiftEnd,
		DryRun:     dryRun,
		Location:   loc,
	}

	opts.ExcludeWeekdays = exclude
	if opts.ExcludeWeekdays == "" {
		opts.ExcludeWeekdays = cfg.Booking.ExcludeWeekdays
	}

	switch {
	case days > 0:
		opts.DaysAhead = days
	case fromStr != "" || toStr != "":
		if fromStr == "" || toStr == "" {
			return booker.Options{}, fmt.Errorf("--from and --to must be given together")
		}
		opts.From, err = time.ParseInLocation(edisu.DayFormat, fromStr, loc)
		if err != nil {
			return booker.Options{}, fmt.Errorf("invalid --from: %w", err)
		}
		opts.To, err = time.ParseInLocation(edisu.DayFormat, toStr, loc)
		if err != nil {
			return booker.Options{}, fmt.Errorf("invalid --to: %w", err)
		}
	case cfg.Booking.DaysAhead > 0:
		opts.DaysAhead = cfg.Booking.DaysAhead
	default:
		opts.DaysAhead = 1
	}

	return opts, nil
}

// newSignedInClient builds the service client, attaches the Redis read
// cache when configured, and authenticates.
func newSignedInClient(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*edisu.Client, *redis.Client, error) {
	if cfg.Credentials.Email == "" || cfg.Credentials.Password == "" {
		return nil, nil, fmt.Errorf("set credentials.email and credentials.password in the config")
	}

	client := edisu.NewClient(cfg.API.WebBaseURL, cfg.API.BookingBaseURL, cfg.APITimeout())
	client.SetRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst)

	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	if err := client.SignIn(ctx, cfg.Credentials.Email, cfg.Credentials.Password); err != nil {
		return nil, nil, fmt.Errorf("sign in: %w", err)
	}
	logger.Info().Str("email", cfg.Credentials.Email).Msg("signed in")
	return client, rdb, nil
}

// runDaemon keeps the service re-planning on an interval, with the
// monitoring endpoints and the ledger backup loop running alongside.
func runDaemon(ctx context.Context, cfg *config.Config, svc *booker.Service, opts booker.Options, led *ledger.Ledger, rdb *redis.Client, logger *zerolog.Logger) error {
	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, led, rdb, logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	if cfg.Ledger.Backup.Enabled {
		backup := ledger.NewBackupService(led, ledger.BackupConfig{
			Enabled:       true,
			IntervalHours: cfg.Ledger.Backup.IntervalHours,
			Path:          cfg.Ledger.Backup.Path,
			RetentionDays: cfg.Ledger.Backup.RetentionDays,
		}, logger)
		go backup.Start(ctx)
	}

	logger.Info().Dur("interval", cfg.DaemonInterval()).Msg("daemon started")
	err := svc.RunDaemon(ctx, opts, cfg.DaemonInterval())
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func startHealthServer(ctx context.Context, port int, led *ledger.Ledger, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := led.PingContext(ctxPing); err != nil {
			http.Error(w, "ledger not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrymomot/authkit/internal/auth"
	"github.com/dmitrymomot/authkit/internal/httpapi"
	"github.com/dmitrymomot/authkit/internal/mailnotify"
	"github.com/dmitrymomot/authkit/internal/maintenance"
	"github.com/dmitrymomot/authkit/internal/storage/postgres"
	"github.com/dmitrymomot/authkit/pkg/config"
	"github.com/dmitrymomot/authkit/pkg/email"
	"github.com/dmitrymomot/authkit/pkg/httpserver"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/pg"
	"github.com/dmitrymomot/authkit/pkg/ratelimit"
	rediskit "github.com/dmitrymomot/authkit/pkg/redis"
)

type appConfig struct {
	AppName     string `env:"APP_NAME" envDefault:"authkit"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	BaseURL     string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// TokenSecret signs verification links, reset state, and OAuth state.
	TokenSecret string `env:"TOKEN_SECRET,required"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"0"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	RotatedTokenTTL time.Duration `env:"ROTATED_TOKEN_TTL" envDefault:"60m"`
	ResetWindow     time.Duration `env:"RESET_WINDOW" envDefault:"60m"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"24h"`

	Postgres pg.Config
	Redis    rediskit.Config
	HTTP     httpserver.Config
	API      httpapi.Config
	Email    email.Config
	Google   auth.GoogleConfig
	Facebook auth.FacebookConfig
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithEnvironment(cfg.Environment, cfg.AppName))
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("service stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.Postgres, log); err != nil {
		return err
	}

	redisClient, err := rediskit.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	userStore := postgres.NewUserStore(pool)
	tokenStore := postgres.NewTokenStore(pool)
	resetStore := postgres.NewResetStore(pool)

	var sender email.Sender
	if cfg.Email.PostmarkServerToken != "" {
		sender, err = email.NewPostmarkSender(cfg.Email)
		if err != nil {
			return err
		}
	} else {
		log.Warn("postmark token not set, writing emails to disk",
			slog.String("dir", cfg.Email.DevOutputDir))
		sender = email.NewDevSender(cfg.Email.DevOutputDir)
	}
	notifier := mailnotify.New(sender, cfg.AppName)

	tokens := auth.NewTokenService(tokenStore,
		auth.WithTokenLogger(log),
		auth.WithAccessTokenTTL(cfg.AccessTokenTTL),
		auth.WithRefreshTokenTTL(cfg.RefreshTokenTTL),
		auth.WithRotatedAccessTTL(cfg.RotatedTokenTTL),
	)
	passwords := auth.NewPasswordService(userStore,
		auth.WithPasswordLogger(log),
	)
	resets := auth.NewResetService(resetStore, userStore, passwords, tokens, notifier,
		auth.WithResetLogger(log),
		auth.WithResetWindow(cfg.ResetWindow),
	)
	verification := auth.NewVerificationService(userStore, notifier, cfg.TokenSecret, cfg.BaseURL,
		auth.WithVerificationLogger(log),
	)
	oauth := auth.NewOAuthService(userStore, passwords, tokens, cfg.TokenSecret,
		[]auth.ProviderAdapter{
			auth.NewGoogleAdapter(cfg.Google),
			auth.NewFacebookAdapter(cfg.Facebook),
		},
		auth.WithOAuthLogger(log),
	)

	api := httpapi.NewServer(userStore, tokens, passwords, resets, verification, oauth, cfg.API,
		httpapi.WithServerLogger(log),
		httpapi.WithRateLimitStore(ratelimit.NewRedisStore(redisClient)),
	)

	sweeper := maintenance.New(tokenStore, resetStore,
		maintenance.WithLogger(log),
		maintenance.WithInterval(cfg.SweepInterval),
		maintenance.WithResetWindow(cfg.ResetWindow),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("maintenance sweeper stopped", logger.Error(err))
		}
	}()

	return httpserver.New(cfg.HTTP, log).Run(ctx, api.Routes())
}

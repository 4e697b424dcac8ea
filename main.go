package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/api"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/auth"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/config"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/database"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/keyword"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/logger"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/pending"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/plugin"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/replicate"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/repository"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/services"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/telegram"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/translate"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/workers"
)

const (
	historyMemory   = "memory"
	historyPostgres = "postgres"
	historyMongo    = "mongo"
)

type Config struct {
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogNoColor bool   `env:"LOG_NO_COLOR"`

	TelegramBotToken          string   `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	TelegramAuthorizedUserIDs []int64  `env:"TELEGRAM_AUTHORIZED_USER_IDS" envSeparator:" "`
	ImageCreatePrefixes       []string `env:"IMAGE_CREATE_PREFIX" envDefault:"画,draw" envSeparator:","`
	DownloadDir               string   `env:"DOWNLOAD_DIR" envDefault:"tmp"`

	ReplicateConfig            string        `env:"REPLICATE_CONFIG" envDefault:"plugins/replicate/config.json"`
	ReplicateBaseURL           string        `env:"REPLICATE_BASE_URL" envDefault:"https://api.replicate.com/v1"`
	ReplicatePollInterval      time.Duration `env:"REPLICATE_POLL_INTERVAL" envDefault:"1s"`
	ReplicatePendingTTL        time.Duration `env:"REPLICATE_PENDING_TTL" envDefault:"1h"`
	ReplicatePredictionTimeout time.Duration `env:"REPLICATE_PREDICTION_TIMEOUT" envDefault:"0s"`

	OpenAIToken    string `env:"OPEN_AI_TOKEN"`
	OpenAIBaseURL  string `env:"OPEN_AI_BASE_URL"`
	TranslateModel string `env:"TRANSLATE_MODEL"`

	HistoryBackend string `env:"HISTORY_BACKEND" envDefault:"memory"`
	PgURL          string `env:"DATABASE_URL"`
	PgHost         string `env:"DB_HOST" envDefault:"localhost:65432"`
	MongoURI       string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase  string `env:"MONGO_DATABASE" envDefault:"replicate_bot"`

	HTTPAddr string `env:"HTTP_ADDR"`
}

type historyRepository interface {
	services.GenerationRepository
	io.Closer
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Loading .env failed", logger.Err(err))
	}

	if err := runMain(); err != nil {
		slog.Error("Shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

func runMain() error {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parsing env config: %w", err)
	}

	if err := setupLogger(cfg); err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	workerGroup, closeFn, err := setupWorkers(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		select {
		case s := <-sigCh:
			slog.Info("Shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return workerGroup.Start(ctx)
}

func setupLogger(cfg Config) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	opts := logger.DefaultOptions()
	opts.Level = level
	opts.NoColor = cfg.LogNoColor
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, &opts)))
	return nil
}

func setupWorkers(ctx context.Context, cfg Config) (workers.Group, func(), error) {
	var workerGroup workers.Group

	pluginCfg, err := config.LoadPlugin(cfg.ReplicateConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("loading replicate config: %w", err)
	}

	replicateClient, err := replicate.NewClient(
		pluginCfg.ReplicateAPIToken,
		replicate.WithBaseURL(cfg.ReplicateBaseURL),
		replicate.WithPollInterval(cfg.ReplicatePollInterval),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating replicate client: %w", err)
	}
	slog.Info("Replicate client created", logger.Secret("token", pluginCfg.ReplicateAPIToken))

	var translator keyword.PromptTranslator
	if pluginCfg.TranslatePrompt {
		t, err := translate.NewTranslator(cfg.OpenAIToken, cfg.OpenAIBaseURL, cfg.TranslateModel)
		if err != nil {
			return nil, nil, fmt.Errorf("creating translator: %w", err)
		}
		translator = t
	}

	history, err := setupHistory(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := history.Close(); err != nil {
			slog.Error("Closing history repository failed", logger.Err(err))
		}
	}

	prefixes := lo.Compact(lo.Map(cfg.ImageCreatePrefixes, func(p string, _ int) string {
		return strings.TrimSpace(p)
	}))

	telegramClient, err := telegram.NewClient(cfg.TelegramBotToken, cfg.DownloadDir)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("creating telegram client: %w", err)
	}

	resolver := keyword.NewResolver(pluginCfg.Rules, pluginCfg.Defaults, pluginCfg.UnmatchedKeywords, translator)
	pendingCache := pending.New(pending.Policy{
		TTL:             cfg.ReplicatePendingTTL,
		CleanupInterval: pending.DefaultPolicy.CleanupInterval,
	})

	imageService := services.NewImageService(
		replicateClient,
		telegramClient,
		resolver,
		pendingCache,
		history,
		prefixes,
		cfg.ReplicatePredictionTimeout,
	)
	registry := plugin.NewRegistry(imageService)

	slog.Info("Replicate plugin initialized",
		"rules", len(pluginCfg.Rules),
		"prefixes", prefixes,
		"translate", pluginCfg.TranslatePrompt,
		"unmatchedKeywords", pluginCfg.UnmatchedKeywords,
	)

	authenticator := auth.NewAuthenticator(cfg.TelegramAuthorizedUserIDs)

	responseCh := make(chan domain.Response)

	handler := telegram.NewHandler(registry, telegramClient, prefixes, responseCh)

	listener, err := workers.NewTelegramUpdateListener(telegramClient, authenticator, handler, responseCh)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	workerGroup = append(workerGroup, listener)

	if cfg.HTTPAddr != "" {
		workerGroup = append(workerGroup, workers.NewHTTPServer(cfg.HTTPAddr, api.NewRouter(imageService, registry)))
	}

	return workerGroup, closeFn, nil
}

func setupHistory(ctx context.Context, cfg Config) (historyRepository, error) {
	switch cfg.HistoryBackend {
	case historyPostgres:
		db, err := database.NewPostgres(cfg.PgURL, cfg.PgHost)
		if err != nil {
			return nil, fmt.Errorf("creating db: %w", err)
		}
		return repository.NewGenerationPostgresRepository(db), nil

	case historyMongo:
		client, err := database.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("creating mongo client: %w", err)
		}
		repo, err := repository.NewGenerationMongoRepository(ctx, client, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("creating mongo repository: %w", err)
		}
		return repo, nil

	case historyMemory, "":
		return repository.NewGenerationMemoryRepository(), nil
	}

	return nil, fmt.Errorf("unknown history backend %q", cfg.HistoryBackend)
}

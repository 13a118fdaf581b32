package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"

	"vocBot/internal/app/audio"
	"vocBot/internal/app/events"
	"vocBot/internal/domain"
	"vocBot/internal/infrastructure/config"
	"vocBot/internal/infrastructure/logging"
	sqlitestorage "vocBot/internal/infrastructure/persistence/sqlite"
	ws "vocBot/internal/interface/api/ws"
	"vocBot/internal/usecase/commands"
	"vocBot/internal/usecase/cooldown"
	"vocBot/internal/usecase/dispatch"
	"vocBot/internal/usecase/handle_message"
	"vocBot/internal/usecase/permission"
)

type Options struct {
	// Config skips loading from the environment when set.
	Config *config.Config
	// LogOutput defaults to stdout.
	LogOutput io.Writer
}

type Runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	logger *slog.Logger

	logCloser io.Closer
	store     *sqlitestorage.PlayStore
	bus       *events.Bus
	registry  *commands.Registry
	engine    *dispatch.Engine
	handler   *handle_message.Interactor
	wsServer  *ws.Server

	wg       conc.WaitGroup
	stopOnce sync.Once
	serveErr chan error
}

func Start(ctx context.Context, opts Options) (*Runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	logger, logCloser, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Debug:      cfg.DebugMode,
		Dir:        cfg.Log.Dir,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}, opts.LogOutput)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	mode, err := permission.ParseMode(cfg.PermissionMode)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("config: permission mode: %w", err)
	}

	store, err := sqlitestorage.NewPlayStore(cfg.DatabasePath)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	runtimeCtx, cancel := context.WithCancel(ctx)
	bus := events.NewBus(logger)
	tracker := cooldown.NewTracker(cfg.GlobalCooldownDuration())
	evaluator := permission.NewEvaluator(permission.Config{
		Mode:      mode,
		AllowList: permission.ParseUserList(cfg.AllowList),
		BlockList: permission.ParseUserList(cfg.BlockList),
		Channel:   cfg.ChannelName,
	})

	wsServer := ws.NewServer(ws.Config{
		Addr:            cfg.Addr,
		History:         store,
		PlaybackTimeout: cfg.Overlay.PlaybackTimeout,
		ChatRate:        cfg.ChatRate,
		ChatBurst:       cfg.ChatBurst,
		Logger:          logger,
	})

	registry, errs := commands.NewRegistry(cfg.Slots(), commands.Options{
		CaseSensitive: cfg.CaseSensitive,
		Video: &commands.VideoStage{
			Player:       wsServer,
			Transitions:  wsServer,
			Element:      cfg.Overlay.Element,
			AnimationIn:  cfg.Overlay.AnimationIn,
			AnimationOut: cfg.Overlay.AnimationOut,
			TimeIn:       cfg.Overlay.TimeInDuration(),
			TimeOut:      cfg.Overlay.TimeOutDuration(),
		},
		Audio:  audio.NewPlayer(audio.Config{Logger: logger}),
		Logger: logger,
	})
	if len(errs) > 0 {
		logger.Warn("some command slots were not loaded", slog.Int("errors", len(errs)))
	}
	if registry.Len() == 0 {
		logger.Warn("no media commands configured")
	}

	engine := dispatch.New(dispatch.Config{
		BaseContext:         runtimeCtx,
		Registry:            registry,
		Cooldowns:           tracker,
		Permissions:         evaluator,
		Recorder:            store,
		Bus:                 bus,
		Logger:              logger,
		CooldownFallthrough: cfg.CooldownFallthrough,
	})

	wsServer.SetCommands(commands.NewService(registry, tracker))
	wsServer.SetStatus(engine)

	run := &Runtime{
		ctx:       runtimeCtx,
		cancel:    cancel,
		cfg:       cfg,
		logger:    logger,
		logCloser: logCloser,
		store:     store,
		bus:       bus,
		registry:  registry,
		engine:    engine,
		handler:   handle_message.NewInteractor(engine, bus, cfg.ChannelName),
		wsServer:  wsServer,
		serveErr:  make(chan error, 1),
	}
	wsServer.SetHandler(run.DispatchMessage)

	run.wg.Go(func() {
		if err := wsServer.Start(runtimeCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("ws server error", slog.Any("error", err))
			run.serveErr <- err
			cancel()
		}
	})
	run.wg.Go(func() {
		wsServer.Forward(runtimeCtx, bus, events.MediaTopics...)
	})

	engine.Ready()
	logger.Info("vocBot ready",
		slog.Int("commands", registry.Len()),
		slog.String("permissions", mode.String()),
		slog.String("addr", cfg.Addr),
	)
	return run, nil
}

// DispatchMessage is the chat entry point shared by every message source.
func (r *Runtime) DispatchMessage(ctx context.Context, msg domain.Message) error {
	if r == nil || r.handler == nil {
		return errors.New("runtime not started")
	}
	return r.handler.Handle(ctx, msg)
}

// Done is closed once the runtime context ends, either through Stop, the
// parent context or a failed listener.
func (r *Runtime) Done() <-chan struct{} {
	return r.ctx.Done()
}

// Err reports a listener failure, if any.
func (r *Runtime) Err() error {
	select {
	case err := <-r.serveErr:
		return err
	default:
		return nil
	}
}

func (r *Runtime) Stop() error {
	if r == nil {
		return nil
	}
	var stopErr error
	r.stopOnce.Do(func() {
		r.cancel()
		r.engine.Wait()
		r.wg.Wait()
		r.bus.Close()
		stopErr = errors.Join(r.store.Close(), r.logCloser.Close())
	})
	return stopErr
}

func (r *Runtime) Bus() *events.Bus {
	return r.bus
}

func (r *Runtime) Engine() *dispatch.Engine {
	return r.engine
}

func (r *Runtime) Registry() *commands.Registry {
	return r.registry
}

func (r *Runtime) Config() *config.Config {
	return r.cfg
}

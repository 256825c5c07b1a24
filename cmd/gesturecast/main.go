package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/gesturecast/internal/app"
	"github.com/ayusman/gesturecast/internal/config"
	"github.com/ayusman/gesturecast/internal/detector"
	"github.com/ayusman/gesturecast/internal/dispatch"
	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/ayusman/gesturecast/internal/logging"
	"github.com/ayusman/gesturecast/internal/plugin"
	"github.com/ayusman/gesturecast/internal/relay"
	"github.com/ayusman/gesturecast/internal/server"
	"github.com/ayusman/gesturecast/internal/store"
	"github.com/ayusman/gesturecast/internal/tray"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	log.Info("Gesturecast - hand gesture server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if cfg.DBPath != "" {
		dbPath, err := resolveDBPath(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		st, err = store.New(dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}
		defer st.Close()
		log.WithField("path", st.Path()).Info("store enabled")
	}

	hub := server.NewHub(server.HubConfig{
		MaxMessagesPerSecond: cfg.MaxMessagesPerSecond,
		Burst:                cfg.MessageBurst,
		MaxMessageBytes:      cfg.MaxMessageBytes,
		WriteTimeout:         cfg.WriteTimeout,
		Logger:               log,
	})

	// The hand tracker is optional; without it frames use the motion fallback.
	var tracker detector.Detector
	mp, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:      cfg.MaxHands,
		MinConfidence: detector.DefaultConfig().MinConfidence,
		ScriptPath:    cfg.MediaPipeScript,
	}, log)
	if err == nil {
		err = mp.Start()
		if err != nil {
			mp.Close()
		}
	}
	if err != nil {
		log.WithError(err).Warn("hand tracker unavailable")
	} else {
		tracker = mp
	}

	var tr *tray.Tray
	if cfg.Tray {
		tr = tray.New(true)
	}

	// Local consumers: websocket clients plus the tray when it runs.
	local := []dispatch.Broadcaster{hub}
	if tr != nil {
		local = append(local, tr)
	}
	outputs := append([]dispatch.Broadcaster(nil), local...)

	runner := loadPlugins(cfg, log)
	if runner != nil {
		outputs = append(outputs, runner)
	}

	var rl *relay.Relay
	if cfg.RedisURL != "" {
		rl, err = relay.New(cfg.RedisURL, cfg.RedisChannel, dispatch.Multi(local...), log)
		if err != nil {
			log.Fatalf("Failed to start relay: %v", err)
		}
		defer rl.Close()
		outputs = append(outputs, rl)
	}

	a, err := app.New(app.Config{
		Thresholds: gesture.Thresholds{
			Pinch:  cfg.PinchThreshold,
			Click:  cfg.ClickThreshold,
			Swipe:  cfg.SwipeThreshold,
			Zoom:   cfg.ZoomThreshold,
			Motion: cfg.MotionThreshold,
		},
		ClassifierDebounce: cfg.ClassifierDebounce,
		DispatchDebounce:   cfg.DispatchDebounce,
		Detector:           tracker,
		Broadcaster:        dispatch.Multi(outputs...),
		Store:              st,
		Logger:             log,
	})
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	defer a.Close()
	hub.SetHandler(a)

	if runner != nil {
		go runner.Run(ctx)
	}
	if rl != nil {
		go func() {
			if err := rl.Run(ctx); err != nil {
				log.WithError(err).Error("relay stopped")
			}
		}()
	}

	webDir := cfg.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		log.WithField("dir", webDir).Info("serving static files")
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Hub:       hub,
		Mapping:   a,
	})

	go func() {
		log.WithField("addr", cfg.Addr).Info("starting server")
		if err := srv.ListenAndServe(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if tr != nil {
		configureTray(tr, a, cfg.Addr, stop, log)
		go func() {
			<-ctx.Done()
			tr.Quit()
		}()
		// systray needs the main goroutine on macOS.
		tr.Run()
	} else {
		<-ctx.Done()
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
}

func configureTray(tr *tray.Tray, a *app.App, addr string, quit func(), log *logrus.Logger) {
	tr.SetEnabled(a.IsEnabled())
	tr.OnToggle(a.SetEnabled)
	tr.OnDashboard(func() {
		log.WithField("url", dashboardURL(addr)).Info("dashboard")
	})
	tr.OnQuit(quit)
}

// loadPlugins discovers action plugins. It returns nil when there are none.
func loadPlugins(cfg config.Config, log *logrus.Logger) *plugin.Runner {
	dir := cfg.PluginDir
	if dir == "" {
		dataDir, err := config.DataDir()
		if err != nil {
			log.WithError(err).Warn("plugins disabled")
			return nil
		}
		dir = filepath.Join(dataDir, "plugins")
	}

	manager := plugin.NewManager(dir, log)
	if err := manager.Discover(); err != nil {
		log.WithError(err).Warn("plugin discovery failed")
		return nil
	}
	if len(manager.List()) == 0 {
		return nil
	}
	return plugin.NewRunner(manager, plugin.NewExecutor(cfg.PluginTimeout), log)
}

// resolveDBPath places a bare file name in the data directory.
func resolveDBPath(p string) (string, error) {
	if filepath.Dir(p) != "." {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return "", err
		}
		return p, nil
	}
	dir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

func dashboardURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.gesturecast/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".gesturecast", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

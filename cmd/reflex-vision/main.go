package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"reflex-vision/internal/annotate"
	"reflex-vision/internal/camera"
	"reflex-vision/internal/config"
	"reflex-vision/internal/display"
	"reflex-vision/internal/logger"
	"reflex-vision/internal/model"
	"reflex-vision/internal/opencv/memory"
	"reflex-vision/internal/pipeline"
	"reflex-vision/internal/shutdown"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	AppName    = "Reflex Vision"
	AppID      = "com.reflexvision.monitor"
	AppVersion = "1.0.0"
)

const mainComponent = "Main"

// Application holds everything wired together for one run. proc samples
// RSS, which unlike the Go heap figures includes OpenCV's allocations.
type Application struct {
	cfg      *config.Config
	logger   logger.Logger
	tracker  *memory.Tracker
	proc     *process.Process
	pipeline *pipeline.Pipeline
	shutdown *shutdown.Manager

	// fyneSink is set when the fyne backend owns the main goroutine.
	fyneSink *display.Fyne
}

type flags struct {
	configPath string
	camera     string
	model      string
	display    string
	version    bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", config.DefaultPath, "path to the TOML configuration file")
	fs.StringVar(&f.camera, "camera", "", "camera index, file or stream URL (overrides camera.source)")
	fs.StringVar(&f.model, "model", "", "ONNX model path (overrides model.path)")
	fs.StringVar(&f.display, "display", "", "display backend: window or fyne (overrides display.backend)")
	fs.BoolVar(&f.version, "version", false, "print the version and exit")
	err := fs.Parse(args)
	return f, err
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if f.version {
		fmt.Printf("%s %s\n", AppName, AppVersion)
		return
	}

	configureRuntime()

	application, err := NewApplication(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		application.logger.Error(mainComponent, err, map[string]interface{}{"stage": "run"})
		os.Exit(1)
	}
}

// configureRuntime trades memory for fewer collections; frames are large,
// short-lived allocations.
func configureRuntime() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	debug.SetGCPercent(200)
}

// loadConfig layers file, environment and flags, then validates the result.
func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath, f.configPath == config.DefaultPath)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	if f.camera != "" {
		cfg.Camera.Source = f.camera
	}
	if f.model != "" {
		cfg.Model.Path = f.model
	}
	if f.display != "" {
		cfg.Display.Backend = f.display
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewApplication opens every collaborator. Any failure here aborts start-up
// before a stage runs; collaborators opened so far are closed again.
func NewApplication(f flags) (*Application, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}

	appLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	appLogger.Info(mainComponent, "application starting", map[string]interface{}{
		"version":    AppVersion,
		"go_version": runtime.Version(),
		"num_cpu":    runtime.NumCPU(),
		"log_level":  cfg.Log.Level,
		"camera":     cfg.Camera.Source,
		"model":      cfg.Model.Path,
		"backend":    cfg.Model.Backend,
		"display":    cfg.Display.Backend,
	})

	tracker := memory.NewTracker()

	cam, err := camera.Open(camera.Options{
		Source:     cfg.Camera.Source,
		API:        cfg.Camera.API,
		Width:      cfg.Camera.Width,
		Height:     cfg.Camera.Height,
		BufferSize: cfg.Camera.BufferSize,
	}, tracker)
	if err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}
	camW, camH := cam.Size()
	appLogger.Info(mainComponent, "camera opened", map[string]interface{}{
		"source": cam.Source(),
		"size":   fmt.Sprintf("%dx%d", camW, camH),
	})

	detector, err := model.Load(model.Options{
		Backend:    cfg.Model.Backend,
		Path:       cfg.Model.Path,
		Segment:    cfg.Model.Task == config.TaskSegment,
		TargetSize: cfg.Model.TargetSize,
		Classes:    cfg.Model.Classes,
		Confidence: float32(cfg.Model.Confidence),
		IoU:        float32(cfg.Model.IoU),
		Device:     cfg.Model.Device,
		ORTLibrary: cfg.Model.ORTLibrary,
	})
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("model: %w", err)
	}
	appLogger.Info(mainComponent, "model loaded", map[string]interface{}{
		"path":    cfg.Model.Path,
		"task":    cfg.Model.Task,
		"classes": len(cfg.Model.Classes),
	})

	colors, err := cfg.ColorTable()
	if err != nil {
		cam.Close()
		detector.Close()
		return nil, err
	}
	if missing := uncoloredClasses(cfg.Model.Classes, colors.Labels()); len(missing) > 0 {
		appLogger.Warning(mainComponent, "classes without a color use the default", map[string]interface{}{
			"classes":       missing,
			"default_color": cfg.Annotation.DefaultColor,
		})
	}
	annotator, err := annotate.New(cfg.Annotation.Mode, colors, cfg.AnnotationOptions())
	if err != nil {
		cam.Close()
		detector.Close()
		return nil, err
	}

	app := &Application{
		cfg:     cfg,
		logger:  appLogger,
		tracker: tracker,
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		app.proc = proc
	} else {
		appLogger.Warning(mainComponent, "process metrics unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	}

	sink, err := app.newSink()
	if err != nil {
		cam.Close()
		detector.Close()
		return nil, fmt.Errorf("display: %w", err)
	}

	p, err := pipeline.New(cam, detector, annotator, sink, pipeline.Options{
		QueueCapacity: cfg.Pipeline.QueueCapacity,
		PollInterval:  cfg.Pipeline.PollInterval.Std(),
		StatsInterval: cfg.Pipeline.StatsInterval.Std(),
		TargetSize:    cfg.Model.TargetSize,
		Display: pipeline.DisplayOptions{
			Width:   cfg.Display.Width,
			Height:  cfg.Display.Height,
			ShowFPS: cfg.Display.ShowFPS,
		},
	}, appLogger)
	if err != nil {
		cam.Close()
		detector.Close()
		sink.Close()
		return nil, err
	}
	app.pipeline = p

	app.shutdown = shutdown.NewManager(appLogger)
	app.shutdown.SetTimeout(cfg.Pipeline.ShutdownTimeout.Std())
	app.shutdown.Register("pipeline", p)

	return app, nil
}

// uncoloredClasses lists the model classes that have no color entry.
func uncoloredClasses(classes, colored []string) []string {
	known := make(map[string]bool, len(colored))
	for _, label := range colored {
		known[label] = true
	}

	var missing []string
	for _, class := range classes {
		if !known[class] {
			missing = append(missing, class)
		}
	}
	return missing
}

func (app *Application) newSink() (pipeline.Sink, error) {
	keys, err := display.ParseQuitKeys(app.cfg.Display.QuitKeys)
	if err != nil {
		return nil, err
	}

	switch app.cfg.Display.Backend {
	case config.DisplayFyne:
		fa := fyneapp.NewWithID(AppID)
		fa.SetMetadata(&fyne.AppMetadata{
			ID:      AppID,
			Name:    AppName,
			Version: AppVersion,
		})
		app.fyneSink = display.NewFyne(fa, app.cfg.Display.Title, app.cfg.Display.Width, app.cfg.Display.Height, keys)
		return app.fyneSink, nil
	default:
		return display.NewWindow(app.cfg.Display.Title, app.cfg.Display.Width, app.cfg.Display.Height, keys), nil
	}
}

// Run blocks until the pipeline has stopped. With the fyne backend the
// event loop takes the main goroutine and the pipeline runs beside it.
func (app *Application) Run() error {
	app.shutdown.Listen()

	ctx, cancel := context.WithCancel(app.shutdown.Context())
	defer cancel()

	go app.startPerformanceMonitoring()

	var err error
	if app.fyneSink != nil {
		errc := make(chan error, 1)
		go func() { errc <- app.pipeline.Run(ctx) }()

		app.fyneSink.Run()
		app.pipeline.Stop()
		err = <-errc
	} else {
		err = app.pipeline.Run(ctx)
	}

	app.shutdown.Shutdown()
	app.performCleanup()

	return err
}

func (app *Application) startPerformanceMonitoring() {
	interval := app.cfg.Pipeline.StatsInterval.Std()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			app.logPerformanceMetrics()
		case <-app.pipeline.Done():
			return
		}
	}
}

func (app *Application) logPerformanceMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	matStats := app.tracker.GetStats()

	fields := map[string]interface{}{
		"go_memory_mb":      memStats.Alloc / 1024 / 1024,
		"go_total_alloc_mb": memStats.TotalAlloc / 1024 / 1024,
		"go_gc_runs":        memStats.NumGC,
		"mats_active":       matStats.CurrentlyActive,
		"mats_allocated":    matStats.AllocationCount,
		"mats_by_tag":       matStats.ActiveByTag,
		"goroutine_count":   runtime.NumGoroutine(),
	}

	if app.proc != nil {
		if mem, err := app.proc.MemoryInfo(); err == nil {
			fields["rss_mb"] = mem.RSS / 1024 / 1024
		}
		if cpu, err := app.proc.CPUPercent(); err == nil {
			fields["cpu_percent"] = cpu
		}
	}

	app.logger.Debug(mainComponent, "performance metrics", fields)
}

// performCleanup reports Mats that were never released.
func (app *Application) performCleanup() {
	if app.tracker.Active() > 0 {
		leaks := app.tracker.DetectLeaks(0)
		tags := make(map[string]int)
		for _, l := range leaks {
			tags[l.Tag]++
		}
		app.logger.Warning(mainComponent, "frames still allocated at exit", map[string]interface{}{
			"count": len(leaks),
			"tags":  tags,
		})
	}

	app.logger.Info(mainComponent, "application stopped", nil)
}

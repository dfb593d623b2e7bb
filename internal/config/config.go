// Package config loads the runtime configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"reflex-vision/internal/annotate"
	"reflex-vision/internal/logger"
	"reflex-vision/internal/model"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const DefaultPath = "reflex.toml"

// Config is the complete runtime configuration.
type Config struct {
	Camera     CameraConfig     `toml:"camera"`
	Model      ModelConfig      `toml:"model"`
	Display    DisplayConfig    `toml:"display"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Annotation AnnotationConfig `toml:"annotation"`
	Log        LogConfig        `toml:"log"`
}

// CameraConfig selects the capture device. Source is a device index or a
// file path / stream URL.
type CameraConfig struct {
	Source     string `toml:"source"`
	API        string `toml:"api"`
	Width      int    `toml:"width"`  // 0 keeps the device default
	Height     int    `toml:"height"` // 0 keeps the device default
	BufferSize int    `toml:"buffer_size"`
}

type ModelConfig struct {
	Backend    string   `toml:"backend"` // dnn, onnxruntime
	Path       string   `toml:"path"`
	Task       string   `toml:"task"` // segment, detect
	TargetSize int      `toml:"target_size"`
	Classes    []string `toml:"classes"`
	Confidence float64  `toml:"confidence"`
	IoU        float64  `toml:"iou"`
	Device     string   `toml:"device"` // cpu, cuda
	ORTLibrary string   `toml:"ort_library"`
}

type DisplayConfig struct {
	Backend  string   `toml:"backend"` // window, fyne
	Title    string   `toml:"title"`
	Width    int      `toml:"width"`
	Height   int      `toml:"height"`
	QuitKeys []string `toml:"quit_keys"`
	ShowFPS  bool     `toml:"show_fps"`
}

type PipelineConfig struct {
	QueueCapacity   int      `toml:"queue_capacity"`
	PollInterval    Duration `toml:"poll_interval"`
	StatsInterval   Duration `toml:"stats_interval"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type AnnotationConfig struct {
	Mode          string            `toml:"mode"` // segment, detect
	Alpha         float64           `toml:"alpha"`
	FontScale     float64           `toml:"font_scale"`
	TextThickness int               `toml:"text_thickness"`
	BoxThickness  int               `toml:"box_thickness"`
	NoLabelClass  string            `toml:"no_label_class"`
	DefaultColor  string            `toml:"default_color"`
	Colors        map[string]string `toml:"colors"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultClasses is the class order of the bundled model.
var DefaultClasses = []string{
	"Face",
	"Tie your hair",
	"Wear long pants",
	"Wear covered shoes",
	"Wear short sleeve shirt",
}

func Default() *Config {
	colors := make(map[string]string, len(annotate.DefaultColors))
	for k, v := range annotate.DefaultColors {
		colors[k] = v
	}
	opts := annotate.DefaultOptions()

	return &Config{
		Camera: CameraConfig{
			Source:     "0",
			API:        "any",
			BufferSize: 1,
		},
		Model: ModelConfig{
			Backend:    model.BackendDNN,
			Path:       "./model.onnx",
			Task:       "segment",
			TargetSize: 320,
			Classes:    append([]string(nil), DefaultClasses...),
			Confidence: 0.25,
			IoU:        0.45,
			Device:     "cpu",
		},
		Display: DisplayConfig{
			Backend:  "window",
			Title:    "YOLO Segmentation (Mirror)",
			Width:    720,
			Height:   1280,
			QuitKeys: []string{"q", "esc"},
			ShowFPS:  true,
		},
		Pipeline: PipelineConfig{
			QueueCapacity:   1,
			PollInterval:    Duration(100 * time.Millisecond),
			StatsInterval:   Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Annotation: AnnotationConfig{
			Mode:          annotate.ModeSegment,
			Alpha:         opts.Alpha,
			FontScale:     opts.FontScale,
			TextThickness: opts.TextThickness,
			BoxThickness:  opts.BoxThickness,
			NoLabelClass:  opts.NoLabelClass,
			DefaultColor:  annotate.DefaultColorHex,
			Colors:        colors,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// allowMissing is set.
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := Parse(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes TOML into cfg. Keys absent from data keep their current
// values; lists and the [annotation.colors] table given in data replace the
// current ones instead of merging.
func Parse(data []byte, cfg *Config) error {
	classes, quitKeys, colors := cfg.Model.Classes, cfg.Display.QuitKeys, cfg.Annotation.Colors
	cfg.Model.Classes, cfg.Display.QuitKeys, cfg.Annotation.Colors = nil, nil, nil

	err := toml.Unmarshal(data, cfg)

	if cfg.Model.Classes == nil {
		cfg.Model.Classes = classes
	}
	if cfg.Display.QuitKeys == nil {
		cfg.Display.QuitKeys = quitKeys
	}
	if cfg.Annotation.Colors == nil {
		cfg.Annotation.Colors = colors
	}

	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// ApplyEnv applies LOG_LEVEL and DEBUG=1 on top of the file values.
func (c *Config) ApplyEnv() {
	c.Log.Level = logger.LevelFromEnv(c.Log.Level)
}

// ColorTable builds the annotation color table.
func (c *Config) ColorTable() (*annotate.ColorTable, error) {
	return annotate.NewColorTable(c.Annotation.Colors, c.Annotation.DefaultColor)
}

// AnnotationOptions converts the annotation section.
func (c *Config) AnnotationOptions() annotate.Options {
	return annotate.Options{
		Alpha:         c.Annotation.Alpha,
		FontScale:     c.Annotation.FontScale,
		TextThickness: c.Annotation.TextThickness,
		BoxThickness:  c.Annotation.BoxThickness,
		NoLabelClass:  c.Annotation.NoLabelClass,
	}
}

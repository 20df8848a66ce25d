package main

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"golang.org/x/exp/slog"
)

// duration reads Go duration strings such as "5s" from TOML.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	d.Duration = parsed
	return nil
}

type Config struct {
	Title          string `toml:"title"`
	Width          int    `toml:"width"`
	Height         int    `toml:"height"`
	FramesInFlight int    `toml:"frames_in_flight"`
	Validation     bool   `toml:"validation"`

	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`

	// Meshes are OBJ files. The built-in quads are drawn when empty.
	Meshes     []string   `toml:"meshes"`
	MeshColor  [3]float32 `toml:"mesh_color"`
	ClearColor [4]float32 `toml:"clear_color"`

	LogLevel      string   `toml:"log_level"`
	StatsInterval duration `toml:"stats_interval"`
}

func defaultConfig() Config {
	return Config{
		Title:          "Vulkan Course App",
		Width:          800,
		Height:         600,
		FramesInFlight: 2,
		Validation:     false,
		VertexShader:   "shaders/vert.spv",
		FragmentShader: "shaders/frag.spv",
		MeshColor:      [3]float32{1, 1, 1},
		ClearColor:     [4]float32{0.6, 0.65, 0.4, 1.0},
		LogLevel:       "info",
		StatsInterval:  duration{5 * time.Second},
	}
}

func bindFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.StringVar(&cfg.Title, "title", cfg.Title, "window title")
	flags.IntVar(&cfg.Width, "width", cfg.Width, "window width in pixels")
	flags.IntVar(&cfg.Height, "height", cfg.Height, "window height in pixels")
	flags.IntVar(&cfg.FramesInFlight, "frames-in-flight", cfg.FramesInFlight, "frames the CPU may record ahead of the GPU")
	flags.BoolVar(&cfg.Validation, "validation", cfg.Validation, "enable VK_LAYER_KHRONOS_validation")
	flags.StringVar(&cfg.VertexShader, "vertex-shader", cfg.VertexShader, "compiled SPIR-V vertex shader")
	flags.StringVar(&cfg.FragmentShader, "fragment-shader", cfg.FragmentShader, "compiled SPIR-V fragment shader")
	flags.StringArrayVar(&cfg.Meshes, "mesh", cfg.Meshes, "OBJ mesh to draw; may be repeated")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.DurationVar(&cfg.StatsInterval.Duration, "stats-interval", cfg.StatsInterval.Duration, "frame statistics period; 0 disables")
}

// applyFlag copies the field bound to the named flag from src to dst.
func applyFlag(dst, src *Config, name string) {
	switch name {
	case "title":
		dst.Title = src.Title
	case "width":
		dst.Width = src.Width
	case "height":
		dst.Height = src.Height
	case "frames-in-flight":
		dst.FramesInFlight = src.FramesInFlight
	case "validation":
		dst.Validation = src.Validation
	case "vertex-shader":
		dst.VertexShader = src.VertexShader
	case "fragment-shader":
		dst.FragmentShader = src.FragmentShader
	case "mesh":
		dst.Meshes = src.Meshes
	case "log-level":
		dst.LogLevel = src.LogLevel
	case "stats-interval":
		dst.StatsInterval = src.StatsInterval
	}
}

func readConfigFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open config")
	}
	defer file.Close()

	err = toml.NewDecoder(file).DisallowUnknownFields().Decode(cfg)
	if err != nil {
		return errors.Wrapf(err, "decode config %s", path)
	}

	return nil
}

// loadConfig builds the configuration from defaults, then the file named by
// --config, then any flags given explicitly on the command line.
func loadConfig(args []string) (Config, error) {
	cfg := defaultConfig()

	flags := pflag.NewFlagSet("course_app", pflag.ContinueOnError)
	configPath := flags.String("config", "", "TOML configuration file")
	overrides := defaultConfig()
	bindFlags(flags, &overrides)

	err := flags.Parse(args)
	if err != nil {
		return cfg, err
	}

	if *configPath != "" {
		err = readConfigFile(*configPath, &cfg)
		if err != nil {
			return cfg, err
		}
	}

	flags.Visit(func(flag *pflag.Flag) {
		applyFlag(&cfg, &overrides, flag.Name)
	})

	return cfg, cfg.validate()
}

func (c Config) logLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

func (c Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Newf("window size %dx%d must be positive", c.Width, c.Height)
	}
	if c.FramesInFlight < 1 || c.FramesInFlight > 8 {
		return errors.Newf("frames_in_flight %d outside [1, 8]", c.FramesInFlight)
	}
	if c.VertexShader == "" || c.FragmentShader == "" {
		return errors.New("both vertex_shader and fragment_shader are required")
	}
	if c.StatsInterval.Duration < 0 {
		return errors.Newf("stats_interval %s is negative", c.StatsInterval.Duration)
	}

	_, err := c.logLevel()
	if err != nil {
		return errors.Wrapf(err, "log_level %q", c.LogLevel)
	}

	return nil
}

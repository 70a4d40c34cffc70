package main

import (
	"flag"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/frame"
)

// Config is everything the program can be told on the command line.
type Config struct {
	Width  int
	Height int
	Title  string

	// Debug enables the Vulkan validation layers and debug logging.
	Debug bool
	// Verbose enables debug logging only.
	Verbose bool

	// FramesInFlight is the number of frames the CPU may record ahead of the GPU.
	FramesInFlight int

	// ShaderDir holds the compiled vert.spv and frag.spv.
	ShaderDir string
	// MeshPath is an optional Wavefront OBJ file drawn instead of the star.
	MeshPath string

	ClearColor    [4]float32
	StatsInterval time.Duration
}

// DefaultConfig returns the configuration used when no flags are given.
func DefaultConfig() Config {
	return Config{
		Width:          1024,
		Height:         768,
		Title:          "Vulkan Star",
		FramesInFlight: 2,
		ShaderDir:      "shaders",
		ClearColor:     frame.DefaultClearColor,
		StatsInterval:  5 * time.Second,
	}
}

// parseConfig fills a Config from args, starting from DefaultConfig.
func parseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := DefaultConfig()

	fs.IntVar(&cfg.Width, "width", cfg.Width, "Initial window width")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "Initial window height")
	fs.StringVar(&cfg.Title, "title", cfg.Title, "Window title")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable Vulkan validation layers")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.IntVar(&cfg.FramesInFlight, "frames", cfg.FramesInFlight, "Frames in flight")
	fs.StringVar(&cfg.ShaderDir, "shaders", cfg.ShaderDir, "Directory with vert.spv and frag.spv")
	fs.StringVar(&cfg.MeshPath, "mesh", cfg.MeshPath, "OBJ file to draw instead of the star")
	fs.Var((*colorFlag)(&cfg.ClearColor), "clear", "Clear color as r,g,b,a")
	fs.DurationVar(&cfg.StatsInterval, "stats", cfg.StatsInterval,
		"How often frame stats are logged at debug level, 0 disables")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// Validate reports the first setting the program cannot run with.
func (c Config) Validate() error {
	if c.FramesInFlight < 1 {
		return errors.Newf("frames in flight must be at least 1, got %d", c.FramesInFlight)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.ShaderDir == "" {
		return errors.New("shader directory must not be empty")
	}
	if c.StatsInterval < 0 {
		return errors.Newf("stats interval must not be negative, got %s", c.StatsInterval)
	}
	return nil
}

// colorFlag parses "r,g,b,a" with every component in [0, 1].
type colorFlag [4]float32

func (c *colorFlag) String() string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, ",")
}

func (c *colorFlag) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != len(c) {
		return errors.Newf("want 4 comma separated components, got %d", len(parts))
	}

	var color colorFlag
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return errors.Wrapf(err, "component %d", i)
		}
		if v < 0 || v > 1 {
			return errors.Newf("component %d out of range [0, 1]: %v", i, v)
		}
		color[i] = float32(v)
	}

	*c = color
	return nil
}

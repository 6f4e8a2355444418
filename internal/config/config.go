package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	WindowWidth  = 1280
	WindowHeight = 720
	WindowTitle  = "bodo - Esc/Q: Quit"

	AssetExt = ".glb"

	// Visibility layer shared by every interactive mesh.
	InteractiveLayer = 1

	// Drag: 100 px of pointer travel moves a control by one scene unit.
	DragScale = 1.0 / 100

	SliderMin = -1.0
	SliderMax = 0.0
	GhostMin  = -2.0
	GhostMax  = 2.0

	// Camera path
	CameraFOV        = 75
	TransitionSecond = 30
	GhostPush        = 5

	BloomStrength  = 1.2
	BloomThreshold = 0.35
	BloomRadius    = 0.25

	FloorWidth     = 50
	FloorDepth     = 50
	FloorSegments  = 50
	FloorHeight    = -2
	WaveFrequency  = 0.5
	WaveAmplitude  = 0.35
	DefaultRateHz  = 44100
	DefaultBufMS   = 50
	HandshakeMS    = 2000
	DefaultLogLvl  = "info"
	DefaultPatch   = "http://127.0.0.1:8000/patch.export.json"
	DefaultDeps    = "http://127.0.0.1:8000/dependencies.json"
	DefaultRuntime = "ws://127.0.0.1:8000/rnbo"
)

// Config is the YAML configuration of the installation. Zero sections are
// filled from DefaultConfig before decoding, so a file only has to name the
// values it overrides.
type Config struct {
	Window      WindowConfig      `yaml:"window"`
	Assets      AssetsConfig      `yaml:"assets"`
	Device      DeviceConfig      `yaml:"device"`
	Camera      CameraConfig      `yaml:"camera"`
	Interaction InteractionConfig `yaml:"interaction"`
	Bloom       BloomConfig       `yaml:"bloom"`
	Floor       FloorConfig       `yaml:"floor"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type AssetsConfig struct {
	Dir string `yaml:"dir"`
	Ext string `yaml:"ext"`
}

type DeviceConfig struct {
	Enabled            bool    `yaml:"enabled"`
	PatchURL           string  `yaml:"patch_url"`
	DependenciesURL    string  `yaml:"dependencies_url"`
	RuntimeURL         string  `yaml:"runtime_url"`
	HandshakeTimeoutMS int     `yaml:"handshake_timeout_ms"`
	SampleRate         int     `yaml:"sample_rate"`
	BufferMS           int     `yaml:"buffer_ms"`
	OutputGain         float64 `yaml:"output_gain"`
	Audio              bool    `yaml:"audio"` // false keeps the speaker closed (headless runs)
}

// Vec3 is a YAML-friendly position.
type Vec3 [3]float32

type CameraConfig struct {
	FOV           float32 `yaml:"fov"`
	Start         Vec3    `yaml:"start"`
	Final         Vec3    `yaml:"final"`
	Target        Vec3    `yaml:"target"`
	TransitionSec float32 `yaml:"transition_sec"`
	GhostPush     float32 `yaml:"ghost_push"`
}

type InteractionConfig struct {
	DragScale float32 `yaml:"drag_scale"`
	SliderMin float32 `yaml:"slider_min"`
	SliderMax float32 `yaml:"slider_max"`
	GhostMin  float32 `yaml:"ghost_min"`
	GhostMax  float32 `yaml:"ghost_max"`
}

type BloomConfig struct {
	Strength  float32 `yaml:"strength"`
	Threshold float32 `yaml:"threshold"`
	Radius    float32 `yaml:"radius"`
}

type FloorConfig struct {
	Width     float32 `yaml:"width"`
	Depth     float32 `yaml:"depth"`
	Segments  int     `yaml:"segments"`
	Height    float32 `yaml:"height"`
	Frequency float32 `yaml:"frequency"`
	Amplitude float32 `yaml:"amplitude"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{Width: WindowWidth, Height: WindowHeight, Title: WindowTitle},
		Assets: AssetsConfig{Dir: "assets", Ext: AssetExt},
		Device: DeviceConfig{
			Enabled:            true,
			PatchURL:           DefaultPatch,
			DependenciesURL:    DefaultDeps,
			RuntimeURL:         DefaultRuntime,
			HandshakeTimeoutMS: HandshakeMS,
			SampleRate:         DefaultRateHz,
			BufferMS:           DefaultBufMS,
			Audio:              true,
		},
		Camera: CameraConfig{
			FOV:           CameraFOV,
			Start:         Vec3{0, 15, 25},
			Final:         Vec3{1, 3, 4},
			Target:        Vec3{1, 0, 0},
			TransitionSec: TransitionSecond,
			GhostPush:     GhostPush,
		},
		Interaction: InteractionConfig{
			DragScale: DragScale,
			SliderMin: SliderMin,
			SliderMax: SliderMax,
			GhostMin:  GhostMin,
			GhostMax:  GhostMax,
		},
		Bloom: BloomConfig{Strength: BloomStrength, Threshold: BloomThreshold, Radius: BloomRadius},
		Floor: FloorConfig{
			Width:     FloorWidth,
			Depth:     FloorDepth,
			Segments:  FloorSegments,
			Height:    FloorHeight,
			Frequency: WaveFrequency,
			Amplitude: WaveAmplitude,
		},
		Logging: LoggingConfig{Level: DefaultLogLvl},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(raw, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode strictly decodes YAML into cfg and validates the result.
func Decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return cfg.Validate()
}

// Validate rejects configurations the rest of the code cannot assume away.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window: size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Assets.Ext == "" {
		errs = append(errs, errors.New("assets: ext must not be empty"))
	}
	if c.Interaction.SliderMin > c.Interaction.SliderMax {
		errs = append(errs, fmt.Errorf("interaction: slider_min %v > slider_max %v", c.Interaction.SliderMin, c.Interaction.SliderMax))
	}
	if c.Interaction.GhostMin >= c.Interaction.GhostMax {
		errs = append(errs, fmt.Errorf("interaction: ghost_min %v >= ghost_max %v", c.Interaction.GhostMin, c.Interaction.GhostMax))
	}
	if c.Interaction.DragScale <= 0 {
		errs = append(errs, errors.New("interaction: drag_scale must be positive"))
	}
	if c.Camera.TransitionSec <= 0 {
		errs = append(errs, errors.New("camera: transition_sec must be positive"))
	}
	if c.Floor.Segments <= 0 {
		errs = append(errs, errors.New("floor: segments must be positive"))
	}
	if c.Device.Enabled {
		if c.Device.PatchURL == "" || c.Device.RuntimeURL == "" {
			errs = append(errs, errors.New("device: patch_url and runtime_url are required when enabled"))
		}
		if c.Device.SampleRate <= 0 || c.Device.BufferMS <= 0 {
			errs = append(errs, errors.New("device: sample_rate and buffer_ms must be positive"))
		}
	}
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

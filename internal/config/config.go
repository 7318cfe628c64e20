// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"time"

	"pulse/internal/camera"
	"pulse/internal/rppg"
)

// Source kinds.
const (
	SourceSynthetic = "synthetic"
	SourceSequence  = "sequence"
)

// Defaults for settings outside the engine core.
const (
	DefaultLogLevel         = "info"
	DefaultTickInterval     = 16 * time.Millisecond // ~60 Hz display cadence
	DefaultServerAddress    = ":8080"
	DefaultPublishInterval  = 100 * time.Millisecond
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultNATSURL          = "nats://127.0.0.1:4222"
	DefaultNATSSubject      = "pulse.estimate"
	DefaultMQTTBroker       = "tcp://127.0.0.1:1883"
	DefaultMQTTTopic        = "pulse/estimate"
	DefaultMQTTClientID     = "pulse"
)

var (
	ErrUnknownSource      = errors.New("unknown source kind")
	ErrMissingSequenceDir = errors.New("source.sequence.dir must be set for the sequence source")
	ErrInvalidTick        = errors.New("engine.tick_interval must be positive")
	ErrInvalidPublish     = errors.New("transport.publish_interval must be positive")
	ErrMissingAddress     = errors.New("an enabled endpoint has no address")
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	LogFile   string          `yaml:"log_file"`  // Log destination while the terminal UI runs.
	Engine    EngineConfig    `yaml:"engine"`    // Signal processing settings.
	Source    SourceConfig    `yaml:"source"`    // Frame source settings.
	Server    ServerConfig    `yaml:"server"`    // HTTP API settings.
	Transport TransportConfig `yaml:"transport"` // Estimate publishing settings.
}

// EngineConfig holds the rPPG engine parameters.
type EngineConfig struct {
	SampleRate    float64       `yaml:"sample_rate"`    // Nominal sampling rate in Hz.
	WindowSize    float64       `yaml:"window_size"`    // Sliding window length in seconds.
	MinHeartRate  int           `yaml:"min_heart_rate"` // Lower clamp in bpm.
	MaxHeartRate  int           `yaml:"max_heart_rate"` // Upper clamp in bpm.
	TickInterval  time.Duration `yaml:"tick_interval"`  // Scheduler tick period.
	SpectralCheck bool          `yaml:"spectral_check"` // Cross-check estimates against the FFT peak.
}

// SourceConfig selects and configures the frame source.
type SourceConfig struct {
	Kind      string          `yaml:"kind"` // "synthetic" or "sequence".
	Synthetic SyntheticConfig `yaml:"synthetic"`
	Sequence  SequenceConfig  `yaml:"sequence"`
}

// SyntheticConfig parameterises the generated feed.
type SyntheticConfig struct {
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	BPM          float64       `yaml:"bpm"`
	Base         float64       `yaml:"base"`
	Amplitude    float64       `yaml:"amplitude"`
	Drift        float64       `yaml:"drift"`
	Noise        float64       `yaml:"noise"`
	AcquireDelay time.Duration `yaml:"acquire_delay"`
	Fail         bool          `yaml:"fail"` // Simulate a refused camera.
	Seed         int64         `yaml:"seed"`
}

// SequenceConfig points at a directory of frames.
type SequenceConfig struct {
	Dir  string `yaml:"dir"`
	Loop bool   `yaml:"loop"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Address     string `yaml:"address"`
	OpenBrowser bool   `yaml:"open_browser"`
}

// TransportConfig holds settings related to sending estimates to consumers.
type TransportConfig struct {
	PublishInterval  time.Duration `yaml:"publish_interval"`   // Snapshot polling interval.
	LogEstimates     bool          `yaml:"log_estimates"`      // Log every published estimate.
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve estimates on /ws.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send binary packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // e.g. "127.0.0.1:9090".
	NATSEnabled      bool          `yaml:"nats_enabled"`
	NATSURL          string        `yaml:"nats_url"`
	NATSSubject      string        `yaml:"nats_subject"`
	MQTTEnabled      bool          `yaml:"mqtt_enabled"`
	MQTTBroker       string        `yaml:"mqtt_broker"`
	MQTTTopic        string        `yaml:"mqtt_topic"`
	MQTTClientID     string        `yaml:"mqtt_client_id"`
}

// Default returns the built-in configuration.
func Default() Config {
	syn := camera.DefaultSyntheticConfig()
	return Config{
		LogLevel: DefaultLogLevel,
		Engine: EngineConfig{
			SampleRate:   rppg.DefaultSampleRate,
			WindowSize:   rppg.DefaultWindowSize,
			MinHeartRate: rppg.DefaultMinHeartRate,
			MaxHeartRate: rppg.DefaultMaxHeartRate,
			TickInterval: DefaultTickInterval,
		},
		Source: SourceConfig{
			Kind: SourceSynthetic,
			Synthetic: SyntheticConfig{
				Width:     syn.Width,
				Height:    syn.Height,
				BPM:       syn.BPM,
				Base:      syn.Base,
				Amplitude: syn.Amplitude,
				Drift:     syn.Drift,
				Noise:     syn.Noise,
				Seed:      syn.Seed,
			},
		},
		Server: ServerConfig{
			Enabled: true,
			Address: DefaultServerAddress,
		},
		Transport: TransportConfig{
			PublishInterval:  DefaultPublishInterval,
			WebSocketEnabled: true,
			UDPTargetAddress: DefaultUDPTargetAddress,
			NATSURL:          DefaultNATSURL,
			NATSSubject:      DefaultNATSSubject,
			MQTTBroker:       DefaultMQTTBroker,
			MQTTTopic:        DefaultMQTTTopic,
			MQTTClientID:     DefaultMQTTClientID,
		},
	}
}

// RPPG converts the engine section for the signal path.
func (e EngineConfig) RPPG() rppg.Config {
	return rppg.Config{
		SampleRate:   e.SampleRate,
		WindowSize:   e.WindowSize,
		MinHeartRate: e.MinHeartRate,
		MaxHeartRate: e.MaxHeartRate,
	}
}

// Camera converts the synthetic section for the camera package.
func (s SyntheticConfig) Camera() camera.SyntheticConfig {
	return camera.SyntheticConfig{
		Width:        s.Width,
		Height:       s.Height,
		BPM:          s.BPM,
		Base:         s.Base,
		Amplitude:    s.Amplitude,
		Drift:        s.Drift,
		Noise:        s.Noise,
		AcquireDelay: s.AcquireDelay,
		Fail:         s.Fail,
		Seed:         s.Seed,
	}
}

// NewSource builds the configured frame source.
func (s SourceConfig) NewSource() (camera.Source, error) {
	switch s.Kind {
	case SourceSynthetic:
		return camera.NewSynthetic(s.Synthetic.Camera()), nil
	case SourceSequence:
		if s.Sequence.Dir == "" {
			return nil, ErrMissingSequenceDir
		}
		return camera.NewSequence(s.Sequence.Dir, s.Sequence.Loop), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownSource, s.Kind)
	}
}

// Validate checks the engine parameters and every enabled endpoint.
func (c *Config) Validate() error {
	if err := c.Engine.RPPG().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if c.Engine.TickInterval <= 0 {
		return ErrInvalidTick
	}

	switch c.Source.Kind {
	case SourceSynthetic:
	case SourceSequence:
		if c.Source.Sequence.Dir == "" {
			return ErrMissingSequenceDir
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownSource, c.Source.Kind)
	}

	if c.Server.Enabled && c.Server.Address == "" {
		return fmt.Errorf("server.address: %w", ErrMissingAddress)
	}

	t := c.Transport
	if t.PublishInterval <= 0 {
		return ErrInvalidPublish
	}
	if t.UDPEnabled && t.UDPTargetAddress == "" {
		return fmt.Errorf("transport.udp_target_address: %w", ErrMissingAddress)
	}
	if t.NATSEnabled && (t.NATSURL == "" || t.NATSSubject == "") {
		return fmt.Errorf("transport.nats_url/nats_subject: %w", ErrMissingAddress)
	}
	if t.MQTTEnabled && (t.MQTTBroker == "" || t.MQTTTopic == "") {
		return fmt.Errorf("transport.mqtt_broker/mqtt_topic: %w", ErrMissingAddress)
	}
	return nil
}

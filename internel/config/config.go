package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"Jacknode/pkg/graph"
	"Jacknode/pkg/host"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when present.
const DefaultFile = "config.yml"

// EnvFile names the environment variable overriding DefaultFile.
const EnvFile = "JACKNODE_CONFIG"

//go:embed schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("schema.json", schemaJSON)

type Endpoint struct {
	ClientName       string        `yaml:"client_name"`
	Destinations     []string      `yaml:"destinations"`
	PlaybackChannels []int         `yaml:"playback_channels"`
	PollInterval     time.Duration `yaml:"poll_interval"`
}

type Config struct {
	Host struct {
		Backend     string  `yaml:"backend"`
		ServerStart bool    `yaml:"server_start"`
		DeviceName  string  `yaml:"device_name"`
		SampleRate  float64 `yaml:"sample_rate"`
		BufferSize  int     `yaml:"buffer_size"`
		Capture     int     `yaml:"capture"`
		Playback    int     `yaml:"playback"`
	} `yaml:"host"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Passthrough Endpoint `yaml:"passthrough"`
	Sine        Endpoint `yaml:"sine"`
}

// Default reproduces the stock programs: a JACK server that may be started on
// demand, both endpoints feeding audio_receiver:input, the tone also on the
// second physical playback port.
func Default() *Config {
	var config Config
	config.Host.Backend = "jack"
	config.Host.ServerStart = true
	config.Host.DeviceName = "ASIO4ALL v2"
	config.Host.Capture = 2
	config.Host.Playback = 2
	config.Log.Level = "info"
	config.Passthrough = Endpoint{
		ClientName:       "simple_client",
		Destinations:     []string{"audio_receiver:input"},
		PlaybackChannels: []int{},
		PollInterval:     time.Second,
	}
	config.Sine = Endpoint{
		ClientName:       "sine_generator",
		Destinations:     []string{"audio_receiver:input"},
		PlaybackChannels: []int{2},
		PollInterval:     time.Second,
	}
	return &config
}

// Parse validates data against the schema and overlays it on the defaults.
func Parse(data []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	if err := schema.Validate(payload); err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	return config, nil
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return config, nil
}

// Load reads the file named by JACKNODE_CONFIG, or DefaultFile when it exists.
func Load() (*Config, error) {
	if filename := os.Getenv(EnvFile); filename != "" {
		return LoadConfig(filename)
	}
	config, err := LoadConfig(DefaultFile)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

func NewHost(config *Config) (graph.Host, error) {
	switch config.Host.Backend {
	case "jack":
		return &host.JACK{
			NoStartServer: !config.Host.ServerStart,
			Logger:        slog.Default(),
		}, nil
	case "asio":
		return &host.ASIO{
			DeviceName: config.Host.DeviceName,
			SampleRate: config.Host.SampleRate,
			Inputs:     config.Host.Capture,
			Outputs:    config.Host.Playback,
			BufferSize: config.Host.BufferSize,
		}, nil
	case "loopback":
		return host.NewLoopback(config.Host.SampleRate, config.Host.BufferSize, max(config.Host.Capture, config.Host.Playback)), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", config.Host.Backend)
	}
}

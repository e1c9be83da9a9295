// Package config is the YAML+env-override configuration loader shared by
// the coordinator, worker and participant binaries, following the
// config.yaml + env-override + sync.Once singleton pattern of this stack.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Coordinator   CoordinatorConfig   `yaml:"coordinator"`
	Participant   ParticipantConfig   `yaml:"participant"`
	Worker        WorkerConfig        `yaml:"worker"`
	Postgres      PostgresConfig      `yaml:"pg"`
	PhantomServer PhantomServerConfig `yaml:"phantom_server"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Log           LogConfig           `yaml:"log"`
}

type CoordinatorConfig struct {
	URL  string `yaml:"url"`
	Port string `yaml:"port"`
}

type ParticipantConfig struct {
	ServerURL     string   `yaml:"server_url"`
	Port          string   `yaml:"port"`
	ClientID      int      `yaml:"client_id"`
	SessionID     string   `yaml:"session_id"`
	CRSSeed       string   `yaml:"crs_seed"`
	PeerEndpoints []string `yaml:"peer_endpoints"`
}

type WorkerConfig struct {
	Schema     string `yaml:"schema"`
	Concurrent int    `yaml:"concurrent"`
}

type PostgresConfig struct {
	URL     string `yaml:"url"`
	MaxSize int    `yaml:"max_size"`
}

// PhantomServerConfig holds the phantom_server section: a CRS seed string
// and a participant count. Both are loaded and env-overridable, but no
// binary reads them: the coordinator takes each session's participant count
// from the create-session request body, and a participant takes its seed
// from participant.crs_seed.
type PhantomServerConfig struct {
	CRSSeed           string `yaml:"crs_seed"`
	ParticipantNumber int    `yaml:"participant_number"`
}

type TelemetryConfig struct {
	ExporterEndpoint string `yaml:"exporter_endpoint"`
	ServiceName      string `yaml:"service_name"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the process-wide config singleton, loading it from
// CONFIG_PATH (default config.yaml) on first call.
func Get() *Config {
	once.Do(func() {
		cfg, err := LoadConfig(getEnv("CONFIG_PATH", "config.yaml"))
		if err != nil {
			slog.Warn("config: failed to load config file, using defaults", "error", err)
		}
		if cfg == nil {
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		instance = cfg
	})
	return instance
}

func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Coordinator.URL = getEnv("FHECOORD_COORDINATOR_URL", c.Coordinator.URL)
	c.Coordinator.Port = getEnv("FHECOORD_COORDINATOR_PORT", c.Coordinator.Port)

	c.Participant.ServerURL = getEnv("FHECOORD_PARTICIPANT_SERVER_URL", c.Participant.ServerURL)
	c.Participant.Port = getEnv("FHECOORD_PARTICIPANT_PORT", c.Participant.Port)
	if v := getEnvInt("FHECOORD_PARTICIPANT_CLIENT_ID", -1); v >= 0 {
		c.Participant.ClientID = v
	}
	c.Participant.SessionID = getEnv("FHECOORD_PARTICIPANT_SESSION_ID", c.Participant.SessionID)
	c.Participant.CRSSeed = getEnv("FHECOORD_PARTICIPANT_CRS_SEED", c.Participant.CRSSeed)
	if peers := getEnv("FHECOORD_PARTICIPANT_PEER_ENDPOINTS", ""); peers != "" {
		c.Participant.PeerEndpoints = splitCSV(peers)
	}

	if v := getEnvInt("FHECOORD_WORKER_CONCURRENT", 0); v > 0 {
		c.Worker.Concurrent = v
	}
	c.Worker.Schema = getEnv("FHECOORD_WORKER_SCHEMA", c.Worker.Schema)

	c.Postgres.URL = getEnv("FHECOORD_PG_URL", c.Postgres.URL)
	if v := getEnvInt("FHECOORD_PG_MAX_SIZE", 0); v > 0 {
		c.Postgres.MaxSize = v
	}

	c.PhantomServer.CRSSeed = getEnv("FHECOORD_CRS_SEED", c.PhantomServer.CRSSeed)
	if v := getEnvInt("FHECOORD_PARTICIPANT_NUMBER", 0); v > 0 {
		c.PhantomServer.ParticipantNumber = v
	}

	c.Telemetry.ExporterEndpoint = getEnv("FHECOORD_EXPORTER_ENDPOINT", c.Telemetry.ExporterEndpoint)
	c.Telemetry.ServiceName = getEnv("FHECOORD_SERVICE_NAME", c.Telemetry.ServiceName)

	c.Log.Level = getEnv("FHECOORD_LOG_LEVEL", c.Log.Level)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func splitCSV(s string) []string {
	parts := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

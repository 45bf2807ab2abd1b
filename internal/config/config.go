package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ReplicationConfig holds send-side tuning.
type ReplicationConfig struct {
	SnapshotsPerSecond int     `json:"snapshotsPerSecond" mapstructure:"snapshotsPerSecond"`
	PositionThreshold  float64 `json:"positionThreshold" mapstructure:"positionThreshold"`
	RotationThreshold  float64 `json:"rotationThreshold" mapstructure:"rotationThreshold"`
	ScaleThreshold     float64 `json:"scaleThreshold" mapstructure:"scaleThreshold"`
	BackgroundHz       int     `json:"backgroundHz" mapstructure:"backgroundHz"`
}

// TransportConfig selects and parameterizes the snapshot transport.
type TransportConfig struct {
	Type        string `json:"type" mapstructure:"type"`
	URL         string `json:"url" mapstructure:"url"`
	Session     string `json:"session" mapstructure:"session"`
	Participant string `json:"participant" mapstructure:"participant"`
}

// OTelConfig holds OpenTelemetry export settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("replication.snapshotsPerSecond", 60)
	viper.SetDefault("replication.positionThreshold", 0.001)
	viper.SetDefault("replication.rotationThreshold", 0.001)
	viper.SetDefault("replication.scaleThreshold", 1e-6)
	viper.SetDefault("replication.backgroundHz", 30)

	viper.SetDefault("transport.type", "memory")
	viper.SetDefault("transport.url", "ws://localhost:8080/session")
	viper.SetDefault("transport.session", "default")
	viper.SetDefault("transport.participant", "")

	viper.SetDefault("journal.enabled", false)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "transformsync")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "transformsync-metrics")
	viper.SetDefault("influx.bucket", "replication")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "transformsync")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("transformsync.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetReplicationConfig returns the send-side tuning block.
func GetReplicationConfig() ReplicationConfig {
	return ReplicationConfig{
		SnapshotsPerSecond: viper.GetInt("replication.snapshotsPerSecond"),
		PositionThreshold:  viper.GetFloat64("replication.positionThreshold"),
		RotationThreshold:  viper.GetFloat64("replication.rotationThreshold"),
		ScaleThreshold:     viper.GetFloat64("replication.scaleThreshold"),
		BackgroundHz:       viper.GetInt("replication.backgroundHz"),
	}
}

// GetTransportConfig returns the transport block.
func GetTransportConfig() TransportConfig {
	return TransportConfig{
		Type:        viper.GetString("transport.type"),
		URL:         viper.GetString("transport.url"),
		Session:     viper.GetString("transport.session"),
		Participant: viper.GetString("transport.participant"),
	}
}

// GetOTelConfig returns the OpenTelemetry block.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

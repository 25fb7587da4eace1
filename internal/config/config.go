package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `json:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" mapstructure:"shutdownTimeout"`
}

// DatabaseConfig holds connection settings for the marker store.
// Postgres is tried first; SQLite is the local fallback.
type DatabaseConfig struct {
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Username   string `json:"username" mapstructure:"username"`
	Password   string `json:"password" mapstructure:"password"`
	Database   string `json:"database" mapstructure:"database"`
	SqlitePath string `json:"sqlitePath" mapstructure:"sqlitePath"`
}

// LocalUploadConfig holds local-disk upload backend settings.
type LocalUploadConfig struct {
	Dir     string `json:"dir" mapstructure:"dir"`
	BaseURL string `json:"baseUrl" mapstructure:"baseUrl"`
}

// CloudUploadConfig holds remote object-storage upload backend settings.
type CloudUploadConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Preset string `json:"preset" mapstructure:"preset"`
}

// UploadConfig selects and configures the upload backend. Strategy is a
// deployment-time choice; callers never branch on it.
type UploadConfig struct {
	Strategy string            `json:"strategy" mapstructure:"strategy"`
	Local    LocalUploadConfig `json:"local" mapstructure:"local"`
	Cloud    CloudUploadConfig `json:"cloud" mapstructure:"cloud"`
}

// WizardConfig holds client wizard policy.
type WizardConfig struct {
	RequireMedia bool `json:"requireMedia" mapstructure:"requireMedia"`
}

// InfluxConfig holds activity-metrics settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
}

// GraylogConfig holds GELF log shipping settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("server.addr", ":4000")
	viper.SetDefault("server.shutdownTimeout", 10*time.Second)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "puntomapa")
	viper.SetDefault("db.sqlitePath", "./puntomapa.db")

	viper.SetDefault("upload.strategy", "local")
	viper.SetDefault("upload.local.dir", "./uploads")
	viper.SetDefault("upload.local.baseUrl", "http://localhost:4000")
	viper.SetDefault("upload.cloud.url", "")
	viper.SetDefault("upload.cloud.preset", "")

	viper.SetDefault("wizard.requireMedia", false)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "puntomapa-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetConfigName("puntomapa.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetServerConfig returns the HTTP server configuration.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            viper.GetString("server.addr"),
		ShutdownTimeout: viper.GetDuration("server.shutdownTimeout"),
	}
}

// GetDatabaseConfig returns the database configuration.
func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:       viper.GetString("db.host"),
		Port:       viper.GetString("db.port"),
		Username:   viper.GetString("db.username"),
		Password:   viper.GetString("db.password"),
		Database:   viper.GetString("db.database"),
		SqlitePath: viper.GetString("db.sqlitePath"),
	}
}

// GetUploadConfig returns the upload backend configuration.
func GetUploadConfig() UploadConfig {
	return UploadConfig{
		Strategy: viper.GetString("upload.strategy"),
		Local: LocalUploadConfig{
			Dir:     viper.GetString("upload.local.dir"),
			BaseURL: viper.GetString("upload.local.baseUrl"),
		},
		Cloud: CloudUploadConfig{
			URL:    viper.GetString("upload.cloud.url"),
			Preset: viper.GetString("upload.cloud.preset"),
		},
	}
}

// GetWizardConfig returns the wizard policy configuration.
func GetWizardConfig() WizardConfig {
	return WizardConfig{
		RequireMedia: viper.GetBool("wizard.requireMedia"),
	}
}

// GetInfluxConfig returns the metrics configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
	}
}

// GetGraylogConfig returns the log shipping configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

package config

import (
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

type Config struct {
	// Port Settings
	Host        string `json:"host"`        // The domain name of the server.
	ServerAddr  string `json:"serverAddr"`  // The address the server endpoint binds to.
	MetricsPath string `json:"metricsPath"` // The path the Prometheus metrics are exposed on.

	Auth TokenConf `json:"auth"`

	Postgres PostgresConf `json:"postgres"`
	// Optional read replica; reads are routed there when set.
	PostgresReplica *PostgresConf `json:"postgresReplica"`

	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`

	SMTP struct {
		Host   string `json:"host"`
		Port   int    `json:"port"`
		User   string `json:"user"`
		Pass   string `json:"password"`
		Sender string `json:"sender"`
	} `json:"smtp"`

	Cron struct {
		SessionPurgeSpec string `json:"sessionPurgeSpec"` // e.g. "0 * * * *"
		AutoArchiveSpec  string `json:"autoArchiveSpec"`  // e.g. "30 3 * * *"
		AutoArchiveDays  int    `json:"autoArchiveDays"`  // completed tasks older than this get archived
	} `json:"cron"`
}

type PostgresConf struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	DBName   string `json:"dbname"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"sslmode"`
	TimeZone string `json:"TimeZone"`
}

type TokenConf struct {
	AccessTokenSecret      string `json:"accessTokenSecret"`
	RefreshTokenSecret     string `json:"refreshTokenSecret"`
	AccessTokenExpiryHour  int    `json:"accessTokenExpiryHour"`
	RefreshTokenExpiryHour int    `json:"refreshTokenExpiryHour"`
}

var (
	once   sync.Once
	config *Config
)

func GetConfig() *Config {
	once.Do(func() {
		config = initConfig()
	})
	return config
}

func IsDebugMode() bool {
	return gin.Mode() == gin.DebugMode
}

// initConfig reads the configuration file. In debug mode the path comes from
// TASKBOARD_DEBUG_CONFIG_PATH (default ./etc/debug-config.yaml), otherwise
// the config.yaml mounted from the ConfigMap is used.
func initConfig() *Config {
	config := &Config{}
	var configPath string
	if IsDebugMode() {
		if os.Getenv("TASKBOARD_DEBUG_CONFIG_PATH") != "" {
			configPath = os.Getenv("TASKBOARD_DEBUG_CONFIG_PATH")
		} else {
			configPath = "./etc/debug-config.yaml"
		}
	} else {
		configPath = "/etc/config/config.yaml"
	}
	klog.Info("config path: ", configPath)

	if err := readConfig(configPath, config); err != nil {
		klog.Error("init config", err)
		panic(err)
	}
	applyDefaults(config)
	return config
}

func readConfig(filePath string, config *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

func applyDefaults(c *Config) {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8088"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	if c.Auth.AccessTokenExpiryHour == 0 {
		c.Auth.AccessTokenExpiryHour = 1
	}
	if c.Auth.RefreshTokenExpiryHour == 0 {
		c.Auth.RefreshTokenExpiryHour = 168
	}
	if c.Cron.SessionPurgeSpec == "" {
		c.Cron.SessionPurgeSpec = "0 * * * *"
	}
	if c.Cron.AutoArchiveSpec == "" {
		c.Cron.AutoArchiveSpec = "30 3 * * *"
	}
	if c.Cron.AutoArchiveDays == 0 {
		c.Cron.AutoArchiveDays = 30
	}
}

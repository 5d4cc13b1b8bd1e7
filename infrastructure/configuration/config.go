package configuration

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"social-publisher/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Worker      Worker      `json:"worker"`
	Retry       Retry       `json:"retry"`
	Breaker     Breaker     `json:"breaker"`
	OAuth       OAuth       `json:"oauth"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	Graph       Graph       `json:"graph"`
}

type App struct {
	Port      int    `json:"port"`
	SecretKey string `json:"secretKey"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mongo Db `json:"mongo"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Worker controls the publishing pool. JobsPerSecond caps aggregate
// dispatch independent of any per-platform limit.
type Worker struct {
	Concurrency    int     `json:"concurrency"`
	JobsPerSecond  float64 `json:"jobsPerSecond"`
	PollIntervalMs int     `json:"pollIntervalMs"`
	QueueKey       string  `json:"queueKey"`
}

type Retry struct {
	MaxAttempts  int `json:"maxAttempts"`
	BaseDelaySec int `json:"baseDelaySec"`
	MaxDelaySec  int `json:"maxDelaySec"`
}

type Breaker struct {
	FailureThreshold int `json:"failureThreshold"`
	RecoveryTimeout  int `json:"recoveryTimeoutSec"`
	MonitoringPeriod int `json:"monitoringPeriodSec"`
	SuccessThreshold int `json:"successThreshold"`
}

// OAuth holds third-party platform OAuth client credentials.
type OAuth struct {
	Facebook  OAuthClient `json:"facebook"`
	Instagram OAuthClient `json:"instagram"`
	Twitter   OAuthClient `json:"twitter"`
	YouTube   OAuthClient `json:"youtube"`
	LinkedIn  OAuthClient `json:"linkedin"`
}

type OAuthClient struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectURI"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

// Graph pins platform API base URLs and versions. Versions are
// configuration, not logic.
type Graph struct {
	MetaVersion     string `json:"metaVersion"`     // e.g. v19.0
	TwitterBaseURL  string `json:"twitterBaseURL"`  // e.g. https://api.twitter.com
	LinkedInBaseURL string `json:"linkedinBaseURL"` // e.g. https://api.linkedin.com
}

var C Config

func init() {
	LoadConfig()
	initDefaults(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	if env := os.Getenv("ENV"); env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

// initDefaults fills env-var fallbacks and hard defaults so the worker can
// start from a bare environment.
func initDefaults(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.RedisClient.Host == "" {
		C.RedisClient.Host = os.Getenv("REDIS_HOST")
	}
	if C.RedisClient.Port == "" {
		C.RedisClient.Port = os.Getenv("REDIS_PORT")
	}
	if C.App.Port == 0 {
		if v := os.Getenv("PORT"); v != "" {
			if p, err := strconv.Atoi(v); err == nil {
				C.App.Port = p
			}
		}
		if C.App.Port == 0 {
			C.App.Port = 8080
		}
	}
	if C.App.SecretKey == "" {
		C.App.SecretKey = os.Getenv("SECRET_KEY")
	}

	if C.Worker.Concurrency <= 0 {
		C.Worker.Concurrency = 8
	}
	if C.Worker.JobsPerSecond <= 0 {
		C.Worker.JobsPerSecond = 20
	}
	if C.Worker.PollIntervalMs <= 0 {
		C.Worker.PollIntervalMs = 500
	}
	if C.Worker.QueueKey == "" {
		C.Worker.QueueKey = "publish_jobs"
	}

	if C.Retry.MaxAttempts <= 0 {
		C.Retry.MaxAttempts = 5
	}
	if C.Retry.BaseDelaySec <= 0 {
		C.Retry.BaseDelaySec = 30
	}
	if C.Retry.MaxDelaySec <= 0 {
		C.Retry.MaxDelaySec = int((30 * time.Minute).Seconds())
	}

	if C.Breaker.FailureThreshold <= 0 {
		C.Breaker.FailureThreshold = 5
	}
	if C.Breaker.RecoveryTimeout <= 0 {
		C.Breaker.RecoveryTimeout = 60
	}
	if C.Breaker.MonitoringPeriod <= 0 {
		C.Breaker.MonitoringPeriod = 300
	}
	if C.Breaker.SuccessThreshold <= 0 {
		C.Breaker.SuccessThreshold = 2
	}

	if C.Graph.MetaVersion == "" {
		C.Graph.MetaVersion = "v19.0"
	}
	if C.Graph.TwitterBaseURL == "" {
		C.Graph.TwitterBaseURL = "https://api.twitter.com"
	}
	if C.Graph.LinkedInBaseURL == "" {
		C.Graph.LinkedInBaseURL = "https://api.linkedin.com"
	}
}

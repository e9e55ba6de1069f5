package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Security SecurityConfig `mapstructure:"security"`
	Night    NightConfig    `mapstructure:"night"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // memory | sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type StorageConfig struct {
	Mode       string `mapstructure:"mode"` // disk | s3
	DiskDir    string `mapstructure:"disk_dir"`
	DiskBase   string `mapstructure:"disk_base_url"`
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3Region   string `mapstructure:"s3_region"`
	S3Key      string `mapstructure:"s3_key"`
	S3Secret   string `mapstructure:"s3_secret"`
	S3Base     string `mapstructure:"s3_base_url"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	MagicLinkTTL   time.Duration `mapstructure:"magic_link_ttl"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

type NightConfig struct {
	// MaxHours is the sweep cutoff: active nights older than this are
	// auto-closed by the scheduler.
	MaxHours       int `mapstructure:"max_hours"`
	SweepIntervalM int `mapstructure:"sweep_interval_m"`
	ReportHide     int `mapstructure:"report_hide_threshold"`
	FeedPageSize   int `mapstructure:"feed_page_size"`
}

type RealtimeConfig struct {
	KeepaliveS      int `mapstructure:"keepalive_s"`
	LiveLocationTTL int `mapstructure:"live_location_ttl_s"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/nightout.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("storage.mode", "disk")
	v.SetDefault("storage.disk_dir", "./data/media")
	v.SetDefault("storage.disk_base_url", "/media")
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.magic_link_ttl", "15m")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("night.max_hours", 24)
	v.SetDefault("night.sweep_interval_m", 10)
	v.SetDefault("night.report_hide_threshold", 3)
	v.SetDefault("night.feed_page_size", 20)
	v.SetDefault("realtime.keepalive_s", 30)
	v.SetDefault("realtime.live_location_ttl_s", 300)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

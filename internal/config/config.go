package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Qiniu    QiniuConfig    `mapstructure:"qiniu"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	DevelopMode     bool     `mapstructure:"develop_mode"`
	MachineID       int64    `mapstructure:"machine_id"`
	StartTime       string   `mapstructure:"start_time"`
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // 秒
	CORSOrigins     []string `mapstructure:"cors_origins"`
	Rate            float64  `mapstructure:"rate"`
	Capacity        int64    `mapstructure:"capacity"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // mysql / postgres / sqlite
	DSN    string `mapstructure:"dsn"`
	Debug  bool   `mapstructure:"debug"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	AccessSecret  string `mapstructure:"access_secret"`
	RefreshSecret string `mapstructure:"refresh_secret"`
	AccessTTL     int    `mapstructure:"access_ttl"`  // 秒
	RefreshTTL    int    `mapstructure:"refresh_ttl"` // 秒
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	// CodeLength 验证码位数
	CodeLength int `mapstructure:"code_length"`
}

type QiniuConfig struct {
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Domain    string `mapstructure:"domain"`
	Region    string `mapstructure:"region"`
}

type LoggerConfig struct {
	Level      int    `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
	Console    bool   `mapstructure:"console"`
}

type OutboxConfig struct {
	BatchSize int `mapstructure:"batch_size"`
	Interval  int `mapstructure:"interval"` // 毫秒
}

func (c JWTConfig) AccessDuration() time.Duration {
	return time.Duration(c.AccessTTL) * time.Second
}

func (c JWTConfig) RefreshDuration() time.Duration {
	return time.Duration(c.RefreshTTL) * time.Second
}

func (c OutboxConfig) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.develop_mode", false)
	v.SetDefault("server.machine_id", 1)
	v.SetDefault("server.start_time", "2024-06-19") // snowflake 起始时间
	v.SetDefault("server.shutdown_timeout", 30)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate", 200)
	v.SetDefault("server.capacity", 1000)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "user:password@tcp(127.0.0.1:3306)/community?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("database.debug", false)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.access_secret", "secret-key")
	v.SetDefault("jwt.refresh_secret", "refresh-key")
	v.SetDefault("jwt.access_ttl", 1800)
	v.SetDefault("jwt.refresh_ttl", 86400)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic", "community-events")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.code_length", 6)

	v.SetDefault("qiniu.region", "z0")

	v.SetDefault("logger.level", 0)
	v.SetDefault("logger.path", "./logs/community.log")
	v.SetDefault("logger.max_size", 16)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.console", true)

	v.SetDefault("outbox.batch_size", 200)
	v.SetDefault("outbox.interval", 1000)
}

// Load 读取配置：默认值 < 配置文件 < 环境变量（COMMUNITY_SERVER_PORT 形式）。
// path 为空时只使用默认值和环境变量。
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("community")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

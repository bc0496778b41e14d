package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig
	Bus        BusConfig
	Checker    CheckerConfig
	Alarm      AlarmConfig
	Cache      CacheConfig
	Database   DatabaseConfig
	S3         S3Config
	NATS       NATSConfig
	CloudWatch CloudWatchConfig
	RateLimit  RateLimitConfig
	LogLevel   string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxPayloadBytes int64
	AllowedOrigins  []string
}

type BusConfig struct {
	Capacity int
}

// ServiceSpec описывает сервис из списка мониторинга
type ServiceSpec struct {
	Name string `yaml:"name"`
	API  string `yaml:"api"`
}

type CheckerConfig struct {
	Interval     time.Duration
	SweepEvery   int
	ProbeTimeout time.Duration
	DrainTimeout time.Duration
	Services     []ServiceSpec
}

type AlarmConfig struct {
	ChannelTimeout time.Duration
	SMTP           SMTPConfig
}

type SMTPConfig struct {
	Enabled            bool
	Host               string
	Port               int
	Username           string
	Password           string
	From               string
	To                 []string
	Subject            string
	InsecureSkipVerify bool
}

type CacheConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Key      string
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	URLMode         string
	PresignedTTL    time.Duration
}

type NATSConfig struct {
	Enabled    bool
	URL        string
	Stream     string
	Subject    string
	MaxAge     time.Duration
	AckTimeout time.Duration
}

type CloudWatchConfig struct {
	Enabled           bool
	Namespace         string
	Region            string
	Endpoint          string
	AccessKeyID       string
	SecretAccessKey   string
	Dimensions        map[string]string
	StorageResolution int32
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// AgentConfig содержит настройки cmd/node-agent
type AgentConfig struct {
	ServerURL     string
	Interval      time.Duration
	DiskPath      string
	SecondaryPath string
	Timeout       time.Duration
	LogLevel      string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	var errs []string
	durationOf := func(key, def string) time.Duration {
		d, err := parseDuration(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
		}
		return d
	}
	intOf := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     durationOf("SERVER_READ_TIMEOUT", "10s"),
			WriteTimeout:    durationOf("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:     durationOf("SERVER_IDLE_TIMEOUT", "60s"),
			RequestTimeout:  durationOf("SERVER_REQUEST_TIMEOUT", "10s"),
			ShutdownTimeout: durationOf("SERVER_SHUTDOWN_TIMEOUT", "10s"),
			MaxPayloadBytes: int64(intOf("SERVER_MAX_PAYLOAD_KB", 64)) * 1024,
			AllowedOrigins:  splitCSV(getEnv("ALLOWED_ORIGINS", "")),
		},
		Bus: BusConfig{
			Capacity: intOf("BUS_CAPACITY", 32),
		},
		Checker: CheckerConfig{
			Interval:     durationOf("CHECK_INTERVAL", "300s"),
			SweepEvery:   intOf("CHECK_SWEEP_EVERY", 10),
			ProbeTimeout: durationOf("CHECK_PROBE_TIMEOUT", "2s"),
			DrainTimeout: durationOf("CHECK_DRAIN_TIMEOUT", "10s"),
		},
		Alarm: AlarmConfig{
			ChannelTimeout: durationOf("ALARM_CHANNEL_TIMEOUT", "10s"),
			SMTP: SMTPConfig{
				Enabled:            getEnvBool("SMTP_ENABLED", false),
				Host:               getEnv("SMTP_HOST", ""),
				Port:               intOf("SMTP_PORT", 587),
				Username:           getEnv("SMTP_USERNAME", ""),
				Password:           getEnv("SMTP_PASSWORD", ""),
				From:               getEnv("SMTP_FROM", ""),
				To:                 splitCSV(getEnv("SMTP_TO", "")),
				Subject:            getEnv("SMTP_SUBJECT", "Resource monitoring alert"),
				InsecureSkipVerify: getEnvBool("SMTP_INSECURE_SKIP_VERIFY", false),
			},
		},
		Cache: CacheConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       intOf("REDIS_DB", 0),
			Key:      getEnv("REDIS_KEY", "health:nodes"),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "health"),
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "ru-central1"),
			Endpoint:        getEnv("S3_ENDPOINT", "https://storage.yandexcloud.net"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "reports"),
			URLMode:         getEnv("S3_URL_MODE", "public"),
			PresignedTTL:    durationOf("S3_PRESIGNED_TTL", "5m"),
		},
		NATS: NATSConfig{
			Enabled:    getEnvBool("NATS_ENABLED", false),
			URL:        getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:     getEnv("NATS_STREAM", "HEALTH"),
			Subject:    getEnv("NATS_SUBJECT", "health.reports"),
			MaxAge:     durationOf("NATS_MAX_AGE", "168h"),
			AckTimeout: durationOf("NATS_ACK_TIMEOUT", "5s"),
		},
		CloudWatch: CloudWatchConfig{
			Enabled:           getEnvBool("CLOUDWATCH_ENABLED", false),
			Namespace:         getEnv("CLOUDWATCH_NAMESPACE", "HealthChecker/Fleet"),
			Region:            getEnv("AWS_REGION", "us-east-1"),
			Endpoint:          getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Dimensions:        parseDimensions(getEnv("CLOUDWATCH_DIMENSIONS", "")),
			StorageResolution: int32(intOf("CLOUDWATCH_STORAGE_RESOLUTION", 60)),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			RPS:     getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst:   intOf("RATE_LIMIT_BURST", 20),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	services, err := loadServices(getEnv("MONITORED_SERVICES", ""), getEnv("SERVICES_FILE", ""))
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.Checker.Services = services

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность включенных компонентов
func (c *Config) Validate() error {
	if c.Bus.Capacity < 1 {
		return fmt.Errorf("BUS_CAPACITY must be positive, got %d", c.Bus.Capacity)
	}
	if c.Checker.Interval <= 0 {
		return fmt.Errorf("CHECK_INTERVAL must be positive")
	}
	if c.Checker.SweepEvery < 1 {
		return fmt.Errorf("CHECK_SWEEP_EVERY must be positive, got %d", c.Checker.SweepEvery)
	}
	if c.Alarm.SMTP.Enabled && (c.Alarm.SMTP.Host == "" || c.Alarm.SMTP.From == "" || len(c.Alarm.SMTP.To) == 0) {
		return fmt.Errorf("SMTP_HOST, SMTP_FROM and SMTP_TO are required when SMTP_ENABLED=true")
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func LoadAgent() (*AgentConfig, error) {
	_ = godotenv.Load()

	interval, err := parseDuration(getEnv("AGENT_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid AGENT_INTERVAL: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("AGENT_INTERVAL must be positive")
	}

	timeout, err := parseDuration(getEnv("AGENT_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid AGENT_TIMEOUT: %w", err)
	}

	return &AgentConfig{
		ServerURL:     strings.TrimRight(getEnv("AGENT_SERVER_URL", "http://localhost:8080"), "/"),
		Interval:      interval,
		DiskPath:      getEnv("AGENT_DISK_PATH", "/"),
		SecondaryPath: getEnv("AGENT_SECONDARY_DISK_PATH", ""),
		Timeout:       timeout,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

// loadServices: файл SERVICES_FILE имеет приоритет над MONITORED_SERVICES
func loadServices(inline, path string) ([]ServiceSpec, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read SERVICES_FILE: %w", err)
		}
		return parseServicesYAML(data)
	}
	return parseServices(inline)
}

type servicesFile struct {
	Services []ServiceSpec `yaml:"services"`
}

func parseServicesYAML(data []byte) ([]ServiceSpec, error) {
	var file servicesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse SERVICES_FILE: %w", err)
	}
	return validServices(file.Services)
}

// parseServices разбирает "name=url,name2=url2"
func parseServices(raw string) ([]ServiceSpec, error) {
	services := make([]ServiceSpec, 0)
	for _, item := range splitCSV(raw) {
		name, api, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("invalid MONITORED_SERVICES entry %q: expected name=url", item)
		}
		services = append(services, ServiceSpec{Name: name, API: api})
	}
	return validServices(services)
}

func validServices(services []ServiceSpec) ([]ServiceSpec, error) {
	seen := make(map[string]struct{}, len(services))
	for _, s := range services {
		if s.Name == "" || s.API == "" {
			return nil, fmt.Errorf("service entry requires name and api, got %+v", s)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("duplicate service name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return services, nil
}

// parseDimensions разбирает "Env=prod,Team=ops"
func parseDimensions(raw string) map[string]string {
	dims := make(map[string]string)
	for _, item := range splitCSV(raw) {
		if key, value, ok := strings.Cut(item, "="); ok && key != "" {
			dims[key] = value
		}
	}
	return dims
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string   `env:"PORT" envDefault:"3000"`
		ReadTimeout     int      `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int      `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int      `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int      `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
		AllowedOrigins  []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
		AutoMigrate        bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"336"` // 单位为小时，14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	NewUser struct {
		PasswordLength int `env:"PASSWORD_LENGTH" envDefault:"12"`
	} `envPrefix:"NEW_USER_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD,required"`
		} `envPrefix:"USER_"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain string `env:"USER_DOMAIN,required"`
		SMTP       struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		Queue          string `env:"QUEUE" envDefault:"email_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	Scheduling struct {
		StrictMode      bool    `env:"STRICT_MODE" envDefault:"false"`
		MaxHoursPerDay  float64 `env:"MAX_HOURS_PER_DAY" envDefault:"12"`
		MaxHoursPerWeek float64 `env:"MAX_HOURS_PER_WEEK" envDefault:"60"`
		MinRestGapHours float64 `env:"MIN_REST_GAP_HOURS" envDefault:"8"`
		TimeZone        string  `env:"TIME_ZONE" envDefault:"UTC"`
		RulesCacheTTL   int     `env:"RULES_CACHE_TTL" envDefault:"300"`
	} `envPrefix:"SCHEDULING_"`
	Outbox struct {
		PollInterval int `env:"POLL_INTERVAL" envDefault:"5"`
		BatchSize    int `env:"BATCH_SIZE" envDefault:"100"`
		MaxAttempts  int `env:"MAX_ATTEMPTS" envDefault:"5"`
		Concurrency  int `env:"CONCURRENCY" envDefault:"4"`
		ClaimTimeout int `env:"CLAIM_TIMEOUT" envDefault:"60"` // 认领后未完成投递的事件在超时后可以被重新认领
	} `envPrefix:"OUTBOX_"`
	Query struct {
		DefaultNotificationLimit int `env:"DEFAULT_NOTIFICATION_LIMIT" envDefault:"50"`
		DefaultAuditLogLimit     int `env:"DEFAULT_AUDIT_LOG_LIMIT" envDefault:"100"`
		MaxLimit                 int `env:"MAX_LIMIT" envDefault:"500"`
	} `envPrefix:"QUERY_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location 返回排班统计使用的时区
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Scheduling.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 %q: %w", c.Scheduling.TimeZone, err)
	}
	return loc, nil
}

// DefaultRules 返回未被站点覆盖时使用的排班规则
func (c *Config) DefaultRules() domain.SchedulingRules {
	return domain.SchedulingRules{
		StrictMode:      c.Scheduling.StrictMode,
		MaxHoursPerDay:  c.Scheduling.MaxHoursPerDay,
		MaxHoursPerWeek: c.Scheduling.MaxHoursPerWeek,
		MinRestGapHours: c.Scheduling.MinRestGapHours,
	}
}

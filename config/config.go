package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Bot      BotConfig      `mapstructure:"bot"`
	Slots    SlotsConfig    `mapstructure:"slots"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path         string `mapstructure:"path"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// BotConfig 聊天侧配置：管理员、群组要求、广播节奏
type BotConfig struct {
	AdminIDs        []int64         `mapstructure:"admin_ids"`
	OwnerChatID     int64           `mapstructure:"owner_chat_id"`
	RequiredChannel string          `mapstructure:"required_channel"`
	PayCardNumber   string          `mapstructure:"pay_card_number"`
	SupportContact  string          `mapstructure:"support_contact"` // 客服联系方式，展示在 /contact
	BroadcastSleep  float64         `mapstructure:"broadcast_sleep"` // 秒，群发限速
	Dashboard       DashboardConfig `mapstructure:"dashboard"`
}

// DashboardConfig 管理后台登录凭证（bcrypt 哈希）
type DashboardConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// SlotsConfig 每日固定时段表
type SlotsConfig struct {
	Timezone   string   `mapstructure:"timezone"`
	Times      []string `mapstructure:"times"`  // "20:30" 格式，按顺序
	Cutoff     string   `mapstructure:"cutoff"` // 当地时间超过该点则预约顺延到次日
	DailyLimit int      `mapstructure:"daily_limit"`
	Price      int64    `mapstructure:"price"`
}

type ReminderConfig struct {
	LeadMinutes     int `mapstructure:"lead_minutes"`
	IntervalSeconds int `mapstructure:"interval_seconds"`
	WindowSeconds   int `mapstructure:"window_seconds"`
}

type QueueConfig struct {
	BroadcastQueue string `mapstructure:"broadcast_queue"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	// 检查 config.local.yaml 是否存在
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Slots.Times) == 0 {
		cfg.Slots.Times = []string{"20:30", "21:00", "21:30", "22:00", "22:30", "23:00"}
	}
	if cfg.Slots.Cutoff == "" {
		cfg.Slots.Cutoff = "23:00"
	}
	if cfg.Slots.DailyLimit <= 0 {
		cfg.Slots.DailyLimit = 4
	}
	if cfg.Reminder.LeadMinutes <= 0 {
		cfg.Reminder.LeadMinutes = 30
	}
	if cfg.Reminder.IntervalSeconds <= 0 {
		cfg.Reminder.IntervalSeconds = 30
	}
	if cfg.Reminder.WindowSeconds <= 0 {
		cfg.Reminder.WindowSeconds = 90
	}
	if cfg.Queue.BroadcastQueue == "" {
		cfg.Queue.BroadcastQueue = "broadcast_jobs"
	}
	if cfg.Bot.BroadcastSleep <= 0 {
		cfg.Bot.BroadcastSleep = 0.07
	}
}

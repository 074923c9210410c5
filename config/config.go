package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type Config struct {
	Environment string
	Port        string
	DeviceID    string

	DatabaseURL string
	RedisURL    string

	// Channel the push transport delivers wake signals on.
	WakeChannel string

	Policy    PolicyConfig
	Scheduler SchedulerConfig
	Tracking  TrackingConfig
	Activity  ActivityConfig
	Geofence  GeofenceConfig
}

// PolicyConfig holds the interval-policy tunables. The policy itself is a
// pure function of its inputs plus these constants.
type PolicyConfig struct {
	StillInterval   time.Duration
	WalkingInterval time.Duration
	RunningInterval time.Duration
	CyclingInterval time.Duration
	VehicleInterval time.Duration
	UnknownInterval time.Duration

	LowBatteryFloor time.Duration
	StillMultiplier float64
	StillCap        time.Duration

	MediumBatteryFactor float64
}

type SchedulerConfig struct {
	MinReportGap     time.Duration
	OverrideInterval time.Duration
	ReportTimeout    time.Duration
}

type TrackingConfig struct {
	HeartbeatWindow time.Duration
	MaxDuration     time.Duration
}

type ActivityConfig struct {
	WindowSize   int
	ConfirmCount int
}

type GeofenceConfig struct {
	WorkerCount int
	QueueSize   int
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		DeviceID:    getEnv("DEVICE_ID", "local-device"),
		DatabaseURL: getEnv("DATABASE_URL", "mongodb://localhost:27017/trackpulse"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		WakeChannel: getEnv("WAKE_CHANNEL", "trackpulse:wake"),

		Policy: PolicyConfig{
			StillInterval:   getEnvAsDuration("INTERVAL_STILL", 60*time.Minute),
			WalkingInterval: getEnvAsDuration("INTERVAL_WALKING", 10*time.Minute),
			RunningInterval: getEnvAsDuration("INTERVAL_RUNNING", 5*time.Minute),
			CyclingInterval: getEnvAsDuration("INTERVAL_CYCLING", 5*time.Minute),
			VehicleInterval: getEnvAsDuration("INTERVAL_VEHICLE", 3*time.Minute),
			UnknownInterval: getEnvAsDuration("INTERVAL_UNKNOWN", 15*time.Minute),

			LowBatteryFloor: getEnvAsDuration("LOW_BATTERY_FLOOR", 30*time.Minute),
			StillMultiplier: getEnvAsFloat("STILL_MULTIPLIER", 1.5),
			StillCap:        getEnvAsDuration("STILL_CAP", 2*time.Hour),

			MediumBatteryFactor: getEnvAsFloat("MEDIUM_BATTERY_FACTOR", 1.5),
		},

		Scheduler: SchedulerConfig{
			MinReportGap:     getEnvAsDuration("MIN_REPORT_GAP", 60*time.Second),
			OverrideInterval: getEnvAsDuration("TRACKING_INTERVAL", 5*time.Second),
			ReportTimeout:    getEnvAsDuration("REPORT_TIMEOUT", 30*time.Second),
		},

		Tracking: TrackingConfig{
			HeartbeatWindow: getEnvAsDuration("HEARTBEAT_WINDOW", 60*time.Second),
			MaxDuration:     getEnvAsDuration("TRACKING_MAX_DURATION", 30*time.Minute),
		},

		Activity: ActivityConfig{
			WindowSize:   getEnvAsInt("ACTIVITY_WINDOW_SIZE", 50),
			ConfirmCount: getEnvAsInt("ACTIVITY_CONFIRM_COUNT", 3),
		},

		Geofence: GeofenceConfig{
			WorkerCount: getEnvAsInt("GEOFENCE_WORKERS", 3),
			QueueSize:   getEnvAsInt("GEOFENCE_QUEUE_SIZE", 500),
		},
	}
}

func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		// Fallback to default config
		opt = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	return redis.NewClient(opt)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

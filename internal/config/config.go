package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/portero.db"

	// Persisted mutable settings (opening time etc.)
	SettingsPath string

	// Hardware
	GPIOChip    string // e.g. "gpiochip0"
	WiegandD0   int    // data-0 line (BCM)
	WiegandD1   int    // data-1 line (BCM)
	RelayLine   int    // relay output line (BCM)
	DoorName    string
	HardwareOff bool // force-disable the hardware subsystem (dev machines)

	// Reader queue / decision engine
	QueueCapacity int
	BatchSize     int

	// Access log retention
	LogRetentionDays int // 0 = keep forever
}

func FromEnv() Config {
	addr := getenvDefault("PORTERO_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("PORTERO_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("PORTERO_DB_PATH", "./data/portero.db")
	settingsPath := getenvDefault("PORTERO_SETTINGS_PATH", "./data/settings.yaml")

	hardwareOff := strings.EqualFold(os.Getenv("PORTERO_HARDWARE_OFF"), "true") ||
		os.Getenv("PORTERO_HARDWARE_OFF") == "1"

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   dbPath,

		SettingsPath: settingsPath,

		GPIOChip:    getenvDefault("PORTERO_GPIO_CHIP", "gpiochip0"),
		WiegandD0:   getenvInt("PORTERO_WIEGAND_D0", 7),
		WiegandD1:   getenvInt("PORTERO_WIEGAND_D1", 8),
		RelayLine:   getenvInt("PORTERO_RELAY_LINE", 12),
		DoorName:    getenvDefault("PORTERO_DOOR_NAME", "Principal"),
		HardwareOff: hardwareOff,

		QueueCapacity: getenvInt("PORTERO_QUEUE_CAPACITY", 64),
		BatchSize:     getenvInt("PORTERO_BATCH_SIZE", 10),

		LogRetentionDays: getenvInt("PORTERO_LOG_RETENTION_DAYS", 0),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

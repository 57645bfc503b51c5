package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string `mapstructure:"APP_ENV"`
	Port            string `mapstructure:"PORT"`
	GoogleMapsKey   string `mapstructure:"GOOGLE_MAPS_API_KEY"`
	DefaultPlatform string `mapstructure:"DEFAULT_PLATFORM"`

	DBUrl    string `mapstructure:"DB_URL"`
	RedisUrl string `mapstructure:"REDIS_URL"`

	RoutesAPIURL     string `mapstructure:"ROUTES_API_URL"`
	DirectionsAPIURL string `mapstructure:"DIRECTIONS_API_URL"`
	GeocodingAPIURL  string `mapstructure:"GEOCODING_API_URL"`

	HTTPTimeout        time.Duration `mapstructure:"HTTP_TIMEOUT"`
	RouteCacheTTL      time.Duration `mapstructure:"ROUTE_CACHE_TTL"`
	SessionIdleTimeout time.Duration `mapstructure:"SESSION_IDLE_TIMEOUT"`
	HostedTimeout      time.Duration `mapstructure:"HOSTED_TIMEOUT"`
}

// HasMapsKey reports whether a Google Maps key is configured
func (c Config) HasMapsKey() bool {
	return strings.TrimSpace(c.GoogleMapsKey) != ""
}

func LoadConfig() (Config, error) {
	return load(viper.New(), ".")
}

func load(v *viper.Viper, dir string) (c Config, err error) {
	// Get environment type from ENV variable or use development as default
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v.SetDefault("APP_ENV", env)
	v.SetDefault("PORT", ":8080")
	v.SetDefault("DEFAULT_PLATFORM", "native")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("ROUTE_CACHE_TTL", "5m")
	v.SetDefault("SESSION_IDLE_TIMEOUT", "30m")
	v.SetDefault("HOSTED_TIMEOUT", "20s")

	// Keys without defaults still need binding for AutomaticEnv to reach Unmarshal
	for _, key := range []string{
		"GOOGLE_MAPS_API_KEY", "EXPO_PUBLIC_GOOGLE_MAPS_API_KEY",
		"DB_URL", "REDIS_URL",
		"ROUTES_API_URL", "DIRECTIONS_API_URL", "GEOCODING_API_URL",
	} {
		if err := v.BindEnv(key); err != nil {
			return c, err
		}
	}

	// Load environment file
	v.SetConfigName(fmt.Sprintf(".env.%s", env))
	v.SetConfigType("env")
	v.AddConfigPath(dir)

	// Environment variables take precedence over config file
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Continue even if file is not found
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	if err = v.Unmarshal(&c); err != nil {
		return c, err
	}

	if !c.HasMapsKey() {
		c.GoogleMapsKey = v.GetString("EXPO_PUBLIC_GOOGLE_MAPS_API_KEY")
	}
	if c.Port != "" && !strings.Contains(c.Port, ":") {
		c.Port = ":" + c.Port
	}
	return c, nil
}

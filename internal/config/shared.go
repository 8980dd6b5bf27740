package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr          string `mapstructure:"addr"`
		DataFile      string `mapstructure:"data_file"`
		MusicDir      string `mapstructure:"music_dir"`
		DashboardFile string `mapstructure:"dashboard_file"`
		TickSeconds   int    `mapstructure:"tick_seconds"`
		LogLevel      string `mapstructure:"log_level"`
	} `mapstructure:"server"`
	Music struct {
		PrimaryBase  string `mapstructure:"primary_base"`
		FallbackBase string `mapstructure:"fallback_base"`
		SearchLimit  int    `mapstructure:"search_limit"`
	} `mapstructure:"music"`
}

func Load() *Config {
	viper.SetEnvPrefix("MEMOBELL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Register keys
	viper.BindEnv("server.addr")
	viper.BindEnv("server.data_file")
	viper.BindEnv("server.music_dir")
	viper.BindEnv("server.dashboard_file")
	viper.BindEnv("server.tick_seconds")
	viper.BindEnv("server.log_level")
	viper.BindEnv("music.primary_base")
	viper.BindEnv("music.fallback_base")
	viper.BindEnv("music.search_limit")

	// Defaults: the whole config is optional, everything runs locally
	// out of the working directory.
	viper.SetDefault("server.addr", ":18080")
	viper.SetDefault("server.data_file", "schedule.xml")
	viper.SetDefault("server.music_dir", "music")
	viper.SetDefault("server.dashboard_file", "dashboard.html")
	viper.SetDefault("server.tick_seconds", 60)
	viper.SetDefault("server.log_level", "error")
	viper.SetDefault("music.primary_base", "https://163api.qijieya.cn")
	viper.SetDefault("music.fallback_base", "https://music.txqq.pro/")
	viper.SetDefault("music.search_limit", 6)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Config error: %s", err)
		} else {
			log.Println("Info: config.yaml not found, using Environment Variables only.")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	return &cfg
}

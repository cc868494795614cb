package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/config"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/logger"
)

var (
	cfgFile string
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "icon-offerer",
	Short: "Icon Offerer - icon name suggestion service",
	Long: `Icon Offerer suggests icon names from popular icon libraries
for a short natural-language description, using an OpenAI-compatible
chat completion API. It runs as an HTTP server or as a cloud function.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"dotenv file loaded before reading environment variables")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// .env 只补充未设置的环境变量
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load env file %s: %v\n", envFile, err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.icon-offerer")
	}

	// 环境变量设置
	viper.SetEnvPrefix("ICON_OFFERER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnv(viper.GetViper())

	// 设置默认值
	setDefaults(viper.GetViper())

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	// 反序列化到结构体
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

// bindEnv 部署环境直接使用的变量名，不带前缀
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("ai.token", "TOKEN", "ICON_OFFERER_AI_TOKEN")
	_ = v.BindEnv("ai.base_url", "BASE_URL", "ICON_OFFERER_AI_BASE_URL")
	_ = v.BindEnv("captcha.secret", "CAPTCHA_SECRET", "ICON_OFFERER_CAPTCHA_SECRET")
	_ = v.BindEnv("captcha.test_mode", "CAPTCHA_TEST_MODE", "ICON_OFFERER_CAPTCHA_TEST_MODE")
	_ = v.BindEnv("captcha.node_env", "NODE_ENV", "ICON_OFFERER_CAPTCHA_NODE_ENV")
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.swagger", false)

	// AI
	v.SetDefault("ai.provider", "http")
	v.SetDefault("ai.model", "deepseek-coder")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.options.temperature", 0.1)
	v.SetDefault("ai.options.min_max_tokens", 50)
	v.SetDefault("ai.options.tokens_per_icon", 20)

	// Captcha
	v.SetDefault("captcha.validate_url", "https://smartcaptcha.yandexcloud.net/validate")
	v.SetDefault("captcha.timeout", "5s")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.time_format", "RFC3339")

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.addr", "")
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}

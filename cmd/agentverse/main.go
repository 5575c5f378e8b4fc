package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/go-go-golems/agentverse/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "agentverse",
	Short: "agentverse is a chat agent with a code sandbox and a task planner",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// flags are parsed now, so --log-level and co can take effect
		return initLogger()
	},
	SilenceUsage: true,
}

type logConfig struct {
	WithCaller bool
	Level      string
	LogFormat  string
	LogFile    string
}

func initLogger() error {
	logLevel := viper.GetString("log-level")
	if viper.GetBool("verbose") && logLevel != "trace" {
		logLevel = "debug"
	}

	return InitLogger(&logConfig{
		Level:      logLevel,
		LogFile:    viper.GetString("log-file"),
		LogFormat:  viper.GetString("log-format"),
		WithCaller: viper.GetBool("with-caller"),
	})
}

func InitLogger(cfg *logConfig) error {
	if cfg.WithCaller {
		log.Logger = log.With().Caller().Logger()
	}

	format := cfg.LogFormat
	if format == "" {
		format = "json"
		if isatty.IsTerminal(os.Stderr.Fd()) {
			format = "text"
		}
	}

	var logWriter io.Writer
	switch format {
	case "text":
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}
	case "json":
		logWriter = os.Stderr
	default:
		return errors.Errorf("unknown log format %q", format)
	}

	if cfg.LogFile != "" {
		logWriter = io.MultiWriter(
			logWriter,
			zerolog.ConsoleWriter{
				NoColor: true,
				Out: &lumberjack.Logger{
					Filename:   cfg.LogFile,
					MaxSize:    10, // megabytes
					MaxBackups: 3,
					MaxAge:     28, // days
				},
			})
	}

	log.Logger = log.Output(logWriter)

	switch cfg.Level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	default:
		return errors.Errorf("unknown log level %q", cfg.Level)
	}

	return nil
}

// homeDir is where the config file and the default store live.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentverse"
	}
	return filepath.Join(home, ".agentverse")
}

func initConfig(configPath string) error {
	viper.SetEnvPrefix(config.EnvPrefix)

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath(homeDir())
		viper.AddConfigPath("/etc/agentverse")
	}

	err := viper.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// no config file, flags and environment only
	} else if err != nil {
		return errors.Wrap(err, "could not read config file")
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return err
	}

	log.Debug().Str("config", viper.ConfigFileUsed()).Msg("Loaded configuration")
	return nil
}

// loadSettings decodes the bound flags, environment and config file.
func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetViper(), homeDir())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.Bool("verbose", false, "Enable debug logging")
	pf.Bool("with-caller", false, "Log caller")
	pf.String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	pf.String("log-format", "", "Log format (json, text); defaults to text on a terminal")
	pf.String("log-file", "", "Also log to this file, rotated")
	pf.String("config", "", "Path to config file (default ~/.agentverse/config.yaml)")
	config.AddFlags(rootCmd)

	cobra.OnInitialize(func() {
		configPath, _ := rootCmd.PersistentFlags().GetString("config")
		cobra.CheckErr(initConfig(configPath))
	})

	rootCmd.AddCommand(
		newChatCommand(),
		newHistoryCommand(),
		newSandboxCommand(),
		newSettingsCommand(),
		newPlanCommand(),
		newTasksCommand(),
		newServeCommand(),
	)
}

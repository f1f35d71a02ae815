package main

import (
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/facet"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/plancache"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/schema"
)

// app carries the configuration shared by every subcommand. Flags, a
// config file and PROPQL_* environment variables feed the same keys.
type app struct {
	v      *viper.Viper
	logger log.Logger
}

func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New(), logger: log.NewNopLogger()}
	var configFile string

	cmd := &cobra.Command{
		Use:           "propql",
		Short:         "Compile and inspect props tree queries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			a.v.SetEnvPrefix("PROPQL")
			a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
			a.v.AutomaticEnv()
			if configFile != "" {
				a.v.SetConfigFile(configFile)
				if err := a.v.ReadInConfig(); err != nil {
					return errors.Wrap(err, "read config")
				}
			}
			logger, err := newLogger(a.v.GetString("log-level"))
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml)")
	cmd.PersistentFlags().StringSlice("schema", nil, "scheme description file (yaml), repeatable")
	cmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().String("native-function", facet.DefaultNativeConditionFunction, "SQL function native tree conditions call")
	cmd.PersistentFlags().Int("cache-size", plancache.DefaultConfig().MaxEntries, "plan cache entries")

	cmd.AddCommand(newResolveCommand(a))
	cmd.AddCommand(newKeyCommand(a))
	cmd.AddCommand(newExplainCommand(a))
	cmd.AddCommand(newFindCommand(a))
	return cmd
}

func newLogger(lvl string) (log.Logger, error) {
	var allow level.Option
	switch strings.ToLower(lvl) {
	case "debug":
		allow = level.AllowDebug()
	case "info":
		allow = level.AllowInfo()
	case "warn", "":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		return nil, errors.Errorf("unknown log level %q", lvl)
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	return level.NewFilter(logger, allow), nil
}

// schemas loads every --schema file.
func (a *app) schemas() ([]*schema.Schema, error) {
	files := a.v.GetStringSlice("schema")
	if len(files) == 0 {
		return nil, errors.New("at least one --schema is required")
	}
	result := make([]*schema.Schema, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		s, err := schema.LoadYAML(data)
		if err != nil {
			return nil, errors.Wrap(err, file)
		}
		level.Debug(a.logger).Log("msg", "loaded scheme", "file", file, "id", s.ID, "name", s.Name)
		result = append(result, s)
	}
	return result, nil
}

func (a *app) cacheConfig() plancache.Config {
	config := plancache.DefaultConfig()
	config.MaxEntries = a.v.GetInt("cache-size")
	return config
}

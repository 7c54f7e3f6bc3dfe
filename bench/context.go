package bench

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Context is shared by every subcommand. Log is set up by the root command
// before any subcommand runs.
type Context struct {
	context.Context

	Log      zerolog.Logger
	Registry *prometheus.Registry

	logType  string
	logFile  string
	logLevel string
	logOut   io.Closer
}

// RootCommand returns the top-level command carrying the logging flags.
func RootCommand(ctx *Context) *cobra.Command {
	if ctx.Context == nil {
		ctx.Context = context.Background()
	}
	if ctx.Registry == nil {
		ctx.Registry = prometheus.NewRegistry()
	}
	cmd := &cobra.Command{
		Use:           "randtree-bench",
		Short:         "Generate changesets and replay them into random-selection trees.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.openLog()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if ctx.logOut != nil {
				return ctx.logOut.Close()
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&ctx.logType, "log-type", "text", "log format (text|json)")
	cmd.PersistentFlags().StringVar(&ctx.logFile, "log-file", "", "write logs to this file instead of stderr")
	cmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "info", "minimum log level (debug|info|warn|error)")
	return cmd
}

func (ctx *Context) openLog() error {
	level, err := zerolog.ParseLevel(ctx.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", ctx.logLevel, err)
	}
	if ctx.logType != "json" && ctx.logType != "text" {
		return fmt.Errorf("unknown log type: %s", ctx.logType)
	}

	var out io.Writer = os.Stderr
	if ctx.logFile != "" {
		f, err := os.Create(ctx.logFile)
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		ctx.logOut = f
		out = f
	}
	if ctx.logType == "text" {
		out = zerolog.ConsoleWriter{Out: out, NoColor: ctx.logFile != ""}
	}

	ctx.Log = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}

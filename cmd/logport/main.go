// Logport is a single-client TCP server that receives length-prefixed
// text frames and forwards them into a structured log stream, with a
// terminal front-end for sending strings or JSON files back to the
// connected client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fjall/logport"
	"github.com/fjall/logport/internal/config"
	"github.com/fjall/logport/internal/logging"
	"github.com/fjall/logport/internal/ui"
)

const version = "0.3.0"

var (
	flagHost     string
	flagPort     int
	flagConfig   string
	flagLogFile  string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "logport",
	Short: "Single-client TCP log relay",
	Long: `Logport runs a TCP server that accepts one client at a time,
receives length-prefixed text frames and routes them into a log stream.
Frames carrying a structured log payload ({"client", "level", "msg"})
are attributed to their client at the given severity; anything else is
logged verbatim. Strings or JSON files can be sent back to the client.`,
	Version: version,
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVar(&flagHost, "host", "127.0.0.1", "host to bind")
	rootCmd.Flags().IntVar(&flagPort, "port", 5000, "port to bind")
	rootCmd.Flags().StringVar(&flagConfig, "config", "logport.yaml", "path to the configuration file")
	rootCmd.Flags().StringVar(&flagLogFile, "log-file", "logport.log", "path to the rotating log file")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn or error")
}

func run(cmd *cobra.Command, args []string) error {
	// The terminal UI owns the screen, so the log sink is file-only.
	logger, flush := logging.New(logging.Options{
		Level:    flagLogLevel,
		FilePath: flagLogFile,
	})
	defer flush()
	logger.Info("log file initialized", "path", flagLogFile)

	cfg, err := config.Load(flagConfig)
	if err != nil {
		logger.Debug("receive interval set to the default, no usable config entry",
			"path", flagConfig, "sleep", config.DefaultSleep, "error", err)
	} else if cfg.HasSleep() {
		logger.Debug("receive interval set from config", "interval", cfg.ReceiveInterval())
	}

	ctrl := logport.NewController(
		logport.LoggerOption(logger),
		logport.ReceiveIntervalOption(cfg.ReceiveInterval()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	program := tea.NewProgram(ui.New(ctrl, flagHost, flagPort), tea.WithAltScreen())

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer stop()
		_, err := program.Run()
		return err
	})
	group.Go(func() error {
		<-ctx.Done()
		program.Quit()
		return nil
	})

	err = group.Wait()
	ctrl.Stop()
	return err
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the logport version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("logport %s\n", version)
	},
}

func main() {
	rootCmd.AddCommand(versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

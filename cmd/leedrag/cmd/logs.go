package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/leedrag/internal/logging"
	"github.com/Aman-CERP/leedrag/internal/output"
)

type logsFlags struct {
	lines   int
	level   string
	pattern string
	follow  bool
	file    string
	noColor bool
}

func newLogsCmd() *cobra.Command {
	var flags logsFlags

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View leedrag log files",
		Long: `View the structured log written by 'leedrag serve' and by --debug.

Entries are read from ~/.leedrag/logs/leedrag.log unless --file is given.`,
		Example: `  leedrag logs
  leedrag logs -n 200 --level warn
  leedrag logs --grep reload -f`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&flags.lines, "lines", "n", 50, "Number of lines to show")
	f.StringVar(&flags.level, "level", "", "Minimum level: debug, info, warn, error")
	f.StringVar(&flags.pattern, "grep", "", "Only show entries matching this regular expression")
	f.BoolVarP(&flags.follow, "follow", "f", false, "Keep streaming new entries")
	f.StringVar(&flags.file, "file", "", "Log file to read")
	f.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runLogs(cmd *cobra.Command, flags logsFlags) error {
	path, err := logging.FindLogFile(flags.file)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if flags.pattern != "" {
		if pattern, err = regexp.Compile(flags.pattern); err != nil {
			return fmt.Errorf("invalid --grep pattern: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   flags.level,
		Pattern: pattern,
		NoColor: flags.noColor || !output.ColorEnabled(out),
	}, out)

	entries, err := viewer.Tail(path, flags.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !flags.follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream := make(chan logging.LogEntry, 64)
	done := make(chan error, 1)
	go func() {
		done <- viewer.Follow(ctx, path, stream)
		close(stream)
	}()

	for entry := range stream {
		if _, err := fmt.Fprintln(out, viewer.FormatEntry(entry)); err != nil {
			return err
		}
	}
	return <-done
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/analekt/epubcheck-mcp/internal/log"
	"github.com/analekt/epubcheck-mcp/internal/version"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var engineVersionCmd = &cobra.Command{
	Use:   "engine-version",
	Short: "engine-version prints the installed EPUBCheck version and whether a newer one exists",
	Args:  cobra.NoArgs,
	RunE:  doEngineVersion,
}

func doEngineVersion(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("epubcheckctl",
		slog.String("cmd", "engine-version"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	svc, err := newVersionService(config, newInvoker(config))
	if err != nil {
		return err
	}
	defer svc.Close()

	// the update check gets the fetch timeout and a little slack
	return printEngineVersion(ctx, cmd.OutOrStdout(), svc, config.CheckTimeout()+time.Second)
}

func printEngineVersion(ctx context.Context, w io.Writer, svc *version.Service, wait time.Duration) error {
	current, err := svc.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "EPUBCheck %s\n", current)

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := svc.Wait(waitCtx); err != nil {
		slog.DebugContext(ctx, "update check did not finish", "error", err)
	}

	if msg, ok := svc.UpdateNotification(current); ok {
		_, _ = color.New(color.FgYellow).Fprintln(w, msg)
	}
	return nil
}

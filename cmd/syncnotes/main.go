package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/hylla/syncnotes/internal/platform"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := newRootCmd(newRootOptions(), os.Stdout, os.Stderr)
	if err := fang.Execute(ctx, root, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	role       string
	getenv     func(string) string
}

func newRootOptions() *rootOptions {
	opts := &rootOptions{
		appName: platform.DefaultAppName,
		devMode: version == "dev",
		getenv:  os.Getenv,
	}
	if envDev, ok := parseBoolEnv(opts.getenv, "SYNCNOTES_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(opts.getenv("SYNCNOTES_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}
	if envRole := strings.TrimSpace(opts.getenv("SYNCNOTES_ROLE")); envRole != "" {
		opts.role = envRole
	}
	return opts
}

func newRootCmd(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "syncnotes",
		Short:         "Record meetings, extract intelligence, and publish reports",
		Long:          "SyncNotes turns meeting recordings into transcripts, summaries, action items, and topic maps, then publishes a shareable report to every participant.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to the sqlite database or file store directory")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")
	flags.StringVar(&opts.role, "role", opts.role, "caller role: ADMIN or MEMBER (default ADMIN, MEMBER when opening share links)")

	root.AddCommand(
		newPathsCmd(opts),
		newCreateCmd(opts),
		newListCmd(opts),
		newShowCmd(opts),
		newProcessCmd(opts),
		newToggleCmd(opts),
		newPublishCmd(opts),
		newAskCmd(opts),
		newOpenCmd(opts),
		newReportCmd(opts),
		newServeCmd(opts),
	)
	return root
}

func newPathsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{AppName: opts.appName, DevMode: opts.devMode})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(out, "store_dir: %s\n", paths.StoreDir)
			return nil
		},
	}
}

func parseBoolEnv(getenv func(string) string, name string) (bool, bool) {
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

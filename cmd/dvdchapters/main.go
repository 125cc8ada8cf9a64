package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/autobrr/go-dvdchapters/internal/cli"
)

var version = "dev"

var opts cli.Options

var rootCmd = &cobra.Command{
	Use:   "dvdchapters <path-to-VIDEO_TS> [title]",
	Short: "Extract DVD chapter timings as Matroska chapter XML.",
	Long: "Extract DVD chapter timings as Matroska chapter XML.\n\n" +
		"Reads the IFO navigation tables under a VIDEO_TS directory and writes one\n" +
		"EditionEntry per title with one ChapterAtom per chapter. If title is not\n" +
		"specified or 0, chapters from all titles are output.",
	Args:          cobra.RangeArgs(1, 2),
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(cli.Run(args, opts, cmd.OutOrStdout(), cmd.ErrOrStderr()))
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update dvdchapters",
	Long:  "Update dvdchapters to latest version (release builds only).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSelfUpdate(cmd.Context())
	},
	DisableFlagsInUseLine: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print go-dvdchapters version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cli.Version(cmd.OutOrStdout())
		return nil
	},
	DisableFlagsInUseLine: true,
}

func init() {
	cli.SetVersion(resolveVersion())
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	rootCmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "write the chapter document to a file instead of stdout")
	rootCmd.Flags().StringVar(&opts.ConfigPath, "config", "", "load chapter display settings from a file")
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func runSelfUpdate(ctx context.Context) error {
	if version == "" || version == "dev" {
		return errors.New("self-update is only available in release builds")
	}

	if _, err := semver.ParseTolerant(version); err != nil {
		return fmt.Errorf("could not parse version: %w", err)
	}

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug("autobrr/go-dvdchapters"))
	if err != nil {
		return fmt.Errorf("error occurred while detecting version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest version for %s/%s could not be found from github repository", "autobrr/go-dvdchapters", version)
	}

	if latest.LessOrEqual(version) {
		fmt.Printf("Current binary is the latest version: %s\n", version)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}

	fmt.Printf("Successfully updated to version: %s\n", latest.Version())
	return nil
}

func resolveVersion() string {
	if version != "" && version != "dev" {
		return normalizeVersion(version)
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return normalizeVersion(info.Main.Version)
		}
	}
	return "dev"
}

func normalizeVersion(value string) string {
	return strings.TrimPrefix(value, "v")
}

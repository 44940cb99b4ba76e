package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/waypoint/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate and lock configuration",
	}
	cmd.AddCommand(newConfigCheckCmd(opts), newConfigLockCmd(opts))
	return cmd
}

func newConfigCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config and verify file checksums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config: valid (%s)\n", sourceName(cfg))

			files, err := cfg.IntegrityFiles()
			if err != nil {
				return err
			}
			report, err := config.Check(cfg.ManifestDir(), files)
			if errors.Is(err, config.ErrNoManifest) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				return nil
			}
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, f := range report.Files {
				status := "ok"
				if f.Problem != "" {
					status = f.Problem
				}
				fmt.Fprintf(tw, "%s\t%s\n", status, f.Path)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if !report.OK() {
				return fmt.Errorf("integrity check failed against %s", report.ManifestPath)
			}
			return nil
		},
	}
}

func newConfigLockCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Write BLAKE3 checksums for the config file and skill manifests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, ok, err := config.Find(opts.configPath)
			if err != nil {
				return err
			}
			var cfg *config.Config
			if ok {
				cfg, err = config.LoadUnverified(path)
			} else {
				cfg, err = config.LoadDefaults(".")
			}
			if err != nil {
				return err
			}

			files, err := cfg.IntegrityFiles()
			if err != nil {
				return err
			}
			m, err := config.Lock(cfg.ManifestDir(), files)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "locked %d file(s) in %s/%s\n", len(m.Hashes), cfg.ManifestDir(), config.ChecksumFile)
			return nil
		},
	}
}

func sourceName(cfg *config.Config) string {
	if cfg.SourcePath == "" {
		return "defaults"
	}
	return cfg.SourcePath
}

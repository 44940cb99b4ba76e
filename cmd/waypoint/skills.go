package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/waypoint/internal/lock"
	"github.com/mattjoyce/waypoint/internal/skill"
	"github.com/mattjoyce/waypoint/internal/storage"
)

func newSkillsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Inspect and sync skill manifests",
	}
	cmd.AddCommand(newSkillsListCmd(opts), newSkillsSyncCmd(opts))
	return cmd
}

type skillSummary struct {
	Name   string   `json:"name"`
	Phases []string `json:"phases"`
	Digest string   `json:"digest"`
	Path   string   `json:"path"`
}

func newSkillsListCmd(opts *rootOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List skill manifests found in the skills directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			cat, err := skill.Discover(cfg.SkillsDir, nil)
			if err != nil {
				return err
			}

			out := make([]skillSummary, 0, cat.Len())
			for _, s := range cat.All() {
				out = append(out, skillSummary{Name: s.Name, Phases: s.Phases.Labels(), Digest: s.Digest, Path: s.Path})
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), out)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPHASES\tDIGEST\tPATH")
			for _, s := range out {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Name, len(s.Phases), s.Digest[:12], s.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newSkillsSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync manifests into the database while the daemon is stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			pidLock, err := lock.Acquire(cfg.State.LockPath)
			if err != nil {
				return fmt.Errorf("daemon appears to be running (it syncs on its own): %w", err)
			}
			defer pidLock.Release()

			db, err := storage.OpenSQLite(cmd.Context(), cfg.State.Path)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			report, err := skill.NewSyncer(db, cfg.SkillsDir, nil).Sync(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

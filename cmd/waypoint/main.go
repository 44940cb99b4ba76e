package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/waypoint/internal/config"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "waypoint",
		Short:         "Workflow phase enforcement daemon for tasks and efforts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file or directory (default ./"+config.DefaultFile+" if present)")

	root.AddCommand(
		newServeCmd(opts),
		newCallCmd(opts),
		newSkillsCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load resolves the config for a subcommand. Without a file, defaults are
// rooted at the working directory.
func (o *rootOptions) load() (*config.Config, error) {
	path, ok, err := config.Find(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("find config: %w", err)
	}
	if !ok {
		return config.LoadDefaults(".")
	}
	return config.Load(path)
}

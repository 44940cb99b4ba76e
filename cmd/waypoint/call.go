package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/waypoint/internal/api"
)

func newCallCmd(opts *rootOptions) *cobra.Command {
	var addr, token string
	cmd := &cobra.Command{
		Use:   "call <cmd> [json-args|-]",
		Short: "Send one command to a running daemon",
		Long: "Send one command to a running daemon and print the response envelope.\n" +
			"Args are a JSON object, or - to read it from stdin. The token defaults to $WAYPOINT_TOKEN.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				addr = cfg.API.Listen
			}
			if token == "" {
				token = os.Getenv("WAYPOINT_TOKEN")
			}

			var payload json.RawMessage
			if len(args) == 2 {
				raw := []byte(args[1])
				if args[1] == "-" {
					b, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return fmt.Errorf("read args: %w", err)
					}
					raw = b
				}
				if !json.Valid(raw) {
					return errors.New("args are not valid JSON")
				}
				payload = raw
			}

			client := api.NewClient(addr, token)
			defer client.CloseIdle()

			var callArgs any
			if payload != nil {
				callArgs = payload
			}
			resp, err := client.Call(cmd.Context(), args[0], callArgs)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			return resp.Err()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "daemon address (default api.listen from config)")
	cmd.Flags().StringVar(&token, "token", "", "bearer token")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

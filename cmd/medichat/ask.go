package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var (
		docs   documentFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "ask [flags] QUESTION",
		Short: "Answer one question about local documents",
		Long: `Index the given documents and answer a single question.

Examples:
  medichat ask --file discharge.pdf "Which medications were started?"
  medichat ask -f labs.pdf -f notes.txt --json "What was the last HbA1c?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, "error")
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			progress := out
			if asJSON {
				progress = cmd.ErrOrStderr()
			}
			sess, err := openSession(ctx, a, docs, progress)
			if err != nil {
				return err
			}

			turn, err := sess.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(turn)
			}
			printTurn(out, turn)
			return nil
		},
	}
	docs.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the turn as JSON")
	return cmd
}

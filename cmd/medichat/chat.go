package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/medichat/internal/conversation"
	"github.com/fyrsmithlabs/medichat/internal/session"
)

const chatHelp = `Commands:
  /stats    session statistics
  /history  questions asked so far
  /export   history as JSON lines
  /reset    clear the history
  /quit     leave`

func newChatCmd(opts *rootOptions) *cobra.Command {
	var docs documentFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive question answering over local documents",
		Long: `Index the given documents and read questions from standard input,
one per line.

` + chatHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			sess, err := openSession(ctx, a, docs, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Ask a question, or /help.\n")
			return chatLoop(ctx, sess, cmd.InOrStdin(), out)
		},
	}
	docs.register(cmd)
	return cmd
}

// chatLoop answers lines from in until EOF, /quit or ctx ends. A failed
// question is reported and the loop continues.
func chatLoop(ctx context.Context, sess *session.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, chatHelp)
			continue
		case "/stats":
			s := sess.Stats()
			fmt.Fprintf(out, "Documents: %d | Chunks: %d | Questions: %d | Avg confidence: %.1f%%\n",
				s.Documents, s.Chunks, s.Turns, s.AverageConfidence*100)
			continue
		case "/history":
			for i, t := range sess.History() {
				fmt.Fprintf(out, "%d. %s (%.1f%%)\n", i+1, t.Question, t.Insight.ConfidenceScore*100)
			}
			continue
		case "/export":
			if err := conversation.WriteJSONL(out, sess.History()); err != nil {
				return err
			}
			continue
		case "/reset":
			sess.Reset()
			fmt.Fprintln(out, "History cleared.")
			continue
		}

		turn, err := sess.Ask(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printTurn(out, turn)
	}
}

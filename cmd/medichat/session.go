package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/medichat/internal/conversation"
	"github.com/fyrsmithlabs/medichat/internal/ingestion"
	"github.com/fyrsmithlabs/medichat/internal/session"
)

// documentFlags are shared by ask and chat.
type documentFlags struct {
	files  []string
	stored bool
}

func (f *documentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.files, "file", "f", nil, "document to index (repeatable)")
	cmd.Flags().BoolVar(&f.stored, "stored", false, "also index every document previously uploaded to the object store")
}

// openSession creates a session over the flagged documents and writes the
// ingestion outcome to out.
func openSession(ctx context.Context, a *app, flags documentFlags, out io.Writer) (*session.Session, error) {
	if len(flags.files) == 0 && !flags.stored {
		return nil, errors.New("no documents: pass --file or --stored")
	}

	sess, err := session.New(a.deps)
	if err != nil {
		return nil, err
	}

	if flags.stored {
		report, err := sess.Reload(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading stored documents: %w", err)
		}
		printFailures(out, report)
	}

	if len(flags.files) > 0 {
		uploads := make([]ingestion.Upload, 0, len(flags.files))
		for _, path := range flags.files {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
			uploads = append(uploads, ingestion.Upload{Name: filepath.Base(path), Data: data})
		}
		report, err := sess.Ingest(ctx, uploads)
		if err != nil {
			return nil, err
		}
		printFailures(out, report)
	}

	stats := sess.Stats()
	if stats.Documents == 0 {
		return nil, errors.New("none of the documents could be indexed")
	}
	fmt.Fprintf(out, "Indexed %d document(s), %d chunk(s).\n", stats.Documents, stats.Chunks)
	return sess, nil
}

func printFailures(out io.Writer, report ingestion.Report) {
	for _, f := range report.Failed {
		fmt.Fprintf(out, "skipped %s: %s\n", f.Name, f.Reason)
	}
}

// printTurn writes an answer followed by its insight summary.
func printTurn(out io.Writer, turn conversation.Turn) {
	in := turn.Insight
	fmt.Fprintf(out, "\n%s\n\n", strings.TrimSpace(turn.Answer))
	fmt.Fprintf(out, "Confidence: %.1f%% | Sources: %d | Response: %s (%s) | Complexity: %s | Coverage: %s\n",
		in.ConfidenceScore*100, in.RelevantDocsCount, in.ResponseTime, in.Elapsed.Round(time.Millisecond),
		in.QueryComplexity, in.DocumentCoverage)
	if len(in.MedicalKeywords) > 0 {
		fmt.Fprintf(out, "Medical terms: %s\n", strings.Join(in.MedicalKeywords, ", "))
	}
	fmt.Fprintf(out, "%s\n", in.CoverageSummary)
}

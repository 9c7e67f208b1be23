// Command anagram answers word and sentence anagram queries from the command
// line against a local dictionary file.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/occurrence"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/solver"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/postgres"
)

type options struct {
	dictPath    string
	logLevel    string
	limit       int
	parallelism int
	timeout     time.Duration
	configPath  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "anagram",
		Short:         "Find word and sentence anagrams",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logger.New(cmd.ErrOrStderr(), opts.logLevel, "text"))
		},
	}
	root.PersistentFlags().StringVar(&opts.dictPath, "dict", "data/sample-words.txt", "dictionary file, one word per line; the default is a small sample list, pass a full word list for complete results")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newWordCmd(opts),
		newSentenceCmd(opts),
		newCombinationsCmd(),
		newImportCmd(opts),
	)
	return root
}

func loadIndex(ctx context.Context, opts *options) (*dictionary.Index, error) {
	return dictionary.Build(ctx, dictionary.FileSource{Path: opts.dictPath})
}

func newWordCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "word <word>",
		Short: "List dictionary anagrams of a single word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := loadIndex(cmd.Context(), opts)
			if err != nil {
				return err
			}
			for _, w := range idx.WordAnagrams(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), w)
			}
			return nil
		},
	}
}

func newSentenceCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sentence <word>...",
		Short: "List every anagram sentence of the given words",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := loadIndex(cmd.Context(), opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}
			res, err := solver.New(idx, opts.parallelism).Solve(ctx, args)
			if err != nil {
				return err
			}
			printSentences(cmd.OutOrStdout(), res.Anagrams, opts.limit)
			slog.Info("sentence solved",
				"signature", res.Signature.Key(),
				"candidates", res.Candidates,
				"anagrams", len(res.Anagrams),
				"duration", res.Duration,
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "print at most this many sentences (0 = all)")
	cmd.Flags().IntVar(&opts.parallelism, "parallelism", 4, "concurrent top-level search branches")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "abort the search after this long (0 = no limit)")
	return cmd
}

func printSentences(w io.Writer, sentences [][]string, limit int) {
	for i, s := range sentences {
		if limit > 0 && i >= limit {
			fmt.Fprintf(w, "... %d more\n", len(sentences)-limit)
			return
		}
		fmt.Fprintln(w, strings.Join(s, " "))
	}
}

func newCombinationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "combinations <word>",
		Short: "Print the occurrence list of a word and all of its sub-multisets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			occ := occurrence.WordOccurrences(args[0])
			fmt.Fprintf(out, "occurrences: %s\n", occ)
			for _, c := range occurrence.Combinations(occ) {
				fmt.Fprintln(out, c)
			}
			return nil
		},
	}
}

func newImportCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load the --dict file into the configured Postgres dictionary table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			words, err := dictionary.LoadFile(opts.dictPath)
			if err != nil {
				return err
			}
			db, err := postgres.New(cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := dictionary.Import(cmd.Context(), db, cfg.Dictionary.Table, words); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d words into %s\n", len(words), cfg.Dictionary.Table)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "configs/development.yaml", "path to config file")
	return cmd
}

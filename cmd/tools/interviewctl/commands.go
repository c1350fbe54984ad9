package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-coach/backend/internal/bootstrap"
	"github.com/zhouzirui/interview-coach/backend/internal/config"
	"github.com/zhouzirui/interview-coach/backend/internal/model/profile"
	"github.com/zhouzirui/interview-coach/backend/internal/observability"
	"github.com/zhouzirui/interview-coach/backend/internal/service/retrieval"
)

type configLoader func() (*config.Config, error)

func newRootCmd(out io.Writer, load configLoader) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "interviewctl",
		Short:        "Local tooling for the interview coach backend",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine activity to stderr")

	logger := func() *zap.Logger {
		if !verbose {
			return zap.NewNop()
		}
		l, err := observability.NewLogger(observability.LogConfig{Level: "debug", Development: true})
		if err != nil {
			return zap.NewNop()
		}
		return l
	}

	root.AddCommand(newProfilesCmd(out), newIngestCmd(out, load), newSimulateCmd(out, load, logger))
	return root
}

func newProfilesCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the supported role profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range profile.NewMemoryStore(profile.Seed()).List() {
				fmt.Fprintf(out, "%-20s %-8s %s\n", p.ID, p.Seniority, p.Name)
			}
			return nil
		},
	}
}

func newIngestCmd(out io.Writer, load configLoader) *cobra.Command {
	var corpusPath string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed a corpus JSON file into the knowledge index",
		Long: `Embed a JSON array of {"id","text","tags"} documents into the collection
configured by RETRIEVAL_PERSIST_PATH and RETRIEVAL_COLLECTION. Without
--corpus the built-in coaching tips are ingested.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Retrieval.PersistPath == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: RETRIEVAL_PERSIST_PATH is empty, the index will not outlive this command")
			}

			docs := retrieval.SeedCorpus()
			if corpusPath != "" {
				if docs, err = retrieval.LoadCorpus(corpusPath); err != nil {
					return err
				}
			}

			idx, err := bootstrap.OpenIndex(cfg.Retrieval)
			if err != nil {
				return err
			}
			if err := idx.Ingest(cmd.Context(), docs, concurrency); err != nil {
				return err
			}

			fmt.Fprintf(out, "ingested %d documents, collection now holds %d\n", len(docs), idx.Count())
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusPath, "corpus", "", "Path to a corpus JSON file")
	cmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "Embeddings in flight")
	return cmd
}

func newSimulateCmd(out io.Writer, load configLoader, logger func() *zap.Logger) *cobra.Command {
	var profileID string
	var answersPath string
	var answers []string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scripted interview against an in-memory session store",
		Long: `Run a scripted interview. Answers come from repeated --answer flags or
from --answers, a file with one answer per line. The run stops when the
answers are used up or the session completes, then prints the report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if answersPath != "" {
				fromFile, err := readAnswers(answersPath)
				if err != nil {
					return err
				}
				answers = append(answers, fromFile...)
			}
			if len(answers) == 0 {
				return fmt.Errorf("no answers given: use --answer or --answers")
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			cfg.Store = config.StoreConfig{Driver: config.StoreMemory}

			ctx := cmd.Context()
			app, err := bootstrap.Build(ctx, cfg, logger(), nil)
			if err != nil {
				return err
			}
			defer app.Close()

			start, err := app.Engine.StartSession(ctx, profileID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "session %s (%s)\n", start.SessionID, start.RoleProfile)

			question := start.FirstQuestion
			for i, answer := range answers {
				fmt.Fprintf(out, "\nQ%d: %s\nA%d: %s\n", i+1, question, i+1, answer)

				res, err := app.Engine.SubmitAnswer(ctx, start.SessionID, answer)
				if err != nil {
					return err
				}
				s := res.Feedback.Scores
				fmt.Fprintf(out, "scores: content=%d structure=%d communication=%d", s.Content, s.Structure, s.Communication)
				if res.Feedback.Degraded {
					fmt.Fprint(out, " (fallback)")
				}
				fmt.Fprintln(out)
				for _, b := range res.Feedback.Bullets {
					fmt.Fprintf(out, "  - %s\n", b)
				}

				if res.Completed || res.NextQuestion == nil {
					break
				}
				question = *res.NextQuestion
			}

			rep, err := app.Engine.GetReport(ctx, start.SessionID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nreport (%s): overall %d/100\n%s\n", rep.Status, rep.Overall, rep.Summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileID, "profile", "p", "junior-developer", "Role profile id or name")
	cmd.Flags().StringVar(&answersPath, "answers", "", "File with one answer per line")
	cmd.Flags().StringArrayVarP(&answers, "answer", "a", nil, "Answer text, repeatable")
	return cmd
}

func readAnswers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open answers: %w", err)
	}
	defer f.Close()

	var answers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			answers = append(answers, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	return answers, nil
}

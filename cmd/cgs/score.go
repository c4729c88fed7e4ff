package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cgs-engine/backend/analyzer"
	"github.com/cgs-engine/backend/config"
	"github.com/cgs-engine/backend/engine"
	"github.com/cgs-engine/backend/render"
	"github.com/cgs-engine/backend/store"
)

type reportFlags struct {
	keyword         string
	domainAuthority int
	hasAuthority    bool
	metaDescription string
	format          string
	explain         bool
	save            bool
	failUnder       int
}

func (f *reportFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.keyword, "keyword", "", "Target keyword expected in the top heading")
	flags.IntVar(&f.domainAuthority, "domain-authority", 0, "Domain authority of the publishing site (0-100)")
	flags.StringVar(&f.metaDescription, "meta-description", "", "Meta description of the page")
	flags.StringVar(&f.format, "format", "text", "Output format: text, md or json")
	flags.BoolVar(&f.explain, "explain", false, "Show the points awarded by every check")
	flags.BoolVar(&f.save, "save", false, "Store the result in the local result store")
	flags.IntVar(&f.failUnder, "fail-under", 0, "Exit with code 2 when the score is below this value")
}

func (f *reportFlags) metadata() engine.Metadata {
	meta := engine.Metadata{
		TargetKeyword:   f.keyword,
		MetaDescription: f.metaDescription,
	}
	if f.hasAuthority {
		da := f.domainAuthority
		meta.DomainAuthority = &da
	}
	return meta
}

// service is the analyzer plus the result store it saves into
type service struct {
	analyzer *analyzer.Analyzer
	store    *store.Store
}

func openService(configPath string) (*service, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, exitError(3, "invalid configuration: %v", err)
	}
	st, err := store.Open(store.DefaultConfig(cfg.DataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}
	a, err := analyzer.New(cfg, analyzer.WithStore(st))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize analyzer: %w", err)
	}
	return &service{analyzer: a, store: st}, nil
}

func (s *service) Close() {
	s.analyzer.Shutdown()
	s.store.Close()
}

func newScoreCmd(configPath *string) *cobra.Command {
	f := &reportFlags{}

	cmd := &cobra.Command{
		Use:   "score [file|-]",
		Short: "Score a document read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.hasAuthority = cmd.Flags().Changed("domain-authority")
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runScore(cmd.Context(), *configPath, path, cmd.InOrStdin(), cmd.OutOrStdout(), f)
		},
	}
	f.register(cmd)
	return cmd
}

func newAnalyzeCmd(configPath *string) *cobra.Command {
	f := &reportFlags{}
	var readable bool

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Fetch a page and score it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.hasAuthority = cmd.Flags().Changed("domain-authority")
			return runAnalyze(cmd.Context(), *configPath, args[0], readable, cmd.OutOrStdout(), f)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&readable, "readable", false, "Score only the main article extracted from the page")
	return cmd
}

func readDocument(path string, stdin io.Reader) (string, string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", err
		}
		return string(data), "stdin", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return string(data), path, nil
}

func runScore(ctx context.Context, configPath, path string, stdin io.Reader, out io.Writer, f *reportFlags) error {
	if err := checkFormat(f.format); err != nil {
		return err
	}
	content, source, err := readDocument(path, stdin)
	if err != nil {
		return exitError(3, "failed to read document: %v", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	svc, err := openService(configPath)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.analyzer.ScoreContent(ctx, analyzer.ScoreRequest{
		Content:  content,
		Metadata: f.metadata(),
		Source:   source,
		Explain:  f.explain,
		Save:     f.save,
	})
	if err != nil {
		if errors.Is(err, analyzer.ErrDocumentTooLarge) {
			return exitError(3, "%v", err)
		}
		return err
	}
	return writeReport(out, report, f)
}

func runAnalyze(ctx context.Context, configPath, rawURL string, readable bool, out io.Writer, f *reportFlags) error {
	if err := checkFormat(f.format); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	svc, err := openService(configPath)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.analyzer.AnalyzeURL(ctx, analyzer.URLRequest{
		URL:      rawURL,
		Metadata: f.metadata(),
		Readable: readable,
		Explain:  f.explain,
		Save:     f.save,
	})
	switch {
	case errors.Is(err, analyzer.ErrInvalidURL), errors.Is(err, analyzer.ErrDocumentTooLarge):
		return exitError(3, "%v", err)
	case errors.Is(err, analyzer.ErrFetch):
		return exitError(4, "%v", err)
	case err != nil:
		return err
	}
	return writeReport(out, report, f)
}

func checkFormat(format string) error {
	switch format {
	case "text", "md", "json":
		return nil
	}
	return exitError(3, "unknown format: %s", format)
}

func writeReport(out io.Writer, report *analyzer.Report, f *reportFlags) error {
	switch f.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	case "md":
		fmt.Fprint(out, render.Markdown(report))
	default:
		fmt.Fprint(out, render.Text(report))
	}

	if f.failUnder > 0 && report.CompositeScore < f.failUnder {
		return exitError(2, "score %d is below %d", report.CompositeScore, f.failUnder)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"callguard/internal/api/handlers"
	"callguard/internal/domain/services"
	"callguard/internal/stt"
)

type analyzeOptions struct {
	text        string
	duration    float64
	language    string
	simulate    bool
	concurrency int
}

// fileResult is one line of batch output
type fileResult struct {
	File   string                     `json:"file,omitempty"`
	Result *handlers.AnalysisResponse `json:"result,omitempty"`
	Error  string                     `json:"error,omitempty"`
}

func newAnalyzeCmd(cc *cliContext) *cobra.Command {
	opts := analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [audio files...]",
		Short: "Score audio files or a transcript",
		Long: `Score one or more audio files, or a transcript given with --text.
Each result is printed as one JSON object per line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.text == "" && len(args) == 0 {
				return fmt.Errorf("provide audio files or --text")
			}
			if opts.duration < 0 {
				return fmt.Errorf("--duration must not be negative")
			}
			return runAnalyze(cmd, cc, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.text, "text", "", "transcript to score instead of audio")
	cmd.Flags().Float64Var(&opts.duration, "duration", 0, "call duration in seconds for --text")
	cmd.Flags().StringVar(&opts.language, "language", "", "language tag for --text (default hi-en)")
	cmd.Flags().BoolVar(&opts.simulate, "simulate", false, "use the simulated transcriber")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", runtime.NumCPU(), "files analysed in parallel")

	return cmd
}

func runAnalyze(cmd *cobra.Command, cc *cliContext, opts analyzeOptions, files []string) error {
	ctx := cmd.Context()
	analyzer := services.BuildAnalyzer(ctx, cc.cfg, nil, cc.log)
	svc := services.NewCallAnalysisService(analyzer, nil, nil, 0, cc.log)

	enc := json.NewEncoder(cmd.OutOrStdout())

	if opts.text != "" {
		outcome := svc.Analyze(ctx, services.AnalyzeRequest{
			Text:            opts.text,
			DurationSeconds: opts.duration,
			Language:        opts.language,
		})
		resp := handlers.NewAnalysisResponse(outcome)
		return enc.Encode(fileResult{Result: &resp})
	}

	var transcriber stt.Transcriber = stt.NewSimulatedTranscriber()
	if !opts.simulate {
		var err error
		transcriber, err = stt.NewTranscriber(cc.cfg.STT, cc.log)
		if err != nil {
			return err
		}
	}

	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if opts.concurrency > 0 {
		g.SetLimit(opts.concurrency)
	}
	for i, file := range files {
		g.Go(func() error {
			results[i].File = file
			tr, err := transcriber.Transcribe(gctx, file)
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			if strings.TrimSpace(tr.Text) == "" {
				results[i].Error = stt.ErrEmptyTranscript.Error()
				return nil
			}
			outcome := svc.Analyze(gctx, services.AnalyzeRequest{
				Text:            tr.Text,
				DurationSeconds: tr.DurationSeconds,
				Language:        tr.Language,
			})
			resp := handlers.NewAnalysisResponse(outcome)
			results[i].Result = &resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/vc-research-engine/internal/model"
	"github.com/sells-group/vc-research-engine/internal/progress"
)

var (
	runCompany string
	runDepth   string
	runFocus   []string
	runFormat  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Research a company and print the composite report",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initResearch(cfg)
		if err != nil {
			return err
		}

		params := model.RunParams{
			Depth:      model.Depth(runDepth),
			FocusAreas: runFocus,
		}

		stream := progress.NewStream(0)
		go logEvents(stream)

		rep, err := env.Orchestrator.RunStream(cmd.Context(), runCompany, params, stream)
		if rep != nil {
			if encodeErr := writeReport(os.Stdout, rep, runFormat); encodeErr != nil {
				return encodeErr
			}
		}
		return err
	},
}

// logEvents mirrors the run's progress feed onto the structured log.
func logEvents(stream *progress.Stream) {
	for ev := range stream.Events() {
		zap.L().Info("progress",
			zap.Uint64("seq", ev.Seq),
			zap.String("type", string(ev.Type)),
			zap.String("phase", ev.Phase),
			zap.String("section", ev.Section),
			zap.String("tool", ev.Tool),
			zap.String("detail", ev.Detail),
			zap.String("cause", ev.Cause))
	}
}

func writeReport(w io.Writer, rep *model.CompositeReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return eris.Wrap(err, "run: encode report")
		}
	case "yaml":
		if err := yaml.NewEncoder(w).Encode(rep); err != nil {
			return eris.Wrap(err, "run: encode report")
		}
	default:
		return fmt.Errorf("run: unknown format %q (want json or yaml)", format)
	}
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runCompany, "company", "", "company name to research (required)")
	runCmd.Flags().StringVar(&runDepth, "depth", string(model.DepthStandard), "research depth: standard or detailed")
	runCmd.Flags().StringSliceVar(&runFocus, "focus", nil, "restrict the run to these section IDs")
	runCmd.Flags().StringVar(&runFormat, "format", "json", "report output format: json or yaml")
	_ = runCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(runCmd)
}

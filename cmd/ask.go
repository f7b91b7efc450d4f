package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/vc-research-engine/internal/agent"
	"github.com/sells-group/vc-research-engine/internal/model"
)

var (
	askQuestion   string
	askReportPath string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question against a previously generated report",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initResearch(cfg)
		if err != nil {
			return err
		}

		var rep *model.CompositeReport
		if askReportPath != "" {
			rep, err = loadReport(askReportPath)
			if err != nil {
				return err
			}
		}

		answer, err := agent.Answer(cmd.Context(), env.AI, cfg.Anthropic.SonnetModel, askQuestion, rep)
		if err != nil {
			return err
		}

		return printAnswer(os.Stdout, answer)
	},
}

// printAnswer writes the response text, followed by the chart data as
// indented JSON when the answer carries one.
func printAnswer(w io.Writer, answer *agent.ChatAnswer) error {
	fmt.Fprintln(w, answer.Response)
	if len(answer.Visualization) > 0 {
		data, err := json.MarshalIndent(answer.Visualization, "", "  ")
		if err != nil {
			return eris.Wrap(err, "ask: encode visualization")
		}
		fmt.Fprintf(w, "\n%s\n", data)
	}
	return nil
}

func loadReport(path string) (*model.CompositeReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ask: read report %s", path)
	}
	var rep model.CompositeReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, eris.Wrapf(err, "ask: parse report %s", path)
	}
	return &rep, nil
}

func init() {
	askCmd.Flags().StringVar(&askQuestion, "question", "", "question to answer (required)")
	askCmd.Flags().StringVar(&askReportPath, "report", "", "path to a composite report JSON file for context")
	_ = askCmd.MarkFlagRequired("question")
	rootCmd.AddCommand(askCmd)
}

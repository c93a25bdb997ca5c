package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/frauddesk/fraudqa/pipeline"
	"github.com/frauddesk/fraudqa/schema"
)

func askCmd() *cobra.Command {
	var showEvidence bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()

			question := strings.Join(args, " ")
			resp := app.controller.Run(cmd.Context(), question)
			printResponse(resp, showEvidence)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showEvidence, "evidence", false, "print the raw evidence bundle")
	return cmd
}

func printResponse(resp *pipeline.Response, showEvidence bool) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	bold.Println(resp.Answer.Text)
	fmt.Println()

	if len(resp.Answer.Citations) > 0 {
		faint.Println("Sources:")
		for _, c := range resp.Answer.Citations {
			faint.Printf("  - %s\n", c.Locator)
		}
	}
	if resp.Answer.Notes != "" {
		color.Yellow("Note: %s", resp.Answer.Notes)
	}
	faint.Printf("intent=%s state=%s score=%.2f elapsed=%dms\n",
		resp.Intent, resp.State, resp.Answer.Score, resp.ElapsedMs)

	if showEvidence && resp.Evidence != nil {
		fmt.Println()
		printEvidence(resp.Evidence)
	}
}

func printEvidence(bundle *schema.EvidenceBundle) {
	if t := bundle.Tabular; t != nil {
		color.Cyan("SQL: %s", t.Query.SQL)
		fmt.Println(strings.Join(t.Columns, " | "))
		for _, row := range t.Rows {
			parts := make([]string, len(t.Columns))
			for i, col := range t.Columns {
				parts[i] = fmt.Sprintf("%v", row[col])
			}
			fmt.Println(strings.Join(parts, " | "))
		}
	}
	for _, p := range bundle.Passages {
		color.Cyan("[%d] %s (%.2f)", p.Rank, p.Chunk.Locator(), p.Score)
		fmt.Println(p.Chunk.Content)
	}
}

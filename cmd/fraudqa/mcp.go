package main

import (
	"github.com/spf13/cobra"

	"github.com/frauddesk/fraudqa/mcpserver"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the pipeline as MCP tools on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()

			return mcpserver.ServeStdio(mcpserver.New(app.controller, app.retriever))
		},
	}
}

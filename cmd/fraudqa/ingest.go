package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frauddesk/fraudqa/config"
	"github.com/frauddesk/fraudqa/ingest"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load source data into the transaction store and document index",
	}
	cmd.AddCommand(ingestDBCmd())
	cmd.AddCommand(ingestDocsCmd())
	return cmd
}

func ingestDBCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "db [csv-path]",
		Short: "Load the raw transaction CSV into SQLite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			n, err := ingest.NewCSVLoader(cfg.Store).Load(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}
			fmt.Printf("loaded %d row(s) into %s\n", n, cfg.Store.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "clear the table and reload")
	return cmd
}

func ingestDocsCmd() *cobra.Command {
	var watch bool
	var chunkSize, chunkOverlap int
	cmd := &cobra.Command{
		Use:   "docs [dir]",
		Short: "Split, embed and index the fraud research documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()

			ix := ingest.NewIndexer(app.embed, app.vec)
			ix.Splitter = ingest.NewSplitter(chunkSize, chunkOverlap)

			n, err := ix.IndexDir(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d chunk(s)\n", n)

			if watch {
				return ix.Watch(cmd.Context(), args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep watching the directory and re-index changes")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 900, "chunk size in characters")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 150, "chunk overlap in characters")
	return cmd
}

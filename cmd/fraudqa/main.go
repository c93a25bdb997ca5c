package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frauddesk/fraudqa/common/logger"
)

var Version = "dev"

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:     "fraudqa",
		Short:   "Question answering over credit-card fraud data and research documents",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentPreRun = func(*cobra.Command, []string) {
		if verbose {
			logger.SetLevel(logger.LevelDebug)
		}
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(mcpCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

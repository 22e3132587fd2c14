// cmd/seed/main.go
package main

import (
	"os"

	"github.com/spf13/cobra"

	"librarium/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "seed",
		Short:        "Load books and members into the librarium database",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the YAML config file")
	root.AddCommand(newBooksCmd(&configPath), newMemberCmd(&configPath))
	return root
}

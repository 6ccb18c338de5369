// Command callguard scores call recordings and transcripts from the
// command line and manages the keyword table.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"callguard/internal/config"
	"callguard/pkg/logger"
)

type cliContext struct {
	configPath string
	verbose    bool

	cfg *config.Config
	log *logger.Logger
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cc := &cliContext{}

	root := &cobra.Command{
		Use:           "callguard",
		Short:         "Scam call risk scoring",
		Long:          `callguard scores phone call transcripts and recordings for scam risk.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cc.configPath)
			if err != nil {
				return err
			}
			cc.cfg = cfg

			level := "warn"
			if cc.verbose {
				level = "debug"
			}
			cc.log = logger.New(logger.Config{Level: level, Format: "console", Output: stderr})
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&cc.configPath, "config", "", "config file (default is ./config.yaml)")
	root.PersistentFlags().BoolVarP(&cc.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newAnalyzeCmd(cc))
	root.AddCommand(newKeywordsCmd(cc))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), cc.cfg.App.Version)
			return err
		},
	})

	return root
}

// Package commands implements the nfsd3 cobra command tree: a "serve"
// subcommand and a "version" subcommand, plus the --config flag every
// subcommand shares.
package commands

import (
	"github.com/spf13/cobra"
)

// Version, Commit and Date are set from main via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "nfsd3",
	Short: "nfsd3 is a standalone NFSv3/MOUNT v3/PORTMAP v2 server",
	Long: `nfsd3 serves a single exported directory over NFSv3, backed by
an in-memory filesystem, with MOUNT v3 and PORTMAP v2 answering on the
same port.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default: ./nfsd3.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command, parsing os.Args.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("nfsd3 %s (commit %s, built %s)\n", Version, Commit, Date)
		return nil
	},
}

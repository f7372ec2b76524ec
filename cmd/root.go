package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dCouch/cmd/couch"
	"github.com/ValentinKolb/dCouch/cmd/serve"
	"github.com/spf13/cobra"
)

const (
	Version = "0.10.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dcouch",
		Short: "in-memory CouchDB 0.10 fake",
		Long: fmt.Sprintf(`dCouch (v%s)

An in-memory stand-in for a CouchDB 0.10 server written in Go. It keeps
documents with optimistic revisions and answers views by naming convention,
which makes it a fast and isolated backend for tests.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dCouch",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dCouch v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(couch.DatabaseCommands)
	RootCmd.AddCommand(couch.DocumentCommands)
	RootCmd.AddCommand(couch.ViewCmd)
	RootCmd.AddCommand(couch.UUIDsCmd)
	RootCmd.AddCommand(couch.PerfCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

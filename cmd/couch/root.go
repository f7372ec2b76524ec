package couch

import (
	"context"
	"time"

	"github.com/ValentinKolb/dCouch/cmd/util"
	"github.com/ValentinKolb/dCouch/rpc/client"
	"github.com/spf13/cobra"
)

var (
	couchClient *client.Client

	// DatabaseCommands represents the database command group
	DatabaseCommands = &cobra.Command{
		Use:               "db",
		Short:             "Manage the databases of a dCouch server",
		PersistentPreRunE: setupClient,
	}

	// DocumentCommands represents the document command group
	DocumentCommands = &cobra.Command{
		Use:               "doc",
		Short:             "Read and write documents",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitEnv)

	for _, cmd := range []*cobra.Command{DatabaseCommands, DocumentCommands, ViewCmd, UUIDsCmd, PerfCmd} {
		util.SetupClientFlags(cmd)
	}

	DatabaseCommands.AddCommand(dbCreateCmd)
	DatabaseCommands.AddCommand(dbDeleteCmd)
	DatabaseCommands.AddCommand(dbListCmd)
	DatabaseCommands.AddCommand(dbInfoCmd)
	DatabaseCommands.AddCommand(dbStatsCmd)
	DatabaseCommands.AddCommand(dbAllDocsCmd)

	DocumentCommands.AddCommand(docGetCmd)
	DocumentCommands.AddCommand(docPutCmd)
	DocumentCommands.AddCommand(docPostCmd)
	DocumentCommands.AddCommand(docDeleteCmd)
	DocumentCommands.AddCommand(docCopyCmd)
	DocumentCommands.AddCommand(docBulkCmd)
}

// setupClient initializes the http client
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	couchClient, err = client.NewClient(*util.GetClientConfig())
	return err
}

// commandContext bounds a single command by the client timeout
func commandContext() (context.Context, context.CancelFunc) {
	timeout := util.GetClientConfig().TimeoutSecond
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
}

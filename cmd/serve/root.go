package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/dCouch/cmd/util"
	"github.com/ValentinKolb/dCouch/lib/fixtures"
	"github.com/ValentinKolb/dCouch/lib/registry"
	"github.com/ValentinKolb/dCouch/rpc/common"
	"github.com/ValentinKolb/dCouch/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	serveRegistry  *registry.Registry
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the dCouch server",
		Long:    `Start the dCouch server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DCOUCH_<flag> (e.g. DCOUCH_LOG_LEVEL=debug)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitEnv)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:5984", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:5984, unix:///tmp/dcouch.sock)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 30, cmdUtil.WrapString("Read and write timeout of the HTTP server in seconds (0 = no timeout)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error). At debug level every request is logged"))

	key = "codec"
	ServeCmd.PersistentFlags().String(key, "json", cmdUtil.WrapString("Encoding of the stored documents (json, msgpack)"))

	key = "kind-field"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Document attribute holding the class name of a document (default ruby_class)"))

	key = "soft-delete-field"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Document attribute marking a document as soft deleted (default deleted_at)"))

	key = "created-at-field"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Sort attribute of association views (default created_at)"))

	key = "fixtures"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional path to a YAML file with databases and documents to load at startup"))
}

// processConfig reads the configuration from the command line flags and
// environment variables and prepares the registry
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = strings.ToLower(viper.GetString("log-level"))
	serveCmdConfig.Codec = viper.GetString("codec")
	serveCmdConfig.KindField = viper.GetString("kind-field")
	serveCmdConfig.SoftDeleteField = viper.GetString("soft-delete-field")
	serveCmdConfig.CreatedAtField = viper.GetString("created-at-field")
	serveCmdConfig.Fixtures = viper.GetString("fixtures")

	if err := common.InitLoggers(*serveCmdConfig); err != nil {
		return err
	}

	opts, err := serveCmdConfig.ToStoreOptions()
	if err != nil {
		return err
	}
	serveRegistry = registry.New(registry.LocalFactory(opts))

	if serveCmdConfig.Fixtures != "" {
		counts, err := fixtures.LoadFile(serveCmdConfig.Fixtures, serveRegistry)
		if err != nil {
			return fmt.Errorf("failed to load fixtures: %w", err)
		}
		for name, n := range counts {
			server.Logger.Infof("loaded %d documents into %s", n, name)
		}
	}

	return nil
}

// run starts the dCouch server and stops it gracefully on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	fmt.Println(serveCmdConfig.String())

	serv := server.NewServer(*serveCmdConfig, serveRegistry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- serv.Serve()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := serv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

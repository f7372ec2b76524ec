package couch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ValentinKolb/dCouch/cmd/util"
	"github.com/ValentinKolb/dCouch/lib/query"
	"github.com/ValentinKolb/dCouch/lib/store"
	"github.com/spf13/cobra"
)

// --------------------------------------------------------------------------
// Databases
// --------------------------------------------------------------------------

var (
	dbCreateCmd = &cobra.Command{
		Use:   "create [db]",
		Short: "Creates a database (an existing database is replaced)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			if err := couchClient.CreateDB(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("created database %s\n", args[0])
			return nil
		},
	}
	dbDeleteCmd = &cobra.Command{
		Use:   "delete [db]",
		Short: "Deletes a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			if err := couchClient.DeleteDB(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted database %s\n", args[0])
			return nil
		},
	}
	dbListCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all databases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			names, err := couchClient.AllDBs(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
	dbInfoCmd = &cobra.Command{
		Use:   "info [db]",
		Short: "Prints the metadata of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			info, err := couchClient.DBInfo(ctx, args[0])
			if err != nil {
				return err
			}
			return util.PrintJSON(info)
		},
	}
	dbStatsCmd = &cobra.Command{
		Use:   "stats [db]",
		Short: "Prints the operation counters of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			stats, err := couchClient.Stats(ctx, args[0])
			if err != nil {
				return err
			}
			return util.PrintJSON(stats)
		},
	}
	dbAllDocsCmd = &cobra.Command{
		Use:   "all-docs [db]",
		Short: "Lists the documents of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			opts := store.AllDocsOptions{}
			opts.Descending, _ = flags.GetBool("descending")
			opts.IncludeDocs, _ = flags.GetBool("include-docs")
			opts.StartKey, _ = flags.GetString("startkey")
			opts.EndKey, _ = flags.GetString("endkey")
			opts.Limit, _ = flags.GetInt("limit")

			ctx, cancel := commandContext()
			defer cancel()
			res, err := couchClient.AllDocs(ctx, args[0], opts)
			if err != nil {
				return err
			}
			return util.PrintJSON(res)
		},
	}
)

// --------------------------------------------------------------------------
// Documents
// --------------------------------------------------------------------------

var (
	docGetCmd = &cobra.Command{
		Use:   "get [db] [id]",
		Short: "Reads a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := store.LoadOptions{}
			opts.Rev, _ = cmd.Flags().GetString("rev")
			opts.Revs, _ = cmd.Flags().GetBool("revs")
			opts.RevsInfo, _ = cmd.Flags().GetBool("revs-info")

			ctx, cancel := commandContext()
			defer cancel()
			doc, err := couchClient.Get(ctx, args[0], args[1], opts)
			if err != nil {
				return err
			}
			return util.PrintJSON(doc)
		},
	}
	docPutCmd = &cobra.Command{
		Use:   "put [db] [id] [json]",
		Short: "Creates or updates a document (reads the JSON from stdin if omitted)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := bodyArg(args, 2)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()
			res, err := couchClient.Put(ctx, args[0], args[1], body)
			if err != nil {
				return err
			}
			return util.PrintJSON(res)
		},
	}
	docPostCmd = &cobra.Command{
		Use:   "post [db] [json]",
		Short: "Creates a document with a server generated id (reads the JSON from stdin if omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := bodyArg(args, 1)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()
			res, err := couchClient.Post(ctx, args[0], body)
			if err != nil {
				return err
			}
			return util.PrintJSON(res)
		},
	}
	docDeleteCmd = &cobra.Command{
		Use:   "delete [db] [id] [rev]",
		Short: "Deletes a document at the given revision",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			if err := couchClient.Delete(ctx, args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[1])
			return nil
		},
	}
	docCopyCmd = &cobra.Command{
		Use:   "copy [db] [source] [destination]",
		Short: "Copies a document (use --rev to overwrite an existing destination)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, _ := cmd.Flags().GetString("rev")
			ctx, cancel := commandContext()
			defer cancel()
			res, err := couchClient.Copy(ctx, args[0], args[1], args[2], rev)
			if err != nil {
				return err
			}
			return util.PrintJSON(res)
		},
	}
	docBulkCmd = &cobra.Command{
		Use:   "bulk [db] [json]",
		Short: "Applies a JSON array of documents in one request (reads stdin if omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := bodyArg(args, 1)
			if err != nil {
				return err
			}
			var docs []interface{}
			if err := json.Unmarshal(body, &docs); err != nil {
				return fmt.Errorf("documents must be a JSON array: %w", err)
			}
			ctx, cancel := commandContext()
			defer cancel()
			res, err := couchClient.Bulk(ctx, args[0], docs)
			if err != nil {
				return err
			}
			return util.PrintJSON(res)
		},
	}
)

// --------------------------------------------------------------------------
// Views and ids
// --------------------------------------------------------------------------

var (
	// ViewCmd queries a view
	ViewCmd = &cobra.Command{
		Use:               "view [db] [design] [view]",
		Short:             "Queries a view of a design document",
		Args:              cobra.ExactArgs(3),
		PersistentPreRunE: setupClient,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			opts := store.ViewOptions{}
			opts.Reduce, _ = flags.GetBool("reduce")
			opts.Descending, _ = flags.GetBool("descending")
			opts.IncludeDocs, _ = flags.GetBool("include-docs")
			opts.WithoutDeleted, _ = flags.GetBool("without-deleted")
			opts.Limit, _ = flags.GetInt("limit")
			opts.StartKeyDocID, _ = flags.GetString("startkey-docid")
			opts.EndKeyDocID, _ = flags.GetString("endkey-docid")
			if flags.Changed("key") {
				raw, _ := flags.GetString("key")
				opts.HasKey, opts.Key = true, query.DecodeJSON(raw)
			}
			if raw, _ := flags.GetString("startkey"); raw != "" {
				opts.StartKey = query.DecodeJSON(raw)
			}
			if raw, _ := flags.GetString("endkey"); raw != "" {
				opts.EndKey = query.DecodeJSON(raw)
			}

			ctx, cancel := commandContext()
			defer cancel()
			res, err := couchClient.View(ctx, args[0], args[1], args[2], opts)
			if err != nil {
				return err
			}
			return util.PrintJSON(res)
		},
	}

	// UUIDsCmd mints ids on the server
	UUIDsCmd = &cobra.Command{
		Use:               "uuids [count]",
		Short:             "Prints fresh document ids minted by the server",
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: setupClient,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) == 1 {
				if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil || n < 0 {
					return fmt.Errorf("count must be a non-negative number: %s", args[0])
				}
			}
			ctx, cancel := commandContext()
			defer cancel()
			ids, err := couchClient.UUIDs(ctx, n)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
)

func init() {
	key := "descending"
	dbAllDocsCmd.Flags().Bool(key, false, util.WrapString("Reverse the order of the listing"))
	ViewCmd.Flags().Bool(key, false, util.WrapString("Reverse the order of the rows"))

	key = "include-docs"
	dbAllDocsCmd.Flags().Bool(key, false, util.WrapString("Include the full documents"))
	ViewCmd.Flags().Bool(key, false, util.WrapString("Include the full documents"))

	key = "limit"
	dbAllDocsCmd.Flags().Int(key, 0, util.WrapString("Maximum number of rows (0 = unlimited)"))
	ViewCmd.Flags().Int(key, 0, util.WrapString("Maximum number of rows (0 = unlimited)"))

	key = "startkey"
	dbAllDocsCmd.Flags().String(key, "", util.WrapString("First document id of the listing"))
	ViewCmd.Flags().String(key, "", util.WrapString("JSON encoded start of the key range"))

	key = "endkey"
	dbAllDocsCmd.Flags().String(key, "", util.WrapString("Last document id of the listing"))
	ViewCmd.Flags().String(key, "", util.WrapString("JSON encoded end of the key range"))

	ViewCmd.Flags().String("key", "", util.WrapString("JSON encoded key to match (e.g. '\"Bert\"' or '[\"Bert\",\"Alf\"]')"))
	ViewCmd.Flags().Bool("reduce", false, util.WrapString("Return only the number of matching rows"))
	ViewCmd.Flags().Bool("without-deleted", false, util.WrapString("Skip soft deleted documents"))
	ViewCmd.Flags().String("startkey-docid", "", util.WrapString("Lower bound of the document ids"))
	ViewCmd.Flags().String("endkey-docid", "", util.WrapString("Upper bound of the document ids"))

	docGetCmd.Flags().String("rev", "", util.WrapString("Only return the document at this revision"))
	docGetCmd.Flags().Bool("revs", false, util.WrapString("Include the revision history"))
	docGetCmd.Flags().Bool("revs-info", false, util.WrapString("Include the revision info"))

	docCopyCmd.Flags().String("rev", "", util.WrapString("Current revision of the destination document"))
}

// bodyArg returns args[i] or, if absent, everything read from stdin
func bodyArg(args []string, i int) ([]byte, error) {
	if len(args) > i {
		return []byte(args[i]), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, nil
}

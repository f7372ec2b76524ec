package couch

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dCouch/cmd/util"
	"github.com/ValentinKolb/dCouch/lib/store"
	"github.com/ValentinKolb/dCouch/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// PerfCmd runs throughput benchmarks against a server
	PerfCmd = &cobra.Command{
		Use:               "perf",
		Short:             "Performance testing tool for dCouch servers",
		PersistentPreRunE: setupClient,
		PreRunE:           processPerfConfig,
		RunE:              runPerf,
	}
	perfDatabase   = "__perf"
	perfNumThreads = 10
	perfDocSpread  = 100
	perfSkip       = make([]string, 0)
)

func init() {
	key := "skip"
	PerfCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. post,view)"))
	key = "threads"
	PerfCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "docs"
	PerfCmd.Flags().Int(key, 100, util.WrapString("How many different documents to use for the read and view tests"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfDocSpread = viper.GetInt("docs")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	if perfDocSpread < 1 {
		return fmt.Errorf("docs must be at least 1")
	}
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for dCouch servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	ctx := context.Background()
	if err := couchClient.CreateDB(ctx, perfDatabase); err != nil {
		return err
	}
	defer func() {
		if err := couchClient.DeleteDB(ctx, perfDatabase); err != nil {
			log.Printf("error deleting benchmark database: %v\n", err)
		}
	}()

	ids, err := seedDocuments(ctx)
	if err != nil {
		return err
	}

	fmt.Println("starting tests...")
	results := make(map[string]testing.BenchmarkResult)
	benchmarks := []struct {
		name string
		fn   func(ctx context.Context, i int) error
	}{
		{"post", func(ctx context.Context, i int) error {
			_, err := couchClient.Post(ctx, perfDatabase, map[string]interface{}{"ruby_class": "Perf", "n": i})
			return err
		}},
		{"get", func(ctx context.Context, i int) error {
			_, err := couchClient.Get(ctx, perfDatabase, ids[i%len(ids)], store.LoadOptions{})
			return err
		}},
		{"update", func(ctx context.Context, i int) error {
			// one document per iteration
			res, err := couchClient.Post(ctx, perfDatabase, map[string]interface{}{"n": i})
			if err != nil {
				return err
			}
			_, err = couchClient.Put(ctx, perfDatabase, res.ID, map[string]interface{}{"n": i + 1, "_rev": res.Rev})
			return err
		}},
		{"view", func(ctx context.Context, i int) error {
			_, err := couchClient.View(ctx, perfDatabase, "perf", "by_n", store.ViewOptions{HasKey: true, Key: i % len(ids)})
			return err
		}},
		{"all-docs", func(ctx context.Context, i int) error {
			_, err := couchClient.AllDocs(ctx, perfDatabase, store.AllDocsOptions{Limit: 10})
			return err
		}},
	}

	for _, bm := range benchmarks {
		result := benchmark(ctx, bm.name, bm.fn)
		results[bm.name] = result
		printResult(bm.name, result)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return err
		}
		fmt.Printf("results written to %s\n", csvPath)
	}

	return nil
}

// seedDocuments stores the documents the read benchmarks work on
func seedDocuments(ctx context.Context) ([]string, error) {
	docs := []interface{}{
		map[string]interface{}{"_id": "_design/perf", "views": map[string]interface{}{
			"by_n": map[string]interface{}{"map": "function(doc){ if(doc.ruby_class == 'Perf') emit(doc.n, null) }"},
		}},
	}
	for i := 0; i < perfDocSpread; i++ {
		docs = append(docs, map[string]interface{}{
			"_id":        fmt.Sprintf("perf-%d", i),
			"ruby_class": "Perf",
			"n":          i,
		})
	}
	rows, err := couchClient.Bulk(ctx, perfDatabase, docs)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, perfDocSpread)
	for _, row := range rows {
		if row.Error != "" {
			return nil, fmt.Errorf("seeding %s failed: %s", row.ID, row.Reason)
		}
		if !store.IsDesignID(row.ID) {
			ids = append(ids, row.ID)
		}
	}
	return ids, nil
}

// benchmark runs fn in parallel unless name is skipped
func benchmark(ctx context.Context, name string, fn func(ctx context.Context, i int) error) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		if shouldSkip(name) {
			return
		}

		var counter atomic.Int64
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if err := fn(ctx, int(counter.Add(1))); err != nil {
					log.Printf("(%s) - error: %v\n", name, err)
				}
			}
		})
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoint", "TimeoutSec", "RetryCount", "Threads", "Docs",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp, opsPerSec float64
		skipped := "true"
		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.Endpoint,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfDocSpread),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}

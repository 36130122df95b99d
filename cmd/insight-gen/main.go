package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/smallbiznis/insight/internal/generator"
	"go.uber.org/zap"
)

// insight-gen writes a synthetic transaction CSV in the upload template
// format, for demos and for load-testing the analyze endpoint.
func main() {
	count := flag.Int("count", 200, "number of synthetic customers")
	seed := flag.Int64("seed", 0, "rng seed; 0 uses the current time")
	out := flag.String("out", "transactions.csv", "output file path")
	flag.Parse()

	if *count <= 0 {
		fmt.Fprintln(os.Stderr, "count must be positive")
		os.Exit(1)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	g := generator.New(log)
	txns := g.Generate(rand.New(rand.NewSource(*seed)), *count, time.Now().UTC())

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create %s: %v\n", *out, err)
		os.Exit(1)
	}
	defer f.Close()

	bar := progressbar.Default(int64(len(txns)), "writing rows")

	w := csv.NewWriter(f)
	if err := w.Write([]string{"CustomerID", "Amount", "Date", "Category", "Channel"}); err != nil {
		fmt.Fprintf(os.Stderr, "write header: %v\n", err)
		os.Exit(1)
	}
	for _, tx := range txns {
		record := []string{
			tx.CustomerID,
			strconv.FormatFloat(tx.Amount, 'f', -1, 64),
			tx.Date.Format("2006-01-02"),
			tx.Category,
			tx.Channel,
		}
		if err := w.Write(record); err != nil {
			fmt.Fprintf(os.Stderr, "write row: %v\n", err)
			os.Exit(1)
		}
		_ = bar.Add(1)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "flush: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %d transactions for %d customers to %s (seed %d)\n", len(txns), *count, *out, *seed)
}

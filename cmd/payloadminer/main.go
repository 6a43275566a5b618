// Command payloadminer is the CLI entry point described in §6: one executable with three
// mutually exclusive modes driving the extract/persist pipeline, the detector runner, and the
// read views, against a shared sqlite3 database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/tokenized/payloadminer/bitcoin"
	"github.com/tokenized/payloadminer/detect"
	"github.com/tokenized/payloadminer/ethereum"
	"github.com/tokenized/payloadminer/logger"
	"github.com/tokenized/payloadminer/monero"
	"github.com/tokenized/payloadminer/pipeline"
	"github.com/tokenized/payloadminer/store"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const usage = `payloadminer <mode> [flags] <arg>

modes:
  parse   --blockchain <id> [--database test.db] <path>
  analyze --blockchain <id> [--database test.db] <detector>
          detector: native_strings | gnu_strings | imghdr_files | magic_files
  view    [--blockchain <id>] [--database test.db] <report>
          report: ascii_histogram | magic_file_histogram | imghdr_file_histogram |
                  record_stats

flags must come before the argument.
`

// config holds the ambient settings shared by every mode (§6), loaded from the environment via
// envconfig the way spynoded/cmd/spynoded/main.go loads its node config.
type config struct {
	Database string `default:"test.db" envconfig:"DATABASE"`
}

func main() {
	logConfig := logger.NewDevelopmentConfig()
	ctx := logger.ContextWithLogConfig(context.Background(), logConfig)

	var cfg config
	if err := envconfig.Process("PAYLOADMINER", &cfg); err != nil {
		logger.Warn(ctx, "parsing config : %s", err)
	}

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	mode := os.Args[1]
	flags := flag.NewFlagSet(mode, flag.ExitOnError)
	database := flags.String("database", cfg.Database, "path to the sqlite3 database")
	blockchainArg := flags.String("blockchain", "", "blockchain id")
	if err := flags.Parse(os.Args[2:]); err != nil {
		logger.Fatal(ctx, "parse flags : %s", err)
	}

	if flags.NArg() != 1 {
		fmt.Print(usage)
		os.Exit(1)
	}
	arg := flags.Arg(0)
	chain := pipeline.Chain(*blockchainArg)

	var err error
	switch mode {
	case "parse":
		err = runParse(ctx, *database, chain, arg)
	case "analyze":
		err = runAnalyze(ctx, *database, chain, detect.Name(arg))
	case "view":
		err = runView(ctx, *database, chain, arg)
	default:
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		logger.Error(ctx, "%s failed : %s", mode, err)
		os.Exit(1)
	}
}

// runParse drives one chain's Extractor over the Record Bus into the store (§4.3, §4.5).
func runParse(ctx context.Context, database string, chain pipeline.Chain, path string) error {
	if !chain.Valid() {
		return errors.Errorf("unknown blockchain selector %q", chain)
	}

	st, err := store.Open(database)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer st.Close()

	extract, err := extractorFor(chain, path)
	if err != nil {
		return err
	}

	bus := pipeline.NewBus(chain, pipeline.DefaultBatchSize*4, pipeline.DefaultBatchSize, st.InsertRaw)

	extractorThread := pipeline.ExtractorThread("extractor", bus, extract)
	writerThread := pipeline.WriterThread("writer", bus)

	var wait sync.WaitGroup
	extractorThread.SetWait(&wait)
	writerThread.SetWait(&wait)

	extractorThread.Start(ctx)
	writerThread.Start(ctx)
	wait.Wait()

	if err := extractorThread.Error(); err != nil {
		return errors.Wrap(err, "extract")
	}
	return errors.Wrap(writerThread.Error(), "write")
}

func extractorFor(chain pipeline.Chain, path string) (func(ctx context.Context, bus *pipeline.Bus) error, error) {
	switch {
	case chain.IsBitcoin():
		e := &bitcoin.Extractor{Root: path, Params: bitcoinParams(chain)}
		return e.Extract, nil
	case chain.IsMonero():
		e := &monero.Extractor{LMDBDir: path}
		return e.Extract, nil
	case chain.IsEthereum():
		e := &ethereum.Extractor{ChaindataDir: path}
		return e.Extract, nil
	}
	return nil, errors.Errorf("unknown blockchain selector %q", chain)
}

func bitcoinParams(chain pipeline.Chain) *chaincfg.Params {
	switch chain {
	case pipeline.BitcoinTestnet3:
		return &chaincfg.TestNet3Params
	case pipeline.BitcoinRegtest:
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

// runAnalyze drives the Detector Runner (§4.7) over every stored RawRecord of chain.
func runAnalyze(ctx context.Context, database string, chain pipeline.Chain, name detect.Name) error {
	if !name.Valid() {
		return errors.Errorf("unknown detector selector %q", name)
	}

	st, err := store.Open(database)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer st.Close()

	return detect.Run(ctx, st, chain, name)
}

// runView runs one read view (§4.6) and prints its rows.
func runView(ctx context.Context, database string, chain pipeline.Chain, report string) error {
	st, err := store.Open(database)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer st.Close()

	switch report {
	case "ascii_histogram":
		buckets, err := st.AsciiHistogram(ctx, chain)
		if err != nil {
			return err
		}
		printBuckets(buckets)

	case "magic_file_histogram":
		buckets, err := st.MagicFileHistogram(ctx, chain)
		if err != nil {
			return err
		}
		printBuckets(buckets)

	case "imghdr_file_histogram":
		buckets, err := st.ImghdrFileHistogram(ctx, chain)
		if err != nil {
			return err
		}
		printBuckets(buckets)

	case "record_stats":
		stats, err := st.RecordStatistics(ctx, chain)
		if err != nil {
			return err
		}
		fmt.Printf("total records: %d\n", stats.TotalRecords)
		fmt.Printf("max data length: %d\n", stats.MaxDataLength)
		for kind, count := range stats.ByKind {
			fmt.Printf("  %s: %d\n", kind, count)
		}

	default:
		return errors.Errorf("unknown report selector %q", report)
	}

	return nil
}

func printBuckets(buckets []store.HistogramBucket) {
	for _, b := range buckets {
		fmt.Printf("%s: %d\n", b.Label, b.Count)
	}
}

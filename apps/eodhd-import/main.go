// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/stockparfait/eodhd"
	"github.com/stockparfait/eodhd/db"
	"github.com/stockparfait/eodhd/table"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"

	toml "github.com/pelletier/go-toml/v2"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// timeNow is the time source for Date_Updated stamps and the default -to
// date; tests substitute a fixed clock.
var timeNow = time.Now

type Flags struct {
	CacheDir string // default: ~/.stockparfait/eodhd
	LogLevel logging.Level
	// Exactly one of exchanges, tickers, daily or history must be present.
	Exchanges bool
	Tickers   string // exchange code to list symbols for
	Daily     string // comma-separated exchange codes for bulk last-day prices
	History   string // ticker code for the full price history
	Exchange  string // exchange code for -history
	To        string // upper bound date for -history; default: today
	CSV       bool   // dump CSV format; default: text
	Stats     bool   // print close price summary for -daily / -history
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("eodhd-import", flag.ExitOnError)
	fs.StringVar(&flags.CacheDir, "cache",
		filepath.Join(os.Getenv("HOME"), ".stockparfait", "eodhd"),
		"configuration path")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.BoolVar(&flags.Exchanges, "exchanges", false, "download the exchange list")
	fs.StringVar(&flags.Tickers, "tickers", "",
		"exchange code to download the symbol list for")
	fs.StringVar(&flags.Daily, "daily", "",
		"comma-separated exchange codes to download bulk last-day prices for")
	fs.StringVar(&flags.History, "history", "",
		"ticker code to download the full price history for; requires -exchange")
	fs.StringVar(&flags.Exchange, "exchange", "", "exchange code for -history")
	fs.StringVar(&flags.To, "to", "",
		"inclusive upper bound date for -history as YYYY-MM-DD; default: today")
	fs.BoolVar(&flags.CSV, "csv", false,
		"print table in CSV format; default: text")
	fs.BoolVar(&flags.Stats, "stats", false,
		"print summary statistics of the close prices")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	kinds := 0
	if flags.Exchanges {
		kinds++
	}
	if flags.Tickers != "" {
		kinds++
	}
	if flags.Daily != "" {
		kinds++
	}
	if flags.History != "" {
		kinds++
	}
	if kinds != 1 {
		return nil, errors.Reason(
			"expected exactly one of -exchanges, -tickers, -daily or -history")
	}
	if flags.History != "" && flags.Exchange == "" {
		return nil, errors.Reason("-history requires -exchange")
	}
	if flags.Stats && flags.Daily == "" && flags.History == "" {
		return nil, errors.Reason("-stats applies only to -daily or -history")
	}
	return &flags, nil
}

type Config struct {
	Key string `toml:"key"` // user key for the EODHD API
}

func parseConfig(cacheDir string) (*Config, error) {
	filePath := filepath.Join(cacheDir, "config.toml")
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sample := `key = "YourSecretEODHDKey"
`
			err = errors.Annotate(err,
				"config file '%s' does not exist.\nPlease create config file containing:\n%s",
				filePath, sample)
			return nil, err
		} else {
			return nil, errors.Annotate(err,
				"cannot check config file for existence: '%s'", filePath)
		}
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	return &c, nil
}

func exchangesTable(ctx context.Context) (*table.Table, error) {
	rows, err := eodhd.FetchExchanges(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch exchanges")
	}
	tbl := table.NewTable(eodhd.ExchangeRowHeader()...)
	for _, r := range rows {
		tbl.AddRow(r)
	}
	return tbl, nil
}

func tickersTable(ctx context.Context, exchange string) (*table.Table, error) {
	rows, err := eodhd.FetchTickers(ctx, exchange)
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch tickers for %s", exchange)
	}
	tbl := table.NewTable(eodhd.TickerRowHeader()...)
	for _, r := range rows {
		tbl.AddRow(r)
	}
	return tbl, nil
}

func historyPrices(ctx context.Context, flags *Flags) ([]eodhd.PriceRow, error) {
	to := db.NewDateFromTime(timeNow())
	if flags.To != "" {
		var err error
		if to, err = db.NewDateFromString(flags.To); err != nil {
			return nil, errors.Annotate(err, "invalid -to date '%s'", flags.To)
		}
	}
	rows, err := eodhd.FetchHistorical(ctx, flags.Exchange, flags.History, to)
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch history for %s.%s",
			flags.History, flags.Exchange)
	}
	return rows, nil
}

// dailyPrices fetches bulk last-day prices for several exchanges in parallel.
// Exchanges that fail or have no data are skipped with a warning.
func dailyPrices(ctx context.Context, codesList string) ([]eodhd.PriceRow, error) {
	codes := strings.Split(codesList, ",")
	slices.Sort(codes)
	f := func(code string) []eodhd.PriceRow {
		rows, err := eodhd.FetchDaily(ctx, code)
		if err != nil {
			logging.Warningf(ctx, "skipping exchange %s: %s", code, err.Error())
			return nil
		}
		return rows
	}
	pm := iterator.ParallelMap(ctx, 2*runtime.NumCPU(), iterator.FromSlice(codes), f)
	defer pm.Close()

	prices := iterator.Reduce[[]eodhd.PriceRow, []eodhd.PriceRow](
		pm, []eodhd.PriceRow{},
		func(rows, acc []eodhd.PriceRow) []eodhd.PriceRow {
			return append(acc, rows...)
		})
	if len(prices) == 0 {
		return nil, errors.Reason("no daily prices for any of: %s", codesList)
	}
	return prices, nil
}

func pricesTable(prices []eodhd.PriceRow) *table.Table {
	tbl := table.NewTable(eodhd.PriceRowHeader()...)
	for _, r := range prices {
		tbl.AddRow(r)
	}
	return tbl
}

// closeStats summarizes the close prices of the fetched rows.
func closeStats(rows []eodhd.PriceRow) (n int, mean, stddev, min, max float64) {
	if len(rows) == 0 {
		return 0, 0.0, 0.0, 0.0, 0.0
	}
	closes := make([]float64, len(rows))
	for i, r := range rows {
		closes[i] = r.Close
	}
	return len(closes), stat.Mean(closes, nil), stat.StdDev(closes, nil),
		floats.Min(closes), floats.Max(closes)
}

func run(ctx context.Context, flags *Flags, w io.Writer) error {
	config, err := parseConfig(flags.CacheDir)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	ctx = eodhd.UseClientAt(ctx, config.Key, timeNow)

	var tbl *table.Table
	var prices []eodhd.PriceRow
	switch {
	case flags.Exchanges:
		if tbl, err = exchangesTable(ctx); err != nil {
			return err
		}
	case flags.Tickers != "":
		if tbl, err = tickersTable(ctx, flags.Tickers); err != nil {
			return err
		}
	case flags.History != "":
		if prices, err = historyPrices(ctx, flags); err != nil {
			return err
		}
		tbl = pricesTable(prices)
	case flags.Daily != "":
		if prices, err = dailyPrices(ctx, flags.Daily); err != nil {
			return err
		}
		tbl = pricesTable(prices)
	}

	if flags.CSV {
		if err := tbl.WriteCSV(w, table.Params{}); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
	} else {
		if err := tbl.WriteText(w, table.Params{}); err != nil {
			return errors.Annotate(err, "failed to print text")
		}
	}
	if flags.Stats && len(prices) > 0 {
		n, mean, stddev, min, max := closeStats(prices)
		_, err := fmt.Fprintf(w, "close: n=%d mean=%.4f stddev=%.4f min=%.4f max=%.4f\n",
			n, mean, stddev, min, max)
		if err != nil {
			return errors.Annotate(err, "failed to print stats")
		}
	}
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := run(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}

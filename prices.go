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

package eodhd

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/stockparfait/eodhd/db"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// earliestFrom is the lower bound date of a historical price request, early
// enough to cover the full available history of any ticker.
const earliestFrom = "1900-01-01"

// PriceRow is a normalized end-of-day price record, historical or bulk-daily.
type PriceRow struct {
	TickerID      string
	Date          db.Date
	Open          float64
	High          float64
	Low           float64
	Close         float64
	AdjustedClose float64
	Volume        float64
}

// PriceRowHeader returns the column names for PriceRow in the canonical order
// expected by the database uploader.
func PriceRowHeader() []string {
	return []string{
		"Ticker_ID",
		"Date",
		"Open",
		"High",
		"Low",
		"Close",
		"Adjusted_Close",
		"Volume",
	}
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CSV implements table.Row.
func (r PriceRow) CSV() []string {
	return []string{
		r.TickerID,
		r.Date.String(),
		ftoa(r.Open),
		ftoa(r.High),
		ftoa(r.Low),
		ftoa(r.Close),
		ftoa(r.AdjustedClose),
		ftoa(r.Volume),
	}
}

// loadPriceFields populates the OHLCV fields of r from the object m, checking
// that every key of m is in the known set. A key outside the set fails with
// ErrSchema rather than risk mislabeling the data; a missing key loads as a
// zero value, tolerating providers that return fewer columns.
func loadPriceFields(r *PriceRow, m map[string]interface{}, known map[string]bool) error {
	for k := range m {
		if !known[k] {
			return schemaErr("unknown price column %q", k)
		}
	}
	var err error
	if r.Date, err = value2date("date", m["date"]); err != nil {
		return err
	}
	if r.Open, err = value2num("open", m["open"]); err != nil {
		return err
	}
	if r.High, err = value2num("high", m["high"]); err != nil {
		return err
	}
	if r.Low, err = value2num("low", m["low"]); err != nil {
		return err
	}
	if r.Close, err = value2num("close", m["close"]); err != nil {
		return err
	}
	if r.AdjustedClose, err = value2num("adjusted_close", m["adjusted_close"]); err != nil {
		return err
	}
	if r.Volume, err = value2num("volume", m["volume"]); err != nil {
		return err
	}
	return nil
}

var historicalColumns = map[string]bool{
	"date":           true,
	"open":           true,
	"high":           true,
	"low":            true,
	"close":          true,
	"adjusted_close": true,
	"volume":         true,
}

var dailyColumns = map[string]bool{
	"code":                true,
	"exchange_short_name": true,
	"date":                true,
	"open":                true,
	"high":                true,
	"low":                 true,
	"close":               true,
	"adjusted_close":      true,
	"volume":              true,
}

// FetchHistorical downloads the full price history of a single ticker up to
// and including the "to" date. The ticker is addressed by the provider as
// "{ticker}.{exchange}"; the resulting TickerID is that identifier with every
// "." replaced by "_". An empty history is an expected outcome (e.g. a
// delisted or invalid ticker) and yields ErrNoData.
func FetchHistorical(ctx context.Context, exchange, ticker string, to db.Date) ([]PriceRow, error) {
	eodTicker := ticker + "." + exchange
	query := make(url.Values)
	query["from"] = []string{earliestFrom}
	query["to"] = []string{to.String()}
	var raw []map[string]interface{}
	if err := getJSON(ctx, "/eod/"+eodTicker, query, &raw); err != nil {
		logging.Errorf(ctx, "failed to fetch prices for %s: %s",
			eodTicker, err.Error())
		return nil, errors.Annotate(err, "failed to fetch prices for %s", eodTicker)
	}
	if len(raw) == 0 {
		logging.Debugf(ctx, "no data returned for ticker %s on exchange %s",
			ticker, exchange)
		return nil, errors.Annotate(ErrNoData, "no price history for %s", eodTicker)
	}
	tickerID := strings.ReplaceAll(eodTicker, ".", "_")
	rows := make([]PriceRow, 0, len(raw))
	for i, m := range raw {
		r := PriceRow{TickerID: tickerID}
		if err := loadPriceFields(&r, m, historicalColumns); err != nil {
			logging.Errorf(ctx, "failed to process prices for %s: %s",
				eodTicker, err.Error())
			return nil, errors.Annotate(err, "failed to parse price row %d", i)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// dailyRowFromJSON loads a bulk last-day price object. The provider's "code"
// and "exchange_short_name" fields are consumed by the TickerID derivation
// and dropped from the row.
func dailyRowFromJSON(m map[string]interface{}, exchange string) (PriceRow, error) {
	code, err := value2str("code", m["code"])
	if err != nil {
		return PriceRow{}, err
	}
	if code == "" {
		return PriceRow{}, schemaErr("daily price row has no code: %v", m)
	}
	if _, ok := m["exchange_short_name"]; !ok {
		return PriceRow{}, schemaErr("daily price row has no exchange_short_name: %v", m)
	}
	r := PriceRow{TickerID: code + "_" + exchange}
	if err := loadPriceFields(&r, m, dailyColumns); err != nil {
		return PriceRow{}, err
	}
	return r, nil
}

// FetchDaily downloads the most recent end-of-day prices for all tickers of
// the given exchange. An empty response yields ErrNoData.
func FetchDaily(ctx context.Context, exchange string) ([]PriceRow, error) {
	var raw []map[string]interface{}
	if err := getJSON(ctx, "/eod-bulk-last-day/"+exchange, nil, &raw); err != nil {
		logging.Errorf(ctx, "failed to fetch daily prices for %s: %s",
			exchange, err.Error())
		return nil, errors.Annotate(err, "failed to fetch daily prices for %s", exchange)
	}
	if len(raw) == 0 {
		logging.Warningf(ctx, "no daily price data retrieved for %s", exchange)
		return nil, errors.Annotate(ErrNoData, "no daily prices for exchange %s", exchange)
	}
	rows := make([]PriceRow, 0, len(raw))
	for i, m := range raw {
		r, err := dailyRowFromJSON(m, exchange)
		if err != nil {
			logging.Errorf(ctx, "failed to process daily prices for %s: %s",
				exchange, err.Error())
			return nil, errors.Annotate(err, "failed to parse daily price row %d", i)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

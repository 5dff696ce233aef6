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
	"fmt"

	"github.com/stockparfait/eodhd/db"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// TickerRow is a normalized ticker record for a single exchange.
//
// TickerID is synthesized as "{Code}_{exchange}" and is unique per
// (Code, exchange) pair within one fetch. EoDHDExchange is the provider's
// exchange label with all US venues collapsed to the literal "US".
type TickerRow struct {
	TickerID      string
	Code          string
	Name          string
	Country       string
	Exchange      string
	EoDHDExchange string
	Currency      string
	Type          string
	Isin          string
	Source        string
	DateUpdated   db.Time
}

// TickerRowHeader returns the column names for TickerRow in the order
// expected by the database uploader.
func TickerRowHeader() []string {
	return []string{
		"Ticker_ID",
		"Code",
		"Name",
		"Country",
		"Exchange",
		"EoDHD_Exchange",
		"Currency",
		"Type",
		"Isin",
		"Source",
		"Date_Updated",
	}
}

// CSV implements table.Row.
func (r TickerRow) CSV() []string {
	return []string{
		r.TickerID,
		r.Code,
		r.Name,
		r.Country,
		r.Exchange,
		r.EoDHDExchange,
		r.Currency,
		r.Type,
		r.Isin,
		r.Source,
		r.DateUpdated.String(),
	}
}

// normalizeUSExchange collapses the codes from the static US exchange table
// to "US"; all other codes pass through unchanged.
func normalizeUSExchange(code string) string {
	if isUSExchange(code) {
		return "US"
	}
	return code
}

// tickerRowFromJSON loads a provider symbol object. Code and Exchange are
// required for the derived fields, the rest default to empty.
func tickerRowFromJSON(m map[string]interface{}) (TickerRow, error) {
	var r TickerRow
	var err error
	if r.Code, err = value2str("Code", m["Code"]); err != nil {
		return TickerRow{}, err
	}
	if r.Code == "" {
		return TickerRow{}, schemaErr("ticker row has no Code: %v", m)
	}
	if r.Exchange, err = value2str("Exchange", m["Exchange"]); err != nil {
		return TickerRow{}, err
	}
	if r.Exchange == "" {
		return TickerRow{}, schemaErr("ticker row has no Exchange: %v", m)
	}
	if r.Name, err = value2str("Name", m["Name"]); err != nil {
		return TickerRow{}, err
	}
	if r.Country, err = value2str("Country", m["Country"]); err != nil {
		return TickerRow{}, err
	}
	if r.Currency, err = value2str("Currency", m["Currency"]); err != nil {
		return TickerRow{}, err
	}
	if r.Type, err = value2str("Type", m["Type"]); err != nil {
		return TickerRow{}, err
	}
	if r.Isin, err = value2str("Isin", m["Isin"]); err != nil {
		return TickerRow{}, err
	}
	return r, nil
}

// FetchTickers downloads the symbol list for the given exchange code, e.g.
// "LSE". An empty response yields ErrNoData.
func FetchTickers(ctx context.Context, exchange string) ([]TickerRow, error) {
	client := GetClient(ctx)
	if client == nil {
		return nil, errors.Reason("no client in context")
	}
	var raw []map[string]interface{}
	if err := getJSON(ctx, "/exchange-symbol-list/"+exchange, nil, &raw); err != nil {
		logging.Errorf(ctx, "failed to fetch tickers for %s: %s",
			exchange, err.Error())
		return nil, errors.Annotate(err, "failed to fetch tickers for %s", exchange)
	}
	if len(raw) == 0 {
		logging.Debugf(ctx, "no tickers returned for exchange %s", exchange)
		return nil, errors.Annotate(ErrNoData, "no tickers for exchange %s", exchange)
	}
	rows := make([]TickerRow, 0, len(raw))
	source := fmt.Sprintf("EoDHD.com - Exchange %s", exchange)
	updated := client.timestamp()
	for i, m := range raw {
		r, err := tickerRowFromJSON(m)
		if err != nil {
			logging.Errorf(ctx, "failed to process ticker data for %s: %s",
				exchange, err.Error())
			return nil, errors.Annotate(err, "failed to parse ticker row %d", i)
		}
		r.TickerID = r.Code + "_" + exchange
		r.EoDHDExchange = normalizeUSExchange(r.Exchange)
		r.Source = source
		r.DateUpdated = updated
		rows = append(rows, r)
	}
	return rows, nil
}

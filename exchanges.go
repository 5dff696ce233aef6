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

	"github.com/stockparfait/eodhd/db"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// Source values marking the provenance of a row.
const (
	// ProviderSource marks rows supplied by the provider.
	ProviderSource = "EoDHD.com"
	// ManualSource marks rows injected from the static US exchange table.
	ManualSource = "Manual_Input"
)

// ExchangeRow is a normalized exchange record.
type ExchangeRow struct {
	Code         string
	Name         string
	OperatingMIC string
	Country      string
	Currency     string
	CountryISO2  string
	CountryISO3  string
	Source       string
	DateUpdated  db.Time
}

// usExchanges are the statically configured records always appended to the
// provider's exchange list. The provider reports all US venues as a single
// "US" exchange, so the individual NYSE and NASDAQ entries are maintained
// here. Source and DateUpdated are stamped at fetch time.
var usExchanges = []ExchangeRow{
	{
		Code:         "NYSE",
		Name:         "New York Stock Exchange",
		OperatingMIC: "XNYS",
		Country:      "US",
		Currency:     "USD",
		CountryISO2:  "US",
		CountryISO3:  "USA",
	},
	{
		Code:         "NASDAQ",
		Name:         "NASDAQ",
		OperatingMIC: "XNAS",
		Country:      "US",
		Currency:     "USD",
		CountryISO2:  "US",
		CountryISO3:  "USA",
	},
}

// isUSExchange checks if the code belongs to the static US exchange table.
func isUSExchange(code string) bool {
	for _, e := range usExchanges {
		if e.Code == code {
			return true
		}
	}
	return false
}

// ExchangeRowHeader returns the column names for ExchangeRow in the order
// expected by the database uploader.
func ExchangeRowHeader() []string {
	return []string{
		"Code",
		"Name",
		"OperatingMIC",
		"Country",
		"Currency",
		"CountryISO2",
		"CountryISO3",
		"Source",
		"Date_Updated",
	}
}

// CSV implements table.Row.
func (r ExchangeRow) CSV() []string {
	return []string{
		r.Code,
		r.Name,
		r.OperatingMIC,
		r.Country,
		r.Currency,
		r.CountryISO2,
		r.CountryISO3,
		r.Source,
		r.DateUpdated.String(),
	}
}

// exchangeRowFromJSON loads a provider exchange object. Code and Name are
// required, the remaining fields default to empty.
func exchangeRowFromJSON(m map[string]interface{}) (ExchangeRow, error) {
	var r ExchangeRow
	var err error
	if r.Code, err = value2str("Code", m["Code"]); err != nil {
		return ExchangeRow{}, err
	}
	if r.Code == "" {
		return ExchangeRow{}, schemaErr("exchange row has no Code: %v", m)
	}
	if r.Name, err = value2str("Name", m["Name"]); err != nil {
		return ExchangeRow{}, err
	}
	if r.Name == "" {
		return ExchangeRow{}, schemaErr("exchange row has no Name: %v", m)
	}
	if r.OperatingMIC, err = value2str("OperatingMIC", m["OperatingMIC"]); err != nil {
		return ExchangeRow{}, err
	}
	if r.Country, err = value2str("Country", m["Country"]); err != nil {
		return ExchangeRow{}, err
	}
	if r.Currency, err = value2str("Currency", m["Currency"]); err != nil {
		return ExchangeRow{}, err
	}
	if r.CountryISO2, err = value2str("CountryISO2", m["CountryISO2"]); err != nil {
		return ExchangeRow{}, err
	}
	if r.CountryISO3, err = value2str("CountryISO3", m["CountryISO3"]); err != nil {
		return ExchangeRow{}, err
	}
	return r, nil
}

// FetchExchanges downloads the list of all available exchanges and appends
// the static US exchange records to it. Provider rows are tagged with
// ProviderSource, the appended rows with ManualSource, each with a fetch-time
// Date_Updated stamp. The result always has exactly len(provider rows) + 2
// entries. An empty provider response yields ErrNoData; the manual rows do
// not resurrect it.
func FetchExchanges(ctx context.Context) ([]ExchangeRow, error) {
	client := GetClient(ctx)
	if client == nil {
		return nil, errors.Reason("no client in context")
	}
	var raw []map[string]interface{}
	if err := getJSON(ctx, "/exchanges-list/", nil, &raw); err != nil {
		logging.Errorf(ctx, "failed to fetch exchanges: %s", err.Error())
		return nil, errors.Annotate(err, "failed to fetch exchanges")
	}
	if len(raw) == 0 {
		logging.Debugf(ctx, "no exchanges returned by the provider")
		return nil, errors.Annotate(ErrNoData, "no exchanges returned")
	}
	rows := make([]ExchangeRow, 0, len(raw)+len(usExchanges))
	updated := client.timestamp()
	for i, m := range raw {
		r, err := exchangeRowFromJSON(m)
		if err != nil {
			logging.Errorf(ctx, "failed to process exchange data: %s", err.Error())
			return nil, errors.Annotate(err, "failed to parse exchange row %d", i)
		}
		r.Source = ProviderSource
		r.DateUpdated = updated
		rows = append(rows, r)
	}
	for _, r := range usExchanges {
		r.Source = ManualSource
		r.DateUpdated = client.timestamp()
		rows = append(rows, r)
	}
	return rows, nil
}

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

// Package eodhd fetches market-reference data - exchanges, tickers,
// historical and bulk-daily prices - from the EODHD API and normalizes the
// JSON responses into typed rows suitable for database upload.
//
// Every fetch is a single synchronous request/transform/return cycle: no
// retries, no caching, no shared state between calls. Callers wanting
// parallelism or retry policies implement them on top.
package eodhd

import (
	"context"
	"net/url"
	"time"

	"github.com/stockparfait/eodhd/db"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// URL is the default base URL of the server. It may be overwritten in tests
// before creating a new client.
var URL = "https://eodhd.com/api"

// Failure classes of the fetch methods, detectable with errors.Is. Any other
// non-nil error is a transport failure from the request layer.
var (
	// ErrNoData indicates that the provider legitimately returned no data,
	// e.g. an unlisted exchange or a ticker with no trading history.
	ErrNoData = errors.Reason("no data")
	// ErrSchema indicates that the response does not match the expected shape:
	// a missing required field, a wrong value type, or an unknown price column.
	ErrSchema = errors.Reason("unexpected response schema")
)

// Client for querying the EODHD market-reference endpoints.
type Client struct {
	baseURL string           // the base URL of the server
	apiKey  string           // your very own secret key
	now     func() time.Time // time source for the Date_Updated stamps
}

// newClient creates a new client.
func newClient(baseURL, apiKey string, now func() time.Time) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		now:     now,
	}
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// UseClient creates a new client based on the API key and injects it into the
// context.
func UseClient(ctx context.Context, apiKey string) context.Context {
	return UseClientAt(ctx, apiKey, time.Now)
}

// UseClientAt is UseClient with an explicit time source, primarily for tests.
func UseClientAt(ctx context.Context, apiKey string, now func() time.Time) context.Context {
	return context.WithValue(ctx, clientContextKey, newClient(URL, apiKey, now))
}

// timestamp produces the Date_Updated stamp from the client's time source.
func (c *Client) timestamp() db.Time {
	return *db.NewTimeFromTime(c.now())
}

// getJSON requests the given API path and decodes the JSON response into v.
// The api_token and fmt=json query parameters are added here. Network and
// non-2xx failures come back as annotated transport errors.
func getJSON(ctx context.Context, path string, query url.Values, v interface{}) error {
	client := GetClient(ctx)
	if client == nil {
		return errors.Reason("no client in context")
	}
	if query == nil {
		query = make(url.Values)
	}
	query["api_token"] = []string{client.apiKey}
	query["fmt"] = []string{"json"}
	uri := client.baseURL + path
	if err := fetch.FetchJSON(ctx, uri, v, query, nil); err != nil {
		return errors.Annotate(err, "failed to fetch URL")
	}
	return nil
}

// schemaErr creates an error wrapping ErrSchema, so that callers can detect
// shape mismatches with errors.Is(err, ErrSchema).
func schemaErr(format string, args ...interface{}) error {
	return errors.Annotate(ErrSchema, format, args...)
}

func typeErr(field string, v interface{}, tp string) error {
	return schemaErr("%s should be %s but is %T: %v", field, tp, v, v)
}

func value2str(field string, v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	if str, ok := v.(string); ok {
		return str, nil
	}
	return "", typeErr(field, v, "a string")
}

func value2num(field string, v interface{}) (float64, error) {
	if v == nil {
		return 0.0, nil
	}
	if num, ok := v.(float64); ok { // JSON numbers always unmarshal to float64
		return num, nil
	}
	return 0.0, typeErr(field, v, "a number")
}

func value2date(field string, v interface{}) (db.Date, error) {
	if v == nil {
		return db.Date{}, nil
	}
	str, ok := v.(string)
	if !ok {
		return db.Date{}, typeErr(field, v, "a date string")
	}
	d, err := db.NewDateFromString(str)
	if err != nil {
		return db.Date{}, schemaErr("%s is not a valid date: %s", field, err.Error())
	}
	return d, nil
}

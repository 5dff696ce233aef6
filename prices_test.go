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
	"testing"

	"github.com/stockparfait/eodhd/db"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFetchHistorical(t *testing.T) {
	Convey("FetchHistorical works", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()

		ctx := fetch.UseClient(context.Background(), server.Client())
		URL = server.URL() + "/api"
		ctx = UseClientAt(ctx, "testkey", testNow)

		Convey("normalizes the full history", func() {
			server.ResponseBody = []string{`[
			  {"date": "2022-05-02", "open": 156.71, "high": 158.23,
			   "low": 153.27, "close": 157.96, "adjusted_close": 157.43,
			   "volume": 123055300},
			  {"date": "2022-05-03", "open": 158.15, "high": 160.71,
			   "low": 156.32, "close": 159.48, "adjusted_close": 158.94,
			   "volume": 88966500}
			]`}
			rows, err := FetchHistorical(ctx, "US", "AAPL", db.NewDate(2022, 5, 4))
			So(err, ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/api/eod/AAPL.US")
			So(server.RequestQuery["from"], ShouldResemble, []string{"1900-01-01"})
			So(server.RequestQuery["to"], ShouldResemble, []string{"2022-05-04"})

			So(len(rows), ShouldEqual, 2)
			So(rows[0].TickerID, ShouldEqual, "AAPL_US")
			So(rows[0].Date, ShouldResemble, db.NewDate(2022, 5, 2))
			So(testutil.RoundFixed(rows[0].Open, 2), ShouldEqual, 156.71)
			So(testutil.RoundFixed(rows[0].Close, 2), ShouldEqual, 157.96)
			So(testutil.RoundFixed(rows[0].AdjustedClose, 2), ShouldEqual, 157.43)
			So(rows[0].Volume, ShouldEqual, 123055300)
			So(rows[1].TickerID, ShouldEqual, "AAPL_US")
			So(rows[1].Date, ShouldResemble, db.NewDate(2022, 5, 3))
		})

		Convey("a dotted ticker yields a fully underscored ID", func() {
			server.ResponseBody = []string{`[
			  {"date": "2022-05-02", "open": 1, "high": 1, "low": 1,
			   "close": 1, "adjusted_close": 1, "volume": 1}
			]`}
			rows, err := FetchHistorical(ctx, "US", "BRK.B", db.NewDate(2022, 5, 4))
			So(err, ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/api/eod/BRK.B.US")
			So(rows[0].TickerID, ShouldEqual, "BRK_B_US")
		})

		Convey("empty history is no data, not an error class of its own", func() {
			server.ResponseBody = []string{`[]`}
			rows, err := FetchHistorical(ctx, "US", "GONE", db.NewDate(2022, 5, 4))
			So(rows, ShouldBeNil)
			So(errors.Is(err, ErrNoData), ShouldBeTrue)
			So(errors.Is(err, ErrSchema), ShouldBeFalse)
		})

		Convey("missing columns load as zero values", func() {
			server.ResponseBody = []string{`[
			  {"date": "2022-05-02", "close": 157.96}
			]`}
			rows, err := FetchHistorical(ctx, "US", "AAPL", db.NewDate(2022, 5, 4))
			So(err, ShouldBeNil)
			So(testutil.RoundFixed(rows[0].Close, 2), ShouldEqual, 157.96)
			So(rows[0].Open, ShouldEqual, 0.0)
			So(rows[0].Volume, ShouldEqual, 0.0)
		})

		Convey("an unknown column is a schema error", func() {
			server.ResponseBody = []string{`[
			  {"date": "2022-05-02", "close": 157.96, "vwap": 156.5}
			]`}
			_, err := FetchHistorical(ctx, "US", "AAPL", db.NewDate(2022, 5, 4))
			So(errors.Is(err, ErrSchema), ShouldBeTrue)
		})
	})
}

func TestFetchDaily(t *testing.T) {
	Convey("FetchDaily works", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()

		ctx := fetch.UseClient(context.Background(), server.Client())
		URL = server.URL() + "/api"
		ctx = UseClientAt(ctx, "testkey", testNow)

		Convey("derives Ticker_ID and drops the provider identity fields", func() {
			server.ResponseBody = []string{`[
			  {"code": "VOD", "exchange_short_name": "LSE",
			   "date": "2022-05-04", "open": 119.1, "high": 120.46,
			   "low": 118.2, "close": 119.66, "adjusted_close": 119.66,
			   "volume": 45632100},
			  {"code": "BP", "exchange_short_name": "LSE",
			   "date": "2022-05-04", "open": 398.0, "high": 404.3,
			   "low": 395.2, "close": 401.05, "adjusted_close": 401.05,
			   "volume": 60881200}
			]`}
			rows, err := FetchDaily(ctx, "LSE")
			So(err, ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/api/eod-bulk-last-day/LSE")

			So(len(rows), ShouldEqual, 2)
			So(rows[0].TickerID, ShouldEqual, "VOD_LSE")
			So(rows[1].TickerID, ShouldEqual, "BP_LSE")
			So(rows[0].Date, ShouldResemble, db.NewDate(2022, 5, 4))
			So(testutil.RoundFixed(rows[0].Close, 2), ShouldEqual, 119.66)
			// The row carries no code or exchange_short_name columns.
			So(PriceRowHeader(), ShouldResemble, []string{
				"Ticker_ID", "Date", "Open", "High", "Low",
				"Close", "Adjusted_Close", "Volume",
			})
			So(len(rows[0].CSV()), ShouldEqual, len(PriceRowHeader()))
		})

		Convey("empty response is no data", func() {
			server.ResponseBody = []string{`[]`}
			rows, err := FetchDaily(ctx, "LSE")
			So(rows, ShouldBeNil)
			So(errors.Is(err, ErrNoData), ShouldBeTrue)
		})

		Convey("a row without code is a schema error", func() {
			server.ResponseBody = []string{`[
			  {"exchange_short_name": "LSE", "date": "2022-05-04", "close": 1.0}
			]`}
			_, err := FetchDaily(ctx, "LSE")
			So(errors.Is(err, ErrSchema), ShouldBeTrue)
		})

		Convey("a row without exchange_short_name is a schema error", func() {
			server.ResponseBody = []string{`[
			  {"code": "VOD", "date": "2022-05-04", "close": 1.0}
			]`}
			_, err := FetchDaily(ctx, "LSE")
			So(errors.Is(err, ErrSchema), ShouldBeTrue)
		})

		Convey("an unknown column is a schema error", func() {
			server.ResponseBody = []string{`[
			  {"code": "VOD", "exchange_short_name": "LSE",
			   "date": "2022-05-04", "close": 1.0, "ema_50": 2.0}
			]`}
			_, err := FetchDaily(ctx, "LSE")
			So(errors.Is(err, ErrSchema), ShouldBeTrue)
		})
	})
}

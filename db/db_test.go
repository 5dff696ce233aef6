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

package db

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDate(t *testing.T) {
	t.Parallel()

	Convey("Date methods work", t, func() {
		Convey("parses the provider's date strings", func() {
			d, err := NewDateFromString("2022-05-04")
			So(err, ShouldBeNil)
			So(d, ShouldResemble, NewDate(2022, 5, 4))

			d, err = NewDateFromString("2022-05-04T16:30:00")
			So(err, ShouldBeNil)
			So(d, ShouldResemble, NewDate(2022, 5, 4))

			_, err = NewDateFromString("bad date")
			So(err, ShouldNotBeNil)
		})

		Convey("String", func() {
			So(NewDate(2022, 5, 4).String(), ShouldEqual, "2022-05-04")
		})

		Convey("JSON round trip", func() {
			js, err := json.Marshal(NewDate(2022, 5, 4))
			So(err, ShouldBeNil)
			So(string(js), ShouldEqual, `"2022-05-04"`)

			var d Date
			So(json.Unmarshal(js, &d), ShouldBeNil)
			So(d, ShouldResemble, NewDate(2022, 5, 4))
		})

		Convey("comparisons", func() {
			So(NewDate(2022, 5, 4).Before(NewDate(2022, 5, 5)), ShouldBeTrue)
			So(NewDate(2022, 5, 4).Before(NewDate(2022, 5, 4)), ShouldBeFalse)
			So(NewDate(2023, 1, 1).After(NewDate(2022, 12, 31)), ShouldBeTrue)
			So(Date{}.IsZero(), ShouldBeTrue)
			So(NewDate(2022, 5, 4).IsZero(), ShouldBeFalse)
		})

		Convey("InRange", func() {
			d := NewDate(2022, 5, 4)
			So(d.InRange(NewDate(2022, 1, 1), NewDate(2022, 12, 31)), ShouldBeTrue)
			So(d.InRange(Date{}, NewDate(2022, 1, 1)), ShouldBeFalse)
			So(d.InRange(NewDate(2022, 5, 4), Date{}), ShouldBeTrue)
			So(Date{}.InRange(Date{}, Date{}), ShouldBeFalse)
		})
	})

	Convey("Time methods work", t, func() {
		Convey("String", func() {
			So(NewTime(2022, 5, 4, 16, 30, 45).String(),
				ShouldEqual, "2022-05-04 16:30:45")
		})

		Convey("JSON round trip", func() {
			tm := NewTime(2022, 5, 4, 16, 30, 45)
			js, err := json.Marshal(tm)
			So(err, ShouldBeNil)
			So(string(js), ShouldEqual, `"2022-05-04 16:30:45"`)

			var t2 Time
			So(json.Unmarshal(js, &t2), ShouldBeNil)
			So(t2.String(), ShouldEqual, tm.String())
		})
	})
}

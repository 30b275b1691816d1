package model_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	model "github.com/okian/squadmetrics/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestValue(t *testing.T) {
	convey.Convey("Given optional values", t, func() {
		convey.Convey("When wrapping a finite number", func() {
			v := model.Some(42.5)
			f, ok := v.Get()

			convey.Convey("Then it should be present", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(f, convey.ShouldEqual, 42.5)
				convey.So(v.String(), convey.ShouldEqual, "42.5")
			})
		})

		convey.Convey("When wrapping NaN or infinity", func() {
			convey.Convey("Then the value should be missing", func() {
				convey.So(model.Some(math.NaN()).IsMissing(), convey.ShouldBeTrue)
				convey.So(model.Some(math.Inf(1)).IsMissing(), convey.ShouldBeTrue)
				convey.So(model.Some(math.Inf(-1)).IsMissing(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When using the zero value", func() {
			var v model.Value

			convey.Convey("Then it should behave as missing", func() {
				convey.So(v.IsMissing(), convey.ShouldBeTrue)
				convey.So(v.Or(-1), convey.ShouldEqual, -1)
				convey.So(v.String(), convey.ShouldEqual, model.NotAvailable)
			})
		})

		convey.Convey("When subtracting", func() {
			convey.So(model.Some(5).Sub(model.Some(2)), convey.ShouldResemble, model.Some(3))
			convey.So(model.Some(5).Sub(model.Missing()).IsMissing(), convey.ShouldBeTrue)
		})

		convey.Convey("When encoding to JSON", func() {
			b, err := json.Marshal(map[string]model.Value{"a": model.Some(1.5), "b": model.Missing()})

			convey.Convey("Then missing should render as null", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(b), convey.ShouldEqual, `{"a":1.5,"b":null}`)
			})

			convey.Convey("And decoding should round back", func() {
				var out map[string]model.Value
				convey.So(json.Unmarshal(b, &out), convey.ShouldBeNil)
				convey.So(out["a"], convey.ShouldResemble, model.Some(1.5))
				convey.So(out["b"].IsMissing(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When averaging with gaps", func() {
			convey.So(model.Mean([]model.Value{model.Some(70), model.Missing(), model.Some(90)}), convey.ShouldResemble, model.Some(80))
			convey.So(model.Mean([]model.Value{model.Missing()}).IsMissing(), convey.ShouldBeTrue)
			convey.So(model.Mean(nil).IsMissing(), convey.ShouldBeTrue)
		})
	})
}

func TestRecord(t *testing.T) {
	convey.Convey("Given a record", t, func() {
		rec := model.Record{
			Date:   day(3),
			Player: "nova",
			Role:   "Duelist",
			Stats:  map[string]model.Value{"ACS": model.Some(210)},
		}

		convey.Convey("When reading an absent stat", func() {
			convey.So(rec.Stat("HS%").IsMissing(), convey.ShouldBeTrue)
			convey.So(rec.Stat("ACS"), convey.ShouldResemble, model.Some(210))
		})

		convey.Convey("When cloning and mutating the clone", func() {
			cp := rec.Clone()
			cp.Stats["ACS"] = model.Some(1)

			convey.Convey("Then the original should be untouched", func() {
				convey.So(rec.Stats["ACS"], convey.ShouldResemble, model.Some(210))
			})
		})

		convey.Convey("When the date is zero", func() {
			convey.So(model.Record{Player: "x"}.Dated(), convey.ShouldBeFalse)
			convey.So(rec.Dated(), convey.ShouldBeTrue)
		})
	})
}

func TestChronological(t *testing.T) {
	convey.Convey("Given out-of-order records with an undated row", t, func() {
		in := []model.NormalizedRecord{
			{Record: model.Record{Player: "a", Date: day(5)}, Overall: model.Some(3)},
			{Record: model.Record{Player: "a"}, Overall: model.Some(99)},
			{Record: model.Record{Player: "a", Date: day(1)}, Overall: model.Some(1)},
			{Record: model.Record{Player: "a", Date: day(5)}, Overall: model.Some(4)},
		}

		out := model.Chronological(in)

		convey.Convey("Then undated rows should be dropped and order stable", func() {
			convey.So(len(out), convey.ShouldEqual, 3)
			convey.So(out[0].Overall, convey.ShouldResemble, model.Some(1))
			convey.So(out[1].Overall, convey.ShouldResemble, model.Some(3))
			convey.So(out[2].Overall, convey.ShouldResemble, model.Some(4))
		})

		convey.Convey("And the input should keep its order", func() {
			convey.So(in[0].Overall, convey.ShouldResemble, model.Some(3))
		})
	})
}

func TestTablePlayers(t *testing.T) {
	convey.Convey("Given a table with repeated players", t, func() {
		tbl := model.Table{Records: []model.Record{{Player: "zed"}, {Player: "amy"}, {Player: "zed"}}}

		convey.Convey("Then players should be distinct and sorted", func() {
			convey.So(tbl.Players(), convey.ShouldResemble, []string{"amy", "zed"})
			convey.So(tbl.Empty(), convey.ShouldBeFalse)
			convey.So(model.Table{}.Empty(), convey.ShouldBeTrue)
		})
	})
}

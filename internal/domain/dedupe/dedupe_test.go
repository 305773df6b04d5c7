package dedupe_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/vitislabs/decant/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeenAndRecord(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fresh deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When an id is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, "cmp-1")

			Convey("Then it reports not seen", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And a replay of the same id reports seen", func() {
				So(d.SeenAndRecord(ctx, "cmp-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When distinct ids are recorded", func() {
			So(d.SeenAndRecord(ctx, "cmp-a"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "cmp-b"), ShouldBeFalse)

			Convey("Then each is tracked independently", func() {
				So(d.Size(), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a bounded deduper at capacity", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 0; i < 3; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("cmp-%d", i))
		}

		Convey("When one more id is recorded", func() {
			So(d.SeenAndRecord(ctx, "cmp-new"), ShouldBeFalse)

			Convey("Then the size stays at the bound", func() {
				So(d.Size(), ShouldEqual, 3)
			})

			Convey("And the oldest entries survive eviction", func() {
				So(d.SeenAndRecord(ctx, "cmp-0"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "cmp-1"), ShouldBeTrue)
			})
		})
	})
}

func TestUnrecord(t *testing.T) {
	ctx := context.Background()

	Convey("Given a deduper with recorded ids", t, func() {
		d := dedupe.NewInMemoryDeduper()
		d.SeenAndRecord(ctx, "cmp-1")
		d.SeenAndRecord(ctx, "cmp-2")

		Convey("When an id is unrecorded", func() {
			d.Unrecord(ctx, "cmp-1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 1)
				So(d.SeenAndRecord(ctx, "cmp-1"), ShouldBeFalse)
			})

			Convey("And the other id is unaffected", func() {
				So(d.SeenAndRecord(ctx, "cmp-2"), ShouldBeTrue)
			})
		})

		Convey("When an unknown id is unrecorded", func() {
			d.Unrecord(ctx, "cmp-never")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 2)
			})
		})
	})
}

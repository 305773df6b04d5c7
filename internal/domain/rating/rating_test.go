package rating_test

import (
	"math"
	"testing"

	rating "github.com/vitislabs/decant/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

const eps = 1e-9

func TestUpdate(t *testing.T) {
	Convey("Given two wines with equal scores", t, func() {
		const score = 1500.0

		Convey("When one beats the other", func() {
			newWinner, newLoser := rating.Update(score, score)

			Convey("Then the expected score is exactly one half", func() {
				So(rating.ExpectedScore(score, score), ShouldAlmostEqual, 0.5, eps)
			})

			Convey("And both swings are K/2 with opposite signs", func() {
				So(newWinner, ShouldAlmostEqual, 1516.0, eps)
				So(newLoser, ShouldAlmostEqual, 1484.0, eps)
				So(newWinner-score, ShouldAlmostEqual, score-newLoser, eps)
			})
		})
	})

	Convey("Given an underdog beating a favourite", t, func() {
		// positions [1600, 1500, 1400]: the 1400 wine beats the 1600 wine
		newWinner, newLoser := rating.Update(1400.0, 1600.0)

		Convey("Then the literal formula is applied", func() {
			expected := 1.0 / (1.0 + math.Pow(10, 200.0/400.0))
			So(expected, ShouldAlmostEqual, 0.2402530733520421, eps)
			So(newWinner, ShouldAlmostEqual, 1400.0+32.0*(1.0-expected), eps)
			So(newLoser, ShouldAlmostEqual, 1600.0+32.0*(0.0-(1.0-expected)), eps)
		})

		Convey("And the winner gains more than it would against an equal", func() {
			So(newWinner-1400.0, ShouldBeGreaterThan, 16.0)
			So(1600.0-newLoser, ShouldBeGreaterThan, 16.0)
		})
	})

	Convey("Given any finite pairing", t, func() {
		cases := [][2]float64{
			{1500, 1500},
			{2400, 100},
			{100, 2400},
			{-500, 3000},
			{0, 0},
			{1500.5, 1499.5},
		}

		Convey("Then the winner never loses points and the loser never gains", func() {
			for _, c := range cases {
				newWinner, newLoser := rating.Update(c[0], c[1])
				So(newWinner, ShouldBeGreaterThanOrEqualTo, c[0])
				So(newLoser, ShouldBeLessThanOrEqualTo, c[1])
			}
		})
	})

	Convey("Given a heavy favourite winning", t, func() {
		newWinner, newLoser := rating.Update(2400.0, 1000.0)

		Convey("Then the swing is close to zero", func() {
			So(newWinner-2400.0, ShouldBeLessThan, 0.02)
			So(1000.0-newLoser, ShouldBeLessThan, 0.02)
		})
	})

	Convey("Given the expected score helper", t, func() {
		Convey("Then it is symmetric around one half", func() {
			So(rating.ExpectedScore(1600, 1400)+rating.ExpectedScore(1400, 1600), ShouldAlmostEqual, 1.0, eps)
		})

		Convey("And a 400 point gap means ten-to-one odds", func() {
			So(rating.ExpectedScore(1900, 1500), ShouldAlmostEqual, 10.0/11.0, eps)
		})
	})

	Convey("Given the default score constant", t, func() {
		Convey("Then it is exactly 1500", func() {
			So(rating.DefaultScore, ShouldEqual, 1500.0)
		})
	})
}

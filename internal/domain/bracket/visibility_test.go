package bracket_test

import (
	"testing"

	"github.com/okian/bracketd/internal/domain/bracket"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVisibleRounds(t *testing.T) {
	Convey("Given an empty tree", t, func() {
		Convey("Then no rounds are visible", func() {
			So(bracket.VisibleRounds(bracket.Tree{}, nil), ShouldResemble, []int{})
		})
	})

	Convey("Given a fresh bracket of eight players", t, func() {
		matches := seedMatches(4)
		res := bracket.Build(matches, nil)

		Convey("Then every round is visible", func() {
			So(bracket.VisibleRounds(res.Tree, nil), ShouldResemble, []int{0, 1, 2, 3})
		})
	})

	Convey("Given one player past the first round", t, func() {
		levels := map[bracket.PlayerID]int{1: 1}
		res := bracket.Build(seedMatches(4), levels)

		Convey("Then round 0 stays visible at 12.5% progress", func() {
			So(bracket.Progress(res.Tree, levels, 0), ShouldEqual, 0.125)
			So(bracket.VisibleRounds(res.Tree, levels), ShouldContain, 0)
		})
	})

	Convey("Given a first round with eight slots", t, func() {
		matches := seedMatches(4)

		Convey("When three players have advanced", func() {
			levels := map[bracket.PlayerID]int{1: 1, 3: 1, 5: 1}
			res := bracket.Build(matches, levels)

			Convey("Then the round is still visible", func() {
				So(bracket.Progress(res.Tree, levels, 0), ShouldEqual, 0.375)
				So(bracket.VisibleRounds(res.Tree, levels), ShouldContain, 0)
			})
		})

		Convey("When four players have advanced", func() {
			levels := map[bracket.PlayerID]int{1: 1, 3: 1, 5: 1, 7: 1}
			res := bracket.Build(matches, levels)

			Convey("Then the round is hidden", func() {
				So(bracket.Progress(res.Tree, levels, 0), ShouldEqual, 0.5)
				So(bracket.VisibleRounds(res.Tree, levels), ShouldNotContain, 0)
				So(bracket.VisibleRounds(res.Tree, levels), ShouldResemble, []int{1, 2, 3})
			})
		})
	})

	Convey("Given a sixteen-player bracket down to its final match", t, func() {
		levels := map[bracket.PlayerID]int{
			1: 3, 3: 1, 5: 2, 7: 1, 9: 3, 11: 1, 13: 2, 15: 1,
		}
		res := bracket.Build(seedMatches(8), levels)

		Convey("Then only the final and champion rounds remain", func() {
			So(res.Warnings, ShouldBeEmpty)
			So(bracket.Progress(res.Tree, levels, 0), ShouldEqual, 0.5)
			So(bracket.Progress(res.Tree, levels, 1), ShouldEqual, 0.5)
			So(bracket.Progress(res.Tree, levels, 2), ShouldEqual, 0.5)
			So(bracket.Progress(res.Tree, levels, 3), ShouldEqual, 0)
			So(bracket.VisibleRounds(res.Tree, levels), ShouldResemble, []int{3, 4})
		})
	})

	Convey("Given a tree where a single round stays below the threshold", t, func() {
		tree := bracket.Tree{Rounds: [][]bracket.Node{
			{{Round: 1, SlotA: &bracket.Player{ID: 1}, SlotB: &bracket.Player{ID: 2}}},
			{{Round: 2}},
			{{Round: 3}, {Round: 3, Position: 1}, {Round: 3, Position: 2}, {Round: 3, Position: 3}},
			{{Round: 4}},
			{{Round: 5}},
		}}
		levels := map[bracket.PlayerID]int{1: 9, 2: 9}

		Convey("Then the continuity guard adds the following round", func() {
			So(bracket.Progress(tree, levels, 2), ShouldEqual, 0.25)
			So(bracket.VisibleRounds(tree, levels), ShouldResemble, []int{2, 3})
		})
	})

	Convey("Given a decided champion whose round is past the threshold", t, func() {
		levels := map[bracket.PlayerID]int{1: 9, 2: 9}
		tree := bracket.Tree{Rounds: [][]bracket.Node{
			{{Round: 1, SlotA: &bracket.Player{ID: 1}, SlotB: &bracket.Player{ID: 2}}},
			{{Round: 2}},
			{{Round: 3}},
			{{Round: 4, SlotA: &bracket.Player{ID: 1}}},
		}}

		Convey("Then the final round is forced visible", func() {
			So(bracket.Progress(tree, levels, 3), ShouldEqual, 1)
			So(bracket.VisibleRounds(tree, levels), ShouldResemble, []int{3})
		})

		Convey("And without a champion nothing is shown", func() {
			tree.Rounds[3][0].SlotA = nil
			So(bracket.VisibleRounds(tree, levels), ShouldResemble, []int{})
		})
	})

	Convey("Given a custom threshold", t, func() {
		levels := map[bracket.PlayerID]int{1: 1, 3: 1}
		res := bracket.Build(seedMatches(4), levels)

		Convey("Then a lower threshold hides rounds earlier", func() {
			So(bracket.VisibleRounds(res.Tree, levels, bracket.WithThreshold(0.25)), ShouldNotContain, 0)
			So(bracket.VisibleRounds(res.Tree, levels), ShouldContain, 0)
		})

		Convey("And an invalid threshold is ignored", func() {
			So(bracket.VisibleRounds(res.Tree, levels, bracket.WithThreshold(0)), ShouldContain, 0)
		})
	})
}

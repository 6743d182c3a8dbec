package bracket_test

import (
	"testing"

	"github.com/okian/bracketd/internal/domain/bracket"
	. "github.com/smartystreets/goconvey/convey"
)

func ref(r, i int) bracket.NodeRef { return bracket.NodeRef{Round: r, Position: i} }

func TestTopology(t *testing.T) {
	Convey("Given an empty tree", t, func() {
		_, err := bracket.NewTopology(bracket.Tree{})

		Convey("Then no topology can be built", func() {
			So(err, ShouldEqual, bracket.ErrEmptyTree)
		})
	})

	Convey("Given a bracket of five first-round matches", t, func() {
		res := bracket.Build(seedMatches(5), nil)
		topo, err := bracket.NewTopology(res.Tree)
		So(err, ShouldBeNil)

		Convey("Then adjacent nodes pair up into the next round", func() {
			So(topo.Adjacent(ref(0, 0), ref(1, 0)), ShouldBeTrue)
			So(topo.Adjacent(ref(0, 1), ref(1, 0)), ShouldBeTrue)
			So(topo.Adjacent(ref(0, 2), ref(1, 0)), ShouldBeFalse)
			So(topo.Adjacent(ref(1, 0), ref(0, 0)), ShouldBeFalse)
		})

		Convey("Then the odd node feeds the last node of the next round", func() {
			route, err := topo.Route(ref(0, 4))
			So(err, ShouldBeNil)
			So(route, ShouldResemble, []bracket.NodeRef{ref(0, 4), ref(1, 2), ref(2, 1), ref(3, 0)})
		})

		Convey("Then reachability follows the direction of play", func() {
			So(topo.Feeds(ref(0, 2), ref(2, 0)), ShouldBeTrue)
			So(topo.Feeds(ref(0, 2), ref(2, 1)), ShouldBeFalse)
			So(topo.Feeds(ref(1, 0), ref(0, 0)), ShouldBeFalse)
			So(topo.Feeds(ref(3, 0), ref(3, 0)), ShouldBeTrue)
		})
	})
}

func TestPlayerPath(t *testing.T) {
	Convey("Given a bracket played out to a champion", t, func() {
		levels := map[bracket.PlayerID]int{1: 3, 4: 1, 6: 2, 7: 1}
		res := bracket.Build(seedMatches(4), levels)

		Convey("When the champion's path is requested", func() {
			p, err := bracket.PlayerPath(res.Tree, 1)

			Convey("Then every round is occupied", func() {
				So(err, ShouldBeNil)
				So(p.PlayerID, ShouldEqual, bracket.PlayerID(1))
				So(p.Reached, ShouldEqual, 3)
				So(p.Occupied, ShouldResemble, []bracket.NodeRef{ref(0, 0), ref(1, 0), ref(2, 0), ref(3, 0)})
				So(p.Route, ShouldResemble, p.Occupied)
			})
		})

		Convey("When an eliminated player's path is requested", func() {
			p, err := bracket.PlayerPath(res.Tree, 8)

			Convey("Then only the seed node is occupied but the route still leads to the final", func() {
				So(err, ShouldBeNil)
				So(p.Reached, ShouldEqual, 0)
				So(p.Occupied, ShouldResemble, []bracket.NodeRef{ref(0, 3)})
				So(p.Route, ShouldResemble, []bracket.NodeRef{ref(0, 3), ref(1, 1), ref(2, 0), ref(3, 0)})
			})
		})

		Convey("When an unknown player is requested", func() {
			_, err := bracket.PlayerPath(res.Tree, 99)

			Convey("Then it is reported as not seeded", func() {
				So(err, ShouldWrap, bracket.ErrPlayerNotSeeded)
			})
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given a tree built without inconsistencies", t, func() {
		res := bracket.Build(seedMatches(4), map[bracket.PlayerID]int{1: 2, 3: 1})

		Convey("Then verification finds nothing", func() {
			So(bracket.Verify(res.Tree), ShouldBeEmpty)
		})
	})

	Convey("Given an empty tree", t, func() {
		Convey("Then verification finds nothing", func() {
			So(bracket.Verify(bracket.Tree{}), ShouldBeEmpty)
		})
	})

	Convey("Given a tree with a player placed out of their path", t, func() {
		res := bracket.Build(seedMatches(4), nil)
		tree := res.Tree
		tree.Rounds[1][0].SlotA = &bracket.Player{ID: 5, Name: "player-05"}

		Convey("Then the misplaced copy is reported", func() {
			warnings := bracket.Verify(tree)
			So(warnings, ShouldHaveLength, 1)
			So(warnings[0].Kind, ShouldEqual, bracket.WarnTopologyViolation)
			So(warnings[0].PlayerID, ShouldEqual, bracket.PlayerID(5))
			So(warnings[0].Round, ShouldEqual, 1)
			So(warnings[0].Position, ShouldEqual, 0)
		})
	})
}

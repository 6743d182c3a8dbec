package levels_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/levels"
	"github.com/okian/bracketd/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var errUnknownPlayer = errors.New("unknown player")

type fakeStore struct {
	levels map[bracket.PlayerID]int
	calls  int
}

func (f *fakeStore) AdjustLevel(_ context.Context, _ string, id bracket.PlayerID, delta int) (int, error) {
	f.calls++
	lvl, ok := f.levels[id]
	if !ok {
		return 0, errUnknownPlayer
	}
	f.levels[id] = max(lvl+delta, 0)
	return f.levels[id], nil
}

func (f *fakeStore) SetLevel(_ context.Context, _ string, id bracket.PlayerID, level int) (int, error) {
	f.calls++
	if _, ok := f.levels[id]; !ok {
		return 0, errUnknownPlayer
	}
	f.levels[id] = max(level, 0)
	return f.levels[id], nil
}

func update(op model.Op, value int) model.LevelUpdate {
	return model.LevelUpdate{UpdateID: "u-1", TournamentID: "cup", PlayerID: 1, Op: op, Value: value}
}

func TestStoreApplier(t *testing.T) {
	Convey("Given an applier over a store with one player at level 1", t, func() {
		store := &fakeStore{levels: map[bracket.PlayerID]int{1: 1}}
		applier := levels.NewStoreApplier(store)
		ctx := context.Background()

		Convey("When incrementing without a value", func() {
			lvl, err := applier.Apply(ctx, update(model.OpIncrement, 0))

			Convey("Then the level should rise by one", func() {
				So(err, ShouldBeNil)
				So(lvl, ShouldEqual, 2)
			})
		})

		Convey("When decrementing past zero", func() {
			lvl, err := applier.Apply(ctx, update(model.OpDecrement, 5))

			Convey("Then the level should be clamped at zero", func() {
				So(err, ShouldBeNil)
				So(lvl, ShouldEqual, 0)
			})
		})

		Convey("When setting a level", func() {
			lvl, err := applier.Apply(ctx, update(model.OpSet, 3))

			Convey("Then the level should be replaced", func() {
				So(err, ShouldBeNil)
				So(lvl, ShouldEqual, 3)
				So(store.levels[1], ShouldEqual, 3)
			})
		})

		Convey("When the update is invalid", func() {
			_, err := applier.Apply(ctx, update("promote", 1))

			Convey("Then the store should not be touched", func() {
				So(err, ShouldWrap, model.ErrUnknownOp)
				So(store.calls, ShouldEqual, 0)
			})
		})

		Convey("When the player is unknown to the store", func() {
			u := update(model.OpIncrement, 1)
			u.PlayerID = 42
			_, err := applier.Apply(ctx, u)

			Convey("Then the store error should be returned", func() {
				So(err, ShouldEqual, errUnknownPlayer)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := applier.Apply(cctx, update(model.OpIncrement, 1))

			Convey("Then it should return the context error", func() {
				So(err, ShouldWrap, context.Canceled)
				So(store.calls, ShouldEqual, 0)
			})
		})
	})

	Convey("Given an applier capped at level 3", t, func() {
		store := &fakeStore{levels: map[bracket.PlayerID]int{1: 3}}
		applier := levels.NewStoreApplier(store, levels.WithMaxLevel(3))
		ctx := context.Background()

		Convey("When setting above the cap", func() {
			_, err := applier.Apply(ctx, update(model.OpSet, 4))

			Convey("Then it should be rejected", func() {
				So(err, ShouldWrap, levels.ErrLevelOutOfRange)
				So(store.levels[1], ShouldEqual, 3)
			})
		})

		Convey("When incrementing past the cap", func() {
			_, err := applier.Apply(ctx, update(model.OpIncrement, 1))

			Convey("Then it should be rejected and reverted", func() {
				So(err, ShouldWrap, levels.ErrLevelOutOfRange)
				So(store.levels[1], ShouldEqual, 3)
			})
		})

		Convey("When setting at the cap", func() {
			lvl, err := applier.Apply(ctx, update(model.OpSet, 3))

			Convey("Then it should be accepted", func() {
				So(err, ShouldBeNil)
				So(lvl, ShouldEqual, 3)
			})
		})
	})
}

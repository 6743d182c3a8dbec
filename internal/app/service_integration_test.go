package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/okian/bracketd/internal/adapters/repository"
	service "github.com/okian/bracketd/internal/app"
	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/model"
	"github.com/okian/bracketd/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service over a memory store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store := repository.NewMemoryStore(ctx)
		pub := &recordingPublisher{}
		svc := service.New(
			service.WithLogger(logger.Nop()),
			service.WithStore(store),
			service.WithPublisher(pub),
			service.WithWorkerCount(4),
			service.WithQueueSize(1000),
			service.WithDedupeSize(500),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		So(svc.SeedMatches(ctx, "cup", matches(4)), ShouldBeNil)

		submit := func(id string, player bracket.PlayerID) {
			u := model.LevelUpdate{UpdateID: id, TournamentID: "cup", PlayerID: player, Op: model.OpIncrement}
			So(svc.SeenAndRecord(ctx, id), ShouldBeFalse)
			So(svc.Enqueue(ctx, u), ShouldBeTrue)
		}

		Convey("When the tournament is played out through level updates", func() {
			n := 0
			for _, winners := range [][]bracket.PlayerID{{1, 3, 5, 7}, {1, 5}, {1}} {
				for _, p := range winners {
					n++
					submit(fmt.Sprintf("u%d", n), p)
				}
			}

			Convey("Then the champion is crowned and only the final round stays visible", func() {
				So(eventually(func() bool {
					v, err := svc.Bracket(ctx, "cup")
					return err == nil && v.Champion != nil && len(v.VisibleRounds) == 1
				}), ShouldBeTrue)

				v, err := svc.Bracket(ctx, "cup")
				So(err, ShouldBeNil)
				So(v.Champion.ID, ShouldEqual, bracket.PlayerID(1))
				So(v.VisibleRounds, ShouldResemble, []int{3})
				So(v.Warnings, ShouldBeEmpty)
				So(v.Rounds[2][0].Has(1), ShouldBeTrue)
				So(v.Rounds[2][0].Has(5), ShouldBeTrue)
				So(pub.count(), ShouldBeGreaterThan, 1)
			})
		})

		Convey("When an update targets an unregistered player", func() {
			submit("ghost", 99)
			submit("real", 2)

			Convey("Then it fails without stopping the workers", func() {
				So(eventually(func() bool {
					v, err := svc.Bracket(ctx, "cup")
					return err == nil && v.Rounds[1][0].Has(2)
				}), ShouldBeTrue)
			})
		})

		Convey("When the service restarts over the same store", func() {
			submit("u1", 7)
			So(eventually(func() bool {
				v, err := svc.Bracket(ctx, "cup")
				return err == nil && v.Rounds[1][1].Has(7)
			}), ShouldBeTrue)

			again := service.New(service.WithLogger(logger.Nop()), service.WithStore(store))
			So(again.Start(ctx), ShouldBeNil)
			defer again.Stop()

			Convey("Then the stored tournament is rebuilt on start", func() {
				v, err := again.Bracket(ctx, "cup")
				So(err, ShouldBeNil)
				So(v.Rounds[1][1].Has(7), ShouldBeTrue)
				So(again.GetStats()["cachedViews"], ShouldEqual, 1)
			})
		})
	})
}

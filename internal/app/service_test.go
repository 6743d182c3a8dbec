package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	service "github.com/okian/bracketd/internal/app"
	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/model"
	"github.com/okian/bracketd/internal/domain/types"
	"github.com/okian/bracketd/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func matches(n int) []bracket.Match {
	out := make([]bracket.Match, n)
	for i := range n {
		a, b := bracket.PlayerID(2*i+1), bracket.PlayerID(2*i+2)
		out[i] = bracket.Match{
			ID:    fmt.Sprintf("m%d", i+1),
			Round: 1,
			SideA: []bracket.Player{{ID: a, Name: fmt.Sprintf("player-%02d", a)}},
			SideB: []bracket.Player{{ID: b, Name: fmt.Sprintf("player-%02d", b)}},
		}
	}
	return out
}

type recordingPublisher struct {
	mu    sync.Mutex
	views []types.BracketView
}

func (p *recordingPublisher) Publish(v types.BracketView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views = append(p.views, v)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.views)
}

func newService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.Nop()),
		service.WithWorkerCount(2),
		service.WithQueueSize(100),
		service.WithDedupeSize(100),
	}
	return service.New(append(base, opts...)...)
}

// eventually polls cond until it holds or the deadline passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newService()
		ctx := context.Background()

		Convey("Then it reports stopped before Start", func() {
			So(svc.GetStats()["started"], ShouldEqual, false)
			_, err := svc.Bracket(ctx, "cup")
			So(err, ShouldEqual, service.ErrNotStarted)
			So(svc.Enqueue(ctx, model.LevelUpdate{UpdateID: "u1"}), ShouldBeFalse)
		})

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then it is marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 2)
				So(stats["tournaments"], ShouldEqual, 0)
			})

			Convey("And starting twice is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When stopping a started service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})

			Convey("And stopping again is a no-op", func() {
				So(func() { svc.Stop() }, ShouldNotPanic)
			})
		})
	})
}

func TestService_Bracket(t *testing.T) {
	Convey("Given a started service with a publisher", t, func() {
		pub := &recordingPublisher{}
		svc := newService(service.WithPublisher(pub))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a tournament is unknown", func() {
			_, err := svc.Bracket(ctx, "missing")

			Convey("Then it is not found", func() {
				So(err, ShouldWrap, service.ErrNotFound)
			})
		})

		Convey("When a tournament is seeded", func() {
			So(svc.SeedMatches(ctx, "cup", matches(4)), ShouldBeNil)
			view, err := svc.Bracket(ctx, "cup")

			Convey("Then its view is built and published", func() {
				So(err, ShouldBeNil)
				So(view.TournamentID, ShouldEqual, "cup")
				So(view.Sequence, ShouldEqual, 1)
				So(view.ViewID, ShouldNotBeBlank)
				So(view.Rounds, ShouldHaveLength, 4)
				So(view.VisibleRounds, ShouldResemble, []int{0, 1, 2, 3})
				So(view.Warnings, ShouldBeEmpty)
				So(view.Champion, ShouldBeNil)
				So(pub.count(), ShouldEqual, 1)
			})

			Convey("And a repeated read is served from cache", func() {
				again, err := svc.Bracket(ctx, "cup")
				So(err, ShouldBeNil)
				So(again.ViewID, ShouldEqual, view.ViewID)
				So(pub.count(), ShouldEqual, 1)
			})

			Convey("And a refresh produces a newer sequence", func() {
				So(svc.Refresh(ctx, "cup"), ShouldBeNil)
				again, err := svc.Bracket(ctx, "cup")
				So(err, ShouldBeNil)
				So(again.Sequence, ShouldEqual, 2)
				So(again.ViewID, ShouldNotEqual, view.ViewID)
			})
		})

		Convey("When a level update is enqueued", func() {
			So(svc.SeedMatches(ctx, "cup", matches(4)), ShouldBeNil)
			u := model.LevelUpdate{UpdateID: "u1", TournamentID: "cup", PlayerID: 3, Op: model.OpIncrement}
			So(svc.SeenAndRecord(ctx, u.UpdateID), ShouldBeFalse)
			So(svc.Enqueue(ctx, u), ShouldBeTrue)

			Convey("Then the player advances in the rebuilt view", func() {
				So(eventually(func() bool {
					v, err := svc.Bracket(ctx, "cup")
					return err == nil && v.Rounds[1][0].Has(3)
				}), ShouldBeTrue)
			})

			Convey("And the same update id is reported as seen", func() {
				So(svc.SeenAndRecord(ctx, u.UpdateID), ShouldBeTrue)
				So(svc.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a seeding carries inconsistent data", func() {
			m := matches(4)
			m[1].SideA = nil
			So(svc.SeedMatches(ctx, "broken", m), ShouldBeNil)
			view, err := svc.Bracket(ctx, "broken")

			Convey("Then the warnings travel with the view", func() {
				So(err, ShouldBeNil)
				So(view.Warnings, ShouldNotBeEmpty)
				So(view.Warnings[0].Kind, ShouldEqual, bracket.WarnEmptySide)
			})
		})
	})
}

func TestService_Unrecord(t *testing.T) {
	Convey("Given a recorded update id", t, func() {
		svc := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		So(svc.SeenAndRecord(ctx, "u1"), ShouldBeFalse)

		Convey("When it is unrecorded", func() {
			svc.Unrecord(ctx, "u1")

			Convey("Then it can be recorded again", func() {
				So(svc.SeenAndRecord(ctx, "u1"), ShouldBeFalse)
			})
		})
	})
}

func TestService_SearchPlayers(t *testing.T) {
	Convey("Given a seeded tournament", t, func() {
		svc := newService(service.WithMaxSearchLimit(5))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		m := matches(4)
		m[0].SideA[0].Name = "Alice Archer"
		m[0].SideB[0].Name = "Bob Brewer"
		m[1].SideA[0].Name = "alicia keys"
		So(svc.SeedMatches(ctx, "cup", m), ShouldBeNil)

		Convey("When searching for a partial name", func() {
			hits, err := svc.SearchPlayers(ctx, "cup", "ali", 0)

			Convey("Then matching players are returned case-insensitively", func() {
				So(err, ShouldBeNil)
				So(hits, ShouldHaveLength, 2)
				ids := []bracket.PlayerID{hits[0].ID, hits[1].ID}
				So(ids, ShouldContain, bracket.PlayerID(1))
				So(ids, ShouldContain, bracket.PlayerID(3))
				So(hits[0].Distance, ShouldBeLessThanOrEqualTo, hits[1].Distance)
			})
		})

		Convey("When the query is empty", func() {
			hits, err := svc.SearchPlayers(ctx, "cup", "", 100)

			Convey("Then players are listed by id up to the cap", func() {
				So(err, ShouldBeNil)
				So(hits, ShouldHaveLength, 5)
				So(hits[0].ID, ShouldEqual, bracket.PlayerID(1))
				So(hits[4].ID, ShouldEqual, bracket.PlayerID(5))
			})
		})

		Convey("When nothing matches", func() {
			hits, err := svc.SearchPlayers(ctx, "cup", "zzz", 0)

			Convey("Then the result is empty", func() {
				So(err, ShouldBeNil)
				So(hits, ShouldBeEmpty)
			})
		})

		Convey("When the tournament is unknown", func() {
			_, err := svc.SearchPlayers(ctx, "missing", "a", 0)

			Convey("Then it is not found", func() {
				So(err, ShouldWrap, service.ErrNotFound)
			})
		})
	})
}

func TestService_PlayerPath(t *testing.T) {
	Convey("Given a seeded tournament", t, func() {
		svc := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		So(svc.SeedMatches(ctx, "cup", matches(4)), ShouldBeNil)

		Convey("When a seeded player's path is requested", func() {
			p, err := svc.PlayerPath(ctx, "cup", 6)

			Convey("Then the route runs from their seed node to the final", func() {
				So(err, ShouldBeNil)
				So(p.Reached, ShouldEqual, 0)
				So(p.Route, ShouldHaveLength, 4)
				So(p.Route[0], ShouldResemble, bracket.NodeRef{Round: 0, Position: 2})
			})
		})

		Convey("When the player is not seeded", func() {
			_, err := svc.PlayerPath(ctx, "cup", 42)

			Convey("Then the core error is returned", func() {
				So(err, ShouldWrap, bracket.ErrPlayerNotSeeded)
			})
		})
	})
}

package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/reputation/internal/adapters/repository"
	service "github.com/okian/reputation/internal/app"
	"github.com/okian/reputation/internal/domain/model"
	"github.com/okian/reputation/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration_ConcurrentTraffic(t *testing.T) {
	Convey("Given a service under concurrent reads and awards", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store := repository.Instrument(repository.NewMemoryStore(repository.WithMembers(members(40)...)))
		svc := service.New(service.WithStore(store))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		const (
			readers = 20
			awards  = 100
		)
		pts := 1

		var wg sync.WaitGroup
		errs := make(chan error, readers+awards)
		for i := 0; i < readers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Leaderboard(ctx, 1, 0); err != nil {
					errs <- err
				}
				if _, err := svc.Search(ctx, "user", 2, 0); err != nil {
					errs <- err
				}
			}()
		}
		for i := 0; i < awards; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				name := fmt.Sprintf("user%02d", i%40+1)
				req := service.AwardRequest{Name: name, Points: &pts, Reason: "load", Category: model.CategoryCommunityEngagement}
				if _, err := svc.Award(ctx, req); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)

		Convey("Then no request fails", func() {
			for err := range errs {
				So(err, ShouldBeNil)
			}
		})

		Convey("Then every award is applied exactly once", func() {
			m, err := svc.MemberByName(ctx, "user40")
			So(err, ShouldBeNil)
			So(m.Reputation, ShouldEqual, 10+awards/40)
			hist, err := svc.History(ctx, m.ID)
			So(err, ShouldBeNil)
			So(len(hist), ShouldEqual, awards/40)
		})
	})
}

func TestServiceIntegration_RankStrategiesAgree(t *testing.T) {
	Convey("Given count and scan rankers over a leaderboard with ties", t, func() {
		ctx := context.Background()
		seed := members(30)
		seed[10].Reputation = seed[9].Reputation
		seed[11].Reputation = seed[9].Reputation
		store := repository.NewMemoryStore(repository.WithMembers(seed...))

		byCount := service.New(service.WithStore(store), service.WithRanker(ranking.NewCountRanker(store)))
		byScan := service.New(service.WithStore(store), service.WithRanker(ranking.NewScanRanker(store, 7)))

		Convey("Then both assign the same global ranks on every page", func() {
			for page := 1; page <= 3; page++ {
				a, err := byCount.Search(ctx, "user", page, 0)
				So(err, ShouldBeNil)
				b, err := byScan.Search(ctx, "user", page, 0)
				So(err, ShouldBeNil)
				So(len(a.Members), ShouldEqual, len(b.Members))
				for i := range a.Members {
					So(a.Members[i].Rank, ShouldEqual, b.Members[i].Rank)
					So(a.Members[i].Rank, ShouldEqual, (page-1)*10+i+1)
				}
			}
		})
	})
}

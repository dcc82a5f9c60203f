package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/okian/reputation/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestLeaderboardCache(t *testing.T) {
	Convey("Given an empty cache with a fake clock", t, func() {
		clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
		c := New(WithClock(clock.Now))
		page := model.LeaderboardPage{
			Members:   []model.Member{{ID: 1, Name: "Alice", Reputation: 50}},
			Total:     1,
			Pages:     1,
			Timestamp: clock.Now(),
		}

		Convey("Nothing is fresh or stale", func() {
			_, ok := c.Fresh()
			So(ok, ShouldBeFalse)
			_, _, ok = c.Stale()
			So(ok, ShouldBeFalse)
			_, ok = c.Age()
			So(ok, ShouldBeFalse)
			So(c.TTL(), ShouldEqual, DefaultTTL)
		})

		Convey("When a page is set", func() {
			c.Set(page)

			Convey("It is fresh inside the TTL", func() {
				clock.Advance(DefaultTTL - time.Second)
				got, ok := c.Fresh()
				So(ok, ShouldBeTrue)
				So(got.Timestamp, ShouldEqual, page.Timestamp)
				So(got.Members[0].Name, ShouldEqual, "Alice")
			})

			Convey("It expires exactly at the TTL", func() {
				clock.Advance(DefaultTTL)
				_, ok := c.Fresh()
				So(ok, ShouldBeFalse)
			})

			Convey("It remains available as stale at any age", func() {
				clock.Advance(3 * time.Hour)
				got, age, ok := c.Stale()
				So(ok, ShouldBeTrue)
				So(age, ShouldEqual, 3*time.Hour)
				So(got.Total, ShouldEqual, 1)
			})

			Convey("A later Set overwrites the slot and restarts the window", func() {
				clock.Advance(DefaultTTL + time.Minute)
				newer := page
				newer.Timestamp = clock.Now()
				newer.Total = 2
				c.Set(newer)
				got, ok := c.Fresh()
				So(ok, ShouldBeTrue)
				So(got.Total, ShouldEqual, 2)
				So(got.Timestamp, ShouldEqual, clock.Now())
			})

			Convey("Reset empties it", func() {
				c.Reset()
				_, _, ok := c.Stale()
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given a custom TTL", t, func() {
		clock := &fakeClock{now: time.Unix(0, 0)}
		c := New(WithTTL(time.Second), WithClock(clock.Now))
		c.Set(model.LeaderboardPage{})
		clock.Advance(2 * time.Second)
		_, ok := c.Fresh()
		So(ok, ShouldBeFalse)
		So(c.Now(), ShouldEqual, clock.Now())
	})
}

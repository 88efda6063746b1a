package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/behavior/internal/domain/model"
)

var t0 = time.Date(2025, 10, 16, 9, 0, 0, 0, time.UTC)

func rec(id string, conf float64, offset time.Duration) model.Recognition {
	return model.Recognition{Identity: id, Confidence: conf, At: t0.Add(offset)}
}

func TestTreapStore(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := NewTreapStore(WithSeed(42))

		So(s.Count(ctx), ShouldEqual, 0)

		_, err := s.Get(ctx, "alice")
		So(err, ShouldEqual, ErrNotFound)

		So(s.Record(ctx, rec("", 90, 0)), ShouldEqual, ErrInvalidIdentity)

		Convey("When identities are recorded", func() {
			So(s.Record(ctx, rec("bob", 85, 0)), ShouldBeNil)
			So(s.Record(ctx, rec("alice", 81, time.Second)), ShouldBeNil)
			So(s.Record(ctx, rec("alice", 95, 40*time.Second)), ShouldBeNil)
			So(s.Record(ctx, rec("alice", 88, 80*time.Second)), ShouldBeNil)
			So(s.Record(ctx, rec("carol", 90, 2*time.Second)), ShouldBeNil)

			Convey("Then totals are kept per identity", func() {
				e, err := s.Get(ctx, "alice")
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 1)
				So(e.Count, ShouldEqual, 3)
				So(e.BestConfidence, ShouldEqual, 95)
				So(e.FirstSeen, ShouldEqual, t0.Add(time.Second))
				So(e.LastSeen, ShouldEqual, t0.Add(80*time.Second))
				So(s.Count(ctx), ShouldEqual, 3)
			})

			Convey("Then ties rank by identity", func() {
				top, err := s.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 3)
				So(top[0].Identity, ShouldEqual, "alice")
				So(top[1].Identity, ShouldEqual, "bob")
				So(top[1].Rank, ShouldEqual, 2)
				So(top[2].Identity, ShouldEqual, "carol")

				e, _ := s.Get(ctx, "carol")
				So(e.Rank, ShouldEqual, 3)
			})

			Convey("Then TopN honours the limit", func() {
				top, err := s.TopN(ctx, 1)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 1)

				_, err = s.TopN(ctx, 0)
				So(err, ShouldEqual, ErrInvalidLimit)
			})
		})
	})
}

func TestTreapStoreOrderUnderLoad(t *testing.T) {
	Convey("Given many identities recorded concurrently", t, func() {
		ctx := context.Background()
		s := NewTreapStore()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("id-%02d", i)
				for j := 0; j <= i%7; j++ {
					_ = s.Record(ctx, rec(id, 80, time.Duration(j)*time.Second))
				}
			}(i)
		}
		wg.Wait()

		Convey("Then the ranking is count desc, identity asc", func() {
			top, err := s.TopN(ctx, 50)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 50)
			for i := 1; i < len(top); i++ {
				prev, cur := top[i-1], top[i]
				ordered := prev.Count > cur.Count || (prev.Count == cur.Count && prev.Identity < cur.Identity)
				So(ordered, ShouldBeTrue)
			}
			for _, e := range top {
				got, err := s.Get(ctx, e.Identity)
				So(err, ShouldBeNil)
				So(got.Rank, ShouldEqual, e.Rank)
			}
		})
	})
}

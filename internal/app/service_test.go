package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"

	"github.com/okian/squadmetrics/internal/adapters/repository"
	"github.com/okian/squadmetrics/internal/adapters/source"
	service "github.com/okian/squadmetrics/internal/app"
	"github.com/okian/squadmetrics/internal/domain/model"
	"github.com/okian/squadmetrics/internal/domain/normalize"
	"github.com/okian/squadmetrics/internal/domain/pipeline"
	"github.com/okian/squadmetrics/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

const sheet = `Date,Player,Role,Aim,Comms,Notes
2025-03-01,ana,Duelist,80,100,1
2025-03-01,ben,Sentinel,50,50,2
2025-03-02,ana,IGL,60,80,3
`

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func engine() *pipeline.Engine {
	return pipeline.New(
		pipeline.WithNormalizer(normalize.New(normalize.WithDefault(normalize.PassThrough()))),
		pipeline.WithPolicy(scoring.NewFixedMean([]string{"Aim", "Comms"})),
	)
}

func newService(src *mockSource, clk *clock, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithSource(src),
		service.WithStore(repository.NewMemoryStore(repository.WithClock(clk.Now))),
		service.WithEngine(engine()),
		service.WithClock(clk.Now),
		service.WithCacheTTL(20 * time.Second),
		service.WithParseOptions(source.WithExcluded("Notes")),
	}
	return service.New(append(base, opts...)...)
}

func TestService_View(t *testing.T) {
	Convey("Given a service over a three-row sheet", t, func() {
		ctx := context.Background()
		clk := newClock()
		src := &mockSource{}
		src.On("Fetch", mock.Anything).Return([]byte(sheet), nil)
		svc := newService(src, clk)

		Convey("When the view is read twice within the TTL", func() {
			first, err := svc.View(ctx)
			So(err, ShouldBeNil)
			second, err := svc.View(ctx)
			So(err, ShouldBeNil)

			Convey("Then the sheet is fetched and evaluated once", func() {
				src.AssertNumberOfCalls(t, "Fetch", 1)
				So(second, ShouldEqual, first)
			})

			Convey("Then the excluded column is not a skill stat", func() {
				So(first.Stats, ShouldResemble, []string{"Aim", "Comms"})
			})

			Convey("Then the ranking reflects the sheet", func() {
				So(first.Ranking, ShouldHaveLength, 2)
				So(first.Ranking[0].Player, ShouldEqual, "ana")
				So(first.Ranking[0].Score, ShouldResemble, model.Some(80.0))
				So(first.Ranking[1].Player, ShouldEqual, "ben")
			})
		})

		Convey("When the TTL passes", func() {
			_, err := svc.View(ctx)
			So(err, ShouldBeNil)
			clk.Advance(21 * time.Second)
			_, err = svc.View(ctx)
			So(err, ShouldBeNil)

			Convey("Then the sheet is fetched again", func() {
				src.AssertNumberOfCalls(t, "Fetch", 2)
			})
		})
	})
}

func TestService_FetchFailure(t *testing.T) {
	Convey("Given a source that fails", t, func() {
		ctx := context.Background()
		clk := newClock()
		boom := errors.New("export unavailable")

		Convey("When nothing is cached", func() {
			src := &mockSource{}
			src.On("Fetch", mock.Anything).Return(nil, boom)
			svc := newService(src, clk)
			_, err := svc.View(ctx)

			Convey("Then the fetch error is returned", func() {
				So(errors.Is(err, service.ErrFetch), ShouldBeTrue)
				So(errors.Is(err, boom), ShouldBeTrue)
			})

			Convey("Then stats carry the last error", func() {
				So(svc.GetStats()["lastError"], ShouldContainSubstring, "export unavailable")
			})
		})

		Convey("When an expired snapshot is cached in redis", func() {
			mr := miniredis.RunT(t)
			store := repository.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), repository.WithClock(clk.Now))
			src := &mockSource{}
			src.On("Fetch", mock.Anything).Return([]byte(sheet), nil).Once()
			src.On("Fetch", mock.Anything).Return(nil, boom)
			svc := newService(src, clk, service.WithStore(store))

			first, err := svc.View(ctx)
			So(err, ShouldBeNil)
			clk.Advance(time.Minute)
			mr.FastForward(time.Minute)
			stale, err := svc.View(ctx)

			Convey("Then the stale view is served", func() {
				So(err, ShouldBeNil)
				So(stale, ShouldEqual, first)
				src.AssertNumberOfCalls(t, "Fetch", 2)
			})
		})

		Convey("When an expired snapshot is cached", func() {
			src := &mockSource{}
			src.On("Fetch", mock.Anything).Return([]byte(sheet), nil).Once()
			src.On("Fetch", mock.Anything).Return(nil, boom)
			svc := newService(src, clk)

			first, err := svc.View(ctx)
			So(err, ShouldBeNil)
			clk.Advance(time.Minute)
			stale, err := svc.View(ctx)

			Convey("Then the stale view is served", func() {
				So(err, ShouldBeNil)
				So(stale, ShouldEqual, first)
				src.AssertNumberOfCalls(t, "Fetch", 2)
			})
		})
	})
}

func TestService_SharedFetch(t *testing.T) {
	Convey("Given a fetch that is still in flight", t, func() {
		started, release := make(chan struct{}), make(chan struct{})
		src := &mockSource{}
		src.On("Fetch", mock.Anything).Run(func(mock.Arguments) {
			close(started)
			<-release
		}).Return([]byte(sheet), nil).Once()
		src.On("Fetch", mock.Anything).Return([]byte(sheet), nil)
		svc := newService(src, newClock())

		first, cancel := context.WithCancel(context.Background())
		var (
			wg                  sync.WaitGroup
			firstErr, secondErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, firstErr = svc.View(first)
		}()
		<-started

		Convey("When the caller that started it goes away", func() {
			cancel()
			go func() {
				defer wg.Done()
				_, secondErr = svc.View(context.Background())
			}()
			close(release)
			wg.Wait()

			Convey("Then the fetch still completes for every caller", func() {
				So(firstErr, ShouldBeNil)
				So(secondErr, ShouldBeNil)
				So(src.Calls[0].Arguments.Get(0).(context.Context).Err(), ShouldBeNil)
			})
		})
	})
}

func TestService_EmptySnapshot(t *testing.T) {
	Convey("Given sheets without records", t, func() {
		ctx := context.Background()

		for name, payload := range map[string]string{
			"empty":       "",
			"header only": "Date,Player,Aim\n",
			"no players":  "Date,Player,Aim\n2025-03-01,,50\n",
		} {
			src := &mockSource{}
			src.On("Fetch", mock.Anything).Return([]byte(payload), nil)
			svc := newService(src, newClock())
			_, err := svc.View(ctx)

			Convey("Then "+name+" is an empty snapshot", func() {
				So(errors.Is(err, service.ErrEmptySnapshot), ShouldBeTrue)
			})
		}
	})

	Convey("Given a sheet without a Player column", t, func() {
		src := &mockSource{}
		src.On("Fetch", mock.Anything).Return([]byte("Date,Aim\n2025-03-01,50\n"), nil)
		svc := newService(src, newClock())
		_, err := svc.View(context.Background())

		Convey("Then a parse error is returned", func() {
			So(errors.Is(err, service.ErrParse), ShouldBeTrue)
		})
	})

	Convey("Given no source", t, func() {
		svc := service.New()
		_, err := svc.View(context.Background())

		Convey("Then the view cannot be built", func() {
			So(errors.Is(err, service.ErrNoSource), ShouldBeTrue)
			So(svc.Start(context.Background()), ShouldEqual, service.ErrNoSource)
		})
	})
}

func TestService_Reads(t *testing.T) {
	Convey("Given a service over a three-row sheet", t, func() {
		ctx := context.Background()
		src := &mockSource{}
		src.On("Fetch", mock.Anything).Return([]byte(sheet), nil)
		svc := newService(src, newClock())

		Convey("When reading the leaderboard with a limit", func() {
			lb, err := svc.Leaderboard(ctx, 1)
			So(err, ShouldBeNil)

			Convey("Then only the top entry is kept", func() {
				So(lb.Entries, ShouldHaveLength, 1)
				So(lb.Entries[0].Player, ShouldEqual, "ana")
				So(lb.TeamAverage, ShouldResemble, model.Some(65.0))
			})
		})

		Convey("When reading a player", func() {
			p, err := svc.Player(ctx, " ana ")
			So(err, ShouldBeNil)

			Convey("Then the report is complete", func() {
				So(p.Player, ShouldEqual, "ana")
				So(p.Role, ShouldEqual, "IGL")
				So(p.Rank, ShouldEqual, 1)
				So(p.Latest, ShouldResemble, model.Some(70.0))
				So(p.Records, ShouldEqual, 2)
			})
		})

		Convey("When reading an unknown player", func() {
			_, err := svc.Player(ctx, "zed")
			_, trendErr := svc.Trend(ctx, "zed")

			Convey("Then the player is not found", func() {
				So(errors.Is(err, service.ErrPlayerNotFound), ShouldBeTrue)
				So(errors.Is(trendErr, service.ErrPlayerNotFound), ShouldBeTrue)
			})
		})

		Convey("When reading a trend", func() {
			tr, err := svc.Trend(ctx, "ana")
			So(err, ShouldBeNil)

			Convey("Then the points are chronological", func() {
				So(tr.Points, ShouldHaveLength, 2)
				So(tr.Trend, ShouldResemble, model.Some(-20.0))
			})
		})

		Convey("When listing players, shares and records", func() {
			players, err := svc.Players(ctx)
			So(err, ShouldBeNil)
			shares, err := svc.ImpactShares(ctx)
			So(err, ShouldBeNil)
			records, err := svc.Records(ctx)
			So(err, ShouldBeNil)

			Convey("Then they cover the whole sheet", func() {
				So(players, ShouldResemble, []string{"ana", "ben"})
				So(shares, ShouldHaveLength, 2)
				So(records, ShouldHaveLength, 3)
				So(records[0].Extra["Notes"], ShouldResemble, model.Some(1.0))
				So(records[0].Stats, ShouldNotContainKey, "Notes")
				src.AssertNumberOfCalls(t, "Fetch", 1)
			})
		})
	})
}

func TestService_Refresh(t *testing.T) {
	Convey("Given a service with a cached view", t, func() {
		ctx := context.Background()
		src := &mockSource{}
		src.On("Fetch", mock.Anything).Return([]byte(sheet), nil)
		svc := newService(src, newClock())
		first, err := svc.View(ctx)
		So(err, ShouldBeNil)

		Convey("When refreshing", func() {
			So(svc.Refresh(ctx), ShouldBeNil)
			second, err := svc.View(ctx)
			So(err, ShouldBeNil)

			Convey("Then the cache is bypassed and the view rebuilt", func() {
				src.AssertNumberOfCalls(t, "Fetch", 2)
				So(second, ShouldNotEqual, first)
				So(svc.GetStats()["evaluations"], ShouldEqual, 2)
			})
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service with a background refresher", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		src := &mockSource{}
		src.On("Fetch", mock.Anything).Return([]byte(sheet), nil)
		svc := newService(src, newClock(), service.WithRefreshInterval(time.Hour))

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it is marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["source"], ShouldEqual, "mock")
				So(stats["store"], ShouldEqual, repository.StoreMemory)
				svc.Stop()
			})

			Convey("Then stopping marks it stopped", func() {
				svc.Stop()
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

package service_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/vitislabs/decant/internal/adapters/repository"
	service "github.com/vitislabs/decant/internal/app"
	"github.com/vitislabs/decant/internal/domain/model"
	"github.com/vitislabs/decant/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const floatEps = 1e-9

func newTestService(store *repository.MemStore) *service.Service {
	ids := 0
	return service.New(
		service.WithStore(store),
		service.WithWorkerCount(2),
		service.WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		}),
	)
}

func seedWine(store *repository.MemStore, id string) {
	_ = store.UpsertWine(context.Background(), model.Wine{ID: id, Name: "Wine " + id, Producer: "Producer " + id})
}

func seedCellar(store *repository.MemStore, userID, wineID string) {
	_ = store.AddCellarItem(context.Background(), model.CellarItem{
		ID: userID + "-" + wineID, UserID: userID, WineID: wineID,
		Status: model.CellarStatusHad, CreatedAt: time.Now(),
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestSubmitComparison(t *testing.T) {
	ctx := context.Background()

	Convey("Given a user with two equally rated wines", t, func() {
		store := repository.NewMemStore()
		seedWine(store, "wine-a")
		seedWine(store, "wine-b")
		seedCellar(store, "u1", "wine-a")
		seedCellar(store, "u1", "wine-b")

		svc := newTestService(store)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When wine A beats wine B", func() {
			dup, err := svc.SubmitComparison(ctx, model.Comparison{
				ID: "cmp-1", UserID: "u1",
				WineAID: "wine-a", WineBID: "wine-b", WinnerID: "wine-a",
			})
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)

			Convey("Then the scores move to 1516 and 1484", func() {
				winScore, ok, _ := store.Rating(ctx, "u1", "wine-a")
				So(ok, ShouldBeTrue)
				So(winScore, ShouldAlmostEqual, 1516.0, floatEps)

				loseScore, ok, _ := store.Rating(ctx, "u1", "wine-b")
				So(ok, ShouldBeTrue)
				So(loseScore, ShouldAlmostEqual, 1484.0, floatEps)
			})

			Convey("And the winner materializes at position 1", func() {
				So(waitFor(func() bool {
					rankings, err := svc.Rankings(ctx, "u1")
					return err == nil && len(rankings) == 2 &&
						rankings[0].Wine.ID == "wine-a" && rankings[0].Position == 1 &&
						rankings[1].Wine.ID == "wine-b" && rankings[1].Position == 2
				}), ShouldBeTrue)
			})

			Convey("And a duel_win activity lands on the feed", func() {
				So(waitFor(func() bool {
					entries, err := svc.Activity(ctx, "u1", 10)
					return err == nil && len(entries) == 1 &&
						entries[0].Type == model.ActivityDuelWin &&
						entries[0].WineID == "wine-a" &&
						entries[0].TargetWineID == "wine-b"
				}), ShouldBeTrue)
			})

			Convey("And the comparison log holds exactly one record", func() {
				So(store.ComparisonCount(), ShouldEqual, 1)
			})
		})

		Convey("When the same comparison id is submitted twice", func() {
			cmp := model.Comparison{
				ID: "cmp-replay", UserID: "u1",
				WineAID: "wine-a", WineBID: "wine-b", WinnerID: "wine-b",
			}
			_, err := svc.SubmitComparison(ctx, cmp)
			So(err, ShouldBeNil)

			dup, err := svc.SubmitComparison(ctx, cmp)

			Convey("Then the replay is acknowledged without re-processing", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
				So(store.ComparisonCount(), ShouldEqual, 1)

				score, _, _ := store.Rating(ctx, "u1", "wine-b")
				So(score, ShouldAlmostEqual, 1516.0, floatEps)
			})
		})

		Convey("When the winner matches neither wine", func() {
			_, err := svc.SubmitComparison(ctx, model.Comparison{
				ID: "cmp-bad", UserID: "u1",
				WineAID: "wine-a", WineBID: "wine-b", WinnerID: "wine-elsewhere",
			})

			Convey("Then the submission is rejected before any I/O", func() {
				So(errors.Is(err, service.ErrInvalidWinner), ShouldBeTrue)
				So(store.ComparisonCount(), ShouldEqual, 0)

				_, ok, _ := store.Rating(ctx, "u1", "wine-a")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a wine duels itself", func() {
			_, err := svc.SubmitComparison(ctx, model.Comparison{
				ID: "cmp-self", UserID: "u1",
				WineAID: "wine-a", WineBID: "wine-a", WinnerID: "wine-a",
			})

			Convey("Then the submission is rejected", func() {
				So(errors.Is(err, service.ErrInvalidSubmission), ShouldBeTrue)
				So(store.ComparisonCount(), ShouldEqual, 0)
			})
		})

		Convey("When required fields are missing", func() {
			_, err := svc.SubmitComparison(ctx, model.Comparison{
				ID: "cmp-empty", UserID: "",
				WineAID: "wine-a", WineBID: "wine-b", WinnerID: "wine-a",
			})

			Convey("Then the submission is rejected", func() {
				So(errors.Is(err, service.ErrInvalidSubmission), ShouldBeTrue)
			})
		})
	})

	Convey("Given three wines rated 1600, 1500 and 1400", t, func() {
		store := repository.NewMemStore()
		svc := newTestService(store)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		for i, score := range []float64{1600, 1500, 1400} {
			id := fmt.Sprintf("wine-%d", i+1)
			seedWine(store, id)
			seedCellar(store, "u1", id)
			So(store.UpsertRating(ctx, model.Rating{
				UserID: "u1", WineID: id, EloScore: score, Position: i + 1, UpdatedAt: time.Now(),
			}), ShouldBeNil)
		}

		Convey("When the last-placed wine beats the first-placed one", func() {
			_, err := svc.SubmitComparison(ctx, model.Comparison{
				ID: "cmp-upset", UserID: "u1",
				WineAID: "wine-3", WineBID: "wine-1", WinnerID: "wine-3",
			})
			So(err, ShouldBeNil)

			Convey("Then the scores follow the literal formula", func() {
				winScore, _, _ := store.Rating(ctx, "u1", "wine-3")
				loseScore, _, _ := store.Rating(ctx, "u1", "wine-1")
				So(winScore, ShouldAlmostEqual, 1424.3119124797272, 1e-9)
				So(loseScore, ShouldAlmostEqual, 1575.6880875202728, 1e-9)
			})

			Convey("And positions are re-derived purely from the three scores", func() {
				So(waitFor(func() bool {
					rankings, err := svc.Rankings(ctx, "u1")
					return err == nil && len(rankings) == 3 &&
						rankings[0].Wine.ID == "wine-1" && // 1575.69
						rankings[1].Wine.ID == "wine-2" && // 1500
						rankings[2].Wine.ID == "wine-3" // 1424.31
				}), ShouldBeTrue)
			})
		})
	})
}

func TestNextPair(t *testing.T) {
	ctx := context.Background()

	Convey("Given a user with no wines", t, func() {
		store := repository.NewMemStore()
		svc := newTestService(store)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then NextPair reports insufficient candidates", func() {
			_, err := svc.NextPair(ctx, "u1")
			So(errors.Is(err, service.ErrInsufficientCandidates), ShouldBeTrue)
		})
	})

	Convey("Given a user with a single wine", t, func() {
		store := repository.NewMemStore()
		seedWine(store, "wine-lonely")
		seedCellar(store, "u1", "wine-lonely")
		svc := newTestService(store)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then NextPair still reports insufficient candidates", func() {
			_, err := svc.NextPair(ctx, "u1")
			So(errors.Is(err, service.ErrInsufficientCandidates), ShouldBeTrue)
		})
	})

	Convey("Given one rated and one unrated wine", t, func() {
		store := repository.NewMemStore(repository.WithRand(rand.New(rand.NewSource(7))))
		seedWine(store, "wine-rated")
		seedWine(store, "wine-fresh")
		seedCellar(store, "u1", "wine-rated")
		seedCellar(store, "u1", "wine-fresh")
		So(store.UpsertRating(ctx, model.Rating{
			UserID: "u1", WineID: "wine-rated", EloScore: 1520, Position: 1, UpdatedAt: time.Now(),
		}), ShouldBeNil)

		svc := newTestService(store)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the unrated wine is injected into slot A", func() {
			pair, err := svc.NextPair(ctx, "u1")
			So(err, ShouldBeNil)
			So(pair.WineAIsNew, ShouldBeTrue)
			So(pair.WineA.ID, ShouldEqual, "wine-fresh")
			So(pair.WineB.ID, ShouldEqual, "wine-rated")
		})
	})
}

func TestCatalogAndCellar(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		store := repository.NewMemStore()
		svc := newTestService(store)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a wine is added without an id", func() {
			w, err := svc.AddWine(ctx, model.Wine{Name: "Barolo", Producer: "Giacomo Conterno"})

			Convey("Then an id is assigned", func() {
				So(err, ShouldBeNil)
				So(w.ID, ShouldNotBeEmpty)
			})

			Convey("And it can join a cellar", func() {
				item, err := svc.AddCellarItem(ctx, "u1", w.ID, model.CellarStatusHad)
				So(err, ShouldBeNil)
				So(item.UserID, ShouldEqual, "u1")

				n, err := store.CountCandidates(ctx, "u1")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When a cellar item references an unknown wine", func() {
			_, err := svc.AddCellarItem(ctx, "u1", "wine-ghost", model.CellarStatusHad)

			Convey("Then the link is rejected", func() {
				So(errors.Is(err, repository.ErrUnknownWine), ShouldBeTrue)
			})
		})
	})
}

func TestIdempotentRatingWrite(t *testing.T) {
	ctx := context.Background()

	Convey("Given a rating record", t, func() {
		store := repository.NewMemStore()
		r := model.Rating{UserID: "u1", WineID: "w1", EloScore: 1516, Position: 1, UpdatedAt: time.Now()}

		Convey("When the same write is issued twice", func() {
			So(store.UpsertRating(ctx, r), ShouldBeNil)
			So(store.UpsertRating(ctx, r), ShouldBeNil)

			Convey("Then the stored state matches a single write", func() {
				ratings, err := store.ListRatings(ctx, "u1")
				So(err, ShouldBeNil)
				So(len(ratings), ShouldEqual, 1)
				So(ratings[0].EloScore, ShouldAlmostEqual, 1516.0, floatEps)
			})
		})
	})
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("When starting", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stats report the running state", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
			})
		})
	})
}

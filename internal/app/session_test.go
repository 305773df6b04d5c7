package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/vitislabs/decant/internal/app"
	"github.com/vitislabs/decant/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDuelAPI scripts NextPair and SubmitComparison responses and can block a
// fetch until released, to stage in-flight supersession.
type fakeDuelAPI struct {
	mu sync.Mutex

	pairs     []model.Pair
	pairErrs  []error
	pairCalls int

	submitErr   error
	submissions []model.Comparison

	gates []chan struct{} // when non-nil for a call index, the call blocks on it
}

func (f *fakeDuelAPI) NextPair(_ context.Context, _ string) (model.Pair, error) {
	f.mu.Lock()
	i := f.pairCalls
	f.pairCalls++
	var gate chan struct{}
	if i < len(f.gates) {
		gate = f.gates[i]
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if i < len(f.pairErrs) {
		err = f.pairErrs[i]
	}
	if err != nil {
		return model.Pair{}, err
	}
	if i < len(f.pairs) {
		return f.pairs[i], nil
	}
	return model.Pair{}, service.ErrInsufficientCandidates
}

func (f *fakeDuelAPI) SubmitComparison(_ context.Context, c model.Comparison) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return false, f.submitErr
	}
	f.submissions = append(f.submissions, c)
	return false, nil
}

func pairOf(a, b string) model.Pair {
	return model.Pair{
		WineA: model.Wine{ID: a, Name: "Wine " + a},
		WineB: model.Wine{ID: b, Name: "Wine " + b},
	}
}

func TestSessionStates(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fresh session", t, func() {
		api := &fakeDuelAPI{pairs: []model.Pair{pairOf("a", "b")}}
		sess := service.NewSession(api, "u1")

		Convey("Then it starts idle", func() {
			So(sess.State(), ShouldEqual, service.StateIdle)
		})

		Convey("When a pair loads successfully", func() {
			sess.LoadNextPair(ctx)

			Convey("Then the pair is presented", func() {
				So(sess.State(), ShouldEqual, service.StatePresented)
				So(sess.Pair().WineA.ID, ShouldEqual, "a")
				So(sess.Pair().WineB.ID, ShouldEqual, "b")
			})
		})

		Convey("When submitting before any pair was presented", func() {
			err := sess.SubmitWinner(ctx, "cmp-1", "a")

			Convey("Then the submission is refused locally", func() {
				So(errors.Is(err, service.ErrInvalidSubmission), ShouldBeTrue)
				So(len(api.submissions), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a session with fewer than two candidates", t, func() {
		api := &fakeDuelAPI{pairErrs: []error{service.ErrInsufficientCandidates}}
		sess := service.NewSession(api, "u1")

		Convey("When loading", func() {
			sess.LoadNextPair(ctx)

			Convey("Then the session lands in the insufficient state with no pair", func() {
				So(sess.State(), ShouldEqual, service.StateInsufficient)
				So(sess.Pair().WineA.ID, ShouldBeEmpty)
				So(sess.Err(), ShouldBeNil)
			})
		})
	})

	Convey("Given a fetch that fails", t, func() {
		loadErr := errors.New("store unavailable")
		api := &fakeDuelAPI{pairErrs: []error{loadErr}}
		sess := service.NewSession(api, "u1")

		Convey("When loading", func() {
			sess.LoadNextPair(ctx)

			Convey("Then the failure is surfaced", func() {
				So(sess.State(), ShouldEqual, service.StateFailed)
				So(errors.Is(sess.Err(), loadErr), ShouldBeTrue)
			})
		})
	})
}

func TestSessionSubmit(t *testing.T) {
	ctx := context.Background()

	Convey("Given a presented pair", t, func() {
		api := &fakeDuelAPI{pairs: []model.Pair{pairOf("a", "b"), pairOf("c", "d")}}
		sess := service.NewSession(api, "u1")
		sess.LoadNextPair(ctx)
		So(sess.State(), ShouldEqual, service.StatePresented)

		Convey("When the winner is chosen", func() {
			err := sess.SubmitWinner(ctx, "cmp-1", "b")

			Convey("Then the comparison is submitted and the next pair presented", func() {
				So(err, ShouldBeNil)
				So(len(api.submissions), ShouldEqual, 1)
				So(api.submissions[0].WinnerID, ShouldEqual, "b")
				So(api.submissions[0].WineAID, ShouldEqual, "a")
				So(api.submissions[0].WineBID, ShouldEqual, "b")

				So(sess.State(), ShouldEqual, service.StatePresented)
				So(sess.Pair().WineA.ID, ShouldEqual, "c")
			})
		})

		Convey("When the chosen winner is not in the pair", func() {
			err := sess.SubmitWinner(ctx, "cmp-1", "z")

			Convey("Then the submission is refused and the pair kept", func() {
				So(errors.Is(err, service.ErrInvalidWinner), ShouldBeTrue)
				So(len(api.submissions), ShouldEqual, 0)
				So(sess.Pair().WineA.ID, ShouldEqual, "a")
			})
		})

		Convey("When the submission fails downstream", func() {
			submitErr := errors.New("write timeout")
			api.submitErr = submitErr
			err := sess.SubmitWinner(ctx, "cmp-1", "a")

			Convey("Then the pair is retained for retry", func() {
				So(errors.Is(err, submitErr), ShouldBeTrue)
				So(sess.State(), ShouldEqual, service.StateFailed)
				So(sess.Pair().WineA.ID, ShouldEqual, "a")
			})

			Convey("And retrying with the same comparison id succeeds", func() {
				So(errors.Is(err, submitErr), ShouldBeTrue)
				api.mu.Lock()
				api.submitErr = nil
				api.mu.Unlock()

				So(sess.SubmitWinner(ctx, "cmp-1", "a"), ShouldBeNil)
				So(len(api.submissions), ShouldEqual, 1)
				So(api.submissions[0].ID, ShouldEqual, "cmp-1")
				So(sess.State(), ShouldEqual, service.StatePresented)
				So(sess.Pair().WineA.ID, ShouldEqual, "c")
			})
		})
	})
}

func TestSessionLastRequestWins(t *testing.T) {
	ctx := context.Background()

	Convey("Given a slow fetch superseded by a second one", t, func() {
		gate := make(chan struct{})
		api := &fakeDuelAPI{
			pairs: []model.Pair{pairOf("stale-a", "stale-b"), pairOf("fresh-a", "fresh-b")},
			gates: []chan struct{}{gate, nil},
		}
		sess := service.NewSession(api, "u1")

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.LoadNextPair(ctx) // blocks on the gate
		}()

		// Second request resolves first.
		for api.pairCallCount() == 0 {
			time.Sleep(time.Millisecond)
		}
		sess.LoadNextPair(ctx)
		So(sess.Pair().WineA.ID, ShouldEqual, "fresh-a")

		Convey("When the stale response finally lands", func() {
			close(gate)
			wg.Wait()

			Convey("Then it is discarded and the fresh pair survives", func() {
				So(sess.State(), ShouldEqual, service.StatePresented)
				So(sess.Pair().WineA.ID, ShouldEqual, "fresh-a")
			})
		})
	})
}

func (f *fakeDuelAPI) pairCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pairCalls
}

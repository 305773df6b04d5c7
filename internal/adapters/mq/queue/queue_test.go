package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/vitislabs/decant/internal/adapters/mq/queue"
	"github.com/vitislabs/decant/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with small capacity", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))
		defer q.Close()

		Convey("When tasks are enqueued within capacity", func() {
			ok1 := q.Enqueue(ctx, queue.Task{Kind: model.TaskReposition, UserID: "u1"})
			ok2 := q.Enqueue(ctx, queue.Task{Kind: model.TaskActivity, UserID: "u1"})

			Convey("Then both are accepted", func() {
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 2)
			})

			Convey("And a task beyond capacity is dropped", func() {
				So(q.Enqueue(ctx, queue.Task{Kind: model.TaskReposition, UserID: "u2"}), ShouldBeFalse)
			})
		})

		Convey("When tasks are dequeued", func() {
			q.Enqueue(ctx, queue.Task{Kind: model.TaskReposition, UserID: "u1"})

			dequeueCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			ch := q.Dequeue(dequeueCtx)

			Convey("Then the task arrives in order", func() {
				select {
				case task := <-ch:
					So(task.Kind, ShouldEqual, model.TaskReposition)
					So(task.UserID, ShouldEqual, "u1")
				case <-time.After(time.Second):
					t.Fatal("timed out waiting for task")
				}
			})
		})
	})

	Convey("Given a closed queue", t, func() {
		q := queue.NewInMemoryQueue()
		So(q.Close(), ShouldBeNil)

		Convey("Then it reports closed", func() {
			So(q.IsClosed(), ShouldBeTrue)
		})

		Convey("And enqueue is rejected", func() {
			So(q.Enqueue(ctx, queue.Task{Kind: model.TaskReposition}), ShouldBeFalse)
		})

		Convey("And closing again is a no-op", func() {
			So(q.Close(), ShouldBeNil)
		})

		Convey("And the dequeue channel closes after draining", func() {
			ch := q.Dequeue(ctx)
			select {
			case _, open := <-ch:
				So(open, ShouldBeFalse)
			case <-time.After(time.Second):
				t.Fatal("dequeue channel never closed")
			}
		})
	})
}

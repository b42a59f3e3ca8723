package chanloop_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/baxromumarov/chanloop"
	"github.com/baxromumarov/chanloop/chanx"
)

func ExampleDispatch() {
	d := chanloop.NewDispatch()
	q := chanx.NewQueueChannel[string]()

	err := chanloop.AddMessage(d, q, chanloop.Sync, func(s string) error {
		fmt.Println("got", s)
		if s == "bye" {
			q.Close()
		}
		return nil
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	q.Write("hello")
	q.Write("world")
	q.Write("bye")

	res := d.Run(context.Background())
	fmt.Println(res.Reason)
	// Output:
	// got hello
	// got world
	// got bye
	// closed
}

func ExampleDispatch_error() {
	d := chanloop.NewDispatch()
	c := chanx.NewTrueChannel()

	_ = d.AddEvent(c, chanloop.Sync, func() error {
		return errors.New("disk full")
	}, chanloop.WithName("writer"))

	res := d.Run(context.Background())
	fmt.Println(res.Reason)
	fmt.Println(res.Err)
	fmt.Println("still registered:", d.Len())

	d.Drop(c)
	fmt.Println("after drop:", d.Len())
	// Output:
	// error
	// task "writer" failed: disk full
	// still registered: 1
	// after drop: 0
}

func ExampleDispatch_async() {
	d := chanloop.NewDispatch(chanloop.WithAsyncPoll(10 * time.Millisecond))
	c := chanx.NewBufferChannel()

	var total atomic.Int64
	_ = d.AddStream(c, chanloop.Async, func(buf *bytes.Buffer) error {
		total.Add(int64(buf.Len()))
		buf.Reset()
		if total.Load() == 11 {
			c.Close()
		}
		return nil
	})

	c.WriteString("hello world")
	res := d.Run(context.Background())
	fmt.Println(res.Reason, total.Load())
	// Output: closed 11
}

func ExampleAddMessage_generator() {
	d := chanloop.NewDispatch()

	n := 0
	gen := chanx.NewGeneratorChannel(func() int {
		n++
		return n * n
	})

	_ = chanloop.AddMessage(d, gen, chanloop.Sync, func(v int) error {
		fmt.Println(v)
		if v >= 16 {
			gen.Close()
		}
		return nil
	})

	d.Run(context.Background())
	// Output:
	// 1
	// 4
	// 9
	// 16
}

func ExampleThreadPool() {
	pool := chanloop.NewThreadPool(4)

	var sum atomic.Int64
	for i := 1; i <= 100; i++ {
		_ = pool.Go(func() { sum.Add(int64(i)) })
	}

	if err := pool.Close(); err != nil {
		fmt.Println("error:", err)
	}
	fmt.Println(sum.Load())
	// Output: 5050
}

func ExampleThreadPool_errors() {
	pool := chanloop.NewThreadPool(2)

	_ = pool.Insert(func() error { return errors.New("bad input") })
	_ = pool.Insert(func() error { return nil })

	err := pool.Close()
	fmt.Println(err)
	fmt.Println(pool.Stats().Errored)
	// Output:
	// bad input
	// 1
}

package reactor_test

import (
	"fmt"
	"time"

	reactor "github.com/joeycumines/go-reactor"
)

func Example() {
	r, err := reactor.New()
	if err != nil {
		panic(err)
	}
	defer r.Close()

	r.FutureTick(func() {
		fmt.Println("tick")
	})
	if _, err := r.AddTimer(10*time.Millisecond, func(reactor.TimerID) {
		fmt.Println("timer")
	}); err != nil {
		panic(err)
	}

	// Run blocks until nothing remains that could wake the loop.
	if err := r.Run(); err != nil {
		panic(err)
	}

	// Output:
	// tick
	// timer
}

func ExampleReactor_AddPeriodicTimer() {
	r, err := reactor.New()
	if err != nil {
		panic(err)
	}
	defer r.Close()

	count := 0
	if _, err := r.AddPeriodicTimer(5*time.Millisecond, func(id reactor.TimerID) {
		count++
		if count == 3 {
			// Canceling the last live timer ends the run.
			r.CancelTimer(id)
		}
	}); err != nil {
		panic(err)
	}

	if err := r.Run(); err != nil {
		panic(err)
	}
	fmt.Println(count)

	// Output:
	// 3
}

func ExampleReactor_Stop() {
	r, err := reactor.New()
	if err != nil {
		panic(err)
	}
	defer r.Close()

	if _, err := r.AddPeriodicTimer(time.Millisecond, func(reactor.TimerID) {
		fmt.Println("still here")
		r.Stop()
	}); err != nil {
		panic(err)
	}

	if err := r.Run(); err != nil {
		panic(err)
	}
	fmt.Println(r.State())

	// Output:
	// still here
	// Idle
}

package limiter_test

import (
	"fmt"

	"github.com/adamwoolhether/pacer/limiter"
)

func ExampleNew() {
	l, err := limiter.New(limiter.Config{
		InitialRate:    1.0, // requests per second
		MinRate:        0.5,
		MaxRate:        2.0,
		IncreaseStep:   0.5,
		DecreaseFactor: 0.5,
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	l.OnSuccess()
	l.OnSuccess()
	l.OnSuccess() // clamped at the maximum

	fmt.Printf("rate: %.1f rps\n", l.Snapshot().Rate)
	// Output: rate: 2.0 rps
}

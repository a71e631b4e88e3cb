package throttle_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/adamwoolhether/arachnid/client/throttle"
)

func ExampleNew() {
	gate, err := throttle.New("wikipedia", 200, throttle.WithMode(throttle.Fail))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	err = gate.Do(context.Background(), func(ctx context.Context) error {
		// call the remote source here
		return nil
	})
	if errors.Is(err, throttle.ErrRateLimitExceeded) {
		fmt.Println("over the ceiling, retry later")
		return
	}

	fmt.Println("call admitted, mode:", gate.Mode())
	// Output: call admitted, mode: fail
}

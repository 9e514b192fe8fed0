package breaker_test

import (
	"errors"
	"fmt"

	"github.com/kestrel-oss/breaker"
)

func ExampleBreaker_Call() {
	cfg, err := breaker.NewBuilder().
		WithFailureThreshold(0.5).
		WithMinThroughput(5).
		WithConsecutiveFailuresTrip(3).
		Build()
	if err != nil {
		panic(err)
	}

	cb := breaker.New("payments-api", cfg)

	err = cb.Call(func() error {
		return nil // call the real collaborator here
	})
	fmt.Println(err, cb.State())
	// Output: <nil> closed
}

func ExampleIsOpen() {
	cb := breaker.New("payments-api", mustConfig())
	cb.ForceOpen()

	err := cb.Call(func() error { return nil })
	fmt.Println(breaker.IsOpen(err))
	// Output: true
}

func mustConfig() breaker.Configuration {
	cfg, err := breaker.NewBuilder().Build()
	if err != nil {
		panic(err)
	}
	return cfg
}

var errUpstream = errors.New("upstream unavailable")

func ExampleBreakerError() {
	cb := breaker.New("payments-api", mustConfig())

	err := cb.Call(func() error { return errUpstream })
	var berr *breaker.BreakerError
	if errors.As(err, &berr) {
		fmt.Println(errors.Is(err, errUpstream))
	}
	// Output: true
}

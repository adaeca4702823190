package breaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/adamwoolhether/pacer/clock"
)

func mustNew(t *testing.T, name string, cfg Config, opts ...Option) *Breaker {
	t.Helper()

	b, err := New(name, cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return b
}

func TestNew_Validation(t *testing.T) {
	testCases := []struct {
		name   string
		cfg    Config
		expErr error
	}{
		{
			name:   "Invalid threshold (negative)",
			cfg:    Config{FailureThreshold: -1, OpenInterval: time.Second},
			expErr: ErrInvalidThreshold,
		},
		{
			name:   "Invalid open interval (negative)",
			cfg:    Config{FailureThreshold: 3, OpenInterval: -time.Second},
			expErr: ErrInvalidOpenInterval,
		},
		{
			name: "Zero values take defaults",
			cfg:  Config{},
		},
		{
			name: "Valid input",
			cfg:  Config{FailureThreshold: 1, OpenInterval: time.Millisecond},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := New("test", tc.cfg)

			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Errorf("exp err %v; got: %v", tc.expErr, err)
				}
			} else {
				if err != nil {
					t.Errorf("exp nil err, got: %v", err)
				}

				if b == nil {
					t.Error("exp non-nil Breaker")
				}
			}
		})
	}
}

func TestBreaker_OpensExactlyAtThreshold(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	b := mustNew(t, "svc", Config{FailureThreshold: 3, OpenInterval: time.Minute}, WithClock(fake))

	// Failures below the threshold keep the circuit closed.
	for i := 1; i < 3; i++ {
		b.Record(false)
		if err := b.Allow(); err != nil {
			t.Fatalf("circuit opened after %d failures, exp threshold 3: %v", i, err)
		}
	}

	// The third consecutive failure opens it.
	b.Record(false)

	err := b.Allow()
	if err == nil {
		t.Fatal("exp circuit open after threshold reached")
	}

	var oe *OpenError
	if !errors.As(err, &oe) {
		t.Fatalf("exp *OpenError, got: %v", err)
	}
	if !errors.Is(err, ErrOpen) {
		t.Errorf("exp ErrOpen sentinel, got: %v", err)
	}
	if oe.Name != "svc" {
		t.Errorf("exp integration name in error, got %q", oe.Name)
	}
	if exp := fake.Now().Add(time.Minute); !oe.Until.Equal(exp) {
		t.Errorf("exp open until %v, got %v", exp, oe.Until)
	}
}

func TestBreaker_SuccessResetsStreak(t *testing.T) {
	b := mustNew(t, "svc", Config{FailureThreshold: 2, OpenInterval: time.Minute})

	b.Record(false)
	b.Record(true) // resets the streak before the threshold
	b.Record(false)

	if err := b.Allow(); err != nil {
		t.Errorf("exp circuit closed after interleaved success, got: %v", err)
	}

	if got := b.State().ConsecutiveFailures; got != 1 {
		t.Errorf("exp streak of 1, got %d", got)
	}
}

func TestBreaker_RejectsUntilBoundaryThenAllowsTrial(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	b := mustNew(t, "svc", Config{FailureThreshold: 2, OpenInterval: 60 * time.Second}, WithClock(fake))

	b.Record(false)
	b.Record(false)

	// Every attempt inside the open window is rejected immediately.
	for _, advance := range []time.Duration{0, 10 * time.Second, 49 * time.Second} {
		fake.Advance(advance)
		if err := b.Allow(); !errors.Is(err, ErrOpen) {
			t.Fatalf("exp rejection at %v, got: %v", fake.Now(), err)
		}
	}

	// At the boundary, the trial call is allowed through.
	fake.Advance(1 * time.Second)
	if err := b.Allow(); err != nil {
		t.Errorf("exp trial allowed at open boundary, got: %v", err)
	}
}

func TestBreaker_FailedTrialExtendsBlackout(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	b := mustNew(t, "svc", Config{FailureThreshold: 2, OpenInterval: 30 * time.Second}, WithClock(fake))

	b.Record(false)
	b.Record(false)
	firstOpen := b.State().OpenUntil

	// Trial after the window fails; the open boundary pushes forward
	// a full interval from now.
	fake.Advance(30 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("exp trial allowed, got: %v", err)
	}
	b.Record(false)

	second := b.State().OpenUntil
	if !second.After(firstOpen) {
		t.Errorf("failed trial should extend blackout: %v -> %v", firstOpen, second)
	}
	if exp := fake.Now().Add(30 * time.Second); !second.Equal(exp) {
		t.Errorf("exp open until %v, got %v", exp, second)
	}
}

func TestBreaker_SuccessfulTrialCloses(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	b := mustNew(t, "svc", Config{FailureThreshold: 2, OpenInterval: 30 * time.Second}, WithClock(fake))

	b.Record(false)
	b.Record(false)

	fake.Advance(31 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("exp trial allowed, got: %v", err)
	}
	b.Record(true)

	state := b.State()
	if state.ConsecutiveFailures != 0 {
		t.Errorf("exp streak reset after successful trial, got %d", state.ConsecutiveFailures)
	}

	// A single failure afterwards must not re-open; the streak starts over.
	b.Record(false)
	if err := b.Allow(); err != nil {
		t.Errorf("exp circuit closed, got: %v", err)
	}
}

func TestBreaker_State(t *testing.T) {
	fake := clock.NewFake(time.Unix(1000, 0))
	b := mustNew(t, "svc", Config{FailureThreshold: 1, OpenInterval: time.Minute}, WithClock(fake))

	if got := b.State(); got.Open || got.ConsecutiveFailures != 0 {
		t.Errorf("exp pristine closed state, got %+v", got)
	}

	b.Record(false)

	got := b.State()
	if !got.Open {
		t.Error("exp open state after threshold failure")
	}
	if got.ConsecutiveFailures != 1 {
		t.Errorf("exp streak of 1, got %d", got.ConsecutiveFailures)
	}

	fake.Advance(2 * time.Minute)
	if got := b.State(); got.Open {
		t.Error("exp closed state after window passed")
	}
}

func TestBreaker_ConcurrentUse(t *testing.T) {
	b := mustNew(t, "svc", Config{FailureThreshold: 5, OpenInterval: time.Millisecond})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = b.Allow()
				b.Record(i%3 == 0)
				_ = b.State()
			}
		}(g)
	}
	wg.Wait()

	if got := b.State().ConsecutiveFailures; got < 0 {
		t.Errorf("streak went negative under contention: %d", got)
	}
}

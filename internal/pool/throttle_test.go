package pool

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestThrottleBoundsConcurrency(t *testing.T) {
	th := New(2)
	var running int32
	var maxSeen int32
	n := 20
	for i := 0; i < n; i++ {
		th.Acquire()
		go func() {
			defer th.Release()
			cur := atomic.AddInt32(&running, 1)
			for {
				if prev := atomic.LoadInt32(&maxSeen); cur > prev {
					if atomic.CompareAndSwapInt32(&maxSeen, prev, cur) {
						break
					}
					continue
				}
				break
			}
			atomic.AddInt32(&running, -1)
		}()
	}
	if err := th.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if maxSeen > 2 {
		t.Errorf("observed %d concurrent tasks, want <= 2", maxSeen)
	}
}

func TestThrottleKeepsFirstReportedError(t *testing.T) {
	th := New(4)
	first := errors.New("first")
	second := errors.New("second")
	th.Report(first)
	th.Report(second)
	if th.Err() != first {
		t.Errorf("Err() = %v, want %v (first reported error wins)", th.Err(), first)
	}
}

func TestThrottleZeroMaxClampsToOne(t *testing.T) {
	th := New(0)
	if th.Max != 1 {
		t.Errorf("Max = %d, want 1", th.Max)
	}
}

package lock

import (
	"fmt"
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestConcurrentIncrementsProperty checks that read-modify-write sequences on one
// key never lose updates when guarded by the key's lock.
func TestConcurrentIncrementsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 30).Draw(t, "numOps")
		amounts := rapid.SliceOfN(rapid.Int64Range(-500, 500), numOps, numOps).Draw(t, "amounts")

		expected := initial
		for _, a := range amounts {
			expected += a
		}

		km := NewKeyedMutex()
		balance := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, a := range amounts {
			go func(amount int64) {
				defer wg.Done()
				_ = km.WithLock("user", func() error {
					current := balance
					balance = current + amount
					return nil
				})
			}(a)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance mismatch: expected %d, got %d", expected, balance)
		}
		if km.Len() != 0 {
			t.Fatalf("expected no retained entries, got %d", km.Len())
		}
	})
}

// TestIndependentKeysProperty checks that keys do not interfere with each other.
func TestIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUsers := rapid.IntRange(2, 10).Draw(t, "numUsers")
		opsPerUser := rapid.IntRange(1, 20).Draw(t, "opsPerUser")

		km := NewKeyedMutex()
		balances := make([]int64, numUsers)

		var wg sync.WaitGroup
		wg.Add(numUsers * opsPerUser)
		for u := 0; u < numUsers; u++ {
			key := fmt.Sprintf("user-%d", u)
			for j := 0; j < opsPerUser; j++ {
				go func(idx int, key string) {
					defer wg.Done()
					km.Lock(key)
					defer km.Unlock(key)
					balances[idx] += 10
				}(u, key)
			}
		}
		wg.Wait()

		for u, b := range balances {
			if b != int64(opsPerUser)*10 {
				t.Fatalf("user %d: expected %d, got %d", u, opsPerUser*10, b)
			}
		}
	})
}

package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func TestLimiter_AdmitsUpToMax(t *testing.T) {
	l := New(Config{})

	for i := 0; i < DefaultMaxRequests; i++ {
		assert.True(t, l.Admit("1.2.3.4", epoch.Add(time.Duration(i)*100*time.Millisecond)), "request %d", i+1)
	}
}

func TestLimiter_BlocksFor30Seconds(t *testing.T) {
	l := New(Config{})
	addr := "1.2.3.4"

	var last time.Time
	for i := 0; i < DefaultMaxRequests; i++ {
		last = epoch.Add(time.Duration(i) * 100 * time.Millisecond)
		assert.True(t, l.Admit(addr, last))
	}

	blockedAt := last.Add(100 * time.Millisecond)
	assert.False(t, l.Admit(addr, blockedAt), "51st request must be rejected")

	assert.False(t, l.Admit(addr, blockedAt.Add(time.Second)))
	assert.False(t, l.Admit(addr, blockedAt.Add(29*time.Second)))
	assert.False(t, l.Admit(addr, blockedAt.Add(30*time.Second-time.Millisecond)))

	assert.True(t, l.Admit(addr, blockedAt.Add(30*time.Second)), "block lifts after exactly 30s")
}

func TestLimiter_RejectedDuringBlockDoesNotExtendIt(t *testing.T) {
	l := New(Config{Window: 10 * time.Second, MaxRequests: 1, Block: 30 * time.Second})
	addr := "1.2.3.4"

	assert.True(t, l.Admit(addr, epoch))
	assert.False(t, l.Admit(addr, epoch.Add(time.Second)))

	for i := 2; i < 30; i++ {
		assert.False(t, l.Admit(addr, epoch.Add(time.Duration(i)*time.Second)))
	}
	assert.True(t, l.Admit(addr, epoch.Add(31*time.Second)))
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l := New(Config{Window: 10 * time.Second, MaxRequests: 3, Block: 30 * time.Second})
	addr := "1.2.3.4"

	assert.True(t, l.Admit(addr, epoch))
	assert.True(t, l.Admit(addr, epoch.Add(4*time.Second)))
	assert.True(t, l.Admit(addr, epoch.Add(8*time.Second)))

	// the first request has left the window
	assert.True(t, l.Admit(addr, epoch.Add(10*time.Second)))
	assert.False(t, l.Admit(addr, epoch.Add(11*time.Second)))
}

func TestLimiter_AddressesIndependent(t *testing.T) {
	l := New(Config{Window: 10 * time.Second, MaxRequests: 1, Block: 30 * time.Second})

	assert.True(t, l.Admit("a", epoch))
	assert.False(t, l.Admit("a", epoch))
	assert.True(t, l.Admit("b", epoch))
	assert.True(t, l.Blocked("a", epoch))
	assert.False(t, l.Blocked("b", epoch))
}

func TestLimiter_Sweep(t *testing.T) {
	l := New(Config{Window: 10 * time.Second, MaxRequests: 1, Block: 30 * time.Second})

	for i := 0; i < 20; i++ {
		l.Admit(fmt.Sprintf("10.0.0.%d", i), epoch)
	}
	l.Admit("10.0.0.0", epoch)
	assert.Equal(t, 20, l.Len())

	l.Sweep(epoch.Add(11 * time.Second))
	assert.Equal(t, 1, l.Len(), "only the blocked address remains")

	l.Sweep(epoch.Add(31 * time.Second))
	assert.Equal(t, 0, l.Len())
}

func TestLimiter_Concurrent(t *testing.T) {
	l := New(Config{})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("1.2.3.4", epoch) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, DefaultMaxRequests, admitted)
}

// Package runtime supplies a full-jitter exponential backoff rate limiter
// implementing workqueue.RateLimiter. The reconcilers' SetupWithManager does
// not install it; their workqueues use controller-runtime's default rate
// limiter.
package runtime

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"k8s.io/client-go/util/workqueue"
)

// FullJitterRateLimiter implements workqueue.RateLimiter with exponential
// backoff and full jitter: delay = random(0, min(cap, base*factor^retries)).
// A key's history is forgotten on Forget, matching the "forget on successful
// reconcile" design note.
type FullJitterRateLimiter struct {
	base   time.Duration
	factor float64
	cap    time.Duration

	mu      sync.Mutex
	retries map[interface{}]int
	rng     *rand.Rand
}

// NewFullJitterRateLimiter returns a limiter with the given base delay,
// growth factor and cap; DefaultFullJitterRateLimiter supplies the server
// controller's error-policy values.
func NewFullJitterRateLimiter(base time.Duration, factor float64, cap time.Duration) *FullJitterRateLimiter {
	return &FullJitterRateLimiter{
		base:    base,
		factor:  factor,
		cap:     cap,
		retries: make(map[interface{}]int),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// DefaultFullJitterRateLimiter matches the server controller's documented
// error policy (base 200ms, factor 2, cap 60s).
func DefaultFullJitterRateLimiter() *FullJitterRateLimiter {
	return NewFullJitterRateLimiter(200*time.Millisecond, 2, 60*time.Second)
}

func (r *FullJitterRateLimiter) When(item interface{}) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.retries[item]
	r.retries[item] = n + 1

	backoff := float64(r.base) * math.Pow(r.factor, float64(n))
	if backoff > float64(r.cap) {
		backoff = float64(r.cap)
	}
	if backoff <= 0 {
		return 0
	}
	return time.Duration(r.rng.Int63n(int64(backoff)))
}

func (r *FullJitterRateLimiter) NumRequeues(item interface{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retries[item]
}

func (r *FullJitterRateLimiter) Forget(item interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.retries, item)
}

var _ workqueue.RateLimiter = (*FullJitterRateLimiter)(nil)

package stream

import "sync"

// DefaultMaxStreams is the global cap used when none is given.
const DefaultMaxStreams = 1000

// Limiter caps concurrent streams per client address and overall.
type Limiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	active   int
	maxPerIP int
	maxTotal int
}

// NewLimiter creates a limiter. maxTotal <= 0 uses DefaultMaxStreams.
func NewLimiter(maxPerIP, maxTotal int) *Limiter {
	if maxTotal <= 0 {
		maxTotal = DefaultMaxStreams
	}
	return &Limiter{perIP: map[string]int{}, maxPerIP: maxPerIP, maxTotal: maxTotal}
}

// Acquire takes a slot for ip. When ok is false no slot was taken; otherwise
// release must be called when the stream ends. Extra calls to release are
// no-ops.
func (l *Limiter) Acquire(ip string) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active >= l.maxTotal || l.perIP[ip] >= l.maxPerIP {
		return nil, false
	}
	l.perIP[ip]++
	l.active++

	var once sync.Once
	return func() { once.Do(func() { l.release(ip) }) }, true
}

func (l *Limiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.active--
	if n := l.perIP[ip] - 1; n > 0 {
		l.perIP[ip] = n
	} else {
		delete(l.perIP, ip)
	}
}

// Count returns the number of open streams for ip.
func (l *Limiter) Count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}

// Active returns the number of open streams overall.
func (l *Limiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

package fetcher

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when a host has failed too often recently.
var ErrCircuitOpen = eris.New("fetcher: circuit open for host")

// BreakerState is the state of a host's circuit.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls when a host's circuit opens.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failed opens before the
	// circuit opens. Default: 3.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before one trial request is
	// allowed. Default: 30s.
	ResetTimeout time.Duration
}

// Breaker guards one remote host. After FailureThreshold consecutive
// failures it rejects calls until ResetTimeout has elapsed, then lets a
// single trial request through.
type Breaker struct {
	host string
	cfg  BreakerConfig

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker for host.
func NewBreaker(host string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{host: host, cfg: cfg, now: time.Now}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return eris.Wrapf(ErrCircuitOpen, "host %s", b.host)
		}
		b.setState(BreakerHalfOpen)
		return nil
	default:
		return nil
	}
}

// Record feeds the outcome of an allowed call back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		if b.state != BreakerClosed {
			b.setState(BreakerClosed)
		}
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.openedAt = b.now()
		if b.state != BreakerOpen {
			b.setState(BreakerOpen)
		}
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) setState(to BreakerState) {
	zap.L().Info("fetcher: circuit state change",
		zap.String("host", b.host),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
	)
	b.state = to
}

// Package probe waits for a TCP host to accept connections.
//
// Each attempt dials IPv4 first and then IPv6, so a service bound to only
// one address family is found regardless of the resolver's preferred order.
package probe

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dshills/tasklaunch/internal/logging"
)

// DefaultInterval is the pause between attempts.
const DefaultInterval = 100 * time.Millisecond

// Families are the networks dialed on each attempt, in order.
var Families = []string{"tcp4", "tcp6"}

// Dialer opens network connections. *net.Dialer implements it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Prober checks host availability.
type Prober struct {
	dialer   Dialer
	interval time.Duration
	logger   *logging.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithDialer sets the dialer used for connection attempts.
func WithDialer(d Dialer) Option {
	return func(p *Prober) {
		if d != nil {
			p.dialer = d
		}
	}
}

// WithInterval sets the pause between attempts.
func WithInterval(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the prober's logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Prober) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a prober.
func New(opts ...Option) *Prober {
	p := &Prober{
		dialer:   &net.Dialer{},
		interval: DefaultInterval,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WaitForHost reports whether host:port accepts a connection within
// timeout, using a default Prober.
func WaitForHost(ctx context.Context, host string, port int, timeout time.Duration) bool {
	return New().WaitForHost(ctx, host, port, timeout)
}

// WaitForHost dials host:port until a connection succeeds or timeout
// elapses. It returns true as soon as either family connects and false
// only once the deadline has passed, or ctx is done. Connection errors are
// never returned.
func (p *Prober) WaitForHost(ctx context.Context, host string, port int, timeout time.Duration) bool {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	deadline := time.Now().Add(timeout)

	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	policy := backoff.NewConstantBackOff(p.interval)
	attempts := 0
	for time.Now().Before(deadline) {
		attempts++
		for _, network := range Families {
			if p.tryDial(ctx, network, address) {
				p.logger.Debug("%s reachable over %s after %d attempts", address, network, attempts)
				return true
			}
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			break
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			p.logger.Debug("%s unreachable after %d attempts: %v", address, attempts, ctx.Err())
			return false
		}
	}

	p.logger.Debug("%s unreachable after %d attempts", address, attempts)
	return false
}

func (p *Prober) tryDial(ctx context.Context, network, address string) bool {
	conn, err := p.dialer.DialContext(ctx, network, address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

package health

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DefaultDialTimeout bounds a single TCP probe when the caller's
// context carries no deadline of its own.
const DefaultDialTimeout = 5 * time.Second

// TCPChecker probes a node's agent port by completing a TCP handshake.
// A node that accepts the connection is reachable; what it would say
// on the wire is the monitor's problem, not the probe's.
type TCPChecker struct {
	// Address is the node endpoint in host:port form, as produced by
	// net.JoinHostPort from the node record.
	Address string

	// Timeout caps the dial. The effective deadline is the tighter of
	// this and the context's.
	Timeout time.Duration
}

// NewTCPChecker returns a checker for the given node endpoint.
func NewTCPChecker(address string) *TCPChecker {
	return &TCPChecker{Address: address, Timeout: DefaultDialTimeout}
}

// WithTimeout overrides the dial timeout.
func (t *TCPChecker) WithTimeout(timeout time.Duration) *TCPChecker {
	t.Timeout = timeout
	return t
}

// Check dials the node once and reports whether it answered.
func (t *TCPChecker) Check(ctx context.Context) Result {
	start := time.Now()
	dialer := net.Dialer{Timeout: t.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", t.Address)
	elapsed := time.Since(start)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("node unreachable: %v", err),
			CheckedAt: start,
			Duration:  elapsed,
		}
	}
	conn.Close()

	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("node answered on %s", t.Address),
		CheckedAt: start,
		Duration:  elapsed,
	}
}

func (t *TCPChecker) Type() CheckType {
	return CheckTypeTCP
}

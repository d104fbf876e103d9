package server

import (
	"context"
	"net"

	"golang.org/x/time/rate"
)

// rateLimitedListener throttles Accept with a token bucket.
type rateLimitedListener struct {
	net.Listener
	limiter *rate.Limiter
	ctx     context.Context
	cancel  context.CancelFunc
}

func newRateLimitedListener(ln net.Listener, perSecond float64, burst int) *rateLimitedListener {
	if burst < 1 {
		burst = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &rateLimitedListener{
		Listener: ln,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (l *rateLimitedListener) Accept() (net.Conn, error) {
	if err := l.limiter.Wait(l.ctx); err != nil {
		// only fails once Close has cancelled the context
		return nil, net.ErrClosed
	}
	return l.Listener.Accept()
}

func (l *rateLimitedListener) Close() error {
	l.cancel()
	return l.Listener.Close()
}

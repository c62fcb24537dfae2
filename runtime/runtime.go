package runtime

import (
	"context"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/runtime/pool"
	"github.com/schemaforge/schemaforge/telemetry"
)

// Pool hands out connections. It is either backed by the native pool or by a
// single externally supplied handle whose lifetime the caller owns.
type Pool struct {
	native   *pool.Pool
	external Queryable

	provider string
	flavour  connector.Flavour
	tracer   *telemetry.Tracer
}

// NewNativePool wraps a native connection pool.
func NewNativePool(p *pool.Pool, conn connector.Connector, tracer *telemetry.Tracer) *Pool {
	return &Pool{
		native:   p,
		provider: conn.ProviderName(),
		flavour:  conn.Flavour(),
		tracer:   tracer,
	}
}

// NewExternalPool wraps an externally supplied connection handle. Checkout
// never blocks on it.
func NewExternalPool(q Queryable, conn connector.Connector, tracer *telemetry.Tracer) *Pool {
	return &Pool{
		external: q,
		provider: conn.ProviderName(),
		flavour:  conn.Flavour(),
		tracer:   tracer,
	}
}

// IsExternal reports whether connections come from an external handle.
func (p *Pool) IsExternal() bool {
	return p.external != nil
}

// CheckOut reserves a connection. On the native side it suspends until the
// pool has capacity or ctx is cancelled; on the external side it returns
// immediately with the shared handle.
func (p *Pool) CheckOut(ctx context.Context) (*Connection, error) {
	conn := &Connection{provider: p.provider, flavour: p.flavour, tracer: p.tracer}
	if p.external != nil {
		conn.external = p.external
		return conn, nil
	}

	native, err := p.native.CheckOut(ctx)
	if err != nil {
		return nil, &CheckoutError{Err: err}
	}
	conn.native = native
	return conn, nil
}

// Close shuts down the native pool. External handles are caller-owned and
// left open.
func (p *Pool) Close() error {
	if p.native != nil {
		return p.native.Close()
	}
	return nil
}

package wirekv

import (
	"context"
	"sync"
)

// proc starts and tracks the connection's background goroutines under a
// shared, cancellable context. Conn does its own close/teardown bookkeeping
// (see Conn.teardown, which must never block on proc's WaitGroup since the
// loop goroutine is itself one of proc's members); proc's only job is
// letting Conn cancel that context to unwind readLoop and loop.
type proc struct {
	ctx         context.Context
	ctxCancelFn context.CancelFunc
	ctxDoneCh   <-chan struct{}

	wg sync.WaitGroup
}

func newProc() proc {
	ctx, cancel := context.WithCancel(context.Background())
	return proc{
		ctx:         ctx,
		ctxCancelFn: cancel,
		ctxDoneCh:   ctx.Done(),
	}
}

func (p *proc) run(fn func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		fn(p.ctx)
		p.wg.Done()
	}()
}

func (p *proc) closedCh() <-chan struct{} {
	return p.ctxDoneCh
}

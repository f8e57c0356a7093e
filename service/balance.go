package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/parkview-app/walletcore/ports"
)

const balanceFetchTimeout = 15 * time.Second

type balanceTarget struct {
	address string
	chainID int64
}

// balanceSyncer keeps the registry's balance current for the connected
// account. Refresh triggers within the debounce window coalesce into one
// fetch; a generation counter lets a disconnect discard an in-flight
// result instead of writing it into a session that no longer exists.
type balanceSyncer struct {
	reader   ports.ChainReader
	registry *Registry
	logger   *zap.Logger
	debounce time.Duration

	requests chan balanceTarget
	gen      atomic.Uint64

	stop     chan struct{}
	stopOnce sync.Once
}

func newBalanceSyncer(reader ports.ChainReader, registry *Registry, logger *zap.Logger, debounce time.Duration) *balanceSyncer {
	return &balanceSyncer{
		reader:   reader,
		registry: registry,
		logger:   logger,
		debounce: debounce,
		requests: make(chan balanceTarget, 1),
		stop:     make(chan struct{}),
	}
}

// refresh schedules a fetch for the target account. Never blocks; a newer
// target supersedes an undelivered older one.
func (b *balanceSyncer) refresh(address string, chainID int64) {
	tgt := balanceTarget{address: address, chainID: chainID}
	for {
		select {
		case b.requests <- tgt:
			return
		default:
		}
		select {
		case <-b.requests:
		default:
		}
	}
}

// invalidate makes any in-flight fetch result unusable. Called whenever
// the session the fetch was started for goes away.
func (b *balanceSyncer) invalidate() {
	b.gen.Add(1)
}

func (b *balanceSyncer) close() {
	b.stopOnce.Do(func() { close(b.stop) })
}

// run is the syncer goroutine: it debounces trigger bursts and performs
// fetches serially.
func (b *balanceSyncer) run() {
	var (
		pending balanceTarget
		armed   bool
	)
	timer := time.NewTimer(b.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-b.stop:
			return

		case tgt := <-b.requests:
			pending = tgt
			if armed && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(b.debounce)
			armed = true

		case <-timer.C:
			armed = false
			b.fetch(pending)
		}
	}
}

func (b *balanceSyncer) fetch(tgt balanceTarget) {
	gen := b.gen.Load()

	ctx, cancel := context.WithTimeout(context.Background(), balanceFetchTimeout)
	defer cancel()

	bal, err := b.reader.Balance(ctx, tgt.address)
	if err != nil {
		// Keep the last known value readable, but flag it.
		b.registry.MarkBalanceStale()
		b.logger.Warn("balance fetch failed",
			zap.String("address", tgt.address),
			zap.Int64("chain_id", tgt.chainID),
			zap.Error(err))
		return
	}
	if b.gen.Load() != gen {
		b.logger.Debug("dropping balance fetched for a stale session",
			zap.String("address", tgt.address))
		return
	}

	b.registry.SetBalance(bal)
	b.logger.Debug("balance updated",
		zap.String("address", tgt.address),
		zap.String("balance", bal.String()))
}

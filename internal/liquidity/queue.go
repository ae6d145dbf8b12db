package liquidity

import (
	"context"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// SignerQueue serializes requests that share a (chain, signer) pair so that
// their transactions never race for the same nonce.
type SignerQueue struct {
	mu    sync.Mutex
	slots map[string]*signerSlot
}

type signerSlot struct {
	token chan struct{}
	refs  int
}

func NewSignerQueue() *SignerQueue {
	return &SignerQueue{slots: make(map[string]*signerSlot)}
}

// Acquire blocks until the pair is free or ctx is done. The returned
// release must be called exactly once.
func (q *SignerQueue) Acquire(ctx context.Context, chainKey string, signer common.Address) (func(), error) {
	key := strings.ToLower(chainKey) + ":" + signer.Hex()

	q.mu.Lock()
	slot, ok := q.slots[key]
	if !ok {
		slot = &signerSlot{token: make(chan struct{}, 1)}
		q.slots[key] = slot
	}
	slot.refs++
	q.mu.Unlock()

	select {
	case slot.token <- struct{}{}:
	case <-ctx.Done():
		q.drop(key, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.token
			q.drop(key, slot)
		})
	}, nil
}

func (q *SignerQueue) drop(key string, slot *signerSlot) {
	q.mu.Lock()
	defer q.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(q.slots, key)
	}
}

func (q *SignerQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.slots)
}

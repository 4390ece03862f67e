package chat

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nfrund/relaychat/internal/protocol"
)

// echoFilter remembers the last N messages rendered and reports repeats.
// Messages carry no IDs, so two identical lines inside the window are
// treated as one.
type echoFilter struct {
	cache *lru.Cache[protocol.Message, struct{}]
}

func newEchoFilter(size int) (*echoFilter, error) {
	cache, err := lru.New[protocol.Message, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &echoFilter{cache: cache}, nil
}

// seen records m and reports whether it was already in the window.
func (f *echoFilter) seen(m protocol.Message) bool {
	found, _ := f.cache.ContainsOrAdd(m, struct{}{})
	return found
}

package server

import "sync"

// replyCache keeps recent response texts in memory so the spoken-reply
// endpoint works even when history runs in ephemeral mode. Oldest entries are
// dropped once the cache is full.
type replyCache struct {
	mu    sync.Mutex
	max   int
	texts map[string]string
	order []string
}

func newReplyCache(max int) *replyCache {
	if max <= 0 {
		max = 64
	}
	return &replyCache{max: max, texts: make(map[string]string, max)}
}

func (c *replyCache) put(id, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.texts[id]; !exists {
		c.order = append(c.order, id)
	}
	c.texts[id] = text
	for len(c.order) > c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.texts, oldest)
	}
}

func (c *replyCache) get(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.texts[id]
	return text, ok
}

package view

import (
	"context"
	"sync"
)

// Compose is an in-memory compose box.
type Compose struct {
	mu    sync.Mutex
	value string
}

// NewCompose creates an empty compose box.
func NewCompose() *Compose {
	return &Compose{}
}

// Set replaces the current text, as typing would.
func (c *Compose) Set(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
}

func (c *Compose) Value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *Compose) Clear(ctx context.Context) error {
	c.Set("")
	return nil
}

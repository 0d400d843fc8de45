package behavior

import (
	"context"
	"log"
	"time"
)

// ChatLoop announces the configured messages, once or cyclically.
type ChatLoop struct {
	acts     Actions
	messages []string
	repeat   bool
	delay    time.Duration
	log      *log.Logger

	next int
}

func NewChatLoop(acts Actions, messages []string, repeat bool, delay time.Duration, logger *log.Logger) *ChatLoop {
	if delay <= 0 {
		delay = time.Second
	}
	return &ChatLoop{
		acts:     acts,
		messages: append([]string(nil), messages...),
		repeat:   repeat,
		delay:    delay,
		log:      logger,
	}
}

func (c *ChatLoop) Name() string { return "chat" }

func (c *ChatLoop) Run(ctx context.Context) error {
	if len(c.messages) == 0 {
		c.log.Printf("no messages configured")
		return nil
	}
	c.log.Printf("chat module started")
	if !c.repeat {
		for range c.messages {
			if ctx.Err() != nil {
				return nil
			}
			c.emit(ctx)
		}
		return nil
	}

	c.emit(ctx)
	t := time.NewTicker(c.delay)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			c.emit(ctx)
		}
	}
}

// emit sends the next message and advances the cyclic index.
func (c *ChatLoop) emit(ctx context.Context) {
	msg := c.messages[c.next]
	c.next = (c.next + 1) % len(c.messages)
	if err := c.acts.Say(ctx, msg); err != nil && ctx.Err() == nil {
		c.log.Printf("say %q: %v", msg, err)
	}
}

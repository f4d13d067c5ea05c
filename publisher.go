package rendezvous

import (
	"context"
	"log/slog"
	"sync"
)

// TopicFunc extracts the routing topic from a published value.
type TopicFunc func(val any) (topic any, err error)

type publisherConfig struct {
	variant      Variant
	capacity     int
	onTopicError func(val any, err error)
}

// PublisherOption configures a Publisher.
type PublisherOption func(*publisherConfig)

// WithTopicBuffer sets the buffer policy used for every per-topic
// channel the Publisher creates on demand.
func WithTopicBuffer(variant Variant, capacity int) PublisherOption {
	return func(c *publisherConfig) {
		c.variant = variant
		c.capacity = capacity
	}
}

// WithTopicErrorHandler overrides how a topic-function failure is
// reported. The default logs via slog and drops the value.
func WithTopicErrorHandler(fn func(val any, err error)) PublisherOption {
	return func(c *publisherConfig) { c.onTopicError = fn }
}

type pubEntry struct {
	ch  *Chan
	dup *Duplicator
}

// Publisher routes values read from an input channel to a per-topic
// Duplicator, created the first time a subscriber attaches to that
// topic. Values whose topic has no subscribers are dropped silently.
type Publisher struct {
	ctx     context.Context
	in      *Chan
	topicFn TopicFunc
	cfg     publisherConfig

	mu    sync.Mutex
	mults map[any]*pubEntry
}

// NewPublisher starts routing values from in using topicFn to extract
// each value's topic.
func NewPublisher(ctx context.Context, in *Chan, topicFn TopicFunc, opts ...PublisherOption) *Publisher {
	cfg := publisherConfig{variant: Unbuffered}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.onTopicError == nil {
		cfg.onTopicError = func(val any, err error) {
			slog.Error("rendezvous: topic function failed, dropping value", "value", val, "error", err)
		}
	}
	p := &Publisher{
		ctx:     ctx,
		in:      in,
		topicFn: topicFn,
		cfg:     cfg,
		mults:   make(map[any]*pubEntry),
	}
	go p.run()
	return p
}

func (p *Publisher) getOrCreateMult(topic any) *pubEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.mults[topic]; ok {
		return e
	}
	ch := NewChan(WithBuffer(p.cfg.variant, p.cfg.capacity))
	e := &pubEntry{ch: ch, dup: NewDuplicator(p.ctx, ch)}
	p.mults[topic] = e
	return e
}

// AddSub attaches chs as subscribers of topic, creating that topic's
// Duplicator if this is the first subscriber.
func (p *Publisher) AddSub(topic any, closeOnDone bool, chs ...*Chan) *Publisher {
	e := p.getOrCreateMult(topic)
	e.dup.Tap(closeOnDone, chs...)
	return p
}

// RemoveSub detaches chs from topic. If no subscribers remain for
// topic, the topic is removed entirely.
func (p *Publisher) RemoveSub(topic any, chs ...*Chan) *Publisher {
	p.mu.Lock()
	e, ok := p.mults[topic]
	p.mu.Unlock()
	if !ok {
		return p
	}
	e.dup.Untap(chs...)
	if len(e.dup.snapshotTaps()) == 0 {
		p.RemoveTopic(topic)
	}
	return p
}

// RemoveTopic removes topic and stops its Duplicator entirely.
func (p *Publisher) RemoveTopic(topic any) *Publisher {
	p.mu.Lock()
	e, ok := p.mults[topic]
	if ok {
		delete(p.mults, topic)
	}
	p.mu.Unlock()
	if ok {
		e.dup.Close()
	}
	return p
}

// RemoveAllSub removes every topic and stops every Duplicator.
func (p *Publisher) RemoveAllSub() *Publisher {
	p.mu.Lock()
	topics := make([]any, 0, len(p.mults))
	for t := range p.mults {
		topics = append(topics, t)
	}
	p.mu.Unlock()
	for _, t := range topics {
		p.RemoveTopic(t)
	}
	return p
}

func (p *Publisher) run() {
	for {
		val, ok, err := p.in.Get(p.ctx)
		if err != nil {
			return
		}
		if !ok {
			p.RemoveAllSub()
			return
		}

		topic, err := p.topicFn(val)
		if err != nil {
			p.cfg.onTopicError(val, err)
			continue
		}

		p.mu.Lock()
		e, exists := p.mults[topic]
		p.mu.Unlock()
		if !exists {
			continue
		}

		delivered, err := e.ch.Put(p.ctx, val)
		if err != nil {
			return
		}
		if !delivered {
			p.RemoveTopic(topic)
		}
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"community_hub/internal/config"
	"community_hub/internal/model"
)

type recordPublisher struct {
	mu     sync.Mutex
	keys   []string
	values [][]byte
	err    error
}

func (p *recordPublisher) Send(_ context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.values = append(p.values, value)
	return nil
}

func TestDrainOnceMarksSent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	v := f.community(t, a, "test-comm", true)
	pending := countRows(t, f.db, &model.DomainOutbox{}, "status = ?", model.OutboxPending)
	if pending == 0 {
		t.Fatal("community creation writes outbox events")
	}

	pub := &recordPublisher{}
	r := NewOutboxRelayer(f.db, pub, config.OutboxConfig{BatchSize: 100})
	if sent := r.DrainOnce(ctx); int64(sent) != pending {
		t.Fatalf("expected %d sent, got %d", pending, sent)
	}
	if n := countRows(t, f.db, &model.DomainOutbox{}, "status = ?", model.OutboxSent); n != pending {
		t.Fatalf("expected %d rows marked sent, got %d", pending, n)
	}
	if sent := r.DrainOnce(ctx); sent != 0 {
		t.Fatalf("sent rows are not redelivered, got %d", sent)
	}

	found := false
	for _, raw := range pub.values {
		var env outboxEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if env.AggregateID != v.ID {
			t.Fatalf("unexpected aggregate in %+v", env)
		}
		found = found || env.EventType == model.EventCommunityCreated
	}
	if !found {
		t.Fatal("community.created was not published")
	}
}

func TestDrainOnceRetriesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	f.community(t, a, "test-comm", true)
	total := countRows(t, f.db, &model.DomainOutbox{}, "1 = 1")

	pub := &recordPublisher{err: errors.New("broker down")}
	r := NewOutboxRelayer(f.db, pub, config.OutboxConfig{})
	for i := 0; i < outboxMaxRetry; i++ {
		if sent := r.DrainOnce(ctx); sent != 0 {
			t.Fatalf("round %d: nothing is sent while the broker is down", i)
		}
	}
	if n := countRows(t, f.db, &model.DomainOutbox{}, "status = ? AND retry = ?", model.OutboxFailed, outboxMaxRetry); n != total {
		t.Fatalf("expected %d rows at the retry limit, got %d", total, n)
	}

	// 超过重试上限的事件不再投递
	pub.err = nil
	if sent := r.DrainOnce(ctx); sent != 0 {
		t.Fatalf("exhausted rows must stay parked, got %d", sent)
	}
}

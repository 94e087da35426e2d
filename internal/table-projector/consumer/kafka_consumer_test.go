package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/roulette-table-poc/pkg/contracts/events"
)

type fakeStore struct {
	failures int
	events   []events.TableEvent
	tables   []events.TableSnapshot
}

func (s *fakeStore) UpsertTable(_ context.Context, t events.TableSnapshot) error {
	s.tables = append(s.tables, t)
	return nil
}

func (s *fakeStore) InsertEvent(_ context.Context, e events.TableEvent) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("pg down")
	}
	s.events = append(s.events, e)
	return nil
}

// fakeCache imita o script do Redis: só aceita versão maior
type fakeCache struct {
	err  error
	last events.TableSnapshot
}

func (c *fakeCache) SetSnapshot(_ context.Context, s events.TableSnapshot) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if s.TableID == c.last.TableID && s.Version <= c.last.Version {
		return false, nil
	}
	c.last = s
	return true, nil
}

type fakeBroadcaster struct {
	channel  string
	payloads [][]byte
}

func (b *fakeBroadcaster) Publish(_ context.Context, channel string, payload []byte) error {
	b.channel = channel
	b.payloads = append(b.payloads, payload)
	return nil
}

type dlq struct{ keys []string }

func (d *dlq) write(_ context.Context, key string, _ []byte) error {
	d.keys = append(d.keys, key)
	return nil
}

func newProcessor(s *fakeStore, c *fakeCache, b *fakeBroadcaster, d *dlq, stages map[string]int) *Processor {
	return &Processor{
		Log:         zap.NewNop(),
		Store:       s,
		Cache:       c,
		Broadcaster: b,
		Channel:     "table_updates_broadcast",
		DLQ:         d.write,
		Retries:     2,
		Backoff:     time.Millisecond,
		OnError:     func(stage string) { stages[stage]++ },
	}
}

func sampleEvent(t *testing.T) []byte {
	t.Helper()
	return eventAt(t, "e1", 4)
}

func eventAt(t *testing.T, id string, version uint64) []byte {
	t.Helper()
	n := 5
	b, err := json.Marshal(events.TableEvent{
		EventID: id,
		TableID: "t1",
		Type:    events.TypeOutcomeSet,
		Actor:   "croupier",
		Outcome: &n,
		Version: version,
		Snapshot: events.TableSnapshot{
			TableID: "t1", Stake: 10, Phase: "SETTLED", WinningOutcome: &n, Version: version,
		},
	})
	require.NoError(t, err)
	return b
}

func TestHandleProjectsEvent(t *testing.T) {
	s, c, b, d := &fakeStore{}, &fakeCache{}, &fakeBroadcaster{}, &dlq{}
	stages := map[string]int{}
	p := newProcessor(s, c, b, d, stages)

	require.NoError(t, p.Handle(context.Background(), []byte("t1"), sampleEvent(t)))

	require.Len(t, s.events, 1)
	assert.Equal(t, "e1", s.events[0].EventID)
	require.Len(t, s.tables, 1)
	assert.Equal(t, "SETTLED", s.tables[0].Phase)
	assert.Equal(t, uint64(4), c.last.Version)

	require.Len(t, b.payloads, 1)
	assert.Equal(t, "table_updates_broadcast", b.channel)
	var upd WSUpdate
	require.NoError(t, json.Unmarshal(b.payloads[0], &upd))
	assert.Equal(t, events.TypeOutcomeSet, upd.Type)
	assert.Empty(t, d.keys)
	assert.Empty(t, stages)
}

func TestHandleRetriesThenSucceeds(t *testing.T) {
	s, c, b, d := &fakeStore{failures: 2}, &fakeCache{err: errors.New("redis down")}, &fakeBroadcaster{}, &dlq{}
	stages := map[string]int{}
	p := newProcessor(s, c, b, d, stages)

	require.NoError(t, p.Handle(context.Background(), []byte("t1"), sampleEvent(t)))
	assert.Len(t, s.events, 1)
	assert.Equal(t, 2, stages["db_event"])
	assert.Equal(t, 1, stages["cache"])
	assert.Empty(t, d.keys)
}

func TestHandleDeadLetters(t *testing.T) {
	s, c, b, d := &fakeStore{failures: 10}, &fakeCache{}, &fakeBroadcaster{}, &dlq{}
	stages := map[string]int{}
	p := newProcessor(s, c, b, d, stages)

	err := p.Handle(context.Background(), []byte("t1"), sampleEvent(t))
	require.Error(t, err)
	assert.Equal(t, []string{"t1"}, d.keys)
	assert.Empty(t, b.payloads)

	require.NoError(t, p.Handle(context.Background(), []byte("bad"), []byte("{not json")))
	assert.Equal(t, []string{"t1", "bad"}, d.keys)
	assert.Equal(t, 1, stages["decode"])
}

func TestHandleDropsStaleSnapshots(t *testing.T) {
	s, c, b, d := &fakeStore{}, &fakeCache{}, &fakeBroadcaster{}, &dlq{}
	p := newProcessor(s, c, b, d, map[string]int{})
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, []byte("t1"), eventAt(t, "e2", 2)))
	require.NoError(t, p.Handle(ctx, []byte("t1"), eventAt(t, "e1", 1)))

	assert.Len(t, s.events, 2, "history keeps every event")
	assert.Equal(t, uint64(2), c.last.Version)
	require.Len(t, b.payloads, 1)
	var upd WSUpdate
	require.NoError(t, json.Unmarshal(b.payloads[0], &upd))
	assert.Equal(t, uint64(2), upd.Payload.Version)
}

func TestHandleStaleCacheStopsBroadcast(t *testing.T) {
	// projector reiniciado: memória vazia, Redis já tem versão mais nova
	s, b := &fakeStore{}, &fakeBroadcaster{}
	c := &fakeCache{last: events.TableSnapshot{TableID: "t1", Version: 9}}
	p := newProcessor(s, c, b, &dlq{}, map[string]int{})

	require.NoError(t, p.Handle(context.Background(), []byte("t1"), eventAt(t, "e3", 3)))
	assert.Len(t, s.events, 1)
	assert.Empty(t, b.payloads)
	assert.Equal(t, uint64(9), c.last.Version)
}

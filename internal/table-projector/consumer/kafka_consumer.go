package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	skafka "github.com/radieske/roulette-table-poc/internal/shared/kafka"
	"github.com/radieske/roulette-table-poc/pkg/contracts/events"
)

type Store interface {
	UpsertTable(ctx context.Context, s events.TableSnapshot) error
	InsertEvent(ctx context.Context, e events.TableEvent) error
}

// Cache grava o snapshot só se for mais novo; applied=false indica descarte
type Cache interface {
	SetSnapshot(ctx context.Context, s events.TableSnapshot) (applied bool, err error)
}

type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// WSUpdate é o payload que o table-service repassa ao feed websocket
type WSUpdate struct {
	TableID string               `json:"tableId"`
	Type    string               `json:"type"`
	Payload events.TableSnapshot `json:"payload"`
}

// Processor consome eventos da mesa do Kafka, atualiza cache e projeção no banco
// e rebroadcast via Redis Pub/Sub. Callbacks de métricas são opcionais.
type Processor struct {
	Log         *zap.Logger
	Reader      *kafka.Reader
	Store       Store
	Cache       Cache
	Broadcaster Broadcaster
	Channel     string

	// DLQ recebe mensagens ilegíveis ou que falharam após os retries
	DLQ func(ctx context.Context, key string, value []byte) error

	Retries int           // tentativas extras de persistência
	Backoff time.Duration // base do backoff linear

	OnConsumed func()       // métricas (counter++)
	OnCached   func()       // métricas
	OnPersist  func()       // métricas
	OnError    func(string) // métricas por fase

	mu   sync.Mutex
	seen map[string]uint64 // última versão vista por mesa
}

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		key, value, err := skafka.ReadNext(ctx, p.Reader)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if err := p.Handle(ctx, key, value); err != nil {
			p.Log.Error("table event dropped to dlq", zap.ByteString("key", key), zap.Error(err))
		}
	}
}

// Handle processa uma mensagem. Só devolve erro quando a mensagem foi
// desviada para a DLQ por falha de persistência.
func (p *Processor) Handle(ctx context.Context, key, value []byte) error {
	if p.OnConsumed != nil {
		p.OnConsumed()
	}

	var ev events.TableEvent
	if err := json.Unmarshal(value, &ev); err != nil || ev.TableID == "" {
		p.Log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, key, value)
		return nil
	}

	fresh := p.advance(ev.TableID, ev.Version)

	// cache é best effort, não bloqueia persistência
	applied, err := p.Cache.SetSnapshot(ctx, ev.Snapshot)
	switch {
	case err != nil:
		p.Log.Warn("redis set failed", zap.Error(err))
		p.fail("cache")
	case !applied:
		fresh = false
	case p.OnCached != nil:
		p.OnCached()
	}

	if err := p.persist(ctx, ev); err != nil {
		p.deadLetter(ctx, key, value)
		return err
	}
	if p.OnPersist != nil {
		p.OnPersist()
	}

	// histórico é gravado sempre; o feed ao vivo só recebe versões novas
	if fresh {
		p.broadcast(ctx, ev)
	} else {
		p.Log.Debug("stale table event not broadcast",
			zap.String("table_id", ev.TableID), zap.Uint64("version", ev.Version))
	}
	return nil
}

// advance registra a versão e diz se ela é mais nova que a última vista
func (p *Processor) advance(tableID string, version uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen == nil {
		p.seen = make(map[string]uint64)
	}
	if version <= p.seen[tableID] {
		return false
	}
	p.seen[tableID] = version
	return true
}

// persist grava histórico e estado com retry simples
func (p *Processor) persist(ctx context.Context, ev events.TableEvent) error {
	var err error
	for i := 0; i <= p.Retries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i) * p.Backoff)
		}
		if err = p.Store.InsertEvent(ctx, ev); err != nil {
			p.Log.Warn("db insert event failed", zap.Int("attempt", i+1), zap.Error(err))
			p.fail("db_event")
			continue
		}
		if err = p.Store.UpsertTable(ctx, ev.Snapshot); err != nil {
			p.Log.Warn("db upsert table failed", zap.Int("attempt", i+1), zap.Error(err))
			p.fail("db_upsert")
			continue
		}
		return nil
	}
	return fmt.Errorf("persist event %s: %w", ev.EventID, err)
}

func (p *Processor) broadcast(ctx context.Context, ev events.TableEvent) {
	if p.Broadcaster == nil {
		return
	}
	b, err := json.Marshal(WSUpdate{TableID: ev.TableID, Type: ev.Type, Payload: ev.Snapshot})
	if err != nil {
		return
	}
	bctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := p.Broadcaster.Publish(bctx, p.Channel, b); err != nil {
		p.Log.Warn("ws broadcast publish failed", zap.Error(err))
		p.fail("broadcast")
	}
}

func (p *Processor) deadLetter(ctx context.Context, key, value []byte) {
	if p.DLQ == nil {
		return
	}
	if err := p.DLQ(ctx, string(key), value); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		p.fail("dlq")
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

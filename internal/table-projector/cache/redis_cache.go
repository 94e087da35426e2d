package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/roulette-table-poc/pkg/contracts/events"
)

// setIfNewer grava o snapshot só quando a versão é maior que a já guardada.
// KEYS[1] chave, ARGV[1] json, ARGV[2] versão, ARGV[3] ttl em ms (0 = sem TTL)
var setIfNewer = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local ok, doc = pcall(cjson.decode, cur)
  if ok and doc.version and tonumber(doc.version) >= tonumber(ARGV[2]) then
    return 0
  end
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// RedisCache guarda o último snapshot de cada mesa no Redis.
// É lido pelo table-service em GET /v1/tables/{id}, inclusive para mesas
// de boots anteriores. TTL zero mantém a chave sem expiração.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

func key(tableID string) string { return "table:snapshot:" + tableID }

// SetSnapshot armazena o snapshot da mesa se ele for mais novo que o atual.
// Devolve false quando o snapshot foi descartado por ser antigo.
func (r *RedisCache) SetSnapshot(ctx context.Context, s events.TableSnapshot) (bool, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return false, err
	}
	n, err := setIfNewer.Run(ctx, r.Client, []string{key(s.TableID)},
		string(b), s.Version, r.TTL.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetSnapshot devolve false quando a mesa não está no cache
func (r *RedisCache) GetSnapshot(ctx context.Context, tableID string) (events.TableSnapshot, bool, error) {
	var s events.TableSnapshot
	b, err := r.Client.Get(ctx, key(tableID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}
	return s, true, json.Unmarshal(b, &s)
}

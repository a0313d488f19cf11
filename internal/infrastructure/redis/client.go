// Package redis integra Redis como bus de eventos de pedidos y como lock distribuido por pedido.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/bakery-stock/pkg/config"
)

// NewClient abre el cliente y verifica la conexión. Devuelve nil, nil si REDIS_ADDRESS está vacío.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	if cfg.Address == "" {
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

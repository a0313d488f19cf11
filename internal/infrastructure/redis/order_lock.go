package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/bakery-stock/internal/application/inventory"
	"github.com/jhoicas/bakery-stock/internal/domain"
)

var _ inventory.OrderLocker = (*OrderLocker)(nil)

// OrderLocker lock por número de pedido con redislock.
// Si Redis falla se continúa sin lock: la marca en base de datos ya impide el doble descuento.
type OrderLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	log    zerolog.Logger
}

// NewOrderLocker construye el locker. ttl acota cuánto vive el lock si el proceso muere.
func NewOrderLocker(rdb *goredis.Client, ttl time.Duration, log zerolog.Logger) *OrderLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &OrderLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		wait:   2 * time.Second,
		log:    log.With().Str("component", "order_lock").Logger(),
	}
}

// Lock obtiene "lock:order:<n>", reintentando durante un par de segundos.
func (l *OrderLocker) Lock(ctx context.Context, orderNumber string) (func(), error) {
	key := fmt.Sprintf("lock:order:%s", orderNumber)
	obtainCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	lock, err := l.client.Obtain(obtainCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(100 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%s: %w", orderNumber, domain.ErrOrderLocked)
	}
	if err != nil {
		l.log.Warn().Err(err).Str("order", orderNumber).Msg("no se pudo obtener lock en redis, se continúa sin lock")
		return func() {}, nil
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("order", orderNumber).Msg("no se pudo liberar lock")
		}
	}, nil
}

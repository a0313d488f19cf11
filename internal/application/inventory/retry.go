package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jhoicas/bakery-stock/internal/domain"
)

// Settings parámetros operativos compartidos por los casos de uso de inventario.
type Settings struct {
	SystemActor     string        // autor de los movimientos automáticos
	TxTimeout       time.Duration // tope de cada transacción
	RetryAttempts   uint64        // reintentos ante ErrConcurrencyConflict
	RetryBaseDelay  time.Duration
	HistoryPageSize int
}

// DefaultSettings valores usados cuando la configuración no los define.
func DefaultSettings() Settings {
	return Settings{
		SystemActor:     "system",
		TxTimeout:       10 * time.Second,
		RetryAttempts:   5,
		RetryBaseDelay:  20 * time.Millisecond,
		HistoryPageSize: 200,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.SystemActor == "" {
		s.SystemActor = d.SystemActor
	}
	if s.TxTimeout <= 0 {
		s.TxTimeout = d.TxTimeout
	}
	if s.RetryBaseDelay <= 0 {
		s.RetryBaseDelay = d.RetryBaseDelay
	}
	if s.HistoryPageSize <= 0 {
		s.HistoryPageSize = d.HistoryPageSize
	}
	return s
}

// withRetry ejecuta fn con un timeout por intento y reintenta con backoff exponencial
// solo cuando el saldo cambió entre la lectura y la escritura.
func withRetry(ctx context.Context, s Settings, m Metrics, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(s.RetryAttempts, retry.NewExponential(s.RetryBaseDelay))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.TxTimeout)
		defer cancel()
		err := fn(attemptCtx)
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			m.ConcurrencyRetry()
			return retry.RetryableError(err)
		}
		return err
	})
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/bakery-stock/internal/application/inventory"
	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
)

// OrderEventHandler recibe los cambios de estado de pedidos.
type OrderEventHandler interface {
	HandleOrderStatusChange(ctx context.Context, ev entity.OrderStatusEvent) (*inventory.ConsumptionOutcome, error)
}

// OrderEventSubscriber consume el canal de cambios de estado y los pasa al motor de consumo.
type OrderEventSubscriber struct {
	rdb     *goredis.Client
	channel string
	handler OrderEventHandler
	log     zerolog.Logger
}

// NewOrderEventSubscriber construye el suscriptor.
func NewOrderEventSubscriber(rdb *goredis.Client, channel string, handler OrderEventHandler, log zerolog.Logger) *OrderEventSubscriber {
	return &OrderEventSubscriber{
		rdb:     rdb,
		channel: channel,
		handler: handler,
		log:     log.With().Str("component", "order_events").Str("channel", channel).Logger(),
	}
}

// Run bloquea hasta que ctx se cancele. Cada mensaje se procesa en orden de llegada.
func (s *OrderEventSubscriber) Run(ctx context.Context) error {
	sub := s.rdb.Subscribe(ctx, s.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	s.log.Info().Msg("escuchando cambios de estado de pedidos")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.handle(ctx, msg.Payload)
		}
	}
}

// handle decodifica y procesa un mensaje; los errores se registran y no detienen el loop.
func (s *OrderEventSubscriber) handle(ctx context.Context, payload string) {
	var ev entity.OrderStatusEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		s.log.Error().Err(err).Str("payload", payload).Msg("mensaje inválido, se descarta")
		return
	}
	out, err := s.handler.HandleOrderStatusChange(ctx, ev)
	switch {
	case errors.Is(err, domain.ErrOrderLocked):
		s.log.Info().Str("order", ev.OrderNumber).Msg("pedido en proceso en otra instancia")
	case errors.Is(err, domain.ErrValidation):
		s.log.Warn().Err(err).Str("order", ev.OrderNumber).Msg("evento de pedido inválido")
	case err != nil:
		s.log.Error().Err(err).Str("order", ev.OrderNumber).Msg("error procesando cambio de estado")
	case out.Processed:
		s.log.Debug().Str("order", ev.OrderNumber).Int("warnings", len(out.Warnings)).Msg("evento procesado")
	}
}

package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Open connects every configured publisher. With nothing configured it
// returns Nop. The returned close function releases all connections.
func Open(ctx context.Context, r RedisOptions, m MQTTOptions, logger *zap.Logger) (Publisher, func(), error) {
	var (
		pubs    Multi
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if r.Enabled() {
		client := NewRedisClient(r)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", r.Addr, err)
		}
		p := NewRedisStreamPublisher(client, r.Stream, r.MaxLen)
		pubs = append(pubs, p)
		closers = append(closers, func() { _ = p.Close() })
		logger.Info("redis stream publisher enabled", zap.String("addr", r.Addr), zap.String("stream", p.Stream()))
	}

	if m.Enabled() {
		client, err := ConnectMQTT(m)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		pubs = append(pubs, NewMQTTPublisher(client, m))
		closers = append(closers, func() { client.Disconnect(250) })
		logger.Info("mqtt publisher enabled", zap.String("broker", m.Broker))
	}

	switch len(pubs) {
	case 0:
		return Nop{}, func() {}, nil
	case 1:
		return pubs[0], closeAll, nil
	default:
		return pubs, closeAll, nil
	}
}

package telemetry

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"quiz-session-engine/internal/logger"
)

// MonitorRedis attaches tracing, metrics and debug logging to a redis client.
func MonitorRedis(r redis.UniversalClient) error {
	if err := redisotel.InstrumentTracing(r); err != nil {
		return fmt.Errorf("instrument tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(r); err != nil {
		return fmt.Errorf("instrument metrics: %w", err)
	}
	r.AddHook(redisLog{})
	return nil
}

type redisLog struct{}

func (redisLog) DialHook(hook redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		log := logger.New("redis")
		conn, err := hook(ctx, network, addr)
		if err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("dial failed")
			return conn, err
		}
		log.Debug().Str("network", network).Str("addr", addr).Msg("dialed")
		return conn, nil
	}
}

func (redisLog) ProcessHook(hook redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := hook(ctx, cmd)
		log := logger.New("redis")
		ev := log.Debug()
		if err != nil && err != redis.Nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("cmd", cmd.Name()).Dur("took", time.Since(start)).Msg("processed")
		return err
	}
}

func (redisLog) ProcessPipelineHook(hook redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := hook(ctx, cmds)
		log := logger.New("redis")
		ev := log.Debug()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Int("cmds", len(cmds)).Dur("took", time.Since(start)).Msg("pipeline processed")
		return err
	}
}

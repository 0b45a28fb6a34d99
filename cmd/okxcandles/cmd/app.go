package cmd

import (
	"context"
	"fmt"

	"github.com/rustyeddy/okxcandles/internal/logging"
	"github.com/rustyeddy/okxcandles/okx"
	"github.com/rustyeddy/okxcandles/sink"
	"github.com/rustyeddy/okxcandles/task"
)

func newClient() *okx.Client {
	return okx.NewClient(
		okx.WithBaseURL(cfg.Exchange.BaseURL),
		okx.WithTimeout(cfg.ExchangeTimeout()),
		okx.WithLogger(logger),
	)
}

func openSink(ctx context.Context) (sink.Sink, error) {
	s, err := sink.Open(ctx, cfg.SinkConfig())
	if err != nil {
		logging.Error(logger, err, logging.ErrCodeSinkOpenFailed, "failed to open sink", "driver", cfg.Sink.Driver)
		return nil, err
	}
	return s, nil
}

// newTask wires the client, the sink and the task. The caller closes the
// returned sink.
func newTask(ctx context.Context) (*task.Task, sink.Sink, error) {
	s, err := openSink(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := s.EnsureTable(ctx, cfg.Fetch.Table, okx.CandlestickSchema); err != nil {
		_ = s.Close()
		return nil, nil, fmt.Errorf("prepare %s: %w", cfg.Fetch.Table, err)
	}

	t := task.New(newClient(), s,
		task.WithTable(cfg.Fetch.Table),
		task.WithLimit(cfg.Fetch.Limit),
		task.WithBar(cfg.Fetch.Bar),
		task.WithLogger(logger),
	)
	return t, s, nil
}

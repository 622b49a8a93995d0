package gateway

import (
	"context"
	"time"

	"convstore/metrics"

	"github.com/sirupsen/logrus"
)

type instrumented struct {
	next    Gateway
	backend string
	logger  *logrus.Logger
}

// Instrument decorates gw with statement metrics and debug logging.
func Instrument(gw Gateway, backend string, logger *logrus.Logger) Gateway {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &instrumented{next: gw, backend: backend, logger: logger}
}

func (i *instrumented) Dialect() Dialect {
	return i.next.Dialect()
}

func (i *instrumented) Execute(ctx context.Context, sql string, params ...any) (*Result, error) {
	start := time.Now()
	res, err := i.next.Execute(ctx, sql, params...)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.GatewayStatementsTotal.WithLabelValues(i.backend, status).Inc()
	metrics.GatewayStatementDuration.WithLabelValues(i.backend).Observe(elapsed.Seconds())

	if err != nil {
		i.logger.Debugf("[gateway:%s] statement failed after %v: %s", i.backend, elapsed, err)
	} else {
		i.logger.Debugf("[gateway:%s] %d rows in %v", i.backend, len(res.Rows), elapsed)
	}
	return res, err
}

func (i *instrumented) Ping(ctx context.Context) error {
	p, ok := i.next.(Pinger)
	if !ok {
		_, err := i.Execute(ctx, "SELECT 1")
		return err
	}
	return p.Ping(ctx)
}

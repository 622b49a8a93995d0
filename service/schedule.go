package service

import (
	"context"
	"time"

	"convstore/gateway"
	"convstore/model"
)

// EnsureSchema creates the Conversation and Message tables if needed.
func EnsureSchema(ctx context.Context, gw gateway.Gateway) (*model.SchemaStatus, error) {
	logger.Infof("[%s] Ensuring schema", "startup")
	status, err := model.InstallDB(ctx, gw)
	if err != nil {
		logger.Warnf("[%s] ensure schema error, %s", "startup", err)
		return nil, err
	}
	return status, nil
}

// HealthTask checks that the gateway is reachable and its credentials work.
func HealthTask(ctx context.Context, gw gateway.Gateway) error {
	logger.Infof("[%s] Start scheduled task HealthTask", "scheduled task")
	startTime := time.Now()

	var err error
	if p, ok := gw.(gateway.Pinger); ok {
		err = p.Ping(ctx)
	} else {
		_, err = gw.Execute(ctx, "SELECT 1")
	}
	if err != nil {
		logger.Warnf("[%s] gateway health check failed, %s", "scheduled task", err)
		return err
	}

	logger.Infof("[%s] Finished scheduled task HealthTask cost %v", "scheduled task", time.Since(startTime))
	return nil
}

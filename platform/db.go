package platform

import (
	"fmt"

	"convstore/gateway"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB opens the gateway for the configured backend.
func InitDB(cfg *Config) (gateway.Gateway, error) {
	switch cfg.Backend {
	case BackendD1:
		return gateway.Instrument(gateway.NewD1Gateway(cfg.D1()), BackendD1, Logger), nil
	case BackendMySQL:
		db, err := gorm.Open(mysql.Open(cfg.MySQLDSN()), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return gateway.Instrument(gateway.NewGormGateway(db), BackendMySQL, Logger), nil
	default:
		return nil, fmt.Errorf("unsupported DB_BACKEND %q", cfg.Backend)
	}
}

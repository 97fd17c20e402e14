package database

import (
	"database/sql"
	"fmt"
	"time"

	"naskahcollab/pkg/logger"

	_ "github.com/lib/pq"
)

// Connect opens the postgres pool and waits for it to answer a ping.
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Retry a few times in case of temporary DNS/network blips
	for i := 0; i < 5; i++ {
		if err = db.Ping(); err == nil {
			logger.Sugar.Info("Successfully connected to the database")
			return db, nil
		}
		logger.Sugar.Infof("Database connection failed, retrying in 2s... (%v)", err)
		time.Sleep(2 * time.Second)
	}
	db.Close()
	return nil, fmt.Errorf("postgres unreachable after retries: %w", err)
}

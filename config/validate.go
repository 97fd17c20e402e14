package config

import (
	"errors"
	"fmt"
)

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when DOCUMENT_STORE=postgres")
		}
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errors.New("MONGO_URI is required when DOCUMENT_STORE=mongo")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown DOCUMENT_STORE %q", c.Store.Driver)
	}
	if c.Socket.SendBuffer <= 0 {
		return fmt.Errorf("SOCKET_SEND_BUFFER must be positive, got %d", c.Socket.SendBuffer)
	}
	if c.Socket.TitleFlush <= 0 {
		return fmt.Errorf("TITLE_FLUSH_MS must be positive")
	}
	if c.Socket.PingInterval <= 0 {
		return fmt.Errorf("SOCKET_PING_SECONDS must be positive")
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

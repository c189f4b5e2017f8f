package core

import (
	"github.com/searchktools/fast-backend/core/pools"
	"github.com/searchktools/fast-backend/logger"
)

// Stats is a point-in-time view of the engine's connections and buffers.
type Stats struct {
	ActiveConnections int                 `json:"active_connections"`
	IdleConnections   int                 `json:"idle_connections"`
	Listeners         int                 `json:"listeners"`
	WriteBuffers      pools.BytePoolStats `json:"write_buffers"`
}

// Stats returns current connection and buffer pool statistics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		Listeners:    len(e.listeners),
		WriteBuffers: e.bytePool.Stats(),
	}
	for c := range e.conns {
		if c.getState() == stateIdle {
			s.IdleConnections++
		} else {
			s.ActiveConnections++
		}
	}
	return s
}

// Fields renders s as log fields.
func (s Stats) Fields() []logger.Field {
	return []logger.Field{
		logger.Int("active_connections", s.ActiveConnections),
		logger.Int("idle_connections", s.IdleConnections),
		logger.Int("listeners", s.Listeners),
		logger.Int64("write_buffer_gets", int64(s.WriteBuffers.Gets)),
		logger.Int64("write_buffer_puts", int64(s.WriteBuffers.Puts)),
		logger.Int64("write_buffer_misses", int64(s.WriteBuffers.Misses)),
	}
}

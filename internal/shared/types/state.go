package types

import "sync/atomic"

// ServerState is the lifecycle position of an echo server.
//
//	Listening -> Accepting -> Echoing -> Accepting ... -> Stopped
type ServerState int32

const (
	StateListening ServerState = iota
	StateAccepting
	StateEchoing
	StateStopped
)

func (s ServerState) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateAccepting:
		return "accepting"
	case StateEchoing:
		return "echoing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ListenerInfo holds the runtime listening info of a server.
type ListenerInfo struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// TrafficStats 用于报告流量统计信息
type TrafficStats struct {
	Accepted          uint64 `json:"accepted"`
	ActiveConnections int64  `json:"activeConnections"`
	Uplink            uint64 `json:"uplink"`   // bytes written back to peers
	Downlink          uint64 `json:"downlink"` // bytes read from peers
}

// Counters is the live, atomically updated form of TrafficStats.
type Counters struct {
	Accepted          atomic.Uint64
	ActiveConnections atomic.Int64
	Uplink            atomic.Uint64
	Downlink          atomic.Uint64
}

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() TrafficStats {
	return TrafficStats{
		Accepted:          c.Accepted.Load(),
		ActiveConnections: c.ActiveConnections.Load(),
		Uplink:            c.Uplink.Load(),
		Downlink:          c.Downlink.Load(),
	}
}

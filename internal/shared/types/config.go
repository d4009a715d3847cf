package types

import "time"

// ServerMode 决定服务器如何处理已接受的连接。
type ServerMode string

const (
	// ModeSequential handles one connection at a time; the next accept happens
	// only after the current connection is released.
	ModeSequential ServerMode = "sequential"
	// ModeConcurrent hands every accepted connection to its own goroutine.
	ModeConcurrent ServerMode = "concurrent"
)

// DecodeMode controls how the client renders a received payload.
type DecodeMode string

const (
	DecodeRaw  DecodeMode = "raw"  // Go-quoted bytes, e.g. "Hello, World!"
	DecodeText DecodeMode = "text" // payload printed as UTF-8 text
)

// ServerConf 包含 echo 服务器的监听和连接处理配置
type ServerConf struct {
	Host           string     `ini:"host"`
	Port           int        `ini:"port"`
	Backlog        int        `ini:"backlog"`
	ReadChunkSize  int        `ini:"read_chunk_size"`
	Mode           ServerMode `ini:"mode"`
	MaxConnections int        `ini:"max_connections"`
	IdleTimeoutSec int        `ini:"idle_timeout_sec"`
	WSPort         int        `ini:"ws_port"`
	WSPath         string     `ini:"ws_path"`
}

// IdleTimeout returns the per-read deadline, zero meaning none.
func (c ServerConf) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSec) * time.Second
}

// ClientConf 包含 echo 客户端的配置
type ClientConf struct {
	Host           string     `ini:"host"`
	Port           int        `ini:"port"`
	Message        string     `ini:"message"`
	Decode         DecodeMode `ini:"decode"`
	ReadChunkSize  int        `ini:"read_chunk_size"`
	DialTimeoutSec int        `ini:"dial_timeout_sec"`
	Transport      string     `ini:"transport"` // "tcp" (默认) 或 "ws"
	WSPort         int        `ini:"ws_port"`
	WSPath         string     `ini:"ws_path"`
}

// DialTimeout returns the connect timeout, zero meaning the OS default.
func (c ClientConf) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSec) * time.Second
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// Config 是项目的统一配置结构体
type Config struct {
	ServerConf `ini:"server"`
	ClientConf `ini:"client"`
	LogConf    `ini:"log"`
}

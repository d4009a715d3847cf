package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/ini.v1"

	"echo_nexus/internal/shared/types"
)

const (
	DefaultHost          = "localhost"
	DefaultPort          = 65432
	DefaultBacklog       = 5
	DefaultReadChunkSize = 1024
	DefaultMessage       = "Hello, World!"
	DefaultWSPath        = "/echo"
)

// Default 返回带有文档化默认值的配置。
func Default() *types.Config {
	return &types.Config{
		ServerConf: types.ServerConf{
			Host:           DefaultHost,
			Port:           DefaultPort,
			Backlog:        DefaultBacklog,
			ReadChunkSize:  DefaultReadChunkSize,
			Mode:           types.ModeSequential,
			MaxConnections: 0,
			IdleTimeoutSec: 0,
			WSPort:         0,
			WSPath:         DefaultWSPath,
		},
		ClientConf: types.ClientConf{
			Host:           DefaultHost,
			Port:           DefaultPort,
			Message:        DefaultMessage,
			Decode:         types.DecodeRaw,
			ReadChunkSize:  DefaultReadChunkSize,
			DialTimeoutSec: 5,
			Transport:      "tcp",
			WSPath:         DefaultWSPath,
		},
		LogConf: types.LogConf{Level: "info"},
	}
}

// LoadIni overlays the values found in fileName onto cfg. A missing file is
// not an error; cfg keeps whatever it already holds.
func LoadIni(cfg *types.Config, fileName string) error {
	if fileName != "" {
		// Loose: a missing file yields an empty document.
		iniFile, err := ini.LoadSources(ini.LoadOptions{Loose: true}, fileName)
		if err != nil {
			return fmt.Errorf("failed to load ini file %s: %w", fileName, err)
		}
		if err := iniFile.MapTo(cfg); err != nil {
			return fmt.Errorf("failed to map ini file %s: %w", fileName, err)
		}
	}

	if host := os.Getenv("ECHO_HOST"); host != "" {
		cfg.ServerConf.Host = host
		cfg.ClientConf.Host = host
	}
	overrideFromEnvInt(&cfg.ServerConf.Port, "ECHO_PORT")
	overrideFromEnvInt(&cfg.ClientConf.Port, "ECHO_PORT")
	return nil
}

// Load is Default followed by LoadIni and Validate.
func Load(fileName string) (*types.Config, error) {
	cfg := Default()
	if err := LoadIni(cfg, fileName); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server or client cannot run with.
func Validate(cfg *types.Config) error {
	s := cfg.ServerConf
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("server port %d out of range", s.Port)
	}
	if s.Backlog <= 0 {
		return fmt.Errorf("server backlog must be positive, got %d", s.Backlog)
	}
	if s.ReadChunkSize <= 0 {
		return fmt.Errorf("server read_chunk_size must be positive, got %d", s.ReadChunkSize)
	}
	switch s.Mode {
	case types.ModeSequential, types.ModeConcurrent:
	default:
		return fmt.Errorf("unknown server mode %q", s.Mode)
	}
	if s.MaxConnections < 0 || s.IdleTimeoutSec < 0 {
		return fmt.Errorf("max_connections and idle_timeout_sec must not be negative")
	}
	if s.WSPort < 0 || s.WSPort > 65535 {
		return fmt.Errorf("server ws_port %d out of range", s.WSPort)
	}

	c := cfg.ClientConf
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("client port %d out of range", c.Port)
	}
	if c.ReadChunkSize <= 0 {
		return fmt.Errorf("client read_chunk_size must be positive, got %d", c.ReadChunkSize)
	}
	switch c.Decode {
	case types.DecodeRaw, types.DecodeText:
	default:
		return fmt.Errorf("unknown client decode mode %q", c.Decode)
	}
	switch c.Transport {
	case "tcp":
	case "ws":
		if c.WSPort <= 0 || c.WSPort > 65535 {
			return fmt.Errorf("client ws_port %d out of range for ws transport", c.WSPort)
		}
	default:
		return fmt.Errorf("unknown client transport %q", c.Transport)
	}
	return nil
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

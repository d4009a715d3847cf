package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alexflint/go-arg"

	"echo_nexus/internal/echo"
	"echo_nexus/internal/shared/config"
	"echo_nexus/internal/shared/logger"
	"echo_nexus/internal/shared/types"
)

type clientArgs struct {
	Message   *string `arg:"positional" help:"payload to send (default from [client] message)"`
	Config    string  `arg:"-c,--config" default:"configs/echo.ini" help:"path to the ini config file"`
	Host      string  `arg:"--host" help:"override [client] host"`
	Port      int     `arg:"-p,--port" help:"override [client] port"`
	Decode    string  `arg:"-d,--decode" help:"override [client] decode (raw|text)"`
	Transport string  `arg:"-t,--transport" help:"override [client] transport (tcp|ws)"`
}

func main() {
	var args clientArgs
	arg.MustParse(&args)

	cfg := config.Default()
	if err := config.LoadIni(cfg, args.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", args.Config, err)
		os.Exit(1)
	}
	applyOverrides(&cfg.ClientConf, args)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ClientConf.DialTimeout()+30*time.Second)
	defer cancel()

	data, err := echo.Exchange(ctx, cfg.ClientConf, []byte(cfg.ClientConf.Message))
	if err != nil {
		logger.Error().Err(err).Msg("Echo exchange failed")
		cancel()
		os.Exit(1)
	}
	fmt.Println("Received " + render(data, cfg.ClientConf.Decode))
}

// render formats a payload for display. The transport treats it as opaque
// bytes; text is only an option for payloads known to be UTF-8.
func render(data []byte, mode types.DecodeMode) string {
	if mode == types.DecodeText {
		return string(data)
	}
	return fmt.Sprintf("%q", data)
}

func applyOverrides(cc *types.ClientConf, args clientArgs) {
	if args.Message != nil {
		cc.Message = *args.Message
	}
	if args.Host != "" {
		cc.Host = args.Host
	}
	if args.Port != 0 {
		cc.Port = args.Port
	}
	if args.Decode != "" {
		cc.Decode = types.DecodeMode(args.Decode)
	}
	if args.Transport != "" {
		cc.Transport = args.Transport
	}
}

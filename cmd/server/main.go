package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"

	"echo_nexus/internal/app"
	"echo_nexus/internal/shared/config"
	"echo_nexus/internal/shared/logger"
	"echo_nexus/internal/shared/types"
)

type serverArgs struct {
	Config string `arg:"-c,--config" default:"configs/echo.ini" help:"path to the ini config file"`
	Host   string `arg:"--host" help:"override [server] host"`
	Port   int    `arg:"-p,--port" help:"override [server] port"`
	Mode   string `arg:"-m,--mode" help:"override [server] mode (sequential|concurrent)"`
	WSPort int    `arg:"--ws-port" help:"override [server] ws_port, 0 disables the WebSocket endpoint"`
}

func main() {
	var args serverArgs
	arg.MustParse(&args)

	// 1. 加载 .ini 配置
	cfg := config.Default()
	if err := config.LoadIni(cfg, args.Config); err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", args.Config, err)
		os.Exit(1)
	}
	applyOverrides(&cfg.ServerConf, args)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// 1.1 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. 创建并运行服务器
	appServer := app.New(cfg)
	if err := appServer.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Echo server exited with error")
		stop()
		os.Exit(1)
	}
	logger.Info().Msg("Echo server stopped cleanly.")
}

func applyOverrides(sc *types.ServerConf, args serverArgs) {
	if args.Host != "" {
		sc.Host = args.Host
	}
	if args.Port != 0 {
		sc.Port = args.Port
	}
	if args.Mode != "" {
		sc.Mode = types.ServerMode(args.Mode)
	}
	if args.WSPort != 0 {
		sc.WSPort = args.WSPort
	}
}

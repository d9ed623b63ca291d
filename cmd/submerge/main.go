package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"submerge/internal/shared/config"
	"submerge/internal/shared/logger"
	"submerge/internal/shared/types"
	"submerge/nodepool"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	flag.Parse()

	iniPath := filepath.Join(*configDir, "submerge.ini")

	// 1. 加载 .ini 行为配置（文件缺失时使用内置默认值）
	cfg := types.NewDefaultConfig()
	if err := config.LoadIni(cfg, iniPath); err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
		os.Exit(1)
	}

	// 1.1 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// 2. 组装并执行流水线
	pipeline, err := nodepool.NewPipeline(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build the aggregation pipeline")
	}

	if err := pipeline.Run(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Aggregation run failed")
	}
}

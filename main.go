// @title GoalTracker 后端 API
// @version 1.0
// @description 个人目标与任务跟踪服务：目标生命周期管理与提醒调度。
// @termsOfService http://swagger.io/terms/

// @contact.name API支持
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api

package main

import (
	"flag"
	"goal_tracker_backend/internal/app"
	"goal_tracker_backend/internal/config"
	"goal_tracker_backend/pkg/logger"
	"log"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "configs", "配置文件目录")
	storageType := flag.String("storage", "", "覆盖存储后端（memory、redis、mysql、badger）")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *storageType != "" {
		cfg.Storage.Type = *storageType
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	application.Run()
}

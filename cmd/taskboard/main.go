package main

import (
	"k8s.io/klog/v2"

	"github.com/raids-lab/taskboard/cmd/taskboard/helper"
)

// @title						Taskboard API
// @version						1.0.0
// @description					This is the API server for Taskboard, a collaborative project and task management platform.
// @securityDefinitions.apikey	Bearer
// @in							header
// @name						Authorization
// @description					访问 /v1/auth/login 并获取 TOKEN 后，填入 'Bearer ${TOKEN}' 以访问受保护的接口
func main() {
	// Initialize configuration
	configInit := helper.NewConfigInitializer()
	backendConfig := configInit.GetBackendConfig()

	// Load debug environment if needed
	if err := configInit.LoadDebugEnvironment(); err != nil {
		klog.Fatalf("Failed to load env: %s", err)
	}

	// Initialize register config and dependencies
	registerConfig, err := configInit.InitializeRegisterConfig()
	if err != nil {
		klog.Fatalf("Failed to register config: %s\n", err)
	}

	// Start background maintenance jobs
	cronManager := configInit.NewCronJobManager(registerConfig)
	if err := cronManager.Start(); err != nil {
		klog.Fatalf("Failed to start cron manager: %s", err)
	}
	defer cronManager.StopCron()

	// Start HTTP server
	serverRunner := helper.NewServerRunner(backendConfig)
	serverRunner.StartServer(registerConfig)
}

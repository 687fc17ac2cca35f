package config

import (
	"os"
)

type Config struct {
	Account     string // 领星登录账号
	Password    string // 领星登录密码
	Port        string
	Environment string

	// 网关地址，测试时可指向 mock 服务
	ERPBaseURL string
	GatewayURL string
}

func Load() *Config {
	return &Config{
		Account:     getEnv("LINGXING_ACCOUNT", "baitai-350000"),
		Password:    getEnv("LINGXING_PASSWORD", "Lx159357"),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		ERPBaseURL:  getEnv("LINGXING_ERP_URL", "https://erp.lingxing.com"),
		GatewayURL:  getEnv("LINGXING_GW_URL", "https://gw.lingxingerp.com"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package main

import (
	"context"
	"log"

	"lingxing-analyst/internal/api"
	"lingxing-analyst/internal/config"
	"lingxing-analyst/internal/services"
	"lingxing-analyst/internal/services/lingxing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	log.Printf("正在登录领星 ERP (账号: %s)...", cfg.Account)
	auth := lingxing.NewAuth(cfg.GatewayURL, cfg.Account, cfg.Password)
	token, err := auth.Login(context.Background())
	if err != nil {
		log.Fatalf("登录失败: %v", err)
	}
	log.Printf("✅ 登录成功，Token 预览: %s...", tokenPreview(token))

	client := lingxing.NewClient(token)
	client.SetBaseURLs(cfg.ERPBaseURL, cfg.GatewayURL)

	metricsSvc := services.NewMetricsService(client)
	analysisSvc := services.NewAnalysisService(metricsSvc)
	productSvc := services.NewProductService(client)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	api.SetupRoutes(r.Group("/api/v1"), analysisSvc, productSvc)

	log.Printf("服务启动，监听端口 %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("服务启动失败: %v", err)
	}
}

func tokenPreview(token string) string {
	if len(token) > 20 {
		return token[:20]
	}
	return token
}

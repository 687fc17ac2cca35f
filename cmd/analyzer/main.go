package main

import (
	"context"
	"flag"
	"log"
	"time"

	"lingxing-analyst/internal/config"
	"lingxing-analyst/internal/report"
	"lingxing-analyst/internal/services"
	"lingxing-analyst/internal/services/lingxing"

	"github.com/joho/godotenv"
)

var (
	storeFilter = flag.String("store", "ALL", "店铺过滤器：单店 HB-US，全量 ALL，按站点 ALL-US")
	year        = flag.Int("year", 0, "年份，缺省为当前年")
	month       = flag.Int("month", 0, "月份 1-12，缺省为当前月")
	outPath     = flag.String("out", "", "xlsx 报表输出路径，留空不导出")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	y, m := *year, *month
	if y == 0 || m == 0 {
		now := time.Now()
		y, m = now.Year(), int(now.Month())
	}

	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("[步骤1] 🔐 登录领星 ERP (账号: %s)", cfg.Account)
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	ctx := context.Background()
	auth := lingxing.NewAuth(cfg.GatewayURL, cfg.Account, cfg.Password)
	token, err := auth.Login(ctx)
	if err != nil {
		log.Fatalf("❌ 登录失败: %v", err)
	}
	log.Printf("✅ 登录成功")

	client := lingxing.NewClient(token)
	client.SetBaseURLs(cfg.ERPBaseURL, cfg.GatewayURL)
	analysis := services.NewAnalysisService(services.NewMetricsService(client))

	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("[步骤2] 📊 分析店铺 %s (%d-%02d)", *storeFilter, y, m)
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	result, err := analysis.AnalyzeStores(ctx, *storeFilter, y, m)
	if err != nil {
		log.Fatalf("❌ 分析失败: %v", err)
	}

	var batch *services.BatchResult
	switch r := result.(type) {
	case *services.BatchResult:
		batch = r
		log.Printf("✅ %s", r.Summary)
		for _, d := range r.Details {
			log.Printf("   %s  GMV=%.2f  毛利率=%s", d.StoreName, d.GMV, d.GrossProfitRate)
		}
	case *services.Metrics:
		log.Printf("✅ %s  GMV=%.2f  毛利率=%s  采购计划量=%.0f  发货计划量=%d",
			r.StoreName, r.GMV, r.GrossProfitRate, r.PurchasePlanQty, r.DeliveryPlanQty)
		batch = &services.BatchResult{Details: []*services.Metrics{r}}
	}

	if *outPath != "" && batch != nil {
		log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Printf("[步骤3] 📥 导出报表 %s", *outPath)
		log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		if err := report.WriteBatchReport(*outPath, batch); err != nil {
			log.Fatalf("❌ 导出失败: %v", err)
		}
		log.Printf("✅ 导出完成，共 %d 行", len(batch.Details))
	}
}

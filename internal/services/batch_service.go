package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"lingxing-analyst/internal/config"
)

// 批量分析的并发上限
const batchWorkers = 10

// BatchResult 批量分析结果。details 按完成顺序排列，
// 个别店铺失败只会被记日志并跳过，不影响整体。
type BatchResult struct {
	Summary string     `json:"summary"`
	Details []*Metrics `json:"details"`
}

// AnalysisService 店铺分析入口：单店直接算，ALL 过滤器走批量
type AnalysisService struct {
	metrics *MetricsService
}

func NewAnalysisService(metrics *MetricsService) *AnalysisService {
	return &AnalysisService{metrics: metrics}
}

// AnalyzeStores 分析店铺。storeName 支持三种形式：
// 单店 "HB-US"、全量 "ALL"、按站点 "ALL-US"。
// 年月缺省取当前月份。单店返回 *Metrics，批量返回 *BatchResult。
func (s *AnalysisService) AnalyzeStores(ctx context.Context, storeName string, year, month int) (interface{}, error) {
	if year == 0 || month == 0 {
		now := time.Now()
		year = now.Year()
		month = int(now.Month())
	}

	if !config.IsBatchFilter(storeName) {
		return s.metrics.GetStoreCostStructure(ctx, storeName, year, month)
	}

	targets := config.MatchFilter(storeName)

	jobs := make(chan string)
	results := make(chan *Metrics, len(targets))
	var wg sync.WaitGroup

	workers := batchWorkers
	if len(targets) < workers {
		workers = len(targets)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				m, err := s.metrics.GetStoreCostStructure(ctx, name, year, month)
				if err != nil {
					log.Printf("分析店铺 %s 失败: %v", name, err)
					continue
				}
				results <- m
			}
		}()
	}

	for _, name := range targets {
		jobs <- name
	}
	close(jobs)
	wg.Wait()
	close(results)

	details := make([]*Metrics, 0, len(targets))
	for m := range results {
		details = append(details, m)
	}

	return &BatchResult{
		Summary: fmt.Sprintf("Analyzed %d stores matching '%s'", len(details), storeName),
		Details: details,
	}, nil
}

package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"lingxing-analyst/internal/config"
	"lingxing-analyst/internal/services/lingxing"
)

// NotFoundError 店铺无法解析或该月没有利润数据。
// 批量分析捕获后跳过该店，不影响其它店铺。
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// Metrics 单店单月的成本结构分析结果。
// 各费率按 GMV 占比输出为百分比字符串，GMV 为 0 时全部置零。
type Metrics struct {
	GMV       float64 `json:"GMV"`
	Year      int     `json:"year"`
	Month     int     `json:"month"`
	StoreName string  `json:"store_name"`

	GrossProfitRate  string `json:"gross_profit_rate"`
	HeadTripCostRate string `json:"head_trip_cost_rate"`
	StorageFeeRate   string `json:"storage_fee_rate"`
	CogsRate         string `json:"cogs_rate"`
	TailTripRate     string `json:"tail_trip_rate"`
	MarketingRate    string `json:"marketing_rate"`
	CommissionRate   string `json:"commission_rate"`

	PurchasePlanQty float64 `json:"purchase_plan_qty"`
	DeliveryPlanQty int     `json:"delivery_plan_qty"`
	FBAActualOutQty float64 `json:"fba_actual_out_qty"`

	FBATurnoverDays   *float64 `json:"fba_turnover_days,omitempty"`
	LocalTurnoverDays *float64 `json:"local_turnover_days,omitempty"`
}

// GMV 的 11 个组成字段
var gmvFields = []string{
	"totalFbaAndFbmAmount",
	"shippingCredits",
	"promotionalRebates",
	"fbaInventoryCredit",
	"cashOnDelivery",
	"otherInAmount",
	"totalSalesRefunds",
	"totalSalesTax",
	"salesTaxRefund",
	"salesTaxWithheld",
	"refundTaxWithheld",
}

// FBA 出库流水里计入实际出库量的类型
var fbaOutTypes = map[string]bool{
	"FBA出库":  true,
	"FBAM出库": true,
}

// MetricsService 店铺成本结构分析
type MetricsService struct {
	client *lingxing.Client
}

func NewMetricsService(client *lingxing.Client) *MetricsService {
	return &MetricsService{client: client}
}

// monthRange 给定年月返回 [月初, 月末] 日期串。
// 月末 = 下月 1 号减一天，12 月会跨到下一年。
func monthRange(year, month int) (string, string) {
	start := fmt.Sprintf("%d-%02d-01", year, month)

	nextYear, nextMonth := year, month+1
	if month == 12 {
		nextYear, nextMonth = year+1, 1
	}
	nextFirst := time.Date(nextYear, time.Month(nextMonth), 1, 0, 0, 0, 0, time.UTC)
	end := nextFirst.AddDate(0, 0, -1).Format("2006-01-02")
	return start, end
}

func formatRate(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func fval(rec lingxing.Record, key string) float64 {
	f, _ := lingxing.Float(rec[key])
	return f
}

// GetStoreCostStructure 按店铺和月份计算利润结构、物流量和库存周转。
// storeName 支持模糊匹配；采购计划量按原始入参过滤，其余按解析后的店名过滤。
func (s *MetricsService) GetStoreCostStructure(ctx context.Context, storeName string, year, month int) (*Metrics, error) {
	startDate, endDate := monthRange(year, month)

	store, ok := config.ResolveStore(storeName)
	if !ok {
		return nil, &NotFoundError{Message: fmt.Sprintf("Store %s not found in configuration", storeName)}
	}

	// 1. 利润报表（接口内已按店铺聚合）
	profitData, err := s.client.GetProfitData(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	var storeData lingxing.Record
	for _, rec := range profitData {
		if lingxing.Str(rec["storeName"]) == store.Name {
			storeData = rec
			break
		}
	}
	if storeData == nil {
		return nil, &NotFoundError{Message: fmt.Sprintf("No profit data found for %s in %d-%d", store.Name, year, month)}
	}

	var gmv float64
	for _, field := range gmvFields {
		gmv += fval(storeData, field)
	}

	metrics := &Metrics{
		GMV:       gmv,
		Year:      year,
		Month:     month,
		StoreName: storeName,
	}

	if gmv == 0 {
		metrics.GrossProfitRate = formatRate(0)
		metrics.HeadTripCostRate = formatRate(0)
		metrics.StorageFeeRate = formatRate(0)
		metrics.CogsRate = formatRate(0)
		metrics.TailTripRate = formatRate(0)
		metrics.MarketingRate = formatRate(0)
		metrics.CommissionRate = formatRate(0)
	} else {
		metrics.GrossProfitRate = formatRate(fval(storeData, "grossProfit") / gmv)
		metrics.HeadTripCostRate = formatRate(fval(storeData, "cgTransportCostsTotal") / gmv)
		metrics.StorageFeeRate = formatRate(fval(storeData, "totalStorageFee") / gmv)
		metrics.CogsRate = formatRate(fval(storeData, "cgPriceTotal") / gmv)
		metrics.TailTripRate = formatRate((fval(storeData, "fbaDeliveryFee") + fval(storeData, "fbaTransactionFeeRefunds")) / gmv)
		metrics.MarketingRate = formatRate((fval(storeData, "totalAdsCost") + fval(storeData, "promotionFee")) / gmv)
		metrics.CommissionRate = formatRate(math.Abs(fval(storeData, "platformFee")) / gmv)
	}

	// 2. 采购计划量。按调用方传入的原始店名过滤，和其它指标的口径不同
	purchaseData, err := s.client.GetPurchasePlan(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	var purchaseQty float64
	for _, order := range purchaseData {
		for _, item := range lingxing.DigRecords(order, "items") {
			if lingxing.Str(item["seller_name"]) == storeName {
				purchaseQty += fval(item, "quantity_plan")
			}
		}
	}
	metrics.PurchasePlanQty = purchaseQty

	// 3. 发货计划量，数量字段是字符串，解析失败的直接跳过
	deliveryData, err := s.client.GetDeliveryPlan(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	deliveryQty := 0
	for _, record := range deliveryData {
		for _, item := range lingxing.DigRecords(record, "list") {
			if lingxing.Str(item["sname"]) == store.Name {
				if n, ok := lingxing.Int(item["shipment_plan_quantity"]); ok {
					deliveryQty += n
				}
			}
		}
	}
	metrics.DeliveryPlanQty = deliveryQty

	// 4. FBA 实际出库量
	fbaOutData, err := s.client.GetFBAOut(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	var fbaOutQty float64
	for _, record := range fbaOutData {
		if fbaOutTypes[lingxing.Str(record["type_name"])] && lingxing.Str(record["store_name"]) == store.Name {
			fbaOutQty += math.Abs(fval(record, "good_lock_num"))
		}
	}
	metrics.FBAActualOutQty = fbaOutQty

	// 5. FBA 库存周转，只有配了仓库 WID 的店铺才查
	if store.WarehouseID != "" {
		monthKey := fmt.Sprintf("%d-%02d", year, month)
		fbaInv, err := s.client.GetFBAInventory(ctx, monthKey, monthKey, store.WarehouseID)
		if err != nil {
			return nil, err
		}
		if summary, ok := lingxing.DigMap(fbaInv, "data", "summaryInfo"); ok {
			days, _ := lingxing.Float(summary["inventoryTurnoverDays"])
			metrics.FBATurnoverDays = &days
		}
	}

	// 6. 本地仓周转
	if store.SellerID != "" {
		localInv, err := s.client.GetLocalInventory(ctx, startDate, endDate, store.SellerID)
		if err != nil {
			return nil, err
		}
		if totalInfo, ok := lingxing.DigMap(localInv, "data", "total_info"); ok {
			days, _ := lingxing.Float(totalInfo["rotation_day"])
			metrics.LocalTurnoverDays = &days
		}
	}

	return metrics, nil
}

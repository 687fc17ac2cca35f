package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"lingxing-analyst/internal/services/lingxing"
)

// 采购与发货状态文案，和 ERP 前端展示保持一致
const (
	purchaseNotOrdered = "采购未下单"
	purchaseNotArrived = "采购未到达"
	purchaseArrived    = "采购已到达"
	purchaseAbnormal   = "异常状态"

	statusOrderedNotArrived = "采购已下单，未到达"
	statusPurchaseDone      = "采购已完成"
	statusNormalShipment    = "正常发货"
	statusBorrowedShipment  = "借调发货"
	detailNoInitialShipment = "无首次发货记录"

	awaitingArrival = "待到货"
	missingTime     = "缺失"

	shipmentTimeLayout = "2006-01-02 15:04:05"
)

// ProductStatus 单品采购 + 首次发货状态
type ProductStatus struct {
	MSKU             string  `json:"msku"`
	Store            string  `json:"store"`
	Status           string  `json:"status"`
	PurchaseStatus   string  `json:"purchase_status"`
	PurchaseTime     string  `json:"purchase_time"`
	ArrivalTime      string  `json:"arrival_time"`
	InitialStockNum  float64 `json:"initial_stock_num"`
	InitialStockTime string  `json:"initial_stock_time"`
	IsBorrowed       bool    `json:"is_borrowed"`
	StatusDetail     string  `json:"status_detail,omitempty"`
}

// PerformanceRecord 单品在一段日期内的销售/广告/库存快照
type PerformanceRecord struct {
	MSKU      string `json:"msku"`
	ASIN      string `json:"asin"`
	StoreName string `json:"store_name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	Volume      float64 `json:"volume"`
	SalesAmount float64 `json:"sales_amount"`
	OrderCount  float64 `json:"order_count"`
	AvgPrice    float64 `json:"avg_price"`

	GrossProfit     float64 `json:"gross_profit"`
	GrossProfitRate float64 `json:"gross_profit_rate"`
	ROI             float64 `json:"roi"`

	AdSpend          float64 `json:"ad_spend"`
	AdSales          float64 `json:"ad_sales"`
	AdACOS           float64 `json:"ad_acos"`
	AdCPC            float64 `json:"ad_cpc"`
	AdCTR            float64 `json:"ad_ctr"`
	AdImpressions    float64 `json:"ad_impressions"`
	AdClicks         float64 `json:"ad_clicks"`
	AdConversionRate float64 `json:"ad_conversion_rate"`

	RefundCount float64 `json:"refund_count"`
	RefundRate  float64 `json:"refund_rate"`

	InventorySellable float64 `json:"inventory_sellable"`
	InventoryReserved float64 `json:"inventory_reserved"`
	InventoryInbound  float64 `json:"inventory_inbound"`

	BigRank          float64 `json:"big_rank"`
	RankCategoryName string  `json:"rank_category_name"`
	SmallRank        float64 `json:"small_rank"`

	VolumeYoyRatio float64 `json:"volume_yoy_ratio"`
	AmountYoyRatio float64 `json:"amount_yoy_ratio"`
}

// PerformanceLookupError 未找到产品表现数据，附带排查信息
type PerformanceLookupError struct {
	MSKU              string   `json:"msku"`
	Message           string   `json:"error"`
	StartDate         string   `json:"start_date"`
	EndDate           string   `json:"end_date"`
	DebugResponseKeys []string `json:"debug_response_keys,omitempty"`
	DebugDataKeys     []string `json:"debug_data_keys,omitempty"`
	AvailableMSKUs    []string `json:"available_mskus,omitempty"`
}

func (e *PerformanceLookupError) Error() string {
	return e.Message
}

// ProductService 单品状态与表现查询
type ProductService struct {
	client *lingxing.Client
}

func NewProductService(client *lingxing.Client) *ProductService {
	return &ProductService{client: client}
}

// CheckProductStatus 综合采购、加工、发货三路数据判断单品状态。
// isProcessing 为 false 时先查普通采购单，查不到再自动尝试加工单。
func (s *ProductService) CheckProductStatus(ctx context.Context, msku, storeName string, isProcessing bool) (*ProductStatus, error) {
	result := &ProductStatus{
		MSKU:   msku,
		Store:  storeName,
		Status: "Unknown",
	}

	var orderTime, finishTime, state string
	if isProcessing {
		data, err := s.client.GetProcessingOrders(ctx, msku)
		if err != nil {
			return nil, err
		}
		orderTime, finishTime, state = evalProcessingOrders(data, storeName)
	} else {
		data, err := s.client.GetPurchaseOrders(ctx, msku)
		if err != nil {
			return nil, err
		}
		if !hasOrderList(data) {
			// 普通采购查不到，可能是加工品，换加工单再试一次
			procData, err := s.client.GetProcessingOrders(ctx, msku)
			if err != nil {
				return nil, err
			}
			if hasOrderList(procData) {
				orderTime, finishTime, state = evalProcessingOrders(procData, storeName)
			} else {
				orderTime, finishTime, state = evalPurchaseOrders(data, storeName)
			}
		} else {
			orderTime, finishTime, state = evalPurchaseOrders(data, storeName)
		}
	}

	result.PurchaseStatus = state
	if orderTime != purchaseNotOrdered {
		result.PurchaseTime = orderTime
	}
	if finishTime != "" && finishTime != missingTime {
		result.ArrivalTime = finishTime
	}

	if orderTime == purchaseNotOrdered {
		result.Status = purchaseNotOrdered
		result.IsBorrowed = true
	} else if state == purchaseNotArrived {
		result.Status = statusOrderedNotArrived
	} else {
		result.Status = statusPurchaseDone
	}

	stockNum, stockTime := s.initialOutbound(ctx, msku, storeName)
	result.InitialStockNum = stockNum
	result.InitialStockTime = stockTime

	if stockNum == 0 {
		result.StatusDetail = detailNoInitialShipment
	} else if orderTime == purchaseNotOrdered || state == purchaseNotArrived {
		result.IsBorrowed = true
		result.Status = statusBorrowedShipment
	} else {
		result.Status = statusNormalShipment
	}

	return result, nil
}

// hasOrderList 判断响应里有没有非空记录列表（兼容平铺和 data 包一层两种结构）
func hasOrderList(data map[string]interface{}) bool {
	if len(lingxing.DigRecords(data, "data", "list")) > 0 {
		return true
	}
	return len(lingxing.DigRecords(data, "list")) > 0
}

// evalPurchaseOrders 从普通采购单里找最早下单时间和最早完成时间。
// 入库数为 0 且不是待到货的记录、店铺不匹配的记录都不参与。
func evalPurchaseOrders(data map[string]interface{}, store string) (orderTime, finishTime, state string) {
	orders := lingxing.DigRecords(data, "data", "list")
	if alt := lingxing.DigRecords(data, "list"); len(alt) > 0 {
		orders = alt
	}
	if len(orders) == 0 {
		return purchaseNotOrdered, missingTime, purchaseAbnormal
	}

	var earliestFinish, earliestOrder string

	for _, order := range orders {
		qty, _ := lingxing.Int(order["quantity_entry"])
		if qty == 0 && lingxing.Str(order["status_text"]) != awaitingArrival {
			continue
		}
		if store != "" && !sellerListContains(order["item_list"], "seller_name", store) {
			continue
		}

		finish := lingxing.Str(order["finish_time"])
		created := lingxing.Str(order["order_time"])

		if finish != "" && finish != "-" && (earliestFinish == "" || finish < earliestFinish) {
			earliestFinish = finish
		}
		// 首条下单时间可能为空，为空时继续用后面的记录补
		if earliestOrder == "" || (created != "" && created < earliestOrder) {
			earliestOrder = created
		}
	}

	if earliestFinish != "" {
		return earliestOrder, earliestFinish, purchaseArrived
	}
	if earliestOrder != "" {
		return earliestOrder, missingTime, purchaseNotArrived
	}
	return purchaseNotOrdered, missingTime, purchaseNotOrdered
}

// evalProcessingOrders 加工单口径：状态 3 为已取消，店铺列表在 product_list 里
func evalProcessingOrders(data map[string]interface{}, store string) (createTime, finishTime, state string) {
	items := lingxing.DigRecords(data, "list")
	// 平铺 list 键存在即以它为准，空列表也算有效；缺失或为 null 才去 data 里找
	if v, ok := data["list"]; !ok || v == nil {
		items = lingxing.DigRecords(data, "data", "list")
	}
	if len(items) == 0 {
		return purchaseNotOrdered, missingTime, purchaseAbnormal
	}

	var earliestFinish, earliestCreate string

	for _, item := range items {
		if status, _ := lingxing.Int(item["status"]); status == 3 {
			continue
		}
		if store != "" && !sellerListContains(item["product_list"], "seller_name", store) {
			continue
		}

		finish := lingxing.Str(item["finish_time"])
		created := lingxing.Str(item["create_time"])

		if finish != "" && finish != "-" && (earliestFinish == "" || finish < earliestFinish) {
			earliestFinish = finish
		}
		if earliestCreate == "" || (created != "" && created < earliestCreate) {
			earliestCreate = created
		}
	}

	if earliestFinish != "" {
		return earliestCreate, earliestFinish, purchaseArrived
	}
	if earliestCreate != "" {
		return earliestCreate, missingTime, purchaseNotArrived
	}
	return purchaseNotOrdered, missingTime, purchaseNotOrdered
}

func sellerListContains(v interface{}, key, target string) bool {
	list, ok := v.([]interface{})
	if !ok {
		return false
	}
	for _, item := range list {
		if rec, ok := item.(map[string]interface{}); ok {
			if lingxing.Str(rec[key]) == target {
				return true
			}
		}
	}
	return false
}

// initialOutbound 查首次发货数量和时间。优先海外仓发货计划，
// 查不到再回退到发货批次。两路都失败时按无发货处理，不向上抛错。
func (s *ProductService) initialOutbound(ctx context.Context, msku, shop string) (float64, string) {
	if resp, err := s.client.GetOverseaPlan(ctx, msku); err != nil {
		log.Printf("查询海外仓发货计划失败: %v", err)
	} else {
		plans := lingxing.DigRecords(resp, "data", "plan_list")
		if len(plans) == 0 {
			plans = lingxing.DigRecords(resp, "plan_list")
		}

		// 创建时间按字符串序取最早，时间字段兼容两种命名
		var earliest lingxing.Record
		earliestKey := ""
		for _, plan := range plans {
			key := lingxing.Str(plan["gmt_create"])
			if key == "" {
				key = lingxing.Str(plan["create_time"])
			}
			if key == "" {
				key = "9999-99-99"
			}
			if earliest == nil || key < earliestKey {
				earliest, earliestKey = plan, key
			}
		}
		if earliest != nil {
			shipTime := lingxing.Str(earliest["gmt_create"])
			if shipTime == "" {
				shipTime = lingxing.Str(earliest["create_time"])
			}
			if shipTime != "" {
				qty, _ := lingxing.Float(earliest["plan_quantity"])
				return qty, shipTime
			}
		}
	}

	resp, err := s.client.GetShipmentBatches(ctx, msku)
	if err != nil {
		log.Printf("查询发货批次失败: %v", err)
		return 0, ""
	}

	batches := lingxing.DigRecords(resp, "data", "list")
	var earliest lingxing.Record
	var earliestAt time.Time
	for _, batch := range batches {
		shipped, _ := lingxing.Float(batch["total_quantity_shipped"])
		if shipped == 0 {
			continue
		}
		if !sellerListContains(batch["relate_list"], "sname", shop) {
			continue
		}
		at, err := time.Parse(shipmentTimeLayout, lingxing.Str(batch["shipment_time"]))
		if err != nil {
			continue
		}
		if earliest == nil || at.Before(earliestAt) {
			earliest, earliestAt = batch, at
		}
	}
	if earliest == nil {
		return 0, ""
	}

	shipped, _ := lingxing.Float(earliest["total_quantity_shipped"])
	return math.Abs(shipped), lingxing.Str(earliest["shipment_time"])
}

// GetProductPerformance 查单品销售表现。日期缺省为本月 1 号到今天。
// 先按 msku 精确匹配，匹配不到再扫 price_list 的 seller_sku。
func (s *ProductService) GetProductPerformance(ctx context.Context, msku, startDate, endDate string) (*PerformanceRecord, error) {
	now := time.Now()
	if endDate == "" {
		endDate = now.Format("2006-01-02")
	}
	if startDate == "" {
		startDate = now.Format("2006-01") + "-01"
	}

	resp, err := s.client.GetProductPerformance(ctx, startDate, endDate, msku)
	if err != nil {
		return nil, err
	}

	records := lingxing.DigRecords(resp, "data", "list")
	if len(records) == 0 {
		keys := make([]string, 0, len(resp))
		for k := range resp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var dataKeys []string
		if dataBlock, ok := lingxing.DigMap(resp, "data"); ok {
			for k := range dataBlock {
				dataKeys = append(dataKeys, k)
			}
			sort.Strings(dataKeys)
		}
		return nil, &PerformanceLookupError{
			MSKU:              msku,
			Message:           "未找到该产品的表现数据",
			StartDate:         startDate,
			EndDate:           endDate,
			DebugResponseKeys: keys,
			DebugDataKeys:     dataKeys,
		}
	}

	var productData lingxing.Record
	storeName := ""
	for _, rec := range records {
		if lingxing.Str(rec["msku"]) == msku {
			productData = rec
			break
		}
	}
	if productData == nil {
		for _, rec := range records {
			for _, priceItem := range lingxing.DigRecords(rec, "price_list") {
				if lingxing.Str(priceItem["seller_sku"]) == msku {
					productData = rec
					storeName = lingxing.Str(priceItem["seller_name"])
					break
				}
			}
			if productData != nil {
				break
			}
		}
	}

	if productData == nil {
		available := make([]string, 0, 5)
		for _, rec := range records {
			if len(available) == 5 {
				break
			}
			available = append(available, lingxing.Str(rec["msku"]))
		}
		return nil, &PerformanceLookupError{
			MSKU:           msku,
			Message:        fmt.Sprintf("在 %d 条记录中未找到 MSKU", len(records)),
			StartDate:      startDate,
			EndDate:        endDate,
			AvailableMSKUs: available,
		}
	}

	pf := func(key string) float64 {
		f, _ := lingxing.Float(productData[key])
		return f
	}

	record := &PerformanceRecord{
		MSKU:      msku,
		StartDate: startDate,
		EndDate:   endDate,

		Volume:      pf("volume"),
		SalesAmount: pf("amount"),
		OrderCount:  pf("order_items"),
		AvgPrice:    pf("avg_custom_price"),

		GrossProfit:     pf("gross_profit"),
		GrossProfitRate: pf("gross_margin"),
		ROI:             pf("roi"),

		AdSpend:          pf("spend"),
		AdSales:          pf("ad_sales_amount"),
		AdACOS:           pf("acos"),
		AdCPC:            pf("cpc"),
		AdCTR:            pf("ctr"),
		AdImpressions:    pf("impressions"),
		AdClicks:         pf("clicks"),
		AdConversionRate: pf("ad_cvr"),

		RefundCount: pf("return_goods_count"),
		RefundRate:  pf("return_goods_rate"),

		InventoryInbound: pf("total_inbound"),

		BigRank:          pf("cate_rank"),
		RankCategoryName: lingxing.Str(productData["rank_category"]),

		VolumeYoyRatio: pf("volume_yoy_ratio"),
		AmountYoyRatio: pf("amount_yoy_ratio"),
	}

	if v := lingxing.Str(productData["msku"]); v != "" {
		record.MSKU = v
	}

	record.ASIN = lingxing.Str(productData["asin"])
	if record.ASIN == "" {
		if asins := lingxing.DigRecords(productData, "asins"); len(asins) > 0 {
			record.ASIN = lingxing.Str(asins[0]["asin"])
		}
	}

	record.StoreName = lingxing.Str(productData["seller_name"])
	if record.StoreName == "" {
		record.StoreName = storeName
	}

	if inv, ok := lingxing.DigMap(productData, "available_inventory"); ok {
		sellable, _ := lingxing.Float(inv["afn_fulfillable_quantity"])
		transfers, _ := lingxing.Float(inv["reserved_fc_transfers"])
		processing, _ := lingxing.Float(inv["reserved_fc_processing"])
		record.InventorySellable = sellable
		record.InventoryReserved = transfers + processing
	}

	if smallRanks := lingxing.DigRecords(productData, "small_cate_rank"); len(smallRanks) > 0 {
		record.SmallRank, _ = lingxing.Float(smallRanks[0]["rank"])
	}

	return record, nil
}

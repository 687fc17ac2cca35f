package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lingxing-analyst/internal/services/lingxing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// productTestServer 按端点路径挂接固定响应，缺省返回空结构
type productTestServer struct {
	purchase    map[string]interface{}
	processing  map[string]interface{}
	oversea     map[string]interface{}
	batches     map[string]interface{}
	performance map[string]interface{}
}

func (p *productTestServer) start(t *testing.T) *httptest.Server {
	t.Helper()
	pick := func(m map[string]interface{}) map[string]interface{} {
		if m == nil {
			return map[string]interface{}{}
		}
		return m
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/purchase/lists":
			json.NewEncoder(w).Encode(pick(p.purchase))
		case "/api/storage_process/lists":
			json.NewEncoder(w).Encode(pick(p.processing))
		case "/api/oversea/shipment/planList":
			json.NewEncoder(w).Encode(pick(p.oversea))
		case "/api/fba_dispatch/batchList":
			json.NewEncoder(w).Encode(pick(p.batches))
		case "/bd/productPerformance/performanceList":
			json.NewEncoder(w).Encode(pick(p.performance))
		default:
			t.Errorf("未预期的请求路径: %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
}

func newTestProductService(srvURL string) *ProductService {
	client := lingxing.NewClient("tok")
	client.SetBaseURLs(srvURL, srvURL)
	return NewProductService(client)
}

func purchaseOrdersFixture(finishTime string) map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"list": []map[string]interface{}{
				{
					"quantity_entry": 100,
					"status_text":    "已完成",
					"order_time":     "2024-03-01 10:00:00",
					"finish_time":    finishTime,
					"item_list": []map[string]interface{}{
						{"seller_name": "HB-US"},
					},
				},
			},
		},
	}
}

func shipmentBatchesFixture(qty float64) map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"list": []map[string]interface{}{
				{
					"total_quantity_shipped": qty,
					"shipment_time":          "2024-03-10 08:30:00",
					"relate_list": []map[string]interface{}{
						{"sname": "HB-US"},
					},
				},
			},
		},
	}
}

func TestCheckProductStatusNormalShipment(t *testing.T) {
	srv := (&productTestServer{
		purchase: purchaseOrdersFixture("2024-03-05 12:00:00"),
		batches:  shipmentBatchesFixture(-50),
	}).start(t)
	defer srv.Close()

	status, err := newTestProductService(srv.URL).CheckProductStatus(context.Background(), "SKU-1", "HB-US", false)
	require.NoError(t, err)

	assert.Equal(t, "正常发货", status.Status)
	assert.Equal(t, "采购已到达", status.PurchaseStatus)
	assert.Equal(t, "2024-03-01 10:00:00", status.PurchaseTime)
	assert.Equal(t, "2024-03-05 12:00:00", status.ArrivalTime)
	assert.False(t, status.IsBorrowed)
	// 发货数量取绝对值
	assert.Equal(t, 50.0, status.InitialStockNum)
	assert.Equal(t, "2024-03-10 08:30:00", status.InitialStockTime)
}

func TestCheckProductStatusBorrowedShipment(t *testing.T) {
	// 没有任何采购记录但有发货批次：借调发货
	srv := (&productTestServer{
		batches: shipmentBatchesFixture(50),
	}).start(t)
	defer srv.Close()

	status, err := newTestProductService(srv.URL).CheckProductStatus(context.Background(), "SKU-1", "HB-US", false)
	require.NoError(t, err)

	assert.Equal(t, "借调发货", status.Status)
	assert.True(t, status.IsBorrowed)
	assert.Equal(t, "异常状态", status.PurchaseStatus)
	assert.Empty(t, status.PurchaseTime)
	assert.Equal(t, 50.0, status.InitialStockNum)
}

func TestCheckProductStatusOrderedNotArrived(t *testing.T) {
	// finish_time 为 "-" 表示未完成
	srv := (&productTestServer{
		purchase: purchaseOrdersFixture("-"),
	}).start(t)
	defer srv.Close()

	status, err := newTestProductService(srv.URL).CheckProductStatus(context.Background(), "SKU-1", "HB-US", false)
	require.NoError(t, err)

	assert.Equal(t, "采购已下单，未到达", status.Status)
	assert.Equal(t, "采购未到达", status.PurchaseStatus)
	assert.Equal(t, "2024-03-01 10:00:00", status.PurchaseTime)
	assert.Empty(t, status.ArrivalTime)
	assert.Equal(t, "无首次发货记录", status.StatusDetail)
	assert.False(t, status.IsBorrowed)
}

func TestCheckProductStatusFirstOrderTimeMissing(t *testing.T) {
	// 首条有效采购单的下单时间为 null 时，用后面记录的时间补上
	srv := (&productTestServer{
		purchase: map[string]interface{}{
			"data": map[string]interface{}{
				"list": []map[string]interface{}{
					{
						"quantity_entry": 100,
						"status_text":    "已完成",
						"order_time":     nil,
						"finish_time":    "-",
						"item_list": []map[string]interface{}{
							{"seller_name": "HB-US"},
						},
					},
					{
						"quantity_entry": 50,
						"status_text":    "已完成",
						"order_time":     "2024-03-01 10:00:00",
						"finish_time":    "-",
						"item_list": []map[string]interface{}{
							{"seller_name": "HB-US"},
						},
					},
				},
			},
		},
	}).start(t)
	defer srv.Close()

	status, err := newTestProductService(srv.URL).CheckProductStatus(context.Background(), "SKU-1", "HB-US", false)
	require.NoError(t, err)

	assert.Equal(t, "采购未到达", status.PurchaseStatus)
	assert.Equal(t, "采购已下单，未到达", status.Status)
	assert.Equal(t, "2024-03-01 10:00:00", status.PurchaseTime)
	assert.False(t, status.IsBorrowed)
}

func TestEvalPurchaseOrdersAllTimesMissing(t *testing.T) {
	// 全部有效记录都没有下单时间时仍按未下单处理
	data := map[string]interface{}{
		"data": map[string]interface{}{
			"list": []interface{}{
				map[string]interface{}{
					"quantity_entry": 10,
					"status_text":    "已完成",
					"order_time":     nil,
					"finish_time":    "-",
					"item_list": []interface{}{
						map[string]interface{}{"seller_name": "HB-US"},
					},
				},
			},
		},
	}
	orderTime, finishTime, state := evalPurchaseOrders(data, "HB-US")
	assert.Equal(t, "采购未下单", orderTime)
	assert.Equal(t, "缺失", finishTime)
	assert.Equal(t, "采购未下单", state)
}

func TestEvalProcessingOrdersFlatListPrecedence(t *testing.T) {
	record := map[string]interface{}{
		"status":      1,
		"create_time": "2024-03-02 10:00:00",
		"finish_time": "2024-03-06 10:00:00",
		"product_list": []interface{}{
			map[string]interface{}{"seller_name": "HB-US"},
		},
	}

	// 平铺 list 存在但为空：以它为准，不去 data 里找
	_, _, state := evalProcessingOrders(map[string]interface{}{
		"list": []interface{}{},
		"data": map[string]interface{}{"list": []interface{}{record}},
	}, "HB-US")
	assert.Equal(t, "异常状态", state)

	// 平铺 list 缺失才回退到 data.list
	_, finishTime, state := evalProcessingOrders(map[string]interface{}{
		"data": map[string]interface{}{"list": []interface{}{record}},
	}, "HB-US")
	assert.Equal(t, "采购已到达", state)
	assert.Equal(t, "2024-03-06 10:00:00", finishTime)

	// 平铺 list 为 null 等同缺失
	_, _, state = evalProcessingOrders(map[string]interface{}{
		"list": nil,
		"data": map[string]interface{}{"list": []interface{}{record}},
	}, "HB-US")
	assert.Equal(t, "采购已到达", state)
}

func TestCheckProductStatusOverseaPlanPriority(t *testing.T) {
	// 海外仓计划和发货批次同时存在时，首次发货以海外仓计划为准
	srv := (&productTestServer{
		purchase: purchaseOrdersFixture("2024-03-05 12:00:00"),
		oversea: map[string]interface{}{
			"data": map[string]interface{}{
				"plan_list": []map[string]interface{}{
					{"gmt_create": "2024-04-01 09:00:00", "plan_quantity": 80.0},
					{"gmt_create": "2024-02-20 09:00:00", "plan_quantity": 30.0},
				},
			},
		},
		batches: shipmentBatchesFixture(999),
	}).start(t)
	defer srv.Close()

	status, err := newTestProductService(srv.URL).CheckProductStatus(context.Background(), "SKU-1", "HB-US", false)
	require.NoError(t, err)

	// 取计划里创建时间最早的一条
	assert.Equal(t, 30.0, status.InitialStockNum)
	assert.Equal(t, "2024-02-20 09:00:00", status.InitialStockTime)
	assert.Equal(t, "正常发货", status.Status)
}

func TestCheckProductStatusProcessingFallback(t *testing.T) {
	// 普通采购查不到时自动改查加工单
	srv := (&productTestServer{
		processing: map[string]interface{}{
			"list": []map[string]interface{}{
				{
					"status":      1,
					"create_time": "2024-03-02 10:00:00",
					"finish_time": "2024-03-06 10:00:00",
					"product_list": []map[string]interface{}{
						{"seller_name": "HB-US"},
					},
				},
				{
					// 已取消的加工单不参与
					"status":      3,
					"create_time": "2024-01-01 00:00:00",
					"finish_time": "2024-01-02 00:00:00",
					"product_list": []map[string]interface{}{
						{"seller_name": "HB-US"},
					},
				},
			},
		},
	}).start(t)
	defer srv.Close()

	status, err := newTestProductService(srv.URL).CheckProductStatus(context.Background(), "SKU-1", "HB-US", false)
	require.NoError(t, err)

	assert.Equal(t, "采购已到达", status.PurchaseStatus)
	assert.Equal(t, "2024-03-02 10:00:00", status.PurchaseTime)
	assert.Equal(t, "2024-03-06 10:00:00", status.ArrivalTime)
}

func TestCheckProductStatusStoreFilter(t *testing.T) {
	// 店铺不匹配的采购单不参与判断
	srv := (&productTestServer{
		purchase: purchaseOrdersFixture("2024-03-05 12:00:00"),
	}).start(t)
	defer srv.Close()

	status, err := newTestProductService(srv.URL).CheckProductStatus(context.Background(), "SKU-1", "BT-US", false)
	require.NoError(t, err)

	assert.Equal(t, "采购未下单", status.PurchaseStatus)
	assert.True(t, status.IsBorrowed)
}

func performanceFixture() map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"list": []map[string]interface{}{
				{
					"msku":        "SKU-1",
					"asin":        "B0TEST123",
					"seller_name": "HB-US",
					"volume":      120.0,
					"amount":      "2400.50",
					"order_items": 100.0,
					"gross_profit": 480.0,
					"gross_margin": 0.2,
					"spend":        150.0,
					"acos":         0.0625,
					"impressions":  50000.0,
					"clicks":       600.0,
					"return_goods_count": 3.0,
					"available_inventory": map[string]interface{}{
						"afn_fulfillable_quantity": 85.0,
						"reserved_fc_transfers":    10.0,
						"reserved_fc_processing":   5.0,
					},
					"cate_rank":       1520.0,
					"rank_category":   "Home & Kitchen",
					"small_cate_rank": []map[string]interface{}{{"rank": 12.0}},
				},
			},
		},
	}
}

func TestGetProductPerformance(t *testing.T) {
	srv := (&productTestServer{performance: performanceFixture()}).start(t)
	defer srv.Close()

	rec, err := newTestProductService(srv.URL).GetProductPerformance(context.Background(), "SKU-1", "2024-03-01", "2024-03-31")
	require.NoError(t, err)

	assert.Equal(t, "SKU-1", rec.MSKU)
	assert.Equal(t, "B0TEST123", rec.ASIN)
	assert.Equal(t, "HB-US", rec.StoreName)
	assert.Equal(t, 120.0, rec.Volume)
	assert.Equal(t, 2400.50, rec.SalesAmount)
	assert.Equal(t, 480.0, rec.GrossProfit)
	assert.Equal(t, 0.2, rec.GrossProfitRate)
	assert.Equal(t, 150.0, rec.AdSpend)
	assert.Equal(t, 85.0, rec.InventorySellable)
	assert.Equal(t, 15.0, rec.InventoryReserved)
	assert.Equal(t, 1520.0, rec.BigRank)
	assert.Equal(t, "Home & Kitchen", rec.RankCategoryName)
	assert.Equal(t, 12.0, rec.SmallRank)
	assert.Equal(t, "2024-03-01", rec.StartDate)
	assert.Equal(t, "2024-03-31", rec.EndDate)
}

func TestGetProductPerformanceSellerSKUFallback(t *testing.T) {
	// msku 精确匹配不到时扫 price_list 的 seller_sku
	fixture := map[string]interface{}{
		"data": map[string]interface{}{
			"list": []map[string]interface{}{
				{
					"msku":   "PARENT-SKU",
					"volume": 60.0,
					"price_list": []map[string]interface{}{
						{"seller_sku": "CHILD-SKU", "seller_name": "BT-US"},
					},
				},
			},
		},
	}
	srv := (&productTestServer{performance: fixture}).start(t)
	defer srv.Close()

	rec, err := newTestProductService(srv.URL).GetProductPerformance(context.Background(), "CHILD-SKU", "2024-03-01", "2024-03-31")
	require.NoError(t, err)

	// 命中后回填记录自身的 msku 和 price_list 里的店名
	assert.Equal(t, "PARENT-SKU", rec.MSKU)
	assert.Equal(t, "BT-US", rec.StoreName)
	assert.Equal(t, 60.0, rec.Volume)
}

func TestGetProductPerformanceEmptyResponse(t *testing.T) {
	srv := (&productTestServer{
		performance: map[string]interface{}{"code": 0, "msg": "ok"},
	}).start(t)
	defer srv.Close()

	_, err := newTestProductService(srv.URL).GetProductPerformance(context.Background(), "SKU-1", "2024-03-01", "2024-03-31")

	var lookup *PerformanceLookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, "SKU-1", lookup.MSKU)
	assert.Equal(t, []string{"code", "msg"}, lookup.DebugResponseKeys)
	assert.Empty(t, lookup.DebugDataKeys)
}

func TestGetProductPerformanceEmptyDataBlock(t *testing.T) {
	// data 块存在但列表为空时，排查信息带上 data 里的键
	srv := (&productTestServer{
		performance: map[string]interface{}{
			"code": 0,
			"data": map[string]interface{}{"list": []interface{}{}, "total": 0},
		},
	}).start(t)
	defer srv.Close()

	_, err := newTestProductService(srv.URL).GetProductPerformance(context.Background(), "SKU-1", "2024-03-01", "2024-03-31")

	var lookup *PerformanceLookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, []string{"code", "data"}, lookup.DebugResponseKeys)
	assert.Equal(t, []string{"list", "total"}, lookup.DebugDataKeys)
}

func TestGetProductPerformanceMSKUNotMatched(t *testing.T) {
	srv := (&productTestServer{performance: performanceFixture()}).start(t)
	defer srv.Close()

	_, err := newTestProductService(srv.URL).GetProductPerformance(context.Background(), "OTHER-SKU", "2024-03-01", "2024-03-31")

	var lookup *PerformanceLookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, "在 1 条记录中未找到 MSKU", lookup.Message)
	assert.Equal(t, []string{"SKU-1"}, lookup.AvailableMSKUs)
}

package lingxing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultERPBaseURL = "https://erp.lingxing.com"
	defaultGatewayURL = "https://gw.lingxingerp.com"

	// 分页步长，接口返回不足一页即视为取完
	defaultPageSize = 200
)

// APIError 非 200 响应。分页过程中出现会立即中止整个拉取。
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("请求失败: %d - %s", e.StatusCode, e.Body)
}

// Client 领星 ERP 网页端 API 客户端。一个登录会话对应一个实例，
// token 在构造时注入，所有请求共用同一组固定头。
type Client struct {
	http    *resty.Client
	token   string
	baseURL string // erp 域名
	gwURL   string // 网关域名
}

func NewClient(token string) *Client {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &Client{
		http:    client,
		token:   token,
		baseURL: defaultERPBaseURL,
		gwURL:   defaultGatewayURL,
	}
}

// SetBaseURLs 覆盖两个域名，测试时指向 mock 服务
func (c *Client) SetBaseURLs(erpBase, gateway string) {
	if erpBase != "" {
		c.baseURL = erpBase
	}
	if gateway != "" {
		c.gwURL = gateway
	}
}

// 网页端抓包得到的固定头，所有业务请求都要带上
func (c *Client) headers() map[string]string {
	return map[string]string{
		"accept":              "application/json, text/plain, */*",
		"accept-language":     "zh-CN,zh;q=0.9",
		"ak-client-type":      "web",
		"auth-token":          c.token,
		"content-type":        "application/json;charset=UTF-8",
		"user-agent":          "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36",
		"x-ak-company-id":     "901217529031491584",
		"x-ak-env-key":        "SAAS-101",
		"x-ak-platform":       "1",
		"x-ak-request-source": "erp",
		"x-ak-uid":            "10431785",
		"x-ak-version":        "3.7.1.3.0.004",
		"x-ak-zid":            "10330128",
	}
}

func (c *Client) post(ctx context.Context, fullURL string, body interface{}) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.headers()).
		SetBody(body).
		Post(fullURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return resp.Body(), nil
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.headers()).
		Get(fullURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return resp.Body(), nil
}

func (c *Client) postMap(ctx context.Context, fullURL string, body interface{}) (map[string]interface{}, error) {
	payload, err := c.post(ctx, fullURL, body)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	return result, nil
}

// extractFunc 从单页响应中取出记录数组。各端点的嵌套路径不同，
// 路径缺失按空页处理而不是报错。
type extractFunc func(payload []byte) []Record

func recordsAt(keys ...string) extractFunc {
	return func(payload []byte) []Record {
		var m map[string]interface{}
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil
		}
		return DigRecords(m, keys...)
	}
}

var (
	extractDataRecords  = recordsAt("data", "records")
	extractList         = recordsAt("list")
	extractDataList     = recordsAt("data", "list")
	extractDataPlanList = recordsAt("data", "plan_list")
)

// fetchAllPages offset/length 翻页拉全量。接口不返回总数，
// 以"返回条数小于请求条数"作为结束信号（包括 0 条）。
func (c *Client) fetchAllPages(ctx context.Context, fullURL string, body map[string]interface{}, extract extractFunc) ([]Record, error) {
	offset := 0
	length := defaultPageSize
	var all []Record

	for {
		body["offset"] = offset
		body["length"] = length

		payload, err := c.post(ctx, fullURL, body)
		if err != nil {
			return nil, err
		}

		records := extract(payload)
		all = append(all, records...)

		if len(records) < length {
			break
		}
		offset += length
	}
	return all, nil
}

// GetProfitData 拉取利润报表并按店铺归并，返回每店一条聚合记录
func (c *Client) GetProfitData(ctx context.Context, startDate, endDate string) ([]Record, error) {
	body := map[string]interface{}{
		"startDate":           startDate,
		"endDate":             endDate,
		"offset":              0,
		"length":              defaultPageSize,
		"mids":                []string{},
		"sids":                []string{},
		"currencyCode":        "",
		"sellerPrincipalUids": []string{},
		"sortField":           "totalSalesQuantity",
		"sortType":            "desc",
		"isDisplayByDate":     "month",
		"version":             nil,
		"listingTagIds":       []string{},
		"isMonthly":           true,
		"orderStatus":         "DisbursedAndPreSettled",
		"transactionStatus":   []string{},
		"req_time_sequence":   "/bd/profit/report/report/seller/list$$13",
	}

	records, err := c.fetchAllPages(ctx, c.gwURL+"/bd/profit/report/report/seller/list", body, extractDataRecords)
	if err != nil {
		return nil, err
	}
	return aggregateByStore(records), nil
}

// GetPurchasePlan 采购计划列表
func (c *Client) GetPurchasePlan(ctx context.Context, startDate, endDate string) ([]Record, error) {
	body := map[string]interface{}{
		"offset":             0,
		"length":             defaultPageSize,
		"sort_field":         "creator_time",
		"sort_type":          "desc",
		"status":             "-2",
		"country_code":       []string{},
		"sids":               []string{},
		"wids":               []string{},
		"search_field_time":  "creator_time",
		"search_field":       "sku",
		"search_value":       "",
		"senior_search_list": "[]",
		"start_date":         startDate,
		"end_date":           endDate,
		"req_time_sequence":  "/api/purchase/planListsNew$$4",
	}
	return c.fetchAllPages(ctx, c.baseURL+"/api/purchase/planListsNew", body, extractList)
}

// GetDeliveryPlan 发货计划列表
func (c *Client) GetDeliveryPlan(ctx context.Context, startDate, endDate string) ([]Record, error) {
	body := map[string]interface{}{
		"receive_warehouse_type": "1",
		"search_field_time":      "gmt_create",
		"start_date":             startDate,
		"end_date":               endDate,
		"offset":                 0,
		"length":                 defaultPageSize,
		"req_time_sequence":      "/api/fba_plan/planGroupList$$2",
	}
	return c.fetchAllPages(ctx, c.baseURL+"/api/fba_plan/planGroupList", body, extractDataPlanList)
}

// GetFBAOut FBA 出入库流水（类型 37/65 为出库）
func (c *Client) GetFBAOut(ctx context.Context, startDate, endDate string) ([]Record, error) {
	body := map[string]interface{}{
		"start_date":          startDate,
		"end_date":            endDate,
		"statement_type_list": "37,65",
		"offset":              0,
		"length":              defaultPageSize,
		"sort_field":          "opt_time",
		"sort_type":           "desc",
		"req_time_sequence":   "/api/storage/statement$$6",
	}
	return c.fetchAllPages(ctx, c.baseURL+"/api/storage/statement", body, extractDataList)
}

// GetFBAInventory FBA 库存周转汇总，日期参数为 YYYY-MM 月份
func (c *Client) GetFBAInventory(ctx context.Context, startMonth, endMonth, wid string) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"dispositionType":   "all",
		"orderDataType":     "0",
		"startDate":         startMonth,
		"endDate":           endMonth,
		"wids":              []string{wid},
		"uid":               "10431785",
		"req_time_sequence": "/cost/center/api/fba/gather/v2/query$$3",
	}
	return c.postMap(ctx, c.gwURL+"/cost/center/api/fba/gather/v2/query", body)
}

// GetLocalInventory 本地仓库存周转明细（GET 接口）
func (c *Client) GetLocalInventory(ctx context.Context, startDate, endDate, sid string) (map[string]interface{}, error) {
	query := url.Values{}
	query.Set("filter_zero_storage", "0")
	query.Set("offset", "0")
	query.Set("length", "20")
	query.Set("start_date", startDate)
	query.Set("end_date", endDate)
	query.Set("sort_type", "desc")
	query.Set("sid_list", sid)
	query.Set("req_time_sequence", "/api/inventory_report/localQuantityDetailList$$6")

	payload, err := c.get(ctx, c.baseURL+"/api/inventory_report/localQuantityDetailList?"+query.Encode())
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	return result, nil
}

// GetPurchaseOrders 按 SKU 查采购单
func (c *Client) GetPurchaseOrders(ctx context.Context, sku string) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"offset":            0,
		"length":            defaultPageSize,
		"search_field":      "sku",
		"search_value":      sku,
		"sort_field":        "order_time",
		"sort_type":         "desc",
		"req_time_sequence": "/api/purchase/lists$$3",
	}
	return c.postMap(ctx, c.baseURL+"/api/purchase/lists", body)
}

// GetProcessingOrders 按 SKU 查加工单
func (c *Client) GetProcessingOrders(ctx context.Context, sku string) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"offset":            0,
		"length":            defaultPageSize,
		"search_field":      "sku",
		"search_value":      sku,
		"sort_field":        "create_time",
		"sort_type":         "desc",
		"req_time_sequence": "/api/storage_process/lists$$2",
	}
	return c.postMap(ctx, c.baseURL+"/api/storage_process/lists", body)
}

// GetOverseaPlan 按 MSKU 查海外仓发货计划
func (c *Client) GetOverseaPlan(ctx context.Context, msku string) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"offset":            0,
		"length":            defaultPageSize,
		"search_field":      "msku",
		"search_value":      msku,
		"sort_field":        "gmt_create",
		"sort_type":         "asc",
		"req_time_sequence": "/api/oversea/shipment/planList$$2",
	}
	return c.postMap(ctx, c.baseURL+"/api/oversea/shipment/planList", body)
}

// GetShipmentBatches 按 MSKU 查发货批次
func (c *Client) GetShipmentBatches(ctx context.Context, msku string) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"offset":            0,
		"length":            defaultPageSize,
		"search_field":      "msku",
		"search_value":      msku,
		"sort_field":        "shipment_time",
		"sort_type":         "asc",
		"req_time_sequence": "/api/fba_dispatch/batchList$$2",
	}
	return c.postMap(ctx, c.baseURL+"/api/fba_dispatch/batchList", body)
}

// GetProductPerformance 按 MSKU 查产品表现
func (c *Client) GetProductPerformance(ctx context.Context, startDate, endDate, msku string) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"startDate":         startDate,
		"endDate":           endDate,
		"offset":            0,
		"length":            defaultPageSize,
		"searchField":       "msku",
		"searchValue":       msku,
		"req_time_sequence": "/bd/productPerformance/performanceList$$2",
	}
	return c.postMap(ctx, c.gwURL+"/bd/productPerformance/performanceList", body)
}

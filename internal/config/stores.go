package config

import "strings"

// Store 店铺静态配置：店名 + 仓库WID + 店铺SID + 负责人
type Store struct {
	Name        string
	WarehouseID string // 部分店铺没有独立仓库，WID 为空
	SellerID    string
	Manager     string
}

// 店铺表按录入顺序排列，模糊匹配取第一个命中项，顺序不能变
var stores = []Store{
	{Name: "BT-US", WarehouseID: "507381", SellerID: "505674", Manager: "陈钰"},
	{Name: "BT-CA", WarehouseID: "507382", SellerID: "505675", Manager: "陈钰"},
	{Name: "AC-US", WarehouseID: "506304", SellerID: "504758", Manager: "郑海燕"},
	{Name: "AC-CA", WarehouseID: "506305", SellerID: "504759", Manager: "郑海燕"},
	{Name: "JPD-JP", WarehouseID: "507196", SellerID: "505540", Manager: "何清霞"},
	{Name: "JPE-JP", WarehouseID: "507352", SellerID: "505654", Manager: "何清霞"},
	{Name: "BN-US", WarehouseID: "507188", SellerID: "505533", Manager: "林琳"},
	{Name: "BN-CA", WarehouseID: "507189", SellerID: "505534", Manager: "林琳"},
	{Name: "DK-UK", WarehouseID: "508977", SellerID: "517160", Manager: "唐盈婷"},
	{Name: "DK-IT", WarehouseID: "506313", SellerID: "504767", Manager: "唐盈婷"},
	{Name: "HB-US", WarehouseID: "506307", SellerID: "504761", Manager: "杨莹"},
	{Name: "HB-CA", WarehouseID: "506308", SellerID: "504762", Manager: "杨莹"},
	{Name: "DK-DE", WarehouseID: "504768", SellerID: "506314", Manager: "黄雨欣"},
	{Name: "DK-FR", WarehouseID: "504769", SellerID: "506315", Manager: "黄雨欣"},
	{Name: "OP-UK", WarehouseID: "504704", SellerID: "506237", Manager: "刘燕菲"},
	{Name: "YM-JP", WarehouseID: "516436", SellerID: "520747", Manager: "徐晓樱"},
	{Name: "OP-FR", WarehouseID: "504707", SellerID: "506240", Manager: "111"},
	{Name: "OP-IT", WarehouseID: "504705", SellerID: "506238", Manager: "111"},
	{Name: "YM—UK", WarehouseID: "", SellerID: "507063", Manager: "111"},
	{Name: "YM—DE", WarehouseID: "", SellerID: "507065", Manager: "111"},
}

// Stores 返回全量店铺配置（按录入顺序）
func Stores() []Store {
	out := make([]Store, len(stores))
	copy(out, stores)
	return out
}

// StoreNames 返回全部店名（按录入顺序）
func StoreNames() []string {
	names := make([]string, 0, len(stores))
	for _, s := range stores {
		names = append(names, s.Name)
	}
	return names
}

// ResolveStore 解析店名：先精确匹配，再做大写子串模糊匹配。
// 模糊匹配按表顺序取第一个命中项，比如 "US" 会命中 BT-US 而不是更像的名字。
func ResolveStore(name string) (Store, bool) {
	for _, s := range stores {
		if s.Name == name {
			return s, true
		}
	}
	upper := strings.ToUpper(name)
	for _, s := range stores {
		if strings.Contains(strings.ToUpper(s.Name), upper) {
			return s, true
		}
	}
	return Store{}, false
}

// IsBatchFilter 判断是否为批量查询（ALL 开头，大小写不敏感）
func IsBatchFilter(filter string) bool {
	return strings.HasPrefix(strings.ToUpper(filter), "ALL")
}

// MatchFilter 按 ALL 规则展开批量过滤器：
// "ALL" 匹配全部店铺，"ALL-US" 匹配以 -US 结尾的店铺。
func MatchFilter(filter string) []string {
	suffix := strings.Replace(strings.ToUpper(filter), "ALL", "", 1)
	var matched []string
	for _, s := range stores {
		if suffix == "" || strings.HasSuffix(s.Name, suffix) {
			matched = append(matched, s.Name)
		}
	}
	return matched
}

package report

import (
	"fmt"

	"lingxing-analyst/internal/services"

	"github.com/xuri/excelize/v2"
)

const sheetName = "店铺分析"

var reportHeaders = []string{
	"店铺", "年", "月", "GMV",
	"毛利率", "头程费用率", "仓储费率", "成本率", "尾程费用率", "营销费率", "平台佣金率",
	"采购计划量", "发货计划量", "FBA实际出库量", "FBA周转天数", "本地周转天数",
}

// WriteBatchReport 把批量分析结果导出为 xlsx，每店一行
func WriteBatchReport(path string, result *services.BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	for i, header := range reportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
	}

	for rowIdx, m := range result.Details {
		values := []interface{}{
			m.StoreName, m.Year, m.Month, m.GMV,
			m.GrossProfitRate, m.HeadTripCostRate, m.StorageFeeRate, m.CogsRate,
			m.TailTripRate, m.MarketingRate, m.CommissionRate,
			m.PurchasePlanQty, m.DeliveryPlanQty, m.FBAActualOutQty,
			turnoverCell(m.FBATurnoverDays), turnoverCell(m.LocalTurnoverDays),
		}
		for colIdx, v := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存报表失败: %w", err)
	}
	return nil
}

func turnoverCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

// Package report renders budget execution workbooks.
package report

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of generated workbooks
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	summarySheet   = "Кошторис"
	contractsSheet = "Договори"
)

var summaryHeaders = []string{
	"КЕКВ", "Назва", "Заплановано", "Залишок асигнувань", "Законтрактовано", "Використано", "Оплачено", "Виконання, %",
}

var contractHeaders = []string{
	"Реєстровий номер", "Номер", "Контрагент", "Код ДК", "КЕКВ", "Тип", "Статус", "Сума", "Використано", "Оплачено", "Початок", "Кінець",
}

// BudgetWorkbook renders the statistics of a budget and its contracts as an xlsx file
func BudgetWorkbook(stats *domain.BudgetStatisticsDTO, contracts []domain.ContractDTO) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(contractsSheet); err != nil {
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	title := fmt.Sprintf("%s (%d)", stats.BudgetName, stats.Year)
	if err := f.SetCellValue(summarySheet, "A1", title); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A1", bold); err != nil {
		return nil, err
	}

	if err := writeRow(f, summarySheet, 3, toCells(summaryHeaders)); err != nil {
		return nil, err
	}
	row := 4
	for _, k := range stats.ByKekv {
		if err := writeRow(f, summarySheet, row, breakdownCells(k.KekvCode, k.KekvName, k.AmountBreakdownDTO)); err != nil {
			return nil, err
		}
		row++
	}
	if err := writeRow(f, summarySheet, row, breakdownCells("Разом", "", stats.Totals)); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(summarySheet, row, row, bold); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(summarySheet, 3, 3, bold); err != nil {
		return nil, err
	}

	if err := writeRow(f, contractsSheet, 1, toCells(contractHeaders)); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(contractsSheet, 1, 1, bold); err != nil {
		return nil, err
	}
	for i, c := range contracts {
		cells := []interface{}{
			c.RegistryNumber, c.Number, c.Contractor, c.DkCode, c.KekvCode,
			string(c.ContractType), string(c.Status),
			money(c.Amount), money(c.UsedAmount), money(c.PaidAmount),
			c.StartDate, c.EndDate,
		}
		if err := writeRow(f, contractsSheet, i+2, cells); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(summarySheet, "B", "B", 40); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(contractsSheet, "C", "C", 40); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

// FileName is the stored name of a budget workbook
func FileName(stats *domain.BudgetStatisticsDTO) string {
	return fmt.Sprintf("budget_%d_%s.xlsx", stats.Year, stats.BudgetID.String()[:8])
}

func breakdownCells(code, name string, b domain.AmountBreakdownDTO) []interface{} {
	return []interface{}{
		code, name,
		money(b.Planned), money(b.Remaining), money(b.Contracted), money(b.Used), money(b.Paid),
		money(b.ExecutionPercent),
	}
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// money converts to float for spreadsheet arithmetic; amounts carry two places
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

package main

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"wrench/internal/audit"
)

// handleExportInventory exports the (optionally filtered) inventory list to
// CSV or Excel.
func handleExportInventory(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	items, ok := listInventory(w, r)
	if !ok {
		return
	}

	headers := []string{"ID", "Name", "Part Number", "Category", "Cost Price", "Retail Price", "Quantity", "Threshold", "Stock Level", "Location"}
	var data [][]string
	for _, i := range items {
		data = append(data, []string{
			i.ID, i.Name, i.PartNumber, i.Category,
			i.CostPrice.String(), i.RetailPrice.String(),
			strconv.Itoa(i.Quantity), strconv.Itoa(i.LowStockThreshold),
			i.StockLevel, i.Location,
		})
	}

	logAudit(getUsername(r), audit.ActionExport, "inventory", "", fmt.Sprintf("Exported %d items as %s", len(data), format))

	if format == "xlsx" {
		exportExcel(w, "Inventory", headers, data)
	} else {
		exportCSV(w, "inventory.csv", headers, data)
	}
}

func exportCSV(w http.ResponseWriter, filename string, headers []string, data [][]string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	cw := csv.NewWriter(w)
	cw.Write(headers)
	for _, row := range data {
		cw.Write(row)
	}
	cw.Flush()
}

func exportExcel(w http.ResponseWriter, sheetName string, headers []string, data [][]string) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		http.Error(w, "Failed to create Excel sheet", 500)
		return
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		http.Error(w, "Failed to create header style", 500)
		return
	}

	for i, header := range headers {
		cell := fmt.Sprintf("%s1", string(rune('A'+i)))
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range data {
		for colIdx, value := range row {
			cell := fmt.Sprintf("%s%d", string(rune('A'+colIdx)), rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range headers {
		col := string(rune('A' + i))
		f.SetColWidth(sheetName, col, col, 15)
	}

	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", strings.ToLower(sheetName)))

	if err := f.Write(w); err != nil {
		http.Error(w, "Failed to write Excel file", 500)
	}
}

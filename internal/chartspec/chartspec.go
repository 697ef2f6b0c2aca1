// Package chartspec builds the Sheets API requests that embed analytics
// charts next to their source tables on the Charts & Analysis worksheet.
//
// The worksheet layout is fixed: the category table anchors at row 3, the
// balance trend table at row 15, and the monthly table at row 30. Each
// chart reads one table and overlays the cell to its right.
package chartspec

import (
	sheetsapi "google.golang.org/api/sheets/v4"
)

// 1-based worksheet rows of the three table blocks. Each block is a title
// row, a blank row, a header row, then data.
const (
	categoryTitleRow = 1
	categoryTableRow = 3

	trendTitleRow = 15
	trendTableRow = trendTitleRow + 2

	monthlyTitleRow = 30
	monthlyTableRow = monthlyTitleRow + 2
)

const (
	chartWidthPixels  = 500
	chartHeightPixels = 300

	legendRight = "RIGHT_LEGEND"
)

// PieChart charts expense totals per category. endRow is the exclusive
// 0-based grid row one past the last data row of the category table.
func PieChart(sheetID, endRow int64) *sheetsapi.Request {
	return &sheetsapi.Request{
		AddChart: &sheetsapi.AddChartRequest{
			Chart: &sheetsapi.EmbeddedChart{
				Spec: &sheetsapi.ChartSpec{
					Title: "Expenses by Category",
					PieChart: &sheetsapi.PieChartSpec{
						LegendPosition: legendRight,
						Domain:         columnData(sheetID, categoryTableRow, endRow, 0),
						Series:         columnData(sheetID, categoryTableRow, endRow, 1),
					},
				},
				Position: overlayAt(sheetID, 2, 4),
			},
		},
	}
}

// LineChart charts the running balance over time. startRow is the 1-based
// title row of the trend table; endRow is the exclusive 0-based grid row
// one past the last data row.
func LineChart(sheetID, startRow, endRow int64) *sheetsapi.Request {
	return &sheetsapi.Request{
		AddChart: &sheetsapi.AddChartRequest{
			Chart: &sheetsapi.EmbeddedChart{
				Spec: &sheetsapi.ChartSpec{
					Title: "Balance Over Time",
					BasicChart: &sheetsapi.BasicChartSpec{
						ChartType:      "LINE",
						LegendPosition: legendRight,
						Axis: []*sheetsapi.BasicChartAxis{
							{Position: "BOTTOM_AXIS", Title: "Date"},
							{Position: "LEFT_AXIS", Title: "Balance ($)"},
						},
						Domains: []*sheetsapi.BasicChartDomain{
							{Domain: columnData(sheetID, startRow+2, endRow, 0)},
						},
						Series: []*sheetsapi.BasicChartSeries{
							{Series: columnData(sheetID, startRow+2, endRow, 1), TargetAxis: "LEFT_AXIS"},
						},
					},
				},
				Position: overlayAt(sheetID, 22, 4),
			},
		},
	}
}

// ColumnChart charts income against expenses per month. startRow is the
// 1-based title row of the monthly table; endRow is the exclusive 0-based
// grid row one past the last data row.
func ColumnChart(sheetID, startRow, endRow int64) *sheetsapi.Request {
	return &sheetsapi.Request{
		AddChart: &sheetsapi.AddChartRequest{
			Chart: &sheetsapi.EmbeddedChart{
				Spec: &sheetsapi.ChartSpec{
					Title: "Monthly Income vs Expenses",
					BasicChart: &sheetsapi.BasicChartSpec{
						ChartType:      "COLUMN",
						LegendPosition: legendRight,
						Axis: []*sheetsapi.BasicChartAxis{
							{Position: "BOTTOM_AXIS", Title: "Month"},
							{Position: "LEFT_AXIS", Title: "Amount ($)"},
						},
						Domains: []*sheetsapi.BasicChartDomain{
							{Domain: columnData(sheetID, startRow+2, endRow, 0)},
						},
						Series: []*sheetsapi.BasicChartSeries{
							{Series: columnData(sheetID, startRow+2, endRow, 1), TargetAxis: "LEFT_AXIS"},
							{Series: columnData(sheetID, startRow+2, endRow, 2), TargetAxis: "LEFT_AXIS"},
						},
					},
				},
				Position: overlayAt(sheetID, 42, 4),
			},
		},
	}
}

// DeleteChart removes one embedded chart by ID.
func DeleteChart(chartID int64) *sheetsapi.Request {
	return &sheetsapi.Request{
		DeleteEmbeddedObject: &sheetsapi.DeleteEmbeddedObjectRequest{
			ObjectId: chartID,
		},
	}
}

// columnData points a chart at a single column slice of a table.
func columnData(sheetID, startRow, endRow, column int64) *sheetsapi.ChartData {
	return &sheetsapi.ChartData{
		SourceRange: &sheetsapi.ChartSourceRange{
			Sources: []*sheetsapi.GridRange{{
				SheetId:          sheetID,
				StartRowIndex:    startRow,
				EndRowIndex:      endRow,
				StartColumnIndex: column,
				EndColumnIndex:   column + 1,
			}},
		},
	}
}

func overlayAt(sheetID, rowIndex, columnIndex int64) *sheetsapi.EmbeddedObjectPosition {
	return &sheetsapi.EmbeddedObjectPosition{
		OverlayPosition: &sheetsapi.OverlayPosition{
			AnchorCell: &sheetsapi.GridCoordinate{
				SheetId:     sheetID,
				RowIndex:    rowIndex,
				ColumnIndex: columnIndex,
			},
			WidthPixels:  chartWidthPixels,
			HeightPixels: chartHeightPixels,
		},
	}
}

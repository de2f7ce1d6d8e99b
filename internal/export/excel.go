package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/models"
	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/series"
)

// MeasurementHeader 原始测量列表导出表头
var MeasurementHeader = []string{
	"ID",
	"Sensor",
	"Sensor Type",
	"Temperature",
	"Humidity",
	"Timestamp",
}

// SeriesHeader 时间序列导出表头
var SeriesHeader = []string{
	"Sensor",
	"Timestamp",
	"Value",
}

// MeasurementsWorkbook 生成原始测量列表的 Excel 文件。
// 展示语义与列表页一致：缺失的温度/湿度留空，
// 无法解析的时间戳按原始字符串导出
func MeasurementsWorkbook(measurements []models.Measurement) ([]byte, error) {
	f, sheetName, err := newWorkbook("Measurements", MeasurementHeader)
	if err != nil {
		return nil, err
	}

	for rowIdx, m := range measurements {
		row := rowIdx + 2 // 第1行是表头
		values := []interface{}{
			m.ID,
			m.SensorName,
			string(m.SensorType),
			optionalValue(m.Temperature),
			optionalValue(m.Humidity),
			m.Timestamp,
		}
		if err := writeRow(f, sheetName, row, values); err != nil {
			f.Close()
			return nil, err
		}
	}

	return finish(f, sheetName)
}

// SeriesWorkbook 生成单个维度时间序列的 Excel 文件，
// 行顺序与图表一致：序列按传感器列表顺序，点按时间升序
func SeriesWorkbook(metric series.Metric, list []series.Series) ([]byte, error) {
	f, sheetName, err := newWorkbook(sheetNameForMetric(metric), SeriesHeader)
	if err != nil {
		return nil, err
	}

	row := 2
	for _, s := range list {
		for _, p := range s.Points {
			values := []interface{}{
				s.SensorName,
				p.Timestamp.Local().Format("2006-01-02 15:04:05"),
				p.Value,
			}
			if err := writeRow(f, sheetName, row, values); err != nil {
				f.Close()
				return nil, err
			}
			row++
		}
	}

	return finish(f, sheetName)
}

func sheetNameForMetric(metric series.Metric) string {
	if metric == series.MetricHumidity {
		return "Humidity"
	}
	return "Temperature"
}

// newWorkbook 创建单工作表文件并写入加粗表头
func newWorkbook(sheetName string, headers []string) (*excelize.File, string, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close(), WriteTo needs the file to be open

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, "", fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		f.Close()
		return nil, "", fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, "", fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, "", fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, "", fmt.Errorf("failed to set header style: %w", err)
		}
	}

	return f, sheetName, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, value := range values {
		if value == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to set cell value at %s: %w", cell, err)
		}
	}
	return nil
}

// finish 输出到内存并关闭文件
func finish(f *excelize.File, sheetName string) ([]byte, error) {
	// 冻结表头
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

// optionalValue 可选数值：缺失返回 nil（导出为空单元格）
func optionalValue(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

package models

import (
	"fmt"
	"time"
)

// Measurement 测量记录视图模型。Temperature/Humidity 为可选值，
// 缺失用 nil 表示（而不是 0），图表层据此区分"没报"和"报了 0"
type Measurement struct {
	ID          int        `json:"id"`
	SensorID    int        `json:"sensorId"`
	SensorName  string     `json:"sensorName"`
	SensorType  SensorType `json:"sensorType"`
	Temperature *float64   `json:"temperature,omitempty"`
	Humidity    *float64   `json:"humidity,omitempty"`
	// Timestamp 展示用字符串：解析成功时为本地时间格式化结果，
	// 解析失败时保留后端原始字符串
	Timestamp string `json:"timestamp"`
	// Date 解析后的时间。解析失败时退化为当前时间，仅用于保持可排序，
	// 原始列表展示不受影响
	Date time.Time `json:"date"`
}

// MeasurementDTO 创建测量请求体
type MeasurementDTO struct {
	SensorID    int      `json:"sensorId"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Timestamp   string   `json:"timestamp"`
}

// MeasurementResponseDTO 后端测量响应
type MeasurementResponseDTO struct {
	ID          int      `json:"id"`
	SensorID    int      `json:"sensorId"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Timestamp   string   `json:"timestamp"`
}

// 后端时间戳的候选格式，按出现频率排序
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp 解析后端时间戳。返回解析结果和是否成功
func ParseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MeasurementFromDTO 响应归一化：从传感器列表解析名称和类型，
// 解析时间戳；解析失败时展示原始字符串、Date 回退为当前时间
func MeasurementFromDTO(d MeasurementResponseDTO, sensors []Sensor) Measurement {
	m := Measurement{
		ID:          d.ID,
		SensorID:    d.SensorID,
		SensorName:  fmt.Sprintf("Sensor %d", d.SensorID),
		SensorType:  SensorTypeOutdoor,
		Temperature: d.Temperature,
		Humidity:    d.Humidity,
	}

	for _, s := range sensors {
		if s.ID == d.SensorID {
			m.SensorName = s.Name
			m.SensorType = s.Type
			break
		}
	}

	if t, ok := ParseTimestamp(d.Timestamp); ok {
		m.Date = t
		m.Timestamp = t.Local().Format("2006-01-02 15:04:05")
	} else {
		m.Date = time.Now()
		m.Timestamp = d.Timestamp
	}

	return m
}

// MeasurementsFromDTO 批量归一化，保持后端返回顺序
func MeasurementsFromDTO(dtos []MeasurementResponseDTO, sensors []Sensor) []Measurement {
	measurements := make([]Measurement, 0, len(dtos))
	for _, d := range dtos {
		measurements = append(measurements, MeasurementFromDTO(d, sensors))
	}
	return measurements
}

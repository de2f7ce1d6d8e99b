package series

import (
	"math"
	"sort"
	"time"

	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/models"
)

// Metric 图表度量维度。每个 Series 只承载一个维度，
// 避免某个传感器某一时刻只报温度不报湿度时在折线里强插空点
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
)

// Point 图表上的一个点
type Point struct {
	Timestamp time.Time
	Value     float64
}

// Series 单传感器、单维度的时间序列，点按时间升序排列
type Series struct {
	SensorID   int
	SensorName string
	Points     []Point
}

// 类型过滤后的传感器数量硬上限
const maxFilteredSensors = 10

// Build 把扁平的测量列表整理成按传感器分组的时间序列：
//
//  1. 测量列表为空直接返回空结果
//  2. 跳过该维度值缺失的测量，跳过传感器不在 sensors 里的测量
//  3. 按 sensorId 分组
//  4. 组内按时间升序排序，再丢弃值或时间非有限的点
//  5. 输出顺序跟随 sensors 列表，而不是分组插入顺序，
//     保证图例顺序稳定、不受后端返回顺序影响
//
// 没有任何存活点的传感器不产生 Series
func Build(measurements []models.Measurement, sensors []models.Sensor, metric Metric) []Series {
	if len(measurements) == 0 {
		return []Series{}
	}

	known := make(map[int]bool, len(sensors))
	for _, s := range sensors {
		known[s.ID] = true
	}

	bySensor := make(map[int][]Point)
	for _, m := range measurements {
		value := metricValue(m, metric)
		if value == nil {
			continue
		}
		if !known[m.SensorID] {
			continue
		}
		bySensor[m.SensorID] = append(bySensor[m.SensorID], Point{
			Timestamp: m.Date,
			Value:     *value,
		})
	}

	result := make([]Series, 0, len(bySensor))
	for _, s := range sensors {
		points := bySensor[s.ID]
		if len(points) == 0 {
			continue
		}
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Timestamp.Before(points[j].Timestamp)
		})

		kept := points[:0]
		for _, p := range points {
			if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			continue
		}
		result = append(result, Series{
			SensorID:   s.ID,
			SensorName: s.Name,
			Points:     kept,
		})
	}
	return result
}

func metricValue(m models.Measurement, metric Metric) *float64 {
	if metric == MetricHumidity {
		return m.Humidity
	}
	return m.Temperature
}

// FilterSensors 按类型过滤传感器。"all" 返回全部；
// 否则返回匹配的子序列，最多 10 个（第 10 个之后的传感器
// 不出现在图表里，也间接不产生 Series）
func FilterSensors(sensors []models.Sensor, sensorType string) []models.Sensor {
	if sensorType == "all" {
		return sensors
	}
	filtered := make([]models.Sensor, 0, maxFilteredSensors)
	for _, s := range sensors {
		if string(s.Type) != sensorType {
			continue
		}
		filtered = append(filtered, s)
		if len(filtered) == maxFilteredSensors {
			break
		}
	}
	return filtered
}

// 图表折线配色，按传感器 id 取模分配。传感器多于 10 个时允许撞色
var palette = []string{
	"#8b5cf6", "#3ca020", "#f59e0b", "#22c55e", "#ffffff",
	"#8b591b", "#ef4444", "#b51e0b", "#a51e6b", "#ffff2f",
}

// ColorForSensor 传感器 id 到调色板的确定性映射
func ColorForSensor(id int) string {
	if id < 0 {
		id = -id
	}
	return palette[id%len(palette)]
}

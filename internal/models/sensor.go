package models

import (
	"fmt"
	"strings"
)

// SensorType 传感器类型
type SensorType string

const (
	SensorTypeOutdoor SensorType = "outdoor"
	SensorTypeIndoor  SensorType = "indoor"
	SensorTypeWater   SensorType = "water"
)

// SensorTypes 全部合法的传感器类型（用于校验和 CLI 提示）
var SensorTypes = []SensorType{SensorTypeOutdoor, SensorTypeIndoor, SensorTypeWater}

// IsSensorType 判断字符串是否为合法的传感器类型
func IsSensorType(value string) bool {
	switch SensorType(value) {
	case SensorTypeOutdoor, SensorTypeIndoor, SensorTypeWater:
		return true
	}
	return false
}

// SensorStatus 传感器状态
type SensorStatus string

const (
	SensorStatusActive   SensorStatus = "active"
	SensorStatusInactive SensorStatus = "inactive"
)

// Sensor 传感器视图模型
type Sensor struct {
	ID     int          `json:"id"`
	Name   string       `json:"name"`
	Type   SensorType   `json:"type"`
	Status SensorStatus `json:"status"`
}

// SensorDTO 后端传感器响应
type SensorDTO struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

// UpdateSensorDTO 创建/更新传感器请求体
type UpdateSensorDTO struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

// SensorFromDTO 响应归一化：
// name 缺失时回退为 "Sensor <id>"，type 小写化且非法值回退为 outdoor，
// status 由 active 布尔值推导
func SensorFromDTO(d SensorDTO) Sensor {
	name := d.Name
	if name == "" {
		name = fmt.Sprintf("Sensor %d", d.ID)
	}

	typ := strings.ToLower(d.Type)
	if !IsSensorType(typ) {
		typ = string(SensorTypeOutdoor)
	}

	status := SensorStatusInactive
	if d.Active {
		status = SensorStatusActive
	}

	return Sensor{
		ID:     d.ID,
		Name:   name,
		Type:   SensorType(typ),
		Status: status,
	}
}

// SensorFromMutationDTO 创建/更新响应归一化：响应字段缺失或非法时回退到请求值
// （幂等性：对创建响应再做一次归一化必须得到同一个 Sensor）
func SensorFromMutationDTO(d SensorDTO, payload UpdateSensorDTO) Sensor {
	s := SensorFromDTO(d)
	if d.Name == "" && payload.Name != "" {
		s.Name = payload.Name
	}
	if !IsSensorType(strings.ToLower(d.Type)) && IsSensorType(strings.ToLower(payload.Type)) {
		s.Type = SensorType(strings.ToLower(payload.Type))
	}
	return s
}

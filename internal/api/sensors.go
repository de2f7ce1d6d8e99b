package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/models"
)

// ListSensors 获取全部传感器。200 返回归一化后的列表，204 返回空列表
func (c *Client) ListSensors(ctx context.Context) ([]models.Sensor, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/sensors")
	if err != nil {
		return nil, fmt.Errorf("failed to load sensors: %w", err)
	}
	if resp.StatusCode() == http.StatusNoContent {
		return []models.Sensor{}, nil
	}
	if !resp.IsSuccess() {
		return nil, apiError("load sensors", resp)
	}

	var dtos []models.SensorDTO
	if err := json.Unmarshal(resp.Body(), &dtos); err != nil {
		return nil, fmt.Errorf("failed to parse sensors response: %w", err)
	}

	sensors := make([]models.Sensor, 0, len(dtos))
	for _, d := range dtos {
		sensors = append(sensors, models.SensorFromDTO(d))
	}

	c.logger.Debug("Loaded sensors", zap.Int("count", len(sensors)))
	return sensors, nil
}

// CreateSensor 创建传感器，成功返回归一化后的新记录
// （响应字段缺失时回退到请求值，保证归一化幂等）
func (c *Client) CreateSensor(ctx context.Context, payload models.UpdateSensorDTO) (models.Sensor, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/sensors")
	if err != nil {
		return models.Sensor{}, fmt.Errorf("failed to create sensor: %w", err)
	}
	if !resp.IsSuccess() {
		return models.Sensor{}, apiError("create sensor", resp)
	}

	var dto models.SensorDTO
	if err := json.Unmarshal(resp.Body(), &dto); err != nil {
		return models.Sensor{}, fmt.Errorf("failed to parse create sensor response: %w", err)
	}
	return models.SensorFromMutationDTO(dto, payload), nil
}

// UpdateSensor 更新传感器
func (c *Client) UpdateSensor(ctx context.Context, id int, payload models.UpdateSensorDTO) (models.Sensor, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Put(fmt.Sprintf("/sensors/%d", id))
	if err != nil {
		return models.Sensor{}, fmt.Errorf("failed to update sensor: %w", err)
	}
	if !resp.IsSuccess() {
		return models.Sensor{}, apiError("update sensor", resp)
	}

	var dto models.SensorDTO
	if err := json.Unmarshal(resp.Body(), &dto); err != nil {
		return models.Sensor{}, fmt.Errorf("failed to parse update sensor response: %w", err)
	}
	if dto.ID == 0 {
		dto.ID = id
	}
	return models.SensorFromMutationDTO(dto, payload), nil
}

// DeleteSensor 删除传感器。200/204 视为成功
func (c *Client) DeleteSensor(ctx context.Context, id int) error {
	resp, err := c.http.R().SetContext(ctx).Delete(fmt.Sprintf("/sensors/%d", id))
	if err != nil {
		return fmt.Errorf("failed to delete sensor: %w", err)
	}
	if !resp.IsSuccess() {
		return apiError("delete sensor", resp)
	}
	return nil
}

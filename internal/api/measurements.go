package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/models"
)

// ListMeasurements 获取全部测量记录并按传感器列表归一化
// （名称/类型解析、时间戳解析）。200 返回列表，204 返回空列表
func (c *Client) ListMeasurements(ctx context.Context, sensors []models.Sensor) ([]models.Measurement, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/measurements")
	if err != nil {
		return nil, fmt.Errorf("failed to load measurements: %w", err)
	}
	if resp.StatusCode() == http.StatusNoContent {
		return []models.Measurement{}, nil
	}
	if !resp.IsSuccess() {
		return nil, apiError("load measurements", resp)
	}

	var dtos []models.MeasurementResponseDTO
	if err := json.Unmarshal(resp.Body(), &dtos); err != nil {
		return nil, fmt.Errorf("failed to parse measurements response: %w", err)
	}

	measurements := models.MeasurementsFromDTO(dtos, sensors)
	c.logger.Debug("Loaded measurements", zap.Int("count", len(measurements)))
	return measurements, nil
}

// CreateMeasurement 新增一条测量记录
func (c *Client) CreateMeasurement(ctx context.Context, payload models.MeasurementDTO) (models.MeasurementResponseDTO, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/measurements")
	if err != nil {
		return models.MeasurementResponseDTO{}, fmt.Errorf("failed to add measurement: %w", err)
	}
	if !resp.IsSuccess() {
		return models.MeasurementResponseDTO{}, apiError("add measurement", resp)
	}

	var dto models.MeasurementResponseDTO
	if err := json.Unmarshal(resp.Body(), &dto); err != nil {
		return models.MeasurementResponseDTO{}, fmt.Errorf("failed to parse add measurement response: %w", err)
	}
	return dto, nil
}

// DeleteMeasurement 删除一条测量记录。200/204 视为成功
func (c *Client) DeleteMeasurement(ctx context.Context, id int) error {
	resp, err := c.http.R().SetContext(ctx).Delete(fmt.Sprintf("/measurements/%d", id))
	if err != nil {
		return fmt.Errorf("failed to delete measurement: %w", err)
	}
	if !resp.IsSuccess() {
		return apiError("delete measurement", resp)
	}
	return nil
}

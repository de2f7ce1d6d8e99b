package dashboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/models"
	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/series"
	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/store"
)

// Tab 仪表盘页签
type Tab string

const (
	TabSensors      Tab = "sensors"
	TabMeasurements Tab = "measurements"
	TabUsers        Tab = "users"
)

// API 仪表盘依赖的后端操作集合，由 api.Client 实现；
// 测试里用 mock 替换
type API interface {
	ListSensors(ctx context.Context) ([]models.Sensor, error)
	CreateSensor(ctx context.Context, payload models.UpdateSensorDTO) (models.Sensor, error)
	UpdateSensor(ctx context.Context, id int, payload models.UpdateSensorDTO) (models.Sensor, error)
	DeleteSensor(ctx context.Context, id int) error
	ListMeasurements(ctx context.Context, sensors []models.Sensor) ([]models.Measurement, error)
	CreateMeasurement(ctx context.Context, payload models.MeasurementDTO) (models.MeasurementResponseDTO, error)
	DeleteMeasurement(ctx context.Context, id int) error
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id int, role models.UserRole) (models.User, error)
	DeleteUser(ctx context.Context, id int) error
	Login(ctx context.Context, username, password string) (models.AuthResponseDTO, error)
	Register(ctx context.Context, username, password string) (models.AuthResponseDTO, error)
}

// CanWrite 有效写权限：全局管理员标志直接放行（此时用户名单可能根本没加载），
// 否则按用户名在名单里找第一个匹配项，角色为 admin 才放行
func CanWrite(isAdmin bool, users []models.User, username string) bool {
	if isAdmin {
		return true
	}
	for _, u := range users {
		if u.Name == username {
			return u.Role == models.RoleAdmin
		}
	}
	return false
}

// Dashboard 仪表盘会话状态。持有各列表的唯一所有权：
// 每次加载整体替换，变更操作只在后端确认成功后才落到本地状态。
// 不做乐观更新，也不做自动重试
type Dashboard struct {
	api    API
	creds  store.CredentialStore
	logger *zap.Logger

	username  string
	isAdmin   bool
	activeTab Tab

	sensors      []models.Sensor
	users        []models.User
	measurements []models.Measurement

	// gen 加载代计数。登录/登出会换代，旧代的在途响应到达后直接丢弃
	//（对应"导航离开后迟到的响应必须是 no-op"）
	gen uint64
}

// New 创建仪表盘会话，从凭证存储恢复用户名和管理员标志
func New(apiClient API, creds store.CredentialStore, logger *zap.Logger) (*Dashboard, error) {
	username, err := creds.Username()
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	isAdmin, err := creds.IsAdmin()
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	return &Dashboard{
		api:       apiClient,
		creds:     creds,
		logger:    logger,
		username:  username,
		isAdmin:   isAdmin,
		activeTab: TabSensors,
	}, nil
}

// Username 当前会话用户名
func (d *Dashboard) Username() string { return d.username }

// IsAdmin 全局管理员标志
func (d *Dashboard) IsAdmin() bool { return d.isAdmin }

// LoggedIn 是否已有会话 token
func (d *Dashboard) LoggedIn() bool {
	token, err := d.creds.Token()
	return err == nil && token != ""
}

// Sensors 当前传感器列表
func (d *Dashboard) Sensors() []models.Sensor { return d.sensors }

// Users 当前用户名单
func (d *Dashboard) Users() []models.User { return d.users }

// Measurements 当前测量记录列表
func (d *Dashboard) Measurements() []models.Measurement { return d.measurements }

// Login 登录并持久化凭证（token、用户名、管理员标志作为一组写入）
func (d *Dashboard) Login(ctx context.Context, username, password string) error {
	resp, err := d.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return d.beginSession(username, resp)
}

// Register 注册，成功后的凭证处理与登录一致
func (d *Dashboard) Register(ctx context.Context, username, password string) error {
	resp, err := d.api.Register(ctx, username, password)
	if err != nil {
		return err
	}
	return d.beginSession(username, resp)
}

func (d *Dashboard) beginSession(username string, resp models.AuthResponseDTO) error {
	if resp.Token != "" {
		if err := d.creds.SetToken(resp.Token); err != nil {
			return fmt.Errorf("failed to persist token: %w", err)
		}
	}
	if err := d.creds.SetIsAdmin(resp.Admin); err != nil {
		return fmt.Errorf("failed to persist admin flag: %w", err)
	}
	if err := d.creds.SetUsername(username); err != nil {
		return fmt.Errorf("failed to persist username: %w", err)
	}

	d.username = username
	d.isAdmin = resp.Admin
	d.sensors = nil
	d.users = nil
	d.measurements = nil
	d.activeTab = TabSensors
	d.gen++

	d.logger.Info("Session started", zap.String("username", username), zap.Bool("admin", resp.Admin))
	return nil
}

// Logout 清除凭证并重置会话状态。之后到达的旧响应一律丢弃
func (d *Dashboard) Logout() error {
	if err := d.creds.Clear(); err != nil {
		return err
	}
	d.username = ""
	d.isAdmin = false
	d.sensors = nil
	d.users = nil
	d.measurements = nil
	d.activeTab = TabSensors
	d.gen++
	return nil
}

// Load 加载传感器列表；管理员会话同时加载用户名单
// （非管理员不拉名单，和界面一致）。最后做一次页签校正
func (d *Dashboard) Load(ctx context.Context) error {
	gen := d.gen

	sensors, err := d.api.ListSensors(ctx)
	if err != nil {
		return err
	}
	if gen != d.gen {
		return nil
	}
	d.sensors = sensors

	if d.isAdmin {
		users, err := d.api.ListUsers(ctx)
		if err != nil {
			return err
		}
		if gen != d.gen {
			return nil
		}
		d.users = users
	}

	d.ReconcileTab()
	return nil
}

// LoadMeasurements 加载测量记录，按当前传感器列表归一化
func (d *Dashboard) LoadMeasurements(ctx context.Context) error {
	gen := d.gen
	measurements, err := d.api.ListMeasurements(ctx, d.sensors)
	if err != nil {
		return err
	}
	if gen != d.gen {
		return nil
	}
	d.measurements = measurements
	return nil
}

// CanWrite 当前会话的有效写权限
func (d *Dashboard) CanWrite() bool {
	return CanWrite(d.isAdmin, d.users, d.username)
}

// Tabs 可见页签。用户管理页只对有写权限的会话开放
func (d *Dashboard) Tabs() []Tab {
	tabs := []Tab{TabSensors, TabMeasurements}
	if d.CanWrite() {
		tabs = append(tabs, TabUsers)
	}
	return tabs
}

// ActiveTab 当前页签
func (d *Dashboard) ActiveTab() Tab { return d.activeTab }

// SetActiveTab 切换页签。没有写权限时拒绝进入用户管理页
func (d *Dashboard) SetActiveTab(tab Tab) error {
	switch tab {
	case TabSensors, TabMeasurements:
		d.activeTab = tab
		return nil
	case TabUsers:
		if !d.CanWrite() {
			return fmt.Errorf("users tab requires write access")
		}
		d.activeTab = tab
		return nil
	default:
		return fmt.Errorf("unknown tab %q", tab)
	}
}

// ReconcileTab 权限变化后的页签校正：停留在用户管理页
// 但写权限已失效时，退回默认页签。CanWrite 的任何输入变化后都要调用
func (d *Dashboard) ReconcileTab() {
	if d.activeTab == TabUsers && !d.CanWrite() {
		d.activeTab = TabSensors
	}
}

// CreateSensor 创建传感器，确认成功后追加到本地列表
func (d *Dashboard) CreateSensor(ctx context.Context, payload models.UpdateSensorDTO) (models.Sensor, error) {
	gen := d.gen
	created, err := d.api.CreateSensor(ctx, payload)
	if err != nil {
		return models.Sensor{}, err
	}
	if gen == d.gen {
		d.sensors = append(d.sensors, created)
	}
	return created, nil
}

// UpdateSensor 更新传感器，确认成功后替换本地记录
func (d *Dashboard) UpdateSensor(ctx context.Context, id int, payload models.UpdateSensorDTO) (models.Sensor, error) {
	gen := d.gen
	updated, err := d.api.UpdateSensor(ctx, id, payload)
	if err != nil {
		return models.Sensor{}, err
	}
	if gen == d.gen {
		for i, s := range d.sensors {
			if s.ID == id {
				d.sensors[i] = updated
				break
			}
		}
	}
	return updated, nil
}

// DeleteSensor 删除传感器，确认成功后从本地列表剔除
func (d *Dashboard) DeleteSensor(ctx context.Context, id int) error {
	gen := d.gen
	if err := d.api.DeleteSensor(ctx, id); err != nil {
		return err
	}
	if gen == d.gen {
		d.sensors = removeSensor(d.sensors, id)
	}
	return nil
}

// AddMeasurement 新增测量记录，成功后整体重新加载列表
// （新记录的名称/类型/时间戳归一化走统一路径）
func (d *Dashboard) AddMeasurement(ctx context.Context, payload models.MeasurementDTO) error {
	if _, err := d.api.CreateMeasurement(ctx, payload); err != nil {
		return err
	}
	return d.LoadMeasurements(ctx)
}

// DeleteMeasurement 删除测量记录，确认成功后从本地列表剔除
func (d *Dashboard) DeleteMeasurement(ctx context.Context, id int) error {
	gen := d.gen
	if err := d.api.DeleteMeasurement(ctx, id); err != nil {
		return err
	}
	if gen == d.gen {
		kept := make([]models.Measurement, 0, len(d.measurements))
		for _, m := range d.measurements {
			if m.ID != id {
				kept = append(kept, m)
			}
		}
		d.measurements = kept
	}
	return nil
}

// SetUserRole 修改用户角色，成功后更新名单并做页签校正
// （改到自己头上时写权限可能随之消失）
func (d *Dashboard) SetUserRole(ctx context.Context, id int, role models.UserRole) (models.User, error) {
	gen := d.gen
	updated, err := d.api.UpdateUserRole(ctx, id, role)
	if err != nil {
		return models.User{}, err
	}
	if gen == d.gen {
		for i, u := range d.users {
			if u.ID == id {
				d.users[i] = updated
				break
			}
		}
		d.ReconcileTab()
	}
	return updated, nil
}

// DeleteUser 删除用户，成功后更新名单并做页签校正
func (d *Dashboard) DeleteUser(ctx context.Context, id int) error {
	gen := d.gen
	if err := d.api.DeleteUser(ctx, id); err != nil {
		return err
	}
	if gen == d.gen {
		kept := make([]models.User, 0, len(d.users))
		for _, u := range d.users {
			if u.ID != id {
				kept = append(kept, u)
			}
		}
		d.users = kept
		d.ReconcileTab()
	}
	return nil
}

// FilteredSensors 图表用的传感器子集（类型过滤 + 10 个上限）
func (d *Dashboard) FilteredSensors(sensorType string) []models.Sensor {
	return series.FilterSensors(d.sensors, sensorType)
}

// TemperatureSeries 当前数据的温度序列
func (d *Dashboard) TemperatureSeries(sensorType string) []series.Series {
	return series.Build(d.measurements, d.FilteredSensors(sensorType), series.MetricTemperature)
}

// HumiditySeries 当前数据的湿度序列
func (d *Dashboard) HumiditySeries(sensorType string) []series.Series {
	return series.Build(d.measurements, d.FilteredSensors(sensorType), series.MetricHumidity)
}

func removeSensor(sensors []models.Sensor, id int) []models.Sensor {
	kept := make([]models.Sensor, 0, len(sensors))
	for _, s := range sensors {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	return kept
}

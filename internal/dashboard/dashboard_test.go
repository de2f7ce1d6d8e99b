package dashboard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/models"
	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/store"
)

// MockAPI 是 API 的 mock 实现
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListSensors(ctx context.Context) ([]models.Sensor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Sensor), args.Error(1)
}

func (m *MockAPI) CreateSensor(ctx context.Context, payload models.UpdateSensorDTO) (models.Sensor, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(models.Sensor), args.Error(1)
}

func (m *MockAPI) UpdateSensor(ctx context.Context, id int, payload models.UpdateSensorDTO) (models.Sensor, error) {
	args := m.Called(ctx, id, payload)
	return args.Get(0).(models.Sensor), args.Error(1)
}

func (m *MockAPI) DeleteSensor(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPI) ListMeasurements(ctx context.Context, sensors []models.Sensor) ([]models.Measurement, error) {
	args := m.Called(ctx, sensors)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Measurement), args.Error(1)
}

func (m *MockAPI) CreateMeasurement(ctx context.Context, payload models.MeasurementDTO) (models.MeasurementResponseDTO, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(models.MeasurementResponseDTO), args.Error(1)
}

func (m *MockAPI) DeleteMeasurement(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPI) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockAPI) UpdateUserRole(ctx context.Context, id int, role models.UserRole) (models.User, error) {
	args := m.Called(ctx, id, role)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockAPI) DeleteUser(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPI) Login(ctx context.Context, username, password string) (models.AuthResponseDTO, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(models.AuthResponseDTO), args.Error(1)
}

func (m *MockAPI) Register(ctx context.Context, username, password string) (models.AuthResponseDTO, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(models.AuthResponseDTO), args.Error(1)
}

func newTestStore(t *testing.T) *store.FileStore {
	t.Helper()
	s, err := store.NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	require.NoError(t, err)
	return s
}

func newTestDashboard(t *testing.T, api *MockAPI, creds *store.FileStore) *Dashboard {
	t.Helper()
	d, err := New(api, creds, zap.NewNop())
	require.NoError(t, err)
	return d
}

func TestCanWrite(t *testing.T) {
	alice := models.User{ID: 1, Name: "alice", Role: models.RoleViewer}
	aliceAdmin := models.User{ID: 1, Name: "alice", Role: models.RoleAdmin}

	// 全局管理员标志短路：名单为空也放行
	assert.True(t, CanWrite(true, nil, "alice"))
	// 非管理员 + 名单命中 viewer → 拒绝
	assert.False(t, CanWrite(false, []models.User{alice}, "alice"))
	// 非管理员 + 名单命中 admin → 放行
	assert.True(t, CanWrite(false, []models.User{aliceAdmin}, "alice"))
	// 非管理员 + 名单无匹配 → 拒绝
	assert.False(t, CanWrite(false, nil, "alice"))
	assert.False(t, CanWrite(false, []models.User{aliceAdmin}, "bob"))
}

func TestLoad_AdminLoadsRoster(t *testing.T) {
	api := new(MockAPI)
	creds := newTestStore(t)
	require.NoError(t, creds.SetUsername("alice"))
	require.NoError(t, creds.SetIsAdmin(true))
	d := newTestDashboard(t, api, creds)

	sensors := []models.Sensor{{ID: 1, Name: "A", Type: models.SensorTypeOutdoor}}
	users := []models.User{{ID: 1, Name: "alice", Role: models.RoleViewer}}
	api.On("ListSensors", mock.Anything).Return(sensors, nil)
	api.On("ListUsers", mock.Anything).Return(users, nil)

	require.NoError(t, d.Load(context.Background()))
	assert.Equal(t, sensors, d.Sensors())
	assert.Equal(t, users, d.Users())
	api.AssertExpectations(t)
}

func TestLoad_NonAdminSkipsRoster(t *testing.T) {
	api := new(MockAPI)
	creds := newTestStore(t)
	require.NoError(t, creds.SetUsername("bob"))
	d := newTestDashboard(t, api, creds)

	api.On("ListSensors", mock.Anything).Return([]models.Sensor{}, nil)

	require.NoError(t, d.Load(context.Background()))
	api.AssertNotCalled(t, "ListUsers", mock.Anything)
}

func TestTabs_UsersTabOnlyForWriters(t *testing.T) {
	api := new(MockAPI)
	creds := newTestStore(t)
	require.NoError(t, creds.SetUsername("bob"))
	d := newTestDashboard(t, api, creds)

	assert.Equal(t, []Tab{TabSensors, TabMeasurements}, d.Tabs())
	assert.Error(t, d.SetActiveTab(TabUsers))

	// 名单里 bob 是 admin → 用户页签可见可进
	d.users = []models.User{{ID: 2, Name: "bob", Role: models.RoleAdmin}}
	assert.Equal(t, []Tab{TabSensors, TabMeasurements, TabUsers}, d.Tabs())
	require.NoError(t, d.SetActiveTab(TabUsers))
	assert.Equal(t, TabUsers, d.ActiveTab())
}

func TestSetActiveTab_UnknownTabRejected(t *testing.T) {
	d := newTestDashboard(t, new(MockAPI), newTestStore(t))
	assert.Error(t, d.SetActiveTab(Tab("settings")))
}

func TestSetUserRole_SelfDemotionLeavesUsersTab(t *testing.T) {
	api := new(MockAPI)
	creds := newTestStore(t)
	require.NoError(t, creds.SetUsername("bob"))
	d := newTestDashboard(t, api, creds)

	d.users = []models.User{{ID: 2, Name: "bob", Role: models.RoleAdmin}}
	require.NoError(t, d.SetActiveTab(TabUsers))

	demoted := models.User{ID: 2, Name: "bob", Role: models.RoleViewer}
	api.On("UpdateUserRole", mock.Anything, 2, models.RoleViewer).Return(demoted, nil)

	_, err := d.SetUserRole(context.Background(), 2, models.RoleViewer)
	require.NoError(t, err)

	// 写权限随角色变更消失，页签退回默认页
	assert.False(t, d.CanWrite())
	assert.Equal(t, TabSensors, d.ActiveTab())
}

func TestLogin_PersistsCredentialsAsSet(t *testing.T) {
	api := new(MockAPI)
	creds := newTestStore(t)
	d := newTestDashboard(t, api, creds)

	api.On("Login", mock.Anything, "alice", "pw").
		Return(models.AuthResponseDTO{Token: "tok-9", Admin: true}, nil)

	require.NoError(t, d.Login(context.Background(), "alice", "pw"))

	token, err := creds.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-9", token)
	username, err := creds.Username()
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
	isAdmin, err := creds.IsAdmin()
	require.NoError(t, err)
	assert.True(t, isAdmin)

	assert.Equal(t, "alice", d.Username())
	assert.True(t, d.IsAdmin())
	assert.True(t, d.LoggedIn())
}

func TestLogin_FailureLeavesStateUnchanged(t *testing.T) {
	api := new(MockAPI)
	creds := newTestStore(t)
	d := newTestDashboard(t, api, creds)

	api.On("Login", mock.Anything, "alice", "wrong").
		Return(models.AuthResponseDTO{}, errors.New("bad credentials"))

	require.Error(t, d.Login(context.Background(), "alice", "wrong"))
	assert.False(t, d.LoggedIn())
	assert.Empty(t, d.Username())
}

func TestLogout_ClearsCredentialsAndState(t *testing.T) {
	api := new(MockAPI)
	creds := newTestStore(t)
	d := newTestDashboard(t, api, creds)

	api.On("Login", mock.Anything, "alice", "pw").
		Return(models.AuthResponseDTO{Token: "tok", Admin: true}, nil)
	require.NoError(t, d.Login(context.Background(), "alice", "pw"))

	require.NoError(t, d.Logout())
	assert.False(t, d.LoggedIn())
	assert.Empty(t, d.Username())
	assert.False(t, d.IsAdmin())
	assert.Empty(t, d.Sensors())
	assert.Equal(t, TabSensors, d.ActiveTab())
}

func TestLoad_StaleResponseIsNoOp(t *testing.T) {
	// 响应在途时会话被登出（对应"离开页面后迟到的响应"）：结果直接丢弃
	api := new(MockAPI)
	creds := newTestStore(t)
	d := newTestDashboard(t, api, creds)

	sensors := []models.Sensor{{ID: 1, Name: "A", Type: models.SensorTypeOutdoor}}
	api.On("ListSensors", mock.Anything).
		Run(func(args mock.Arguments) {
			require.NoError(t, d.Logout())
		}).
		Return(sensors, nil)

	require.NoError(t, d.Load(context.Background()))
	assert.Empty(t, d.Sensors())
}

func TestDeleteSensor_MutatesOnlyOnSuccess(t *testing.T) {
	api := new(MockAPI)
	d := newTestDashboard(t, api, newTestStore(t))
	d.sensors = []models.Sensor{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}

	api.On("DeleteSensor", mock.Anything, 1).Return(errors.New("conflict")).Once()
	require.Error(t, d.DeleteSensor(context.Background(), 1))
	assert.Len(t, d.Sensors(), 2)

	api.On("DeleteSensor", mock.Anything, 1).Return(nil).Once()
	require.NoError(t, d.DeleteSensor(context.Background(), 1))
	require.Len(t, d.Sensors(), 1)
	assert.Equal(t, 2, d.Sensors()[0].ID)
}

func TestCreateAndUpdateSensor_UpdateLocalList(t *testing.T) {
	api := new(MockAPI)
	d := newTestDashboard(t, api, newTestStore(t))

	created := models.Sensor{ID: 3, Name: "New", Type: models.SensorTypeWater, Status: models.SensorStatusActive}
	payload := models.UpdateSensorDTO{Name: "New", Type: "water", Active: true}
	api.On("CreateSensor", mock.Anything, payload).Return(created, nil)

	got, err := d.CreateSensor(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, []models.Sensor{created}, d.Sensors())

	updated := created
	updated.Name = "Renamed"
	updatePayload := models.UpdateSensorDTO{Name: "Renamed", Type: "water", Active: true}
	api.On("UpdateSensor", mock.Anything, 3, updatePayload).Return(updated, nil)

	_, err = d.UpdateSensor(context.Background(), 3, updatePayload)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", d.Sensors()[0].Name)
}

func TestAddMeasurement_ReloadsList(t *testing.T) {
	api := new(MockAPI)
	d := newTestDashboard(t, api, newTestStore(t))

	payload := models.MeasurementDTO{SensorID: 1, Timestamp: "2025-06-01T10:00:00Z"}
	api.On("CreateMeasurement", mock.Anything, payload).
		Return(models.MeasurementResponseDTO{ID: 9, SensorID: 1}, nil)
	api.On("ListMeasurements", mock.Anything, mock.Anything).
		Return([]models.Measurement{{ID: 9, SensorID: 1}}, nil)

	require.NoError(t, d.AddMeasurement(context.Background(), payload))
	require.Len(t, d.Measurements(), 1)
	assert.Equal(t, 9, d.Measurements()[0].ID)
}

func TestDeleteMeasurement_FiltersLocalList(t *testing.T) {
	api := new(MockAPI)
	d := newTestDashboard(t, api, newTestStore(t))
	d.measurements = []models.Measurement{{ID: 1}, {ID: 2}}

	api.On("DeleteMeasurement", mock.Anything, 1).Return(nil)
	require.NoError(t, d.DeleteMeasurement(context.Background(), 1))
	require.Len(t, d.Measurements(), 1)
	assert.Equal(t, 2, d.Measurements()[0].ID)
}

func TestDeleteUser_UpdatesRosterAndReconciles(t *testing.T) {
	api := new(MockAPI)
	creds := newTestStore(t)
	require.NoError(t, creds.SetUsername("bob"))
	d := newTestDashboard(t, api, creds)

	d.users = []models.User{
		{ID: 2, Name: "bob", Role: models.RoleAdmin},
		{ID: 3, Name: "eve", Role: models.RoleViewer},
	}
	require.NoError(t, d.SetActiveTab(TabUsers))

	// 把自己删掉：名单里不再有 bob，写权限消失，页签退回
	api.On("DeleteUser", mock.Anything, 2).Return(nil)
	require.NoError(t, d.DeleteUser(context.Background(), 2))
	require.Len(t, d.Users(), 1)
	assert.Equal(t, TabSensors, d.ActiveTab())
}

func TestSeries_UseCurrentState(t *testing.T) {
	api := new(MockAPI)
	d := newTestDashboard(t, api, newTestStore(t))

	temp := 20.0
	hum := 50.0
	d.sensors = []models.Sensor{
		{ID: 1, Name: "A", Type: models.SensorTypeWater},
		{ID: 2, Name: "B", Type: models.SensorTypeIndoor},
	}
	d.measurements = []models.Measurement{
		{ID: 1, SensorID: 1, Temperature: &temp},
		{ID: 2, SensorID: 2, Humidity: &hum},
	}

	tempSeries := d.TemperatureSeries("all")
	require.Len(t, tempSeries, 1)
	assert.Equal(t, 1, tempSeries[0].SensorID)

	// 类型过滤把 water 传感器排除后，它的测量不再产生序列
	humSeries := d.HumiditySeries("indoor")
	require.Len(t, humSeries, 1)
	assert.Equal(t, 2, humSeries[0].SensorID)
	assert.Empty(t, d.TemperatureSeries("indoor"))
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/api"
	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/config"
	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/dashboard"
	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/export"
	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/logger"
	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/models"
	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/series"
	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/store"
)

const usage = `Usage: dashboard [-config file] <command> [options]

Commands:
  login        -u <username> -p <password>
  register     -u <username> -p <password>
  logout
  whoami
  sensors      list | create | update | delete
  measurements list | add | delete
  users        list | set-role | delete
  chart        -metric temperature|humidity [-type all|outdoor|indoor|water]
  export       -out <file.xlsx> [-metric raw|temperature|humidity] [-type ...]
`

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "dashboard-cli")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 凭证存储 + API 客户端 + 仪表盘会话
	creds, err := store.NewFileStore(cfg.Store.Path)
	if err != nil {
		log.Fatal("Failed to open credential store", zap.Error(err))
	}
	client := api.New(cfg.API.BaseURL, time.Duration(cfg.API.Timeout)*time.Second, creds, log)
	dash, err := dashboard.New(client, creds, log)
	if err != nil {
		log.Fatal("Failed to restore session", zap.Error(err))
	}

	ctx := context.Background()
	if err := run(ctx, dash, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dash *dashboard.Dashboard, args []string) error {
	switch args[0] {
	case "login":
		return runAuth(ctx, dash, args[1:], dash.Login)
	case "register":
		return runAuth(ctx, dash, args[1:], dash.Register)
	case "logout":
		if err := dash.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	case "whoami":
		if !dash.LoggedIn() {
			fmt.Println("Not logged in")
			return nil
		}
		fmt.Printf("%s (admin: %t)\n", dash.Username(), dash.IsAdmin())
		return nil
	case "sensors":
		return runSensors(ctx, dash, args[1:])
	case "measurements":
		return runMeasurements(ctx, dash, args[1:])
	case "users":
		return runUsers(ctx, dash, args[1:])
	case "chart":
		return runChart(ctx, dash, args[1:])
	case "export":
		return runExport(ctx, dash, args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runAuth(ctx context.Context, dash *dashboard.Dashboard, args []string, op func(context.Context, string, string) error) error {
	fs := flag.NewFlagSet("auth", flag.ContinueOnError)
	username := fs.String("u", "", "Username")
	password := fs.String("p", "", "Password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("username and password are required")
	}
	if err := op(ctx, *username, *password); err != nil {
		return err
	}
	fmt.Printf("Welcome, %s\n", dash.Username())
	return nil
}

func runSensors(ctx context.Context, dash *dashboard.Dashboard, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("sensors: missing subcommand (list|create|update|delete)")
	}

	switch args[0] {
	case "list":
		if err := dash.Load(ctx); err != nil {
			return err
		}
		for _, s := range dash.Sensors() {
			fmt.Printf("%d\t%s\t%s\t%s\n", s.ID, s.Name, s.Type, s.Status)
		}
		return nil
	case "create", "update":
		fs := flag.NewFlagSet("sensors "+args[0], flag.ContinueOnError)
		id := fs.Int("id", 0, "Sensor id (update only)")
		name := fs.String("name", "", "Sensor name")
		typ := fs.String("type", "outdoor", "Sensor type: outdoor|indoor|water")
		active := fs.Bool("active", true, "Sensor active flag")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *name == "" {
			return fmt.Errorf("sensor name is required")
		}
		if !models.IsSensorType(*typ) {
			return fmt.Errorf("invalid sensor type %q", *typ)
		}

		if err := dash.Load(ctx); err != nil {
			return err
		}
		payload := models.UpdateSensorDTO{Name: *name, Type: *typ, Active: *active}

		var sensor models.Sensor
		var err error
		if args[0] == "create" {
			sensor, err = dash.CreateSensor(ctx, payload)
		} else {
			if *id == 0 {
				return fmt.Errorf("sensor id is required")
			}
			sensor, err = dash.UpdateSensor(ctx, *id, payload)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%s\t%s\t%s\n", sensor.ID, sensor.Name, sensor.Type, sensor.Status)
		return nil
	case "delete":
		fs := flag.NewFlagSet("sensors delete", flag.ContinueOnError)
		id := fs.Int("id", 0, "Sensor id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == 0 {
			return fmt.Errorf("sensor id is required")
		}
		if err := dash.DeleteSensor(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("Deleted sensor %d\n", *id)
		return nil
	default:
		return fmt.Errorf("sensors: unknown subcommand %q", args[0])
	}
}

func runMeasurements(ctx context.Context, dash *dashboard.Dashboard, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("measurements: missing subcommand (list|add|delete)")
	}

	switch args[0] {
	case "list":
		if err := dash.Load(ctx); err != nil {
			return err
		}
		if err := dash.LoadMeasurements(ctx); err != nil {
			return err
		}
		for _, m := range dash.Measurements() {
			fmt.Printf("%d\t%s\t%s\t%s\t%s\n",
				m.ID, m.SensorName, formatValue(m.Temperature, "°C"),
				formatValue(m.Humidity, "%"), m.Timestamp)
		}
		return nil
	case "add":
		fs := flag.NewFlagSet("measurements add", flag.ContinueOnError)
		sensorID := fs.Int("sensor", 0, "Sensor id")
		temperature := fs.String("temperature", "", "Temperature (optional)")
		humidity := fs.String("humidity", "", "Humidity (optional)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *sensorID == 0 {
			return fmt.Errorf("sensor id is required")
		}

		payload := models.MeasurementDTO{
			SensorID:  *sensorID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		var err error
		if payload.Temperature, err = parseOptionalFloat(*temperature); err != nil {
			return fmt.Errorf("invalid temperature: %w", err)
		}
		if payload.Humidity, err = parseOptionalFloat(*humidity); err != nil {
			return fmt.Errorf("invalid humidity: %w", err)
		}

		if err := dash.Load(ctx); err != nil {
			return err
		}
		if err := dash.AddMeasurement(ctx, payload); err != nil {
			return err
		}
		fmt.Println("Measurement added")
		return nil
	case "delete":
		fs := flag.NewFlagSet("measurements delete", flag.ContinueOnError)
		id := fs.Int("id", 0, "Measurement id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == 0 {
			return fmt.Errorf("measurement id is required")
		}
		if err := dash.DeleteMeasurement(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("Deleted measurement %d\n", *id)
		return nil
	default:
		return fmt.Errorf("measurements: unknown subcommand %q", args[0])
	}
}

func runUsers(ctx context.Context, dash *dashboard.Dashboard, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("users: missing subcommand (list|set-role|delete)")
	}

	if err := dash.Load(ctx); err != nil {
		return err
	}
	if !dash.CanWrite() {
		return fmt.Errorf("user management requires write access")
	}

	switch args[0] {
	case "list":
		for _, u := range dash.Users() {
			fmt.Printf("%d\t%s\t%s\n", u.ID, u.Name, u.Role)
		}
		return nil
	case "set-role":
		fs := flag.NewFlagSet("users set-role", flag.ContinueOnError)
		id := fs.Int("id", 0, "User id")
		role := fs.String("role", "", "New role: admin|viewer")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == 0 {
			return fmt.Errorf("user id is required")
		}
		if *role != string(models.RoleAdmin) && *role != string(models.RoleViewer) {
			return fmt.Errorf("invalid role %q", *role)
		}
		user, err := dash.SetUserRole(ctx, *id, models.UserRole(*role))
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%s\t%s\n", user.ID, user.Name, user.Role)
		return nil
	case "delete":
		fs := flag.NewFlagSet("users delete", flag.ContinueOnError)
		id := fs.Int("id", 0, "User id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == 0 {
			return fmt.Errorf("user id is required")
		}
		if err := dash.DeleteUser(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("Deleted user %d\n", *id)
		return nil
	default:
		return fmt.Errorf("users: unknown subcommand %q", args[0])
	}
}

func runChart(ctx context.Context, dash *dashboard.Dashboard, args []string) error {
	fs := flag.NewFlagSet("chart", flag.ContinueOnError)
	metric := fs.String("metric", "temperature", "Metric: temperature|humidity")
	sensorType := fs.String("type", "all", "Sensor type filter: all|outdoor|indoor|water")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := dash.Load(ctx); err != nil {
		return err
	}
	if err := dash.LoadMeasurements(ctx); err != nil {
		return err
	}

	list, err := buildSeries(dash, *metric, *sensorType)
	if err != nil {
		return err
	}
	for _, s := range list {
		first := s.Points[0]
		last := s.Points[len(s.Points)-1]
		fmt.Printf("%s\t%s\t%d points\t%s .. %s\n",
			s.SensorName, series.ColorForSensor(s.SensorID), len(s.Points),
			first.Timestamp.Local().Format("2006-01-02 15:04"),
			last.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runExport(ctx context.Context, dash *dashboard.Dashboard, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("out", "", "Output file path (.xlsx)")
	metric := fs.String("metric", "raw", "Export content: raw|temperature|humidity")
	sensorType := fs.String("type", "all", "Sensor type filter: all|outdoor|indoor|water")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("output file path is required")
	}

	if err := dash.Load(ctx); err != nil {
		return err
	}
	if err := dash.LoadMeasurements(ctx); err != nil {
		return err
	}

	var data []byte
	var err error
	if *metric == "raw" {
		data, err = export.MeasurementsWorkbook(dash.Measurements())
	} else {
		var list []series.Series
		list, err = buildSeries(dash, *metric, *sensorType)
		if err == nil {
			data, err = export.SeriesWorkbook(series.Metric(*metric), list)
		}
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *out, err)
	}
	fmt.Printf("Wrote %s\n", *out)
	return nil
}

func buildSeries(dash *dashboard.Dashboard, metric, sensorType string) ([]series.Series, error) {
	switch series.Metric(metric) {
	case series.MetricTemperature:
		return dash.TemperatureSeries(sensorType), nil
	case series.MetricHumidity:
		return dash.HumiditySeries(sensorType), nil
	default:
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
}

func parseOptionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func formatValue(v *float64, unit string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%s", *v, unit)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "controlling_resistances/docs"
	"controlling_resistances/internal/actuator"
	"controlling_resistances/internal/broker"
	"controlling_resistances/internal/config"
	"controlling_resistances/internal/handlers"
	"controlling_resistances/internal/logger"
	"controlling_resistances/internal/repository"
	"controlling_resistances/internal/repository/db"
	"controlling_resistances/internal/server"
	"controlling_resistances/internal/service"
	"controlling_resistances/internal/sheet"
	"controlling_resistances/internal/telemetry"
	"controlling_resistances/internal/thermal"
)

const shutdownTimeout = 30 * time.Second

// @title                       Resistance control API
// @version                     1.0
// @description                 Heater parameter estimation, schedule simulation and live resistance control.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.New(logger.Options{}).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()
	repos := repository.NewRepository(sqlDB)

	mq, err := connectBroker(cfg, log)
	if err != nil {
		log.Fatalw("failed to connect mqtt broker", "err", err, "broker", cfg.MQTT.Broker)
	}
	if mq != nil {
		defer mq.Close()
	}

	var pub actuator.Publisher
	if mq != nil {
		pub = mq
	}
	deps := service.ControlDeps{
		LoadPlan:  planLoader(cfg, log),
		Actuators: actuatorFactory(cfg, pub),
	}
	if cfg.Telemetry.Enabled {
		stream := telemetry.NewStream(mq, cfg.MQTT.TopicPrefix, log.Named("telemetry"))
		defer stream.Close()
		deps.Sink = stream
	}

	services := service.NewService(repos, service.Options{
		Control:    controlOptions(cfg),
		ControlDep: deps,
		Fit:        fitConfig(cfg),
		Auth:       service.AuthOptions{SigningKey: cfg.Auth.SigningKey, TokenTTL: cfg.Auth.TokenTTL},
	}, log)

	switch cfg.Mode {
	case config.ModeEstimate:
		if err := runEstimate(context.Background(), cfg, services, log); err != nil {
			log.Fatalw("estimation failed", "err", err)
		}
	case config.ModeControl:
		srv := startHTTPServer(cfg, services, log)
		err := runControl(services, log)
		shutdownHTTPServer(srv, log)
		if err != nil {
			log.Fatalw("control_start_failed", "err", err)
		}
	default:
		srv := startHTTPServer(cfg, services, log)
		<-shutdownSignal()
		log.Infow("shutting down server...")
		if services.Control.Status().Running {
			stopControl(services, log)
		}
		shutdownHTTPServer(srv, log)
	}
}

// connectBroker dials MQTT only when a component needs it.
func connectBroker(cfg config.Config, log *logger.Logger) (*broker.Client, error) {
	if cfg.Actuator.Kind != config.ActuatorMQTT && !cfg.Telemetry.Enabled {
		return nil, nil
	}
	return broker.Connect(broker.Config{
		URL:      cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Wait:     cfg.Actuator.Timeout,
	}, log.Named("mqtt"))
}

func planLoader(cfg config.Config, log *logger.Logger) service.PlanLoader {
	fetcher := sheet.NewFetcher(cfg.Sheet.Timeout, log.Named("sheet"))
	return func(ctx context.Context) (sheet.ControlPlan, error) {
		rows, err := fetcher.Rows(ctx, cfg.Sheet.ControlURL, cfg.Sheet.ControlCache)
		if err != nil {
			return sheet.ControlPlan{}, err
		}
		return sheet.ParseControl(rows, cfg.Thermal.AmbientC, cfg.ScheduleStepSec())
	}
}

func actuatorFactory(cfg config.Config, pub actuator.Publisher) service.ActuatorFactory {
	return func(plan sheet.ControlPlan) (actuator.Actuator, error) {
		addrs := make(map[int]string, len(plan.Heaters))
		for _, h := range plan.Heaters {
			addrs[h.Index] = h.Address
		}
		switch cfg.Actuator.Kind {
		case config.ActuatorHTTP:
			return actuator.NewHTTPRelay(addrs, actuator.HTTPConfig{
				OnPath:    cfg.Actuator.HTTP.OnPath,
				OffPath:   cfg.Actuator.HTTP.OffPath,
				StatePath: cfg.Actuator.HTTP.StatePath,
				Timeout:   cfg.Actuator.Timeout,
			}), nil
		case config.ActuatorModbus:
			return actuator.NewModbusCoil(addrs, actuator.ModbusConfig{
				Port:    cfg.Actuator.Modbus.Port,
				Coil:    uint16(cfg.Actuator.Modbus.Coil),
				SlaveID: byte(cfg.Actuator.Modbus.SlaveID),
				Timeout: cfg.Actuator.Timeout,
			}), nil
		case config.ActuatorMQTT:
			if pub == nil {
				return nil, errors.New("mqtt actuator without broker connection")
			}
			return actuator.NewMQTTSwitch(pub, cfg.MQTT.TopicPrefix), nil
		case config.ActuatorNoop:
			return actuator.NewNoop(), nil
		default:
			return nil, fmt.Errorf("unknown actuator kind %q", cfg.Actuator.Kind)
		}
	}
}

func controlOptions(cfg config.Config) service.ControlOptions {
	return service.ControlOptions{
		Tick:         cfg.Control.Tick,
		LogEvery:     cfg.Control.LogEvery,
		RefreshEvery: cfg.Control.RefreshEvery,
		MaxTempC:     cfg.Safety.MaxTempC,
		MarginC:      cfg.Safety.MarginC,
		Initial:      cfg.Initial,
		Dispatch: actuator.DispatcherOptions{
			Workers: cfg.Actuator.Workers,
			Queue:   cfg.Actuator.Queue,
			Timeout: cfg.Actuator.Timeout,
		},
	}
}

func fitConfig(cfg config.Config) thermal.FitConfig {
	fit := thermal.DefaultFitConfig()
	fit.TMaxUpper = cfg.Thermal.TMaxUpper
	fit.KUpper = cfg.Thermal.KUpper
	fit.MaxIterations = cfg.Thermal.MaxIterations
	return fit
}

// runEstimate fits every heater of the measurement sheet once and optionally
// writes the observed vs modeled series.
func runEstimate(ctx context.Context, cfg config.Config, services *service.Service, log *logger.Logger) error {
	var (
		rows [][]string
		err  error
	)
	if cfg.Measurements != "" {
		rows, err = sheet.ReadFile(cfg.Measurements)
	} else {
		rows, err = sheet.NewFetcher(cfg.Sheet.Timeout, log).
			Rows(ctx, cfg.Sheet.MeasurementsURL, cfg.Sheet.MeasurementsCache)
	}
	if err != nil {
		return fmt.Errorf("load measurements: %w", err)
	}
	series, bad := sheet.Measurements(rows, cfg.SampleIntervalSec())
	for _, cell := range bad {
		log.Warnw("measurement_cell_skipped", "row", cell.Row, "column", cell.Column, "value", cell.Value, "err", cell.Err)
	}

	estimates := services.Estimation.EstimateAll(ctx, cfg.Thermal.AmbientC, series)
	for _, e := range estimates {
		if e.Skipped {
			log.Warnw("heater_result", "heater", e.Heater, "skipped", true, "reason", e.Error)
			continue
		}
		log.Infow("heater_result",
			"heater", e.Heater,
			"alpha_on", e.AlphaOn,
			"alpha_off", e.AlphaOff,
			"t_max", e.TMax,
			"split", e.Split,
		)
	}

	if cfg.Out == "" {
		return nil
	}
	f, err := os.Create(cfg.Out)
	if err != nil {
		return fmt.Errorf("create %s: %w", cfg.Out, err)
	}
	if err := services.Estimation.WriteReconstruction(f, series, estimates); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", cfg.Out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Infow("reconstruction_written", "path", cfg.Out, "heaters", len(estimates))
	return nil
}

// runControl starts the schedule and returns when it finishes or a
// termination signal arrives. A schedule that cannot start, e.g. on a
// sheet.MissingConfigurationError, is returned.
func runControl(services *service.Service, log *logger.Logger) error {
	if err := services.Control.Start(context.Background()); err != nil {
		return fmt.Errorf("start control: %w", err)
	}
	select {
	case <-services.Control.Done():
		st := services.Control.Status()
		log.Infow("control_finished", "completed", st.Completed, "ticks", st.Tick)
	case <-shutdownSignal():
		log.Infow("stopping schedule...")
		stopControl(services, log)
	}
	return nil
}

func stopControl(services *service.Service, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := services.Control.Stop(ctx); err != nil && !errors.Is(err, service.ErrNotRunning) {
		log.Errorw("control_stop_failed", "err", err)
	}
}

func startHTTPServer(cfg config.Config, services *service.Service, log *logger.Logger) *server.Server {
	srv := &server.Server{}
	handler := server.WithCORS(cfg.HTTP.CORSOrigins, handlers.NewHandler(services, log).InitRoutes())
	go func() {
		if err := srv.Run(cfg.Port, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
	log.Infow("http_listening", "port", cfg.Port, "mode", cfg.Mode)
	return srv
}

func shutdownHTTPServer(srv *server.Server, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}

func shutdownSignal() <-chan os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return quit
}

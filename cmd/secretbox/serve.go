package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/secretbox-core/internal/api"
	"github.com/nerrad567/secretbox-core/internal/bridge"
	"github.com/nerrad567/secretbox-core/internal/chain"
	"github.com/nerrad567/secretbox-core/internal/dispatch"
	"github.com/nerrad567/secretbox-core/internal/hal/gpio"
	"github.com/nerrad567/secretbox-core/internal/hal/sound"
	"github.com/nerrad567/secretbox-core/internal/infrastructure/config"
	"github.com/nerrad567/secretbox-core/internal/infrastructure/database"
	"github.com/nerrad567/secretbox-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/secretbox-core/internal/infrastructure/logging"
	"github.com/nerrad567/secretbox-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/secretbox-core/internal/show"
	"github.com/nerrad567/secretbox-core/internal/telemetry"
	"github.com/nerrad567/secretbox-core/internal/timer"
	"github.com/nerrad567/secretbox-core/migrations"
)

// sampleInterval is how often engine stats and pin values are exported.
const sampleInterval = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the controller until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, configPath(cmd))
		},
	}
}

// run starts every component, blocks until ctx is cancelled and then shuts
// down in reverse order.
func run(ctx context.Context, path string) error {
	log := logging.Default()
	log.Info("starting secretbox",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", path, "site", cfg.Site.ID)

	sh, err := show.Load(cfg.Show.Path)
	if err != nil {
		return fmt.Errorf("loading show: %w", err)
	}
	board, err := sh.Build(cfg.GetDefaultStepDelay())
	if err != nil {
		return fmt.Errorf("building show: %w", err)
	}
	log.Info("show loaded",
		"path", cfg.Show.Path,
		"name", sh.Name,
		"pins", board.Pins.Len(),
		"chains", len(board.Chains),
	)

	pins, err := openGPIO(cfg.GPIO, board)
	if err != nil {
		return fmt.Errorf("opening gpio: %w", err)
	}
	defer func() {
		if closeErr := pins.Close(); closeErr != nil {
			log.Error("error closing gpio", "error", closeErr)
		}
	}()
	log.Info("gpio ready", "driver", cfg.GPIO.Driver)

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	var sink chain.SoundPlayer
	if cfg.Sound.Sink == "mqtt" {
		mqttSink := sound.NewMQTTSink(mqttClient, cfg.Sound.Topic, log.Component("sound"))
		defer mqttSink.Close()
		sink = mqttSink
	} else {
		sink = sound.NewLogSink(log.Component("sound"))
	}

	driver := timer.NewSoftDriver()
	defer driver.Close()

	engine, err := chain.NewEngine(chain.Config{
		PoolSize: cfg.Engine.TimerPoolSize,
		Driver:   driver,
		Pins:     board.Pins,
		GPIO:     pins,
		Sound:    sink,
		Logger:   log.Component("engine"),
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	for _, c := range board.Chains {
		if err := engine.Register(c); err != nil {
			return fmt.Errorf("registering chain %q: %w", c.Name(), err)
		}
	}

	metrics := telemetry.NewMetrics()
	engine.AddObserver(metrics)

	var runs show.Repository
	var dbStats api.DBStatter
	if cfg.Database.Enabled {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if err := db.Migrate(ctx, migrations.Source()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database ready", "path", cfg.Database.Path)

		repo := show.NewSQLiteRepository(db)
		recorder := show.NewRecorder(repo, log.Component("runs"))
		defer recorder.Close()
		engine.AddObserver(recorder)
		runs, dbStats = repo, db
	} else {
		log.Info("run history disabled")
	}

	var points telemetry.PointWriter
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		engine.AddObserver(telemetry.NewInfluxObserver(influxClient))
		points = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	policy, err := bridge.ParsePolicy(cfg.Commands.Policy)
	if err != nil {
		return err
	}
	commands, err := bridge.New(dispatch.DefaultTable(), engine, policy, cfg.Commands.Target, log.Component("bridge"))
	if err != nil {
		return fmt.Errorf("creating command bridge: %w", err)
	}
	commands.SetFrameCounter(metrics)

	var connStatus api.LinkStatus
	if mqttClient != nil {
		publisher := telemetry.NewEventPublisher(mqttClient, log.Component("events"))
		defer publisher.Close()
		engine.AddObserver(publisher)
		connStatus = mqttClient

		if cfg.Commands.Enabled {
			if err := commands.Bind(mqttClient); err != nil {
				return fmt.Errorf("binding command bridge: %w", err)
			}
			log.Info("command bridge listening", "policy", policy, "target", cfg.Commands.Target)
		}
	}

	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log,
			Engine:   engine,
			Commands: commands,
			Runs:     runs,
			Metrics:  metrics.Handler(),
			MQTT:     connStatus,
			DB:       dbStats,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		engine.AddObserver(srv.Hub())
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := engine.SyncInputs(); err != nil {
		log.Warn("initial input read failed", "error", err)
	}
	for _, name := range board.Autostart {
		if err := engine.Arm(name); err != nil {
			return fmt.Errorf("arming %q: %w", name, err)
		}
		log.Info("chain armed", "chain", name)
	}

	go telemetry.NewSampler(engine, metrics, points, sampleInterval).Run(ctx)
	if interval := cfg.GetInputPollInterval(); interval > 0 {
		go pollInputs(ctx, engine, interval, log)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, disarming chains")
	engine.DisarmAll()

	log.Info("secretbox stopped")
	return nil
}

// openGPIO opens the configured driver. Pin lists missing from the config
// are taken from the show.
func openGPIO(cfg config.GPIOConfig, board *show.Board) (gpio.Driver, error) {
	outputs, inputs := cfg.Outputs, cfg.Inputs
	if len(outputs) == 0 && len(inputs) == 0 {
		outputs, inputs = boardPins(board)
	}

	switch cfg.Driver {
	case "rpio":
		return gpio.OpenRPIO(outputs, inputs)
	default:
		return gpio.NewMemory(outputs, inputs), nil
	}
}

// boardPins splits the show's pins by direction. Indicator pins are outputs
// even when the show does not declare them.
func boardPins(board *show.Board) (outputs, inputs []int) {
	seen := make(map[int]bool)
	addOutput := func(id int) {
		if !seen[id] {
			seen[id] = true
			outputs = append(outputs, id)
		}
	}

	for _, id := range board.Pins.IDs() {
		p, err := board.Pins.Get(id)
		if err != nil {
			continue
		}
		if !p.IsOutput() {
			seen[id] = true
			inputs = append(inputs, id)
		}
	}
	for _, id := range board.Pins.IDs() {
		p, _ := board.Pins.Get(id) //nolint:errcheck // id came from the bank
		if p.IsOutput() {
			addOutput(id)
		}
		if p.HasIndicator() {
			addOutput(p.Indicator())
		}
	}
	return outputs, inputs
}

// pollInputs copies input levels into the pin model until ctx ends.
func pollInputs(ctx context.Context, engine *chain.Engine, interval time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := engine.SyncInputs(); err != nil {
				log.Warn("input poll failed", "error", err)
			}
		}
	}
}

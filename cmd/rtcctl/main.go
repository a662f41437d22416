// Command rtcctl inspects and configures a DS3231 real-time clock attached
// to a Linux I2C bus, and can publish its state to MQTT on a schedule.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"

	"tinygo.org/x/drivers/ds3231"
	"tinygo.org/x/drivers/internal/config"
	"tinygo.org/x/drivers/internal/console"
	"tinygo.org/x/drivers/internal/logging"
	"tinygo.org/x/drivers/internal/rtc"
	"tinygo.org/x/drivers/internal/telemetry"
	"tinygo.org/x/drivers/periphbus"
)

type flagConfig struct {
	configPath string
	bus        string
	addr       string
	logLevel   string
	command    string
	daemon     bool
}

func main() {
	flags := parseFlags()
	if err := run(flags); err != nil {
		fmt.Fprintln(os.Stderr, "rtcctl:", err)
		os.Exit(1)
	}
}

func run(flags flagConfig) error {
	conf, loadErr := config.Load(flags.configPath)
	if conf == nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, loadErr)
	}
	if err := applyFlags(conf, flags); err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, "rtcctl", conf.LogLevel)
	if err != nil {
		logger.Warn().Err(err).Str("level", conf.LogLevel).Msg("unknown log level, using info")
	}
	if loadErr != nil {
		// only a default config that could not be saved gets here
		logger.Warn().Err(loadErr).Str("path", flags.configPath).Msg("running with default config")
	}
	logger.Debug().
		Str("bus", conf.Bus).
		Str("address", fmt.Sprintf("0x%02X", conf.Address)).
		Int64("speed_hz", conf.SpeedHz).
		Bool("mqtt", conf.MQTT.Enabled).
		Str("schedule", conf.Telemetry.Schedule).
		Msg("effective config")

	bus, err := periphbus.Open(conf.Bus)
	if err != nil {
		return err
	}
	defer bus.Close()
	if conf.SpeedHz > 0 {
		if err := bus.SetSpeed(conf.SpeedHz); err != nil {
			return fmt.Errorf("set bus speed: %w", err)
		}
	}

	dev := ds3231.New(bus)
	dev.Configure(ds3231.Config{Address: conf.Address})
	session := rtc.NewSession(&dev)
	checkOscillator(session, logger)

	switch {
	case flags.command != "":
		return console.New(session, os.Stdout).Execute(flags.command)
	case flags.daemon:
		return runDaemon(session, conf, logger)
	default:
		return runInteractive(session, logger)
	}
}

// applyFlags lets command-line values override the config file.
func applyFlags(conf *config.Config, flags flagConfig) error {
	if flags.bus != "" {
		conf.Bus = flags.bus
	}
	if flags.addr != "" {
		a, err := strconv.ParseUint(flags.addr, 0, 8)
		if err != nil {
			return fmt.Errorf("bad -addr %q: %w", flags.addr, err)
		}
		conf.Address = uint8(a)
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	return conf.Validate()
}

// checkOscillator warns when the clock has lost track of time.
func checkOscillator(s *rtc.Session, logger zerolog.Logger) {
	var stopped bool
	err := s.Do(func(dev *ds3231.Device) (err error) {
		stopped, err = dev.OscillatorStopFlag()
		return err
	})
	if err != nil {
		logger.Error().Err(err).Msg("cannot read RTC status")
		return
	}
	if stopped {
		logger.Warn().Msg("RTC oscillator has stopped since the flag was last cleared, set the time and run clear-osf")
	}
}

func runDaemon(s *rtc.Session, conf *config.Config, logger zerolog.Logger) error {
	if !conf.MQTT.Enabled {
		return errors.New("daemon mode needs mqtt.enabled in the config")
	}
	pub, err := telemetry.DialMQTT(telemetry.MQTTConfig{
		Broker:      conf.MQTT.Broker,
		Username:    conf.MQTT.Username,
		Password:    conf.MQTT.Password,
		ClientID:    conf.MQTT.ClientID,
		TopicPrefix: conf.MQTT.TopicPrefix,
	}, logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	reporter := telemetry.NewReporter(s, pub, telemetry.Config{
		TopicPrefix: conf.MQTT.TopicPrefix,
		ClearAlarms: conf.Telemetry.ClearAlarms,
	}, logger)
	if err := reporter.Report(); err != nil {
		logger.Error().Err(err).Msg("initial report failed")
	}
	stop, err := reporter.Start(conf.Telemetry.Schedule)
	if err != nil {
		return err
	}
	defer stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
	logger.Info().Msg("signal received, shutting down")
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/rtcctl/config.yaml", "Path to config file")
	flag.StringVar(&cfg.bus, "bus", "", "I2C bus name (overrides config if set)")
	flag.StringVar(&cfg.addr, "addr", "", "RTC I2C address, e.g. 0x68 (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level (overrides config if set)")
	flag.StringVar(&cfg.command, "c", "", "Run a single console command and exit")
	flag.BoolVar(&cfg.daemon, "daemon", false, "Publish RTC state to MQTT on the configured schedule")

	flag.Parse()

	return cfg
}

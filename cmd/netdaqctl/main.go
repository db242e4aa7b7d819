// Command netdaqctl is a smoke-test client for the instrument façade:
// it connects, applies a small configuration (either a default single
// VDC channel or one loaded from a YAML file), starts acquisition,
// prints a handful of reading batches as JSON, then stops and
// disconnects. It carries no protocol logic of its own — everything
// here is flag parsing, YAML loading, and JSON printing around the
// daq package.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/netdaq-go/netdaq/channel"
	"github.com/netdaq-go/netdaq/config"
	"github.com/netdaq-go/netdaq/daq"
	"github.com/netdaq-go/netdaq/netlog"
	"github.com/netdaq-go/netdaq/transport"
)

// yamlConfig is the on-disk shape accepted by --config. It only
// covers the global acquisition settings plus a flat list of analog
// VDC channels; other channel families and computed channels are not
// exposed here since this is a smoke-test entry point, not a general
// configuration front end (see spec's non-goals).
type yamlConfig struct {
	Speed             string        `yaml:"speed"`
	Trigger           string        `yaml:"trigger"`
	Interval          time.Duration `yaml:"interval"`
	AlarmInterval     time.Duration `yaml:"alarm_interval"`
	Fahrenheit        bool          `yaml:"fahrenheit"`
	TriggerOut        bool          `yaml:"trigger_out"`
	TotalizerDebounce bool          `yaml:"totalizer_debounce"`
	AnalogVDC         []vdcChannel  `yaml:"analog_vdc"`
}

type vdcChannel struct {
	Slot  int    `yaml:"slot"`
	Range string `yaml:"range"`
}

var vdcRanges = map[string]channel.VDCRange{
	"90mV":  channel.VDC90mV,
	"300mV": channel.VDC300mV,
	"3V":    channel.VDC3V,
	"30V":   channel.VDC30V,
	"50V":   channel.VDC50V,
	"auto":  channel.VDCAuto,
}

var speeds = map[string]config.Speed{
	"slow": config.Slow, "medium": config.Medium, "fast": config.Fast,
}

var triggers = map[string]config.Trigger{
	"interval": config.TriggerInterval, "alarm": config.TriggerAlarm, "external": config.TriggerExternal,
}

func loadConfig(path string) (config.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var y yamlConfig
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return config.Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := config.Config{
		Speed:             speeds[y.Speed],
		Trigger:           triggers[y.Trigger],
		Interval:          y.Interval,
		AlarmInterval:     y.AlarmInterval,
		Fahrenheit:        y.Fahrenheit,
		TriggerOut:        y.TriggerOut,
		TotalizerDebounce: y.TotalizerDebounce,
	}

	for _, v := range y.AnalogVDC {
		r, ok := vdcRanges[v.Range]
		if !ok {
			return config.Config{}, fmt.Errorf("unknown vdc range %q for slot %d", v.Range, v.Slot)
		}
		ch, err := channel.NewVDC(r, channel.DefaultTrailer())
		if err != nil {
			return config.Config{}, err
		}
		for len(cfg.AnalogChannels) <= v.Slot {
			cfg.AnalogChannels = append(cfg.AnalogChannels, nil)
		}
		cfg.AnalogChannels[v.Slot] = ch
	}
	return cfg, nil
}

func defaultConfig(interval time.Duration) (config.Config, error) {
	ch, err := channel.NewVDC(channel.VDC30V, channel.DefaultTrailer())
	if err != nil {
		return config.Config{}, err
	}
	return config.Config{
		Interval:       interval,
		AnalogChannels: []channel.Channel{ch},
	}, nil
}

func run() error {
	addr := pflag.StringP("addr", "a", "127.0.0.1:4369", "instrument address (host:port)")
	configFile := pflag.StringP("config", "c", "", "YAML configuration file (default: single 30V VDC channel)")
	batches := pflag.IntP("batches", "n", 1, "number of reading batches to fetch")
	maxReadings := pflag.Uint16P("max", "m", 10, "max readings requested per batch")
	interval := pflag.DurationP("interval", "i", time.Second, "acquisition interval (ignored if --config is set)")
	timeout := pflag.DurationP("timeout", "t", 5*time.Second, "per-operation timeout")
	verbose := pflag.BoolP("verbose", "v", false, "log session lifecycle events to stderr")
	pflag.Parse()

	logger := netlog.New("netdaqctl: ")
	logger.SetEnabled(*verbose)

	var cfg config.Config
	var err error
	if *configFile != "" {
		cfg, err = loadConfig(*configFile)
	} else {
		cfg, err = defaultConfig(*interval)
	}
	if err != nil {
		return err
	}

	client := daq.NewClient(transport.New(logger))

	connectCtx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := client.Connect(connectCtx, *addr); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	if err := withTimeout(*timeout, client.Handshake); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	if err := withTimeout(*timeout, func(ctx context.Context) error { return client.SetTime(ctx, time.Time{}) }); err != nil {
		return fmt.Errorf("set time: %w", err)
	}
	if err := withTimeout(*timeout, func(ctx context.Context) error { return client.SetConfig(ctx, cfg) }); err != nil {
		return fmt.Errorf("set config: %w", err)
	}
	if err := withTimeout(*timeout, func(ctx context.Context) error { return client.Start(ctx, daq.StartOptions{}) }); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for i := 0; i < *batches; i++ {
		var batch daq.ReadingBatch
		err := withTimeout(*timeout, func(ctx context.Context) error {
			var err error
			batch, err = client.GetReadings(ctx, *maxReadings)
			return err
		})
		if err != nil {
			return fmt.Errorf("get readings: %w", err)
		}
		if err := enc.Encode(batch); err != nil {
			return err
		}
	}

	if err := withTimeout(*timeout, client.Stop); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

func withTimeout(d time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return fn(ctx)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "netdaqctl:", err)
		os.Exit(1)
	}
}

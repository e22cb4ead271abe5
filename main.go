//go:build linux

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	gops "github.com/google/gops/agent"
	"github.com/hashicorp/go-hclog"
	flags "github.com/jessevdk/go-flags"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"

	"github.com/kawa1214/taptun/config"
	"github.com/kawa1214/taptun/link"
	"github.com/kawa1214/taptun/network"
)

type Options struct {
	Config     string   `short:"c" long:"config" description:"YAML config file, flags given explicitly override it"`
	Name       string   `short:"n" long:"name" description:"interface name, may contain a %d template (default: tun%d)"`
	Tap        bool     `long:"tap" description:"create an Ethernet TAP interface instead of a TUN interface"`
	PacketInfo bool     `long:"packet-info" description:"keep the packet information header on every frame"`
	MTU        int      `long:"mtu" description:"MTU to set after creation"`
	Addrs      []string `short:"a" long:"addr" description:"address with prefix length to assign, repeatable"`
	Routes     []string `short:"r" long:"route" description:"prefix to route through the interface, repeatable"`
	NoUp       bool     `long:"no-up" description:"leave the interface down"`
	Echo       bool     `long:"echo" description:"hex dump every frame and write it back"`
	LogLevel   string   `long:"log-level" description:"trace, debug, info, warn or error (default: info)"`
	LogFile    string   `long:"log-file" description:"log to a file rotated hourly instead of stderr"`
	Debug      bool     `long:"debug" description:"start the gops agent"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	conf, err := buildConf(parser, &opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := newLogger(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if opts.Debug {
		if err := gops.Listen(gops.Options{}); err != nil {
			logger.Warn("gops agent failed to start.", "Error", err.Error())
		}
		defer gops.Close()
	}

	if err := run(conf, logger); err != nil {
		logger.Error("taptun failed.", "Error", err.Error())
		os.Exit(1)
	}
}

// buildConf starts from the config file, or the defaults, and applies the
// flags that were set on the command line.
func buildConf(parser *flags.Parser, opts *Options) (*config.Conf, error) {
	conf := config.DefaultConf
	if opts.Config != "" {
		fileConf, err := config.Load(opts.Config)
		if err != nil {
			return nil, err
		}
		conf = *fileConf
	}

	isSet := func(name string) bool {
		opt := parser.FindOptionByLongName(name)
		return opt != nil && opt.IsSet()
	}
	if isSet("name") {
		conf.Name = opts.Name
	}
	if isSet("tap") {
		conf.Mode = config.ModeTun
		if opts.Tap {
			conf.Mode = config.ModeTap
		}
	}
	if isSet("packet-info") {
		conf.PacketInformation = opts.PacketInfo
	}
	if isSet("mtu") {
		conf.MTU = opts.MTU
	}
	if isSet("addr") {
		conf.Addrs = opts.Addrs
	}
	if isSet("route") {
		conf.Routes = opts.Routes
	}
	if isSet("no-up") {
		conf.Up = !opts.NoUp
	}
	if isSet("echo") {
		conf.Echo = opts.Echo
	}
	if isSet("log-level") {
		conf.LogLevel = opts.LogLevel
	}
	if isSet("log-file") {
		conf.LogFile = opts.LogFile
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func newLogger(conf *config.Conf) (hclog.Logger, error) {
	var output io.Writer = os.Stderr
	if conf.LogFile != "" {
		logF, err := rotatelogs.New(
			strings.Join([]string{conf.LogFile, "%Y%m%d%H%M"}, "-"),
			rotatelogs.WithLinkName(conf.LogFile),
			rotatelogs.WithRotationTime(1*time.Hour),
		)
		if err != nil {
			return nil, err
		}
		output = logF
	}
	hclog.SetDefault(hclog.New(&hclog.LoggerOptions{
		Name:   "taptun",
		Level:  hclog.LevelFromString(conf.LogLevel),
		Output: output,
	}))
	return hclog.Default().Named("main"), nil
}

func run(conf *config.Conf, logger hclog.Logger) error {
	cfg := &link.Config{PacketInformation: conf.PacketInformation, Logger: logger}

	var dev *link.Device
	var err error
	if conf.Mode == config.ModeTap {
		dev, err = link.NewTap(conf.Name, cfg)
	} else {
		dev, err = link.NewTun(conf.Name, cfg)
	}
	if err != nil {
		return err
	}
	defer dev.Close()
	logger.Info("Device created.", "Device Name", dev.Name(), "Mode", conf.Mode)

	if conf.MTU > 0 {
		if err := dev.SetMTU(conf.MTU); err != nil {
			return err
		}
	}
	prefixes, _ := conf.Prefixes()
	for _, prefix := range prefixes {
		if err := link.AddPrefix(dev.Name(), prefix, logger); err != nil {
			return err
		}
	}
	if conf.Up {
		if err := dev.Up(); err != nil {
			return err
		}
	}
	routes, _ := conf.RoutePrefixes()
	for _, route := range routes {
		if err := link.AddRoute(dev.Name(), route, logger); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !conf.Echo {
		<-ctx.Done()
		return nil
	}

	queue := network.NewQueue(dev, logger)
	queue.Bind(ctx)
	defer queue.Close()

	for {
		pkt, err := queue.Read()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fmt.Print(hex.Dump(pkt.Buf))
		if err := queue.Write(pkt); err != nil {
			return err
		}
	}
}

package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/voicelink/pkg/config"
	"github.com/robotalks/voicelink/pkg/fx"
)

func init() {
	config.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := config.NewConfig()
	engine, transport := conf.MustNewEngine()
	runner := fx.NewRunner().HandleSignals()

	if conf.BridgeEnabled() {
		bridge, queue, err := conf.NewBridge(runner.Context, engine)
		if err != nil {
			transport.Close()
			log.Fatalln(err)
		}
		defer queue.Close()
		runner.Go(fx.NamedRun("mqtt", bridge))
	}

	runner.Go(fx.NamedRun("engine", fx.RunFunc(func(ctx context.Context) error {
		return fx.RunWithContextCloser(ctx, transport, func() error {
			return engine.Run(ctx)
		})
	})))
	if err := runner.Wait(); err != nil {
		glog.Errorf("voicelinkd stopped: %v", err)
		glog.Flush()
		log.Fatalln(err)
	}
}

package main

import (
	"flag"

	"github.com/golang/glog"

	fx "github.com/robotalks/rove.go/pkg/framework"
	env "github.com/robotalks/rove.go/pkg/l1/env"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := env.FromFlags()
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	e, err := cfg.NewEnv()
	if err != nil {
		glog.Exitf("setup: %v", err)
	}
	defer e.Close()

	glog.Infof("bridge %s starting with %d links", cfg.ID, len(cfg.Links))
	err = fx.NewRunner().HandleSignals().Go(e.Runnables()...).Wait()
	if err != nil {
		glog.Errorf("bridge stopped: %v", err)
	}
}

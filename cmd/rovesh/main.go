package main

import (
	"github.com/robotalks/rove.go/pkg/cli/sh"
	"github.com/robotalks/rove.go/pkg/l0/device"
	env "github.com/robotalks/rove.go/pkg/l1/env"

	_ "github.com/robotalks/rove.go/pkg/cli/cmds/records"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main(func() (*device.Registry, error) {
		cfg, err := env.FromFlags()
		if err != nil {
			return nil, err
		}
		return cfg.Registry()
	})
}

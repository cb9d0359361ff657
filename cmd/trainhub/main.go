package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"

	"github.com/golang/glog"

	fx "github.com/brickrail/trainhub/pkg/framework"
	"github.com/brickrail/trainhub/pkg/l0/hub/env"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	e := env.NewConfig().MustNewEnv()
	defer e.Close()

	runner := fx.NewRunner().HandleSignals()
	if err := e.Run(runner.Context); err != nil && err != context.Canceled {
		glog.Exitf("%s: %v", e.Hub.Name, err)
	}
}

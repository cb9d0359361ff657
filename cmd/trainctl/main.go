package main

import (
	"github.com/brickrail/trainhub/pkg/cli/sh"

	_ "github.com/brickrail/trainhub/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}

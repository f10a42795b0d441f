package main

import (
	"github.com/example/deskd/internal/cli"
	"github.com/example/deskd/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}

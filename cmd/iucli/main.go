package main

import (
	"github.com/mahendrakumarshinde/iu.go/pkg/cli/sh"
	"github.com/mahendrakumarshinde/iu.go/pkg/config"

	_ "github.com/mahendrakumarshinde/iu.go/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}

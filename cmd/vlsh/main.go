package main

import (
	"github.com/robotalks/voicelink/pkg/cli/sh"
	"github.com/robotalks/voicelink/pkg/config"

	_ "github.com/robotalks/voicelink/pkg/cli/cmds/audio"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}

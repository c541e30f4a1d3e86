package main

import "github.com/robotalks/uartlink/pkg/cli/sh"

//go-build: CGO_ENABLED=0

func init() {
	sh.SetupFlags()
}

func main() {
	sh.Main()
}

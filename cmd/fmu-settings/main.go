package main

import "fmu-settings/cmd/cli"

func main() {
	cli.RunCLI()
}

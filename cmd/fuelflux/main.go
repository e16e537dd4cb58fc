package main

import "github.com/fuelflux/core/cmd/fuelflux/cmd"

func main() {
	cmd.Execute()
}

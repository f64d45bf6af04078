package main

import "github.com/agenthud/hud/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/mcoot/lanequeue/internal/cli"

func main() {
	cli.Execute()
}

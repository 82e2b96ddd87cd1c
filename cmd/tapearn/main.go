package main

import "github.com/mcoot/tapearn/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/ppiankov/clawgate/internal/cli"

func main() {
	cli.Execute()
}

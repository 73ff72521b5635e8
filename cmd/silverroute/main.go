package main

import "github.com/rewired-gh/silverroute/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/mathvoice/mathvoice/internal/cli"

func main() {
	cli.Execute()
}

package main

import (
	"entrade/internal/cli"
)

func main() {
	cli.Execute()
}

package main

import (
	"github.com/molefas/trikbridge/internal/cli"
)

func main() {
	cli.Execute()
}

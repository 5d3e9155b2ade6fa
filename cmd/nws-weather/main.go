package main

import (
	"os"

	"github.com/i474232898/nws-weather/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

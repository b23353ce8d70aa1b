package main

import (
	"os"

	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/app"
)

func main() {
	runner := app.NewRunner()
	os.Exit(runner.Run(os.Args[1:]))
}

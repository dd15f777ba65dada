package main

import (
	cmd "github.com/cozy-creator/player-predictor/cmd/predictor"
)

func main() {
	cmd.Execute()
}

package main

import (
	"os"

	"reel/cmd"
)

// @title        Reel API
// @version      1.0
// @description  Story to film generation pipeline.
// @BasePath     /
//
//go:generate swag init -g main.go -o docs
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

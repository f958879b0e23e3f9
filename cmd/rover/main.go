package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/turtacn/Rover/internal/cli"
	"github.com/turtacn/Rover/pkg/logger"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			if logger.Log != nil {
				logger.Log.Error("Panic recovered", "panic", r)
				logger.Log.Sync()
			} else {
				fmt.Fprintf(os.Stderr, "Panic recovered: %v\n", r)
			}
			os.Exit(1)
		}
	}()

	cli.Execute()
}

// Personal.AI order the ending

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ddabattalion/examprep-bot/internal/app"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/values_example.yaml"
	}

	a, err := app.NewApp(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup:", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		a.Stop()
	}()

	if err := a.ListenAndServeTelegram(); err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}
}

package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/LavaJover/shvark-payment-service/internal/config"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

var configPath string

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	rootCmd := &cobra.Command{
		Use:          "payment-service",
		Short:        "Admission fee payment orders and gateway reconciliation",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $PAYMENT_CONFIG_PATH)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config and installs the process logger.
func loadConfig() (*config.PaymentConfig, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("PAYMENT_CONFIG_PATH")
	}
	if path == "" {
		return nil, errors.New("config path not set: use --config or PAYMENT_CONFIG_PATH")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.SetupLogger(cfg.LogConfig)
	return cfg, nil
}

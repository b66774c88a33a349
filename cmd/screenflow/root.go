package main

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const app = "screenflow"

var rootCmd = &cobra.Command{
	Use:   app,
	Short: "screenflow walks an applicant through a short screening in the terminal",
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		log.Fatalf("binding debug flag: %v", err)
	}
	if err := viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json")); err != nil {
		log.Fatalf("binding json flag: %v", err)
	}
	if err := viper.BindEnv("debug", "SCREENFLOW_LOG_DEBUG"); err != nil {
		log.Fatalf("binding SCREENFLOW_LOG_DEBUG environment variable: %v", err)
	}
	if err := viper.BindEnv("json", "SCREENFLOW_LOG_JSON"); err != nil {
		log.Fatalf("binding SCREENFLOW_LOG_JSON environment variable: %v", err)
	}
}

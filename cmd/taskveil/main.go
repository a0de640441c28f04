package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "taskveil",
	Short: "Taskveil — task management with a privacy-preserving assistant",
	Long:  "Taskveil is a multi-tenant task-management server whose built-in assistant talks to an external language model without ever exposing real names, emails, invitation tokens or file references to it.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/taskveil.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package main provides the pagerender CLI, which renders document pages to images.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pagerender",
	Short: "Render PDF pages to images",
	Long: "pagerender rasterizes PDF pages to PNG or JPEG images. Every page is rendered behind a " +
		"fault boundary, so a broken page is reported with its failure category instead of crashing the run.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner.
func PrintBanner(config *Config, logger arbor.ILogger) {
	version := GetVersion()
	build := BuildTime

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("DATACAT")
	b.PrintCenteredText("Environmental Dataset Catalogue and Search")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 15)
	b.PrintKeyValue("Build", build, 15)
	b.PrintKeyValue("Environment", config.Environment, 15)
	b.PrintKeyValue("Store", config.Storage.SQLite.Path, 15)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", version).
		Str("build", build).
		Str("environment", config.Environment).
		Str("storage_path", config.Storage.SQLite.Path).
		Msg("Application started")

	printCapabilities(config, logger)
	fmt.Printf("\n")
}

// printCapabilities displays which optional subsystems are configured.
func printCapabilities(config *Config, logger arbor.ILogger) {
	fmt.Printf("Enabled capabilities:\n")

	fmt.Printf("  - SQLite document store with substring search (%s)\n", config.Storage.SQLite.Path)

	embeddingsEnabled := config.Embeddings.BaseURL != ""
	if embeddingsEnabled {
		fmt.Printf("  - Embedding service: %s (%s, dim=%d)\n", config.Embeddings.BaseURL, config.Embeddings.Model, config.Embeddings.Dimension)
	} else {
		fmt.Printf("  - Embedding service: disabled\n")
	}

	vectorStoreEnabled := config.VectorStore.Address != ""
	if vectorStoreEnabled {
		fmt.Printf("  - Vector store: %s (collection=%s)\n", config.VectorStore.Address, config.VectorStore.Collection)
	} else {
		fmt.Printf("  - Vector store: disabled, keyword-only search\n")
	}

	ragEnabled := config.Claude.APIKey != ""
	if ragEnabled {
		fmt.Printf("  - RAG answer generation: Claude (%s)\n", config.Claude.Model)
	} else {
		fmt.Printf("  - RAG answer generation: disabled, extractive fallback only\n")
	}

	if config.Rerank.Enabled {
		fmt.Printf("  - Rerank overlay: %s\n", config.Rerank.BaseURL)
	}

	logger.Info().
		Bool("embeddings_enabled", embeddingsEnabled).
		Bool("vector_store_enabled", vectorStoreEnabled).
		Bool("rag_enabled", ragEnabled).
		Bool("rerank_enabled", config.Rerank.Enabled).
		Msg("System capabilities")
}

// PrintShutdownBanner displays the application shutdown banner.
func PrintShutdownBanner(logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText("DATACAT")
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().Msg("Application shutting down")
}

// PrintColorizedMessage prints a message with specified color to stdout.
// It does not use logger; the Print* wrappers below log separately.
func PrintColorizedMessage(color, message string, logger arbor.ILogger) {
	fmt.Printf("%s%s%s\n", color, message, banner.ColorReset)
}

// PrintSuccess prints a success message in green and logs it.
func PrintSuccess(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorGreen, fmt.Sprintf("[ok] %s", message), logger)
	logger.Info().Str("type", "success").Msg(message)
}

// PrintError prints an error message in red and logs it.
func PrintError(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorRed, fmt.Sprintf("[error] %s", message), logger)
	logger.Error().Str("type", "error").Msg(message)
}

// PrintWarning prints a warning message in yellow and logs it.
func PrintWarning(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorYellow, fmt.Sprintf("[warn] %s", message), logger)
	logger.Warn().Str("type", "warning").Msg(message)
}

// PrintInfo prints an info message in cyan and logs it.
func PrintInfo(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorCyan, fmt.Sprintf("[info] %s", message), logger)
	logger.Info().Str("type", "info").Msg(message)
}

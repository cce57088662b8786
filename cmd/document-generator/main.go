package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/mithun789/campus-Me/internal/gcp"
	"github.com/mithun789/campus-Me/internal/services"
)

var (
	generatorInstance *services.GeneratorFunction
	once              sync.Once
	initErr           error

	// newGenerator is swapped out by tests.
	newGenerator = services.NewGenerator
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleGenerate", handleGenerate)
	functions.HTTP("HandleArtifactInfo", handleArtifactInfo)
	functions.HTTP("HandleArtifactPreview", handleArtifactPreview)
	functions.HTTP("HandleArtifactDownload", handleArtifactDownload)
	functions.HTTP("HandleArtifactRelease", handleArtifactRelease)
	functions.HTTP("HandleArtifactList", handleArtifactList)
	functions.HTTP("HandleSystemStatus", handleSystemStatus)
	functions.HTTP("HandleMetrics", handleMetrics)
}

// getGenerator initializes the shared generator on first use.
func getGenerator() (*services.GeneratorFunction, error) {
	once.Do(func() {
		generatorInstance, initErr = newGenerator(context.Background())
	})
	return generatorInstance, initErr
}

// main serves every registered function locally. On Cloud Functions the
// framework's own entry point is used instead.
func main() {
	port := gcp.GetEnv("PORT", "8080")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown()
		os.Exit(0)
	}()

	if _, err := getGenerator(); err != nil {
		slog.Error("Critical: Document generator initialization failed", "error", err)
		os.Exit(1)
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("Function framework stopped", "error", err)
		shutdown()
		os.Exit(1)
	}
}

func shutdown() {
	if generatorInstance == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := generatorInstance.Shutdown(ctx); err != nil {
		slog.Error("Shutdown finished with errors", "error", err)
	}
}

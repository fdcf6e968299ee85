// @title           Document RAG API
// @version         1.0
// @description     Asynchronous PDF ingestion and retrieval augmented question answering.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/internal/handlers"
	"github.com/akolanti/docuchat/internal/queue"
	"github.com/akolanti/docuchat/internal/rag"
	"github.com/akolanti/docuchat/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/docuchat/internal/rag/llm"
	"github.com/akolanti/docuchat/internal/rag/llm/gemini"
	"github.com/akolanti/docuchat/internal/rag/llm/openaiLLM"
	"github.com/akolanti/docuchat/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/docuchat/internal/server"
	"github.com/akolanti/docuchat/internal/worker"
	"github.com/akolanti/docuchat/pkg/logger_i"
	"github.com/joho/godotenv"
)

var listenAddr string

func main() {

	_ = godotenv.Load()
	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	taskQueue, err := queue.New(serviceContext)
	if err != nil {
		logger.Error("Task queue is offline. Shutting down.", "error", err)
		return
	}

	vectorDB, err := qdrantDB.New(serviceContext)
	if err != nil {
		logger.Error("Vector index is offline. Shutting down.", "error", err)
		return
	}

	embeddingService, err := openaiEmbedding.NewClient(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_BASE_URL"))
	if err != nil {
		logger.Error("Embedding service failed to initialize. Shutting down.", "error", err)
		return
	}

	llmProvider, err := buildLLMProvider(serviceContext)
	if err != nil {
		logger.Error("LLM provider failed to initialize. Shutting down.", "error", err)
		return
	}

	ragService := rag.NewService(vectorDB, llmProvider, embeddingService)

	//init the ingestion consumer
	consumerContext, stopConsumer := context.WithCancel(serviceContext)
	consumer := worker.NewConsumer(taskQueue, ragService)
	go consumer.Run(consumerContext)

	requestHandler := handlers.NewHandler(taskQueue, ragService)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		StopConsumer:     stopConsumer,
		Consumer:         consumer,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr, requestHandler)

	<-stopExecution
	logger.Info("Server stopped")
}

func buildLLMProvider(ctx context.Context) (llm.Provider, error) {
	if config.Env("LLM_PROVIDER", "openai") == "gemini" {
		return gemini.NewClient(ctx, os.Getenv("GEMINI_API_KEY"), config.GeminiModelName)
	}
	return openaiLLM.NewClient(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_BASE_URL"))
}

package config

import (
	"log/slog"
	"os"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//splitter - retried jobs must re-split identically, so these never change at runtime
	ChunkSize    = 300
	ChunkOverlap = 50

	//retrieval
	TopK = 5

	//embeddings
	EmbeddingModel                      = "text-embedding-3-small"
	EmbeddingOutputDimensionality int32 = 1536
	EmbeddingBatchSize                  = 100

	//llm
	ChatModel                = "gpt-4o-mini"
	GeminiModelName          = "gemini-2.5-flash-lite-preview-09-2025"
	ModelTemperature float64 = 0.2

	//grounding contract for every generation call
	SystemPrompt = `You are a helpful AI assistant.

Rules:
1. If the answer is available in the provided documents, answer strictly based on them.
2. If the question is general and not covered by the documents, answer using your general knowledge.
3. Clearly mention when the answer is NOT based on the documents.
4. Do NOT hallucinate document-specific facts.`

	//task queue
	QueueStream             = "pdf_upload_queue"
	QueueGroup              = "ingest_workers"
	QueueConsumerPrefix     = "consumer"
	QueueReadBlock          = 5 * time.Second
	QueueReadBatch          = 16
	QueueMaxLen             = 100000
	QueueClaimMinIdle       = 60 * time.Second
	QueueClaimInterval      = 30 * time.Second
	RedeliveryWarnThreshold = 5

	//ingestion worker
	MaxWorkerCount = 8
	JobTimeout     = 120 * time.Second

	//answering
	AnswerTimeout = 30 * time.Second

	//vectorDB
	CollectionName          = "pdf_documents"
	QdrantHost              = "127.0.0.1"
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false
	QdrantPoolSize          = 1
	QdrantKeepAliveTime     = 30 * time.Second
	QdrantKeepAliveTimeout  = 10 * time.Second
	QdrantConnectionTimeout = 30 * time.Second
	UpsertBatchSize         = 100

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//uploads
	UploadDir     = "uploads"
	MaxUploadSize = 10 << 20 //10MB, same cap the front end advertises

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 60 * time.Second //chat waits on generation
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":8000"
)

// Env returns the environment override for key, or fallback when unset.
func Env(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"log"
	"os"
	"time"

	"chat-client/internal/db"
	"chat-client/internal/emulator"
	"chat-client/internal/pgstore"
	"chat-client/internal/rabbitmq"
	"chat-client/internal/remote"
	"chat-client/internal/server"
	"chat-client/internal/telemetry"
)

func main() {
	var (
		store    remote.DocumentStore
		accounts server.Accounts
		blobs    server.BlobStorage
	)

	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		database, err := db.Connect(dsn)
		if err != nil {
			log.Fatalf("failed to connect to db: %v", err)
		}
		store = pgstore.NewStore(database)
		accounts = server.NewPGAccounts(database)
		blobs = server.NewPGBlobs(database)
		log.Printf("using postgres document store")
	} else {
		store = emulator.NewStore()
		accounts = server.NewMemAccounts()
		blobs = server.NewMemBlobs()
		log.Printf("DB_DSN not set, using in-memory stores")
	}

	publisher := rabbitmq.NewPublisher(
		os.Getenv("RABBITMQ_URL"),
		getEnv("RABBITMQ_EXCHANGE", "chat.events"),
	)
	defer publisher.Close()

	audit := telemetry.NewAuditEmitter(
		publisher,
		getEnv("AUDIT_ROUTING_KEY", "audit.chat_backend"),
		"chat-backend",
		getEnv("ENVIRONMENT", "dev"),
	)

	tokens := server.NewTokenIssuer(getEnv("JWT_SECRET", "dev-secret"), 24*time.Hour)

	srv := server.New(store, accounts, blobs, tokens, audit)
	router := srv.Router()

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

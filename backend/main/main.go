package main

import (
	"flag"

	"github.com/apex/log"
	"github.com/joho/godotenv"

	"bugspot/backend/analysis"
	"bugspot/backend/auth"
	"bugspot/backend/config"
	"bugspot/backend/db"
	"bugspot/backend/email"
	"bugspot/backend/rabbitmq"
	"bugspot/backend/server"
	"bugspot/backend/websocket"
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, relying on the environment")
	}

	cfg := config.Load()

	dbc, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	defer dbc.Close()

	if err := db.InitializeSchema(dbc, cfg.DBDriver); err != nil {
		log.Fatalf("Failed to initialize the schema: %v", err)
	}

	store := db.NewSQLService(dbc)
	authSvc := auth.NewService(store, cfg.JWTSecret)

	hub := websocket.NewHub()
	go hub.Run()

	var publisher *rabbitmq.Publisher
	if cfg.AMQPUrl != "" {
		publisher, err = rabbitmq.NewPublisher(cfg.AMQPUrl, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			log.Warnf("RabbitMQ unavailable, reports will not be published: %v", err)
		} else {
			defer publisher.Close()
		}
	}

	notifier := email.NewNotifier(cfg.SendGridAPIKey, cfg.NotifyFrom)

	handlers := server.NewHandlers(cfg, store, authSvc, analysis.NewHeuristic(), hub, publisher, notifier)
	if err := handlers.StartService(); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}

package main

import (
	"context"

	_ "time/tzdata"

	"github.com/adaze/marketplace-api/config"
	"github.com/adaze/marketplace-api/internal/app"
	"github.com/adaze/marketplace-api/internal/infrastructure/database/mongodb"
	"github.com/adaze/marketplace-api/internal/infrastructure/database/postgres"
	"github.com/adaze/marketplace-api/internal/infrastructure/message-queue/kafka"
	"github.com/rs/zerolog/log"
)

func main() {
	config := config.CreateNewConfig()

	db, err := postgres.GetDBInstance(config.PostgreSQLConfig.DBUsername, config.PostgreSQLConfig.DBPassword, config.PostgreSQLConfig.DBHost, config.PostgreSQLConfig.DBPort, config.PostgreSQLConfig.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the database")
	}

	mongoDB, err := mongodb.ConnectToMongoDB(config.MongoDBConfig.DBHost, config.MongoDBConfig.DBPort, config.MongoDBConfig.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoDB.Client().Disconnect(context.Background())

	kafkaProducer, err := kafka.CreateKafkaProducer(config)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the broker")
	}
	defer kafkaProducer.Close()

	kafkaReader := kafka.CreateKafkaReader(config)
	defer kafkaReader.Close()

	server := app.App{
		DB:       db,
		Mongo:    mongoDB,
		Config:   config,
		Producer: kafkaProducer,
		Reader:   kafkaReader,
	}

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

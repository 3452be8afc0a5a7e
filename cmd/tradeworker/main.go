package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/joripage/matchx/config"
	"github.com/joripage/matchx/pkg/exchange/repo"
	"github.com/joripage/matchx/pkg/exchange/worker"
	postgres_wrapper "github.com/joripage/matchx/pkg/infra/postgres"
	"github.com/joripage/matchx/pkg/kafkawrapper"
	"github.com/joripage/matchx/pkg/logging"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.LogLevel)

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	db := postgres_wrapper.InitPostgresWithBackoff(cfg.TradesDB)
	sqlRepo := repo.NewRepo(db)
	w := worker.NewWorker(sqlRepo)

	cg := kafkawrapper.NewConsumerGroup(kafkawrapper.ConsumerConfig{
		Brokers:    cfg.Kafka.Brokers,
		GroupID:    cfg.Kafka.GroupID,
		Topic:      cfg.Kafka.TradeTopic,
		MaxRetries: 5,
		DLQTopic:   cfg.Kafka.TradeTopic + ".dlq",
	})

	go func() {
		if err := w.StartConsumer(ctx, cg); err != nil {
			zap.S().Errorf("consumer stopped with err: %v", err)
		}
	}()
	zap.S().Infof("%s consuming %s", cfg.ServiceName, cfg.Kafka.TradeTopic)

	<-sigs
	zap.S().Info("shutting down...")
	cancel()
	if err := cg.Close(); err != nil {
		zap.S().Warnf("close consumer err=%v", err)
	}
	zap.S().Info("exited cleanly")
}

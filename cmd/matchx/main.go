package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/joripage/matchx/config"
	"github.com/joripage/matchx/pkg/exchange"
	fixgateway "github.com/joripage/matchx/pkg/exchange/fix"
	redis_wrapper "github.com/joripage/matchx/pkg/infra/redis"
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

	go func() {
		_ = http.ListenAndServe("localhost:6060", nil)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	rdb, err := redis_wrapper.InitRedis(cfg.Redis)
	if err != nil {
		zap.S().Errorf("init redis fail with err: %v", err)
		panic(err)
	}

	producer := kafkawrapper.NewProducer(kafkawrapper.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
	})
	publisher := exchange.NewTradePublisher(producer, cfg.Kafka.TradeTopic)
	broadcaster := exchange.NewSnapshotBroadcaster(rdb)

	svc := exchange.NewService(nil, publisher, broadcaster)

	gateway := fixgateway.NewFixGateway(&fixgateway.FixGatewayConfig{
		ConfigFilepath: cfg.Fix.ConfigFilepath,
	}, svc)
	if err := gateway.Start(ctx); err != nil {
		panic(err)
	}
	zap.S().Infof("%s started, FIX acceptor listening", cfg.ServiceName)

	<-sigs
	zap.S().Info("shutting down...")

	gateway.Stop()
	svc.Close()
	if err := publisher.Close(); err != nil {
		zap.S().Warnf("close producer err=%v", err)
	}
	cancel()

	zap.S().Info("exited cleanly")
}

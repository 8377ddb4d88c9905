// Command meter-sim publishes synthesized meter readings to the measurement topic
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	confluent "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/kafka"
	"github.com/jat99/PowerMonitor/internal/series"
	"github.com/jat99/PowerMonitor/internal/utils"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "./config", "Path to the configuration directory")
	meterID := flag.String("meter", "meter-sim", "Meter id stamped on every reading")
	count := flag.Int("count", 0, "Number of readings to publish, 0 to run until interrupted")
	interval := flag.Duration("interval", time.Minute, "Time between readings")
	seed := flag.Int64("seed", 0, "Random seed, 0 for a time-based seed")
	outageAt := flag.Int("outage-at", 0, "Reading index at which a simulated outage starts")
	outageLen := flag.Int("outage-len", 0, "Number of dead readings in the simulated outage, 0 to disable")
	watch := flag.Bool("watch", false, "Log outage events from the outage topic while publishing")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *interval <= 0 {
		logger.Fatal("Interval must be positive", zap.Duration("interval", *interval))
	}

	loc, err := cfg.Monitor.Location()
	if err != nil {
		logger.Fatal("Invalid monitor timezone", zap.Error(err))
	}

	kafkaManager, err := kafka.NewManager(&cfg.Kafka, logger)
	if err != nil {
		logger.Fatal("Failed to create Kafka manager", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *watch {
		err = kafkaManager.AddConsumer("meter-sim-watch", map[string][]kafka.MessageHandler{
			cfg.Kafka.OutageTopic: {func(msg *confluent.Message) error {
				eventType := ""
				for _, h := range msg.Headers {
					if h.Key == "event_type" {
						eventType = string(h.Value)
					}
				}
				logger.Info("Outage event",
					zap.String("outage_id", string(msg.Key)),
					zap.String("type", eventType),
					zap.ByteString("payload", msg.Value))
				return nil
			}},
		})
		if err != nil {
			logger.Fatal("Failed to register outage watcher", zap.Error(err))
		}
	}

	if err := kafkaManager.Start(); err != nil {
		logger.Fatal("Failed to start Kafka manager", zap.Error(err))
	}
	logger.Info("Kafka manager started")

	sim := newSimulator(*meterID, series.NewLockedSource(*seed), *outageAt, *outageLen)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		publish(ctx, kafkaManager, sim, logger, loc, *count, *interval)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Context canceled, shutting down")
	case <-waitForCompletion(&wg):
		logger.Info("Publishing completed")
	}
	cancel()
	wg.Wait()

	if err := kafkaManager.Stop(); err != nil {
		logger.Error("Failed to stop Kafka manager", zap.Error(err))
	}
	logger.Info("Kafka manager stopped")
}

// publish sends count readings, one per interval, until ctx is done. A count of
// zero publishes indefinitely.
func publish(ctx context.Context, kafkaManager *kafka.Manager, sim *simulator, logger *utils.Logger, loc *time.Location, count int, interval time.Duration) {
	logger.Info("Starting meter simulation",
		zap.String("meter_id", sim.meterID),
		zap.Int("count", count),
		zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; count == 0 || i < count; i++ {
		msg := sim.next(time.Now().In(loc), interval)
		if err := kafkaManager.ProduceMeasurement(msg); err != nil {
			logger.Error("Failed to produce measurement",
				zap.Int("index", i),
				zap.Error(err))
		} else {
			logger.Info("Produced measurement",
				zap.Int("index", i),
				zap.Float64("voltage", msg.Voltage),
				zap.Float64("power", msg.Power),
				zap.Float64("energy", msg.Energy))
		}

		if count != 0 && i == count-1 {
			break
		}
		select {
		case <-ctx.Done():
			logger.Info("Context canceled, stopping meter simulation")
			return
		case <-ticker.C:
		}
	}
}

// waitForCompletion returns a channel that is closed when the wait group is done
func waitForCompletion(wg *sync.WaitGroup) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	return ch
}

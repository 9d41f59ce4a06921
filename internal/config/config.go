package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress         string
	DatabaseURI        string
	RedisAddr          string
	KafkaBrokers       []string
	KafkaTopic         string
	GatewayAddress     string
	GatewayServerKey   string
	ReservationTTL     time.Duration
	PaymentExpiry      time.Duration
	ShipmentStaleAfter time.Duration
	SweepInterval      time.Duration
	SweepBatchSize     int
	ShutdownTimeout    time.Duration
}

const (
	defaultRunAddress         = ":8080"
	defaultRedisAddr          = "127.0.0.1:6379"
	defaultKafkaTopic         = "order.events"
	defaultReservationTTL     = 15 * time.Minute
	defaultPaymentExpiry      = 24 * time.Hour
	defaultShipmentStaleAfter = 7 * 24 * time.Hour
	defaultSweepInterval      = time.Minute
	defaultSweepBatchSize     = 64
	defaultShutdownTimeout    = 10 * time.Second
)

// Load parses configuration from an optional .env file, flags, and
// environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:         getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:        getString(lookup, "DATABASE_URI", ""),
		RedisAddr:          getString(lookup, "REDIS_ADDR", defaultRedisAddr),
		KafkaTopic:         getString(lookup, "KAFKA_TOPIC", defaultKafkaTopic),
		GatewayAddress:     getString(lookup, "GATEWAY_ADDRESS", ""),
		GatewayServerKey:   getString(lookup, "GATEWAY_SERVER_KEY", ""),
		ReservationTTL:     getDuration(lookup, "RESERVATION_TTL", defaultReservationTTL),
		PaymentExpiry:      getDuration(lookup, "PAYMENT_EXPIRY", defaultPaymentExpiry),
		ShipmentStaleAfter: getDuration(lookup, "SHIPMENT_STALE_AFTER", defaultShipmentStaleAfter),
		SweepInterval:      getDuration(lookup, "SWEEP_INTERVAL", defaultSweepInterval),
		SweepBatchSize:     getInt(lookup, "SWEEP_BATCH_SIZE", defaultSweepBatchSize),
		ShutdownTimeout:    getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	brokers := getString(lookup, "KAFKA_BROKERS", "")

	fs := flag.NewFlagSet("ordercore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		reservationTTLStr  = cfg.ReservationTTL.String()
		sweepIntervalStr   = cfg.SweepInterval.String()
		paymentExpiryStr   = cfg.PaymentExpiry.String()
		shipmentStaleStr   = cfg.ShipmentStaleAfter.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for dedup/status cache")
	fs.StringVar(&brokers, "kafka-brokers", brokers, "Comma separated Kafka broker addresses")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic for order events")
	fs.StringVar(&cfg.GatewayAddress, "gateway", cfg.GatewayAddress, "Payment gateway base URL")
	fs.StringVar(&cfg.GatewayServerKey, "gateway-key", cfg.GatewayServerKey, "Payment gateway server key")
	fs.StringVar(&reservationTTLStr, "reservation-ttl", reservationTTLStr, "Stock hold TTL")
	fs.StringVar(&sweepIntervalStr, "sweep-interval", sweepIntervalStr, "Interval between reconciler sweeps")
	fs.StringVar(&paymentExpiryStr, "payment-expiry", paymentExpiryStr, "Age after which unpaid orders are cancelled defensively")
	fs.StringVar(&shipmentStaleStr, "shipment-stale-after", shipmentStaleStr, "Age after which shipments are flagged stale")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.SweepBatchSize, "sweep-batch", cfg.SweepBatchSize, "Maximum rows per reconciler sweep")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ReservationTTL, err = time.ParseDuration(reservationTTLStr); err != nil {
		return nil, fmt.Errorf("invalid reservation ttl: %w", err)
	}
	if cfg.SweepInterval, err = time.ParseDuration(sweepIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}
	if cfg.PaymentExpiry, err = time.ParseDuration(paymentExpiryStr); err != nil {
		return nil, fmt.Errorf("invalid payment expiry: %w", err)
	}
	if cfg.ShipmentStaleAfter, err = time.ParseDuration(shipmentStaleStr); err != nil {
		return nil, fmt.Errorf("invalid shipment stale threshold: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if keyFile, ok := lookup("GATEWAY_SERVER_KEY_FILE"); ok && keyFile != "" {
		content, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read gateway server key file: %w", err)
		}
		cfg.GatewayServerKey = strings.TrimSpace(string(content))
	}

	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}

	if cfg.ReservationTTL <= 0 {
		cfg.ReservationTTL = defaultReservationTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.PaymentExpiry <= 0 {
		cfg.PaymentExpiry = defaultPaymentExpiry
	}
	if cfg.ShipmentStaleAfter <= 0 {
		cfg.ShipmentStaleAfter = defaultShipmentStaleAfter
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = defaultSweepBatchSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}
	if cfg.GatewayAddress == "" {
		return nil, fmt.Errorf("gateway address must be provided")
	}
	if cfg.GatewayServerKey == "" {
		return nil, fmt.Errorf("gateway server key must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

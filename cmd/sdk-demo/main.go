// Command sdk-demo is an example host for the ldclient package.
//
// Startup flow (mirrors cmd/server's comment block):
//
//  1. Load configuration from environment variables (viper, .env optional)
//  2. Build an ldclient.Client (config load -> build store -> build data
//     source -> wait for the start signal)
//  3. Evaluate one flag on an interval, logging the result
//  4. Wait for SIGINT/SIGTERM, then close the client
package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/launchdarkly/go-sdk-evaluation-core"
)

type demoConfig struct {
	SDKKey       string
	BaseURI      string
	StreamURI    string
	PollInterval time.Duration
	DataSource   string // "streaming" or "polling"
	FlagKey      string
	UserKey      string
}

func loadConfig() demoConfig {
	v := viper.New()
	v.SetConfigFile(".env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	v.SetDefault("LD_BASE_URI", ldclient.DefaultPollBaseURI)
	v.SetDefault("LD_STREAM_URI", ldclient.DefaultStreamBaseURI)
	v.SetDefault("LD_POLL_INTERVAL", "30s")
	v.SetDefault("LD_DATA_SOURCE", "streaming")
	v.SetDefault("LD_FLAG_KEY", "demo-flag")
	v.SetDefault("LD_USER_KEY", "demo-user")

	interval, err := time.ParseDuration(v.GetString("LD_POLL_INTERVAL"))
	if err != nil {
		interval = 30 * time.Second
	}

	return demoConfig{
		SDKKey:       v.GetString("LD_SDK_KEY"),
		BaseURI:      v.GetString("LD_BASE_URI"),
		StreamURI:    v.GetString("LD_STREAM_URI"),
		PollInterval: interval,
		DataSource:   strings.ToLower(v.GetString("LD_DATA_SOURCE")),
		FlagKey:      v.GetString("LD_FLAG_KEY"),
		UserKey:      v.GetString("LD_USER_KEY"),
	}
}

func main() {
	cfg := loadConfig()
	if cfg.SDKKey == "" {
		log.Println("[sdk-demo] LD_SDK_KEY not set, running offline")
	}

	clientConfig := ldclient.Config{
		Offline:        cfg.SDKKey == "",
		LogLevel:       zerolog.InfoLevel,
		MetricsEnabled: true,
	}
	if !clientConfig.Offline {
		switch cfg.DataSource {
		case "polling":
			clientConfig.DataSource = ldclient.PollingDataSource().
				BaseURI(cfg.BaseURI).
				PollInterval(cfg.PollInterval)
		default:
			clientConfig.DataSource = ldclient.StreamingDataSource().
				BaseURI(cfg.StreamURI)
		}
	}

	client, err := ldclient.New(cfg.SDKKey, clientConfig)
	if err != nil {
		log.Fatalf("[sdk-demo] failed to create client: %v", err)
	}
	defer client.Close()

	log.Printf("[sdk-demo] client initialized=%v data_source=%s", client.Initialized(), cfg.DataSource)

	user := &ldclient.User{Key: cfg.UserKey}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			detail := client.VariationDetail(cfg.FlagKey, user)
			log.Printf("[sdk-demo] flag=%s user=%s value=%v reason=%s",
				cfg.FlagKey, cfg.UserKey, detail.Value, detail.Reason.Kind)
		case <-shutdownSignal:
			log.Println("[sdk-demo] shutdown signal received, closing client")
			return
		}
	}
}

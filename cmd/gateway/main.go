package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kodinohjaus/gateway/internal/api"
	"github.com/kodinohjaus/gateway/internal/auth"
	"github.com/kodinohjaus/gateway/internal/models"
	"github.com/kodinohjaus/gateway/internal/reconciler"
	"github.com/kodinohjaus/gateway/internal/service_registry"
	"github.com/kodinohjaus/gateway/internal/services"
	"github.com/kodinohjaus/gateway/internal/status"
	"github.com/kodinohjaus/gateway/internal/utils"
	"github.com/kodinohjaus/gateway/pkg/file"
	"github.com/kodinohjaus/gateway/pkg/identity"
	"github.com/kodinohjaus/gateway/pkg/location"
	"github.com/kodinohjaus/gateway/pkg/mqtt"
	"github.com/kodinohjaus/gateway/pkg/socket"
	"github.com/kodinohjaus/gateway/pkg/token"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	fileClient := file.NewFileService()
	config, err := utils.LoadConfig(configPath, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	clientInfo := identity.NewClientInfoStore(config.Auth.IdentityFile, fileClient)
	if err := clientInfo.Load(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load client identity")
	}
	clientID, err := clientInfo.EnsureClientID()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to establish client ID")
	}
	logger.Info().Str("client_id", clientID).Msg("Gateway identity ready")

	tokenStore := token.NewFileStore(config.Auth.TokenFile, fileClient, logger)

	conn := socket.NewWebSocketConnection(socket.Config{
		URL:                  config.Server.URL,
		HandshakeTimeout:     config.Server.HandshakeTimeout,
		ReconnectBaseDelay:   config.Reconnect.BaseDelay,
		ReconnectMaxDelay:    config.Reconnect.MaxDelay,
		ReconnectMaxAttempts: config.Reconnect.MaxAttempts,
		TokenFunc: func() string {
			if cred, ok := tokenStore.Get(); ok {
				return cred.Token
			}
			return ""
		},
	}, logger)

	classifier := reconciler.NewClassifier(config.Request.AuthKeywords...)
	requests := reconciler.New(conn, tokenStore, classifier, config.Request.Timeout, logger)
	requests.Start()

	locationProvider := buildLocationProvider(config, logger)
	coordinator := auth.NewCoordinator(requests, tokenStore, clientInfo, locationProvider, logger)
	requests.SetReauthenticator(coordinator)

	statusCache := status.NewCache(logger)
	apiClient := api.NewClient(requests, logger)

	registry := service_registry.NewServiceRegistry(logger)
	registry.RegisterService("status", services.NewStatusService(
		config.Services.Status.Event, conn, statusCache, logger))

	if config.Services.Ping.Enabled {
		registry.RegisterService("ping", services.NewPingService(
			config.Services.Ping.Interval, apiClient, logger))
	}
	if config.Services.Metrics.Enabled {
		registry.RegisterService("metrics", services.NewMetricsService(
			config.Services.Metrics.Interval,
			config.Services.Metrics.Timeout,
			clientID,
			models.MetricsConfig{
				MonitorCPU:    config.Services.Metrics.MonitorCPU,
				MonitorMemory: config.Services.Metrics.MonitorMemory,
			},
			apiClient,
			logger,
		))
	}
	if config.Services.MQTTBridge.Enabled {
		bridgeClient := mqtt.NewPahoClient(
			config.Services.MQTTBridge.Broker, config.Services.MQTTBridge.ClientID)
		registry.RegisterService("mqtt_bridge", services.NewMQTTBridgeService(
			config.Services.MQTTBridge.Topic,
			byte(config.Services.MQTTBridge.QOS),
			bridgeClient,
			statusCache,
			logger,
		))
	}

	// Every time the connection comes up, re-establish the session: stored
	// token first, one location attempt on failure, then the advisory server
	// version check.
	conn.OnStateChange(func(state socket.State) {
		logger.Info().Str("state", state.String()).Msg("Connectivity changed")
		if state != socket.StateConnected {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			if err := coordinator.InitializeOnStartup(ctx); err != nil {
				logger.Warn().Err(err).Msg("Automatic authentication failed, user action required")
				return
			}
			if err := apiClient.VerifyServerVersion(ctx, config.Server.MinVersion); err != nil {
				logger.Warn().Err(err).Msg("Server version check failed")
			}
		}()
	})

	if err := conn.Connect(); err != nil {
		// The reconnect loop is not in play before the first successful dial;
		// fail fast so a bad endpoint is obvious.
		logger.Fatal().Err(err).Msg("Failed to connect to server")
	}

	if err := registry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services started successfully")

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := registry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Service shutdown reported errors")
	}
	requests.Stop()
	if err := conn.Disconnect(); err != nil {
		logger.Warn().Err(err).Msg("Disconnect failed")
	}
}

// buildLocationProvider selects the coordinate source for location-based
// authentication. Returning nil is valid: automatic recovery then fails with
// a distinct reason and the user must authenticate manually.
func buildLocationProvider(config *utils.Config, logger zerolog.Logger) location.Provider {
	switch config.Location.Provider {
	case "google":
		provider, err := location.NewGoogleGeolocationProvider(config.Location.MapsAPIKey)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create Google geolocation provider")
			return nil
		}
		return provider
	case "gps":
		return location.NewDeviceSensorProvider(
			config.Location.GPSDevicePort, config.Location.GPSDeviceBaudRate)
	default:
		logger.Info().Msg("No location provider configured")
		return nil
	}
}

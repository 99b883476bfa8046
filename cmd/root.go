package cmd

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/AzielCF/az-blast/core/config"
	"github.com/AzielCF/az-blast/core/database"
	domainCampaign "github.com/AzielCF/az-blast/domains/campaign"
	domainEvents "github.com/AzielCF/az-blast/domains/events"
	domainGateway "github.com/AzielCF/az-blast/domains/gateway"
	domainHealth "github.com/AzielCF/az-blast/domains/health"
	"github.com/AzielCF/az-blast/infrastructure/valkey"
	"github.com/AzielCF/az-blast/infrastructure/webhook"
	infraWhatsapp "github.com/AzielCF/az-blast/infrastructure/whatsapp"
	"github.com/AzielCF/az-blast/pkg/utils"
	"github.com/AzielCF/az-blast/repository"
	"github.com/AzielCF/az-blast/ui/websocket"
	"github.com/AzielCF/az-blast/usecase"
)

var (
	cfg    *config.Config
	gormDB *gorm.DB

	campaignRepo domainCampaign.ICampaignRepository
	gateway      *infraWhatsapp.Gateway
	vkClient     *valkey.Client

	dispatcher      *usecase.Dispatcher
	campaignUsecase domainCampaign.ICampaignUsecase
	healthUsecase   domainHealth.IHealthUsecase
	scheduler       *usecase.Scheduler

	debugFlag bool
	portFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "az-blast",
	Short: "WhatsApp bulk campaign dispatcher",
	Long: `Campaign dispatcher over a paired WhatsApp session: templated messages,
paced delivery, retry with session reset, and live progress events.`,
}

func init() {
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "change port number with --port <number> | example: --port=8080")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "display debug logs with --debug=true")

	cobra.OnInitialize(initApp)
}

func initApp() {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if portFlag != "" {
		cfg.App.Port = portFlag
	}
	if debugFlag {
		cfg.App.Debug = true
	}
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
		cfg.Whatsapp.LogLevel = "DEBUG"
	}

	if err := utils.CreateFolder(cfg.Paths.Storages, cfg.Paths.QRCode); err != nil {
		logrus.Errorln(err)
	}

	ctx := context.Background()

	gormDB, err = database.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("Failed to open campaign database: %v", err)
	}

	repo := repository.NewCampaignGormRepository(gormDB)
	if err := repo.Init(ctx); err != nil {
		logrus.Fatalf("Failed to migrate campaign database: %v", err)
	}
	campaignRepo = repo

	if cfg.Valkey.Enabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Valkey.Address,
			Password:  cfg.Valkey.Password,
			DB:        cfg.Valkey.DB,
			KeyPrefix: cfg.Valkey.KeyPrefix,
		})
		if err != nil {
			logrus.Fatalf("Failed to connect to Valkey: %v", err)
		}
	}

	broadcaster := websocket.NewBroadcaster()

	gateway, err = infraWhatsapp.NewGateway(ctx, cfg, domainGateway.Events{
		Connected: func() {
			broadcaster.Emit(domainEvents.Event{Type: domainEvents.TypeGatewayConnected})
		},
		Disconnected: func() {
			broadcaster.Emit(domainEvents.Event{Type: domainEvents.TypeGatewayDisconnected})
		},
		QRCode: func(code string) {
			broadcaster.Emit(domainEvents.Event{
				Type: domainEvents.TypeGatewayQRCode,
				Data: domainEvents.GatewayQRCode{Code: code},
			})
		},
	})
	if err != nil {
		logrus.Fatalf("Failed to initialize WhatsApp gateway: %v", err)
	}

	var forwarder usecase.IEventForwarder
	if fw := webhook.NewForwarder(cfg); fw.Enabled() {
		forwarder = fw
	}

	dispatcher = usecase.NewDispatcher(campaignRepo, gateway, broadcaster, forwarder, cfg.Campaign)
	campaignUsecase = usecase.NewCampaignService(campaignRepo, dispatcher, cfg.Campaign)
	healthUsecase = usecase.NewHealthService(gormDB, gateway, dispatcher, cfg.App.Version)
	scheduler = usecase.NewScheduler(campaignRepo, campaignUsecase, cfg.Campaign.SchedulerSpec)

	// Bring the session up in the background when a device is already paired;
	// pairing a fresh device goes through the REST login endpoint.
	if gateway.DeviceAddress() != "" {
		go func() {
			if err := gateway.Connect(); err != nil {
				logrus.WithError(err).Warn("[GATEWAY] Initial connect failed")
			}
		}()
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of the dispatcher and its connections.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if scheduler != nil {
		scheduler.Stop()
	}
	if dispatcher != nil {
		dispatcher.Shutdown()
	}
	if gateway != nil {
		gateway.Close()
	}
	if vkClient != nil {
		vkClient.Close()
	}
	if gormDB != nil {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	logrus.Info("[APP] Application stopped cleanly.")
}

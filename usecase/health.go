package usecase

import (
	"context"

	"gorm.io/gorm"

	domainGateway "github.com/AzielCF/az-blast/domains/gateway"
	domainHealth "github.com/AzielCF/az-blast/domains/health"
)

type serviceHealth struct {
	db         *gorm.DB
	gateway    domainGateway.IGateway
	dispatcher *Dispatcher
	version    string
}

func NewHealthService(db *gorm.DB, gateway domainGateway.IGateway, dispatcher *Dispatcher, version string) domainHealth.IHealthUsecase {
	return &serviceHealth{
		db:         db,
		gateway:    gateway,
		dispatcher: dispatcher,
		version:    version,
	}
}

func (service *serviceHealth) GetStatus(ctx context.Context) (domainHealth.Status, error) {
	status := domainHealth.Status{
		Database:   domainHealth.StatusOk,
		Gateway:    domainHealth.StatusError,
		ActiveRuns: service.dispatcher.ActiveRuns(),
		Version:    service.version,
	}

	sqlDB, err := service.db.DB()
	if err != nil {
		status.Database = domainHealth.StatusError
	} else if err := sqlDB.PingContext(ctx); err != nil {
		status.Database = domainHealth.StatusError
	}

	if service.gateway.IsConnected() {
		status.Gateway = domainHealth.StatusOk
	}

	return status, nil
}

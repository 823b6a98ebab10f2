// Package app provides the main application context for Berth, managing the
// database and services.
package app

import (
	"github.com/berth-cd/berth/db"
	"github.com/berth-cd/berth/encryption"
	"github.com/berth-cd/berth/repository"
	"github.com/berth-cd/berth/services"
	"gorm.io/gorm"
)

var (
	database *gorm.DB
	deployer services.Deployer
	config   *services.Config
)

// InitializeWithConfig wires the database, repositories, runtime adapter,
// health verifier and orchestrator.
func InitializeWithConfig(cfg *services.Config) error {
	var err error
	config = cfg

	database, err = db.InitDB(cfg.DatabasePath)
	if err != nil {
		return err
	}

	var encryptionSvc *encryption.EncryptionService
	if cfg.EncryptionKey != "" {
		encryptionSvc, err = encryption.NewEncryptionService(cfg.EncryptionKey)
		if err != nil {
			return err
		}
	}

	slotRepo := repository.NewSlotRepository(database, encryptionSvc)
	deploymentRepo := repository.NewDeploymentRepository(database)

	runtime, err := services.NewDockerClient(cfg)
	if err != nil {
		return err
	}

	verifier := services.NewHealthVerifier(runtime, cfg.StartGracePeriod)
	deployer = services.NewOrchestrator(slotRepo, deploymentRepo, runtime, verifier, cfg)
	return nil
}

func GetDeployer() services.Deployer {
	return deployer
}

// SetDeployerForTesting allows overriding the deployer for testing purposes
func SetDeployerForTesting(d services.Deployer) {
	deployer = d
}

func GetConfig() *services.Config {
	return config
}

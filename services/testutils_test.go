package services

import (
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/berth-cd/berth/db"
	"github.com/berth-cd/berth/domain"
	"github.com/berth-cd/berth/repository"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	database, err := db.InitDatabase(db.DBConfig{
		Path:     ":memory:",
		LogLevel: logger.Silent,
	})
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	if err := db.AutoMigrateAll(database); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return database
}

// newTestConfig returns a config with timings shrunk for tests
func newTestConfig() *Config {
	return &Config{
		DataDir:             "/tmp",
		LogLevel:            "info",
		ColorEnabled:        false,
		DockerHost:          "unix:///var/run/docker.sock",
		PullTimeout:         5 * time.Second,
		StopTimeout:         time.Second,
		StartTimeout:        time.Second,
		StartGracePeriod:    0,
		RuntimeRetries:      2,
		RuntimeRetryBackoff: time.Millisecond,
	}
}

// setupOrchestrator wires an orchestrator against real repositories on an
// in-memory database and the in-memory fake runtime
func setupOrchestrator(t *testing.T) (*Orchestrator, *fakeRuntime, *MockHealthChecker) {
	database := setupTestDB(t)
	runtime := newFakeRuntime()
	health := &MockHealthChecker{}

	orchestrator := NewOrchestrator(
		repository.NewSlotRepository(database, nil),
		repository.NewDeploymentRepository(database),
		runtime,
		health,
		newTestConfig(),
	)
	return orchestrator, runtime, health
}

// createTestPlan returns a minimal valid plan for the given image
func createTestPlan(image string) *domain.DeploymentPlan {
	return &domain.DeploymentPlan{
		Image:         image,
		ContainerName: "web",
	}
}

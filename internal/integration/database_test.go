package integration

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"testing"
	"time"

	"lab-manager/internal/backend"
	"lab-manager/internal/config"
	"lab-manager/internal/database"
	"lab-manager/internal/model"
	"lab-manager/internal/repository"
	"lab-manager/internal/service"
	apperrors "lab-manager/pkg/errors"
	"lab-manager/pkg/validation"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// loadTestConfig reads the test database settings. Tests using it are skipped
// unless TEST_DB_NAME is set.
func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database integration test in short mode")
	}
	name := os.Getenv("TEST_DB_NAME")
	if name == "" {
		t.Skip("TEST_DB_NAME not set; skipping database integration test")
	}

	port, err := strconv.Atoi(getEnv("TEST_DB_PORT", "5432"))
	if err != nil {
		t.Fatalf("Invalid TEST_DB_PORT: %v", err)
	}

	return &config.Config{
		Backend: config.BackendPostgres,
		Database: config.DatabaseConfig{
			Driver:          getEnv("TEST_DB_DRIVER", "postgres"),
			Host:            getEnv("TEST_DB_HOST", "127.0.0.1"),
			Port:            port,
			User:            getEnv("TEST_DB_USER", "postgres"),
			Password:        getEnv("TEST_DB_PASSWORD", "postgres"),
			Name:            name,
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Minute,
			ConnMaxIdleTime: time.Minute,
		},
	}
}

// initTestDatabase connects, applies the schema and empties the tables.
func initTestDatabase(t *testing.T, cfg *config.Config) *sqlx.DB {
	t.Helper()

	db, err := database.InitDB(cfg)
	if err != nil {
		t.Skipf("Failed to connect to test database: %v. Ensure test database is running.", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	cleanDatabase(t, db)
	t.Cleanup(func() {
		cleanDatabase(t, db)
		db.Close()
	})
	return db
}

// cleanDatabase removes all test data
func cleanDatabase(t *testing.T, db *sqlx.DB) {
	t.Helper()
	if _, err := db.Exec("TRUNCATE TABLE incidents, components, computers CASCADE"); err != nil {
		t.Logf("Warning: Failed to clean database: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func TestIntegration_DatabaseOperations(t *testing.T) {
	db := initTestDatabase(t, loadTestConfig(t))
	client := backend.NewSQLClient(db)
	computers := repository.NewComputerRepository(client)
	ctx := context.Background()

	computer := model.Computer{ID: uuid.New(), Name: "DB-TEST-001", Status: model.StatusOperational}

	t.Run("Create and Retrieve Computer", func(t *testing.T) {
		if err := computers.CreateComputer(ctx, computer); err != nil {
			t.Fatalf("Failed to create computer: %v", err)
		}

		got, err := computers.GetComputerByID(ctx, computer.ID)
		if err != nil {
			t.Fatalf("Failed to retrieve computer: %v", err)
		}
		if got.Name != computer.Name || got.Status != computer.Status {
			t.Errorf("Expected %+v, got %+v", computer, got)
		}
		if got.CreatedAt.IsZero() {
			t.Error("Expected created_at to be set by the database")
		}
	})

	t.Run("Update Computer", func(t *testing.T) {
		if err := computers.UpdateComputer(ctx, computer.ID, "DB-TEST-002", model.StatusNonOperational); err != nil {
			t.Fatalf("Failed to update computer: %v", err)
		}

		got, err := computers.GetComputerByID(ctx, computer.ID)
		if err != nil {
			t.Fatalf("Failed to retrieve computer: %v", err)
		}
		if got.Name != "DB-TEST-002" || got.Status != model.StatusNonOperational {
			t.Errorf("Update not applied: %+v", got)
		}
	})

	t.Run("Missing Computer", func(t *testing.T) {
		_, err := computers.GetComputerByID(ctx, uuid.New())
		if !errors.Is(err, repository.ErrComputerNotFound) {
			t.Errorf("Expected ErrComputerNotFound, got %v", err)
		}
		err = computers.UpdateComputer(ctx, uuid.New(), "X", model.StatusOperational)
		if !errors.Is(err, repository.ErrComputerNotFound) {
			t.Errorf("Expected ErrComputerNotFound on update, got %v", err)
		}
	})

	t.Run("Ordering", func(t *testing.T) {
		for _, name := range []string{"C-2", "A-1", "B-3"} {
			c := model.Computer{ID: uuid.New(), Name: name, Status: model.StatusOperational}
			if err := computers.CreateComputer(ctx, c); err != nil {
				t.Fatalf("Failed to create computer: %v", err)
			}
		}

		list, err := computers.ListComputers(ctx)
		if err != nil {
			t.Fatalf("Failed to list computers: %v", err)
		}
		for i := 1; i < len(list); i++ {
			if list[i-1].Name > list[i].Name {
				t.Errorf("Computers not ordered by name: %q before %q", list[i-1].Name, list[i].Name)
			}
		}
	})
}

func TestIntegration_DatabaseConstraints(t *testing.T) {
	db := initTestDatabase(t, loadTestConfig(t))
	client := backend.NewSQLClient(db)
	ctx := context.Background()

	t.Run("Invalid status rejected", func(t *testing.T) {
		err := client.Insert(ctx, backend.TableComputers, backend.Values{
			"id":     uuid.New(),
			"name":   "BAD",
			"status": "broken",
		})
		if err == nil {
			t.Fatal("Expected check constraint violation")
		}
		var be *backend.Error
		if !errors.As(err, &be) {
			t.Errorf("Expected a *backend.Error, got %T", err)
		}
	})

	t.Run("Incident needs an existing computer", func(t *testing.T) {
		err := client.Insert(ctx, backend.TableIncidents, backend.Values{
			"id":           uuid.New(),
			"computer_id":  uuid.New(),
			"component_id": uuid.New(),
			"student_name": "Ana",
			"group_name":   "2B",
			"description":  "x",
			"reported_by":  "y",
		})
		if err == nil {
			t.Fatal("Expected foreign key violation")
		}
	})

	t.Run("Unfiltered delete refused", func(t *testing.T) {
		if _, err := client.Delete(ctx, backend.TableComputers); !errors.Is(err, backend.ErrMissingFilter) {
			t.Errorf("Expected ErrMissingFilter, got %v", err)
		}
	})
}

func TestIntegration_DatabaseCascade(t *testing.T) {
	db := initTestDatabase(t, loadTestConfig(t))
	client := backend.NewSQLClient(db)
	ctx := context.Background()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := service.NewLabService(
		repository.NewComputerRepository(client),
		repository.NewComponentRepository(client),
		repository.NewIncidentRepository(client),
		nil,
		logger,
	)

	computer, err := svc.SaveComputer(ctx, service.ComputerInput{Name: "LAB-01", Status: model.StatusOperational})
	if err != nil {
		t.Fatalf("Failed to save computer: %v", err)
	}

	monitor := uuid.New()
	if err := client.Insert(ctx, backend.TableComponents, backend.Values{
		"id":          monitor,
		"computer_id": computer.ID,
		"type":        model.ComponentMonitor,
		"status":      model.StatusOperational,
	}); err != nil {
		t.Fatalf("Failed to seed component: %v", err)
	}

	for _, description := range []string{"Pantalla parpadea", "Sin imagen"} {
		_, err := svc.FileIncident(ctx, computer.ID, validation.IncidentInput{
			StudentName: "Ana",
			GroupName:   "2B",
			ComponentID: monitor.String(),
			Description: description,
			ReportedBy:  "Prof. Ruiz",
		})
		if err != nil {
			t.Fatalf("Failed to file incident: %v", err)
		}
	}

	details := svc.LoadDetails(ctx, computer.ID)
	if !details.Found() {
		t.Fatalf("Expected computer to load: %v", details.ComputerErr)
	}
	if len(details.Components) != 1 || len(details.Incidents) != 2 {
		t.Fatalf("Expected 1 component and 2 incidents, got %d and %d", len(details.Components), len(details.Incidents))
	}
	if details.Incidents[0].Description != "Sin imagen" {
		t.Errorf("Expected newest incident first, got %q", details.Incidents[0].Description)
	}

	if err := svc.DeleteComputer(ctx, computer.ID); err != nil {
		t.Fatalf("Failed to delete computer: %v", err)
	}

	for _, table := range []string{backend.TableComputers, backend.TableComponents, backend.TableIncidents} {
		var n int
		if err := db.Get(&n, "SELECT count(*) FROM "+table); err != nil {
			t.Fatalf("Failed to count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("Expected %s to be empty after delete, got %d rows", table, n)
		}
	}

	if _, err := svc.GetComputer(ctx, computer.ID); !apperrors.IsCode(err, apperrors.ErrorCodeNotFound) {
		t.Errorf("Expected not found after delete, got %v", err)
	}
}

package provision

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"nbtp/internal/config"
)

var databaseNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// DatabaseManager manages per-worker databases
type DatabaseManager struct {
	config *config.Config
}

// NewDatabaseManager creates a new DatabaseManager
func NewDatabaseManager(cfg *config.Config) *DatabaseManager {
	return &DatabaseManager{config: cfg}
}

// DSN builds the server connection string from DB_* variables, reading
// <project>/.env first when present
func (dm *DatabaseManager) DSN() string {
	envPath := filepath.Join(dm.config.ProjectPath, ".env")
	if err := godotenv.Load(envPath); err != nil {
		// .env file might not exist, that's okay - use environment variables
		_ = err
	}

	dbHost := envOr("DB_HOST", "127.0.0.1")
	dbPort := envOr("DB_PORT", "3306")
	dbUser := envOr("DB_USERNAME", "root")
	dbPassword := os.Getenv("DB_PASSWORD")

	// Connect to the server without selecting a database
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/", dbUser, dbPassword, dbHost, dbPort)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// CheckAndCreateDatabases checks if worker databases exist and creates them if they don't
func (dm *DatabaseManager) CheckAndCreateDatabases(workerCount int) ([]int, error) {
	db, err := sql.Open("mysql", dm.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database server: %w", err)
	}
	defer db.Close()

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database server: %w", err)
	}

	availableWorkers := make([]int, 0, workerCount)
	for i := 1; i <= workerCount; i++ {
		dbName := dm.config.GetDatabaseName(i)

		exists, err := dm.databaseExists(db, dbName)
		if err != nil {
			return nil, fmt.Errorf("failed to check database %s: %w", dbName, err)
		}
		if !exists {
			if err := dm.createDatabase(db, dbName); err != nil {
				return nil, fmt.Errorf("failed to create database %s: %w", dbName, err)
			}
		}
		availableWorkers = append(availableWorkers, i)
	}

	return availableWorkers, nil
}

// databaseExists checks if a database exists
func (dm *DatabaseManager) databaseExists(db *sql.DB, dbName string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?)"
	err := db.QueryRow(query, dbName).Scan(&exists)
	return exists, err
}

// createDatabase creates a new database
func (dm *DatabaseManager) createDatabase(db *sql.DB, dbName string) error {
	if !ValidDatabaseName(dbName) {
		return fmt.Errorf("invalid database name: %s", dbName)
	}
	_, err := db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName))
	return err
}

// ValidDatabaseName reports whether name can be interpolated into DDL
func ValidDatabaseName(name string) bool {
	return databaseNamePattern.MatchString(name)
}

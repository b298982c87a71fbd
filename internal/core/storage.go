package core

import (
	"context"
	"fmt"
	"os"

	"cropplan/internal/archive"
	archivefs "cropplan/internal/archive/fs"
	archivemem "cropplan/internal/archive/memory"
	archives3 "cropplan/internal/archive/s3"
	"cropplan/internal/infra/persistence/memory"
	"cropplan/internal/infra/persistence/postgres"
	"cropplan/internal/infra/persistence/sqlite"

	"cropplan/pkg/domain"
)

// StorageDriver identifies a concrete plan storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPlanStorage selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	CROPPLAN_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	CROPPLAN_SQLITE_PATH: path to sqlite file (default ./cropplan.db)
//	CROPPLAN_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPlanStorage() (domain.PlanStorage, error) {
	driver := os.Getenv("CROPPLAN_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStorage(), nil
	case StorageSQLite:
		path := os.Getenv("CROPPLAN_SQLITE_PATH")
		return sqlite.NewStorage(path)
	case StoragePostgres:
		dsn := os.Getenv("CROPPLAN_POSTGRES_DSN")
		return postgres.NewStorage(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// OpenArchiveStore selects a plan archive backend using environment
// variables. Defaults to the local filesystem when unset.
//
//	CROPPLAN_ARCHIVE_DRIVER: fs|s3|memory (default fs)
//	CROPPLAN_ARCHIVE_FS_ROOT: root directory when driver=fs
//	CROPPLAN_ARCHIVE_S3_BUCKET et al: see the s3 package
func OpenArchiveStore(ctx context.Context) (archive.Store, error) {
	driver := os.Getenv("CROPPLAN_ARCHIVE_DRIVER")
	if driver == "" {
		driver = string(archive.DriverFilesystem)
	}
	switch archive.Driver(driver) {
	case archive.DriverFilesystem:
		return archivefs.New(os.Getenv("CROPPLAN_ARCHIVE_FS_ROOT"))
	case archive.DriverS3:
		return archives3.OpenFromEnv(ctx)
	case archive.DriverMemory:
		return archivemem.New(), nil
	default:
		return nil, fmt.Errorf("unknown archive driver %s", driver)
	}
}

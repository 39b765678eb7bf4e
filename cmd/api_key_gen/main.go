package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"fieldops/ledgersync/internal/config"
	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/db"
	"fieldops/ledgersync/internal/db/repositories"
	"fieldops/ledgersync/internal/models/entities"

	"github.com/google/uuid"
)

// Issues a machine key for one tenant. The printed value goes in X-API-Key.
func main() {
	tenantID := flag.String("tenant", "", "tenant id the key acts for")
	userID := flag.String("user", "", "user id recorded on audit rows")
	role := flag.String("role", string(constants.RoleManager), "member, manager or admin")
	label := flag.String("label", "", "optional description")
	flag.Parse()

	if *tenantID == "" || *userID == "" {
		log.Fatal("-tenant and -user are required")
	}
	r := constants.Role(*role)
	if !r.Valid() {
		log.Fatalf("unknown role %q", *role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sqlDB, err := db.InitPostgres(cfg.Database.PostgresDSN())
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer sqlDB.Close()

	key := &entities.ApiKey{
		ID:        uuid.NewString(),
		TenantID:  *tenantID,
		UserID:    *userID,
		Role:      r,
		Status:    "active",
		CreatedAt: time.Now().UTC(),
	}
	if *label != "" {
		key.Label = label
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repositories.NewApiKeysRepo(sqlDB).Insert(ctx, key); err != nil {
		log.Fatalf("insert api key: %v", err)
	}

	fmt.Println("New API Key:", key.ID)
}

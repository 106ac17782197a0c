package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"trading-signal-console/internal/config"
	"trading-signal-console/internal/domain/model"
	"trading-signal-console/internal/domain/ports/repository"
	pg "trading-signal-console/internal/infra/db/postgres"
	"trading-signal-console/internal/infra/logging"
	"trading-signal-console/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	adminID := flag.Int64("admin", 0, "principal id to bootstrap into the admin group")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	groupRepo := pg.NewGroupRepo(pool)
	principalRepo := pg.NewPrincipalRepo(pool)
	tm := pg.NewTxManager(pool)
	groupUC := usecase.NewGroupUseCase(groupRepo, principalRepo, tm, logger)

	// If groups already exist, do nothing.
	groups, err := groupUC.List(ctx)
	if err != nil {
		log.Fatalf("list groups: %v", err)
	}
	if len(groups) > 0 {
		fmt.Printf("%d groups already present. No changes.\n", len(groups))
		for _, g := range groups {
			fmt.Printf("  - %s (id=%d, tabs=%v)\n", g.Name, g.ID, g.AllowedTabs)
		}
		return
	}

	seed := []struct {
		Name string
		Tabs []string
	}{
		{"default", []string{"dashboard", "signals", "demo"}},
		{"premium", []string{"dashboard", "signals", "chart", "autotrade", "scanner", "pnl", "settings"}},
		{"admin", []string{"dashboard", "signals", "chart", "demo", "autotrade", "scanner", "pnl", "settings", "admin"}},
	}

	var adminGroupID int64
	for _, s := range seed {
		g, err := groupUC.Create(ctx, s.Name, s.Tabs)
		if err != nil {
			log.Fatalf("create group %q: %v", s.Name, err)
		}
		if s.Name == "admin" {
			adminGroupID = g.ID
		}
		fmt.Printf("seeded: %s (id=%d, tabs=%v)\n", g.Name, g.ID, g.AllowedTabs)
	}

	if *adminID > 0 {
		p, err := model.NewPrincipal(*adminID, adminGroupID)
		if err != nil {
			log.Fatalf("admin principal: %v", err)
		}
		if err := principalRepo.Save(ctx, repository.NoTX, p); err != nil {
			log.Fatalf("save admin principal: %v", err)
		}
		fmt.Printf("bootstrapped admin principal %d into group %d\n", *adminID, adminGroupID)
	}

	fmt.Println("✅ Seeding complete.")
}

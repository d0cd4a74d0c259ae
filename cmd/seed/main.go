// File: cmd/seed/main.go
// Creates the schema and seeds the plan catalog. Safe to run repeatedly.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain/model"
	pg "subscription-billing/internal/infra/db/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS plans (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    price       NUMERIC(12,2) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL,
    plan_id      TEXT NOT NULL REFERENCES plans(id),
    status       TEXT NOT NULL,
    start_date   TIMESTAMPTZ,
    end_date     TIMESTAMPTZ,
    is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (user_id, plan_id)
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_user_status ON subscriptions (user_id, status);

CREATE TABLE IF NOT EXISTS payments (
    id                    TEXT PRIMARY KEY,
    user_id               TEXT NOT NULL,
    subscription_id       TEXT NOT NULL REFERENCES subscriptions(id),
    amount                NUMERIC(12,2) NOT NULL,
    payment_method        TEXT NOT NULL,
    status                TEXT NOT NULL,
    payment_date          TIMESTAMPTZ NOT NULL,
    transaction_reference TEXT,
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_txref ON payments (transaction_reference) WHERE transaction_reference IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_payments_subscription ON payments (subscription_id);
`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	withPlans := flag.Bool("plans", true, "seed the default plan catalog")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("schema: %v", err)
	}
	log.Println("schema ready")

	if !*withPlans {
		return
	}

	repo := pg.NewPlanRepo(pool)
	seed := []struct {
		name  string
		price string
		desc  string
	}{
		{"Basic Monthly", "9.99", "30 days of access"},
		{"Standard Monthly", "19.99", "30 days of access with priority support"},
		{"Premium Monthly", "39.99", "30 days of full access"},
	}
	for _, s := range seed {
		existing, err := repo.ListAll(ctx)
		if err != nil {
			log.Fatalf("list plans: %v", err)
		}
		found := false
		for _, p := range existing {
			if p.Name == s.name {
				found = true
				break
			}
		}
		if found {
			continue
		}
		price, _ := decimal.NewFromString(s.price)
		plan, err := model.NewPlan(uuid.NewString(), s.name, price, s.desc)
		if err != nil {
			log.Fatalf("plan %s: %v", s.name, err)
		}
		if err := repo.Save(ctx, plan); err != nil {
			log.Fatalf("save plan %s: %v", s.name, err)
		}
		log.Printf("seeded plan %q (%s)", s.name, s.price)
	}
}

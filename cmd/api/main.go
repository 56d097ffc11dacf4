package main

import (
	"context"
	"log"
	"os"

	"retribusi/audit"
	"retribusi/auth"
	"retribusi/db"
	"retribusi/dispute"
	"retribusi/payment"
)

func main() {
	ctx := context.Background()

	connString := os.Getenv("DATABASE_URL")
	pool, err := db.NewPool(ctx, connString)
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	timeline := audit.NewTimeline()
	outbox := audit.NewOutbox()

	identity := auth.NewService(auth.NewRepository(pool), os.Getenv("JWT_SECRET"))
	payments := payment.NewService(pool, payment.NewRepository(pool), identity, timeline, outbox)
	disputes := dispute.NewService(pool, dispute.NewRepository(pool), identity, timeline, outbox)

	log.Printf("waste-fee ledger ready: identity=%t payments=%t disputes=%t",
		identity != nil, payments != nil, disputes != nil)
}

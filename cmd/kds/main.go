// Command kds runs a headless kitchen display terminal: it follows one
// branch's order queue over the polling protocol and prints the queue
// whenever it changes.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/marejada-pos/api/internal/client"
	"github.com/marejada-pos/api/internal/config"
	"github.com/marejada-pos/api/internal/kitchen"
)

func main() {
	cfg := config.Load()

	if cfg.BranchID == "" || cfg.Token == "" {
		log.Fatal("BRANCH_ID and TOKEN are required")
	}
	branchID, err := uuid.Parse(cfg.BranchID)
	if err != nil {
		log.Fatalf("invalid BRANCH_ID: %v", err)
	}

	api := client.New(cfg.APIBaseURL, cfg.Token)
	sync := kitchen.NewSyncClient(api, branchID, cfg.PollInterval)
	sync.OnReplace = printQueue

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("Following queue for branch %s (poll every %s)", branchID, cfg.PollInterval)
	sync.Run(ctx)
}

func printQueue(orders []client.KitchenOrder) {
	fmt.Fprintf(os.Stdout, "--- queue (%d orders) ---\n", len(orders))
	for _, o := range orders {
		fmt.Fprintf(os.Stdout, "%s  %-9s  %s  %d items\n",
			o.OrderNumber, o.Status, o.CreatedAt.Format("15:04:05"), len(o.Items))
	}
}

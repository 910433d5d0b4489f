package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/marcelsud/shipment-relay/config"
	"github.com/marcelsud/shipment-relay/shipment"
	"github.com/marcelsud/shipment-relay/shipment/redis"
)

/* publish - puts one shipment update on the intake stream, for local testing
 * Usage: go run cmd/publish/main.go -shipment SHP-1 -status delivered -signature /uploads/SHP-1/sig.png
 */

func main() {
	var (
		webhook   = flag.String("webhook", "", "target webhook name (empty means default)")
		id        = flag.String("shipment", "", "shipment id")
		tracking  = flag.String("tracking", "", "tracking number")
		status    = flag.String("status", "in_transit", "shipment status")
		signature = flag.String("signature", "", "signature locator; adds an acknowledgment")
		photo     = flag.String("photo", "", "photo locator; adds an acknowledgment")
	)
	flag.Parse()

	if *id == "" {
		fmt.Println("-shipment is required")
		return
	}

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx := context.Background()
	repo, err := redis.NewStreamRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisStream, cfg.RedisGroup, "publisher")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer repo.Close(ctx)

	now := time.Now().UTC()
	update := shipment.Update{
		Webhook: *webhook,
		Shipment: shipment.Shipment{
			ID:             *id,
			TrackingNumber: *tracking,
			Status:         *status,
			UpdatedAt:      now,
		},
	}
	if *signature != "" || *photo != "" {
		update.Acknowledgment = &shipment.Acknowledgment{
			ShipmentID:   *id,
			SignatureURL: *signature,
			PhotoURL:     *photo,
			CapturedAt:   now,
		}
	}

	streamID, err := repo.Publish(ctx, update)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("published %s as %s\n", *id, streamID)
}

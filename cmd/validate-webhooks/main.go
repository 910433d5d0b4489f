package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/shipment-relay/registry"
)

/* validate-webhooks - Standalone CLI tool to validate webhooks.yaml
 * Usage: go run cmd/validate-webhooks/main.go [webhooks.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	webhooksFile := "webhooks.yaml"
	if len(os.Args) > 1 {
		webhooksFile = os.Args[1]
	}

	fmt.Printf("Validating webhooks file: %s\n", webhooksFile)
	fmt.Println(strings.Repeat("-", 50))

	configs, err := registry.LoadFile(webhooksFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d webhook(s):\n", len(configs))

	for i, cfg := range configs {
		fmt.Printf("\n%d. Webhook: %s\n", i+1, cfg.Name)
		fmt.Printf("   URL:         %s\n", cfg.URL)
		fmt.Printf("   Enabled:     %t\n", cfg.Enabled)
		fmt.Printf("   Max Retries: %d\n", cfg.MaxRetries)
		fmt.Printf("   Retry Delay: %s\n", cfg.RetryDelay)
		fmt.Printf("   Timeout:     %s\n", cfg.Timeout)
		fmt.Printf("   Token:       %t\n", cfg.Token != "")
		if cfg.SigningSecret != "" {
			fmt.Printf("   Signed:      yes\n")
		}
	}

	fmt.Printf("\n✓ All webhooks are valid!\n")
	os.Exit(0)
}

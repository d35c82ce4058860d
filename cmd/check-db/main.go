// Package main is a diagnostic tool that connects to the configured database and
// reports membership data the schema constraints cannot rule out: organizations
// with no ORGANIZATION_ADMIN, websites nobody can reach, membership rows whose
// role belongs to the other resource kind, rows orphaned by out-of-band deletes,
// and memberships held by deactivated users. It exits non-zero when something needs repair so it can gate
// a deployment step.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/blokid/blokid-backend/internal/config"
	"github.com/blokid/blokid-backend/internal/db"
	"github.com/blokid/blokid-backend/internal/db/repositories"
)

func main() {
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), 2, 1)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := repositories.NewIntegrityRepository(database).Report(ctx)
	if err != nil {
		log.Fatalf("Integrity check failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("Failed to encode report: %v", err)
		}
	} else {
		fmt.Println("=== COUNTS ===")
		fmt.Printf("Users: %d\nOrganizations: %d\nWebsites: %d\n", report.Users, report.Organizations, report.Websites)
		fmt.Printf("Memberships held by inactive users: %d\n", report.InactiveMemberships)

		fmt.Println("\n=== ORGANIZATIONS WITHOUT ADMIN ===")
		if len(report.OrganizationsWithoutAdmin) == 0 {
			fmt.Println("None")
		}
		for _, org := range report.OrganizationsWithoutAdmin {
			fmt.Printf("Organization: %s (ID: %s, owner: %s)\n", org.Name, org.ID, org.OwnerID)
		}

		fmt.Println("\n=== ANOMALIES ===")
		fmt.Printf("Unreachable websites: %d\n", report.UnreachableWebsites)
		fmt.Printf("Membership rows with an out-of-scope role: %d\n", report.OutOfScopeRoles)
		fmt.Printf("Membership rows whose user or resource is gone: %d\n", report.OrphanedMemberships)
		fmt.Printf("Websites whose organization is gone: %d\n", report.OrphanedWebsites)
	}

	if !report.Healthy() {
		os.Exit(1)
	}
}

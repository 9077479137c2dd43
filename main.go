package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/asaidimu/go-dyndocs/config"
	"github.com/asaidimu/go-dyndocs/core/document"
	"github.com/asaidimu/go-dyndocs/core/engine"
	"github.com/asaidimu/go-dyndocs/core/registry"
	"github.com/asaidimu/go-dyndocs/core/schema"
	"github.com/asaidimu/go-dyndocs/memory"
	"github.com/asaidimu/go-dyndocs/sqlite"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

// This demo wires the engine against the in-memory document store and a
// SQLite tenant directory, then walks the invoice scenario: define a
// schema, activate it, create documents, search, update, and read back.
func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		log.Fatalf("failed to open tenant database: %v", err)
	}
	defer db.Close()

	tenants := sqlite.NewTenantDirectory(db, logger)
	if err := tenants.Init(ctx); err != nil {
		log.Fatalf("failed to initialize tenant directory: %v", err)
	}

	tenantID := uuid.NewString()
	if err := tenants.AddTenant(ctx, tenantID, "Acme Corp"); err != nil {
		log.Fatalf("failed to register tenant: %v", err)
	}

	schemaStore := memory.NewSchemaStore()
	provider := memory.NewProvider()

	reg := registry.New(schemaStore, logger)
	cache := document.NewCache(provider, logger)
	docs := document.NewService(reg, cache, logger)

	eng, err := engine.New(reg, docs, tenants, logger)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}

	eng.RegisterSubscription(engine.EventDocumentsCreated, func(ctx context.Context, event engine.Event) error {
		fmt.Printf("event: %s collection=%s count=%d\n", event.Type, event.DocumentType, event.Count)
		return nil
	})

	created, err := eng.CreateSchema(ctx, []registry.CreateRequest{{
		TenantID:     tenantID,
		DocumentType: "invoice",
		IsActive:     true,
		Description:  "Customer invoices",
		Fields: []schema.FieldDefinition{
			{Name: "invoice_number", Type: schema.FieldTypeString, Required: true, Unique: true},
			{Name: "amount", Type: schema.FieldTypeNumber, Required: true},
			{Name: "status", Type: schema.FieldTypeString, AllowedValues: []any{"open", "paid", "void"}},
		},
	}})
	if err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}
	fmt.Printf("created schema %s v%d\n", created[0].DocumentType, created[0].Version)

	inserted, err := eng.CreateDocuments(ctx, tenantID, "invoice", []map[string]any{
		{"invoice_number": "INV-001", "amount": 1250.00, "status": "open"},
		{"invoice_number": "INV-002", "amount": 310.50, "status": "paid"},
	}, "")
	if err != nil {
		log.Fatalf("failed to create documents: %v", err)
	}

	fetched, err := eng.GetDocument(ctx, tenantID, "invoice", inserted[0].ID)
	if err != nil {
		log.Fatalf("failed to fetch document: %v", err)
	}
	printJSON("fetched", fetched)

	matches, err := eng.SearchDocuments(ctx, tenantID, "invoice", "invoice_number", "INV-001")
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}
	printJSON("search matches", matches)

	updated, err := eng.UpdateDocument(ctx, tenantID, "invoice", inserted[0].ID, map[string]any{"status": "paid"}, "")
	if err != nil {
		log.Fatalf("failed to update document: %v", err)
	}
	printJSON("updated", updated)
}

// newLogger builds a development zap logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return cfg.Build()
}

// printJSON pretty-prints a labeled value.
func printJSON(label string, value any) {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode %s: %v", label, err)
	}
	fmt.Printf("%s:\n%s\n", label, encoded)
}

// Package app is the composition root: it wires configuration, storage,
// the extension registry, the mediator, and the receipt builder into one
// object handed to commands. Everything is constructor-injected — there
// are no package-level singletons — so tests can assemble an App around an
// in-memory capability.
package app

import (
	"fmt"

	"github.com/attestor-io/attestor/internal/classifier"
	"github.com/attestor-io/attestor/internal/config"
	"github.com/attestor-io/attestor/internal/extension"
	"github.com/attestor-io/attestor/internal/receipt"
	"github.com/attestor-io/attestor/internal/resource"
	"github.com/attestor-io/attestor/internal/retention"
	"github.com/attestor-io/attestor/internal/storage"
)

// App bundles the wired components of one attestor process.
type App struct {
	Config   *config.Config
	Registry *extension.Registry
	Mediator *resource.Mediator
	Signer   *receipt.Signer
	Mapper   *classifier.Mapper
	Builder  *receipt.Builder
	Store    *receipt.Store
	Sweeper  *retention.Sweeper

	closer func() error
}

// New wires an App from operator configuration, with receipts durably
// stored in SQLite under the data directory.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := storage.NewSQLite(cfg.ReceiptsDBPath())
	if err != nil {
		return nil, err
	}

	a, err := assemble(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.closer = db.Close
	return a, nil
}

// NewInMemory wires an App around the in-memory capability. Used by tests
// and by one-shot commands that never need durability.
func NewInMemory(cfg *config.Config) (*App, error) {
	return assemble(cfg, storage.NewMemory())
}

func assemble(cfg *config.Config, capability resource.Capability) (*App, error) {
	registry := extension.NewRegistry(
		extension.WithDuplicatePolicy(extension.ParseDuplicatePolicy(cfg.DuplicateSlotPolicy)))

	med, err := resource.NewMediator(capability, registry, capabilityName(capability))
	if err != nil {
		return nil, err
	}

	signer, err := receipt.NewSigner(cfg.SigningKey)
	if err != nil {
		return nil, err
	}

	mapper, err := loadMapper(cfg.RegimeRegistry)
	if err != nil {
		return nil, err
	}

	builder := receipt.NewBuilder(med, signer, receipt.BuilderOptions{
		Mapper:            mapper,
		RevenueScale:      cfg.RevenueScaleFactor,
		DefaultDurationMS: cfg.DefaultDurationMS,
	})

	return &App{
		Config:   cfg,
		Registry: registry,
		Mediator: med,
		Signer:   signer,
		Mapper:   mapper,
		Builder:  builder,
		Store:    receipt.NewStore(med),
		Sweeper:  retention.NewSweeper(med, cfg.RetentionDays),
	}, nil
}

// loadMapper builds the regime alias table: shipped defaults plus the
// operator's registry file when configured.
func loadMapper(registryPath string) (*classifier.Mapper, error) {
	if registryPath == "" {
		return classifier.NewMapper(), nil
	}
	rf, err := classifier.LoadRegimeFile(registryPath)
	if err != nil {
		return nil, fmt.Errorf("loading regime registry: %w", err)
	}
	if rf == nil {
		return classifier.NewMapper(), nil
	}
	return classifier.NewMapper(rf.Regimes), nil
}

func capabilityName(c resource.Capability) string {
	switch c.(type) {
	case *storage.SQLite:
		return "sqlite"
	case *storage.Memory:
		return "memory"
	default:
		return fmt.Sprintf("%T", c)
	}
}

// LinkedBuilder returns a builder that relates new receipts to prior ones
// sharing agent and business context. Separate from the default Builder
// because linkage scans the receipts namespace on every build.
func (a *App) LinkedBuilder() *receipt.Builder {
	return receipt.NewBuilder(a.Mediator, a.Signer, receipt.BuilderOptions{
		Mapper:            a.Mapper,
		RevenueScale:      a.Config.RevenueScaleFactor,
		DefaultDurationMS: a.Config.DefaultDurationMS,
		Linkage:           &receipt.ContextLinkage{Mediator: a.Mediator},
	})
}

// Close releases the App's storage resources.
func (a *App) Close() error {
	if a.closer != nil {
		return a.closer()
	}
	return nil
}

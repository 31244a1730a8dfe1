package cmd

import (
	"prizeledger/api"
	"prizeledger/config"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"
	"prizeledger/domain/services"
	"prizeledger/repository"
)

// ServiceSet is every domain service of one process
type ServiceSet struct {
	Transfers  interfaces.TransferCoordinator
	Allocator  interfaces.TicketAllocator
	Purchases  interfaces.PurchaseService
	Raffles    interfaces.RaffleService
	Draws      interfaces.DrawEngine
	Wallets    interfaces.WalletService
	Reconciler interfaces.Reconciler
}

// NewServiceSet wires the domain services over repos
func NewServiceSet(
	cfg *config.Config,
	repos *repository.Repositories,
	publisher interfaces.EventPublisher,
	alerter interfaces.OperatorAlerter,
	metrics interfaces.MetricsRecorder,
) *ServiceSet {
	ledger := services.NewLedgerWriter(repos.Ledger, alerter, metrics)
	transfers := services.NewTransferCoordinator(
		repos.Wallets,
		repos.Withdrawals,
		ledger,
		publisher,
		alerter,
		metrics,
		CoordinatorSettings(cfg),
	)
	allocator := services.NewTicketAllocator(repos.Raffles, publisher, metrics)

	return &ServiceSet{
		Transfers: transfers,
		Allocator: allocator,
		Purchases: services.NewPurchaseService(repos.Raffles, repos.Wallets, transfers, allocator, alerter, metrics),
		Raffles:   services.NewRaffleService(repos.Raffles, repos.Entries, repos.Wallets, transfers, publisher, alerter),
		Draws: services.NewDrawEngine(
			repos.Raffles,
			repos.Entries,
			repos.DrawResults,
			repos.Prizes,
			repos.Wallets,
			transfers,
			publisher,
			alerter,
			metrics,
		),
		Wallets:    services.NewWalletService(repos.Wallets, repos.Ledger, WalletSlots(cfg.DefaultWallets)),
		Reconciler: services.NewReconciliationService(repos.Wallets, repos.Ledger),
	}
}

// API returns the services the HTTP surface needs
func (s *ServiceSet) API() api.Services {
	return api.Services{
		Wallets:    s.Wallets,
		Transfers:  s.Transfers,
		Allocator:  s.Allocator,
		Purchases:  s.Purchases,
		Raffles:    s.Raffles,
		Draws:      s.Draws,
		Reconciler: s.Reconciler,
	}
}

// CoordinatorSettings converts the wallet and exchange configuration
func CoordinatorSettings(cfg *config.Config) services.CoordinatorSettings {
	return services.CoordinatorSettings{
		MaxRetries: cfg.MaxRetries,
		Exchange: services.ExchangeSettings{
			SourceKind:     entities.WalletKind(cfg.ExchangeSource.Kind),
			SourceCurrency: cfg.ExchangeSource.Currency,
			TargetKind:     entities.WalletKind(cfg.ExchangeTarget.Kind),
			TargetCurrency: cfg.ExchangeTarget.Currency,
			Rate:           cfg.ExchangeRate,
		},
	}
}

// WalletSlots converts configured wallet specs to the slots every account is opened with
func WalletSlots(specs []config.WalletSpec) []services.WalletSlot {
	slots := make([]services.WalletSlot, 0, len(specs))
	for _, spec := range specs {
		slots = append(slots, services.WalletSlot{
			Kind:     entities.WalletKind(spec.Kind),
			Currency: spec.Currency,
		})
	}
	return slots
}

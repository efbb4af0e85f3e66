package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/ledgerq/internal/config"
	"github.com/roach88/ledgerq/internal/contract"
	"github.com/roach88/ledgerq/internal/engine"
	"github.com/roach88/ledgerq/internal/store"
	"github.com/roach88/ledgerq/internal/vm"
)

// host is the configured contract and its call log.
type host struct {
	cfg      config.Config
	logger   zerolog.Logger
	store    *store.Store
	contract *contract.Contract
}

// openHost loads the configuration, opens the call log and builds the
// configured contract. Failures are command errors.
func openHost(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*host, error) {
	cfg, err := opts.Config()
	if err != nil {
		return nil, commandError(f, ErrCodeInvalid, "invalid configuration", err)
	}
	logger := Logger(cfg, cmd.ErrOrStderr())

	addr, err := cfg.ContractAddress()
	if err != nil {
		return nil, commandError(f, ErrCodeInvalid, "invalid contract address", err)
	}
	interp := vm.New(vm.WithReadCacheSize(cfg.ReadCacheSize), vm.WithLogger(logger))
	c, err := opts.registry.Build(cfg.Contract,
		contract.WithInterpreter(interp),
		contract.WithAddress(addr),
		contract.WithLogger(logger),
	)
	if err != nil {
		return nil, commandError(f, ErrCodeLoadFailed, "building contract", err)
	}

	f.VerboseLog("Opening call log %s", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, commandError(f, ErrCodeNotFound, "opening database", err)
	}

	return &host{cfg: cfg, logger: logger, store: st, contract: c}, nil
}

// Close closes the call log.
func (h *host) Close() error {
	return h.store.Close()
}

// Address returns the hosted instance's address string.
func (h *host) Address() string {
	return h.contract.Address().String()
}

// Engine deploys or resumes the hosted instance.
func (h *host) Engine(ctx context.Context) (*engine.Engine, error) {
	return engine.New(ctx, h.contract,
		contract.ConstructorContext{
			InitialPrivateState:     h.cfg.PrivateState,
			InitialWalletLocalState: map[string]any{},
		},
		engine.WithStore(h.store),
		engine.WithGasLimit(h.cfg.GasLimit),
		engine.WithLogger(h.logger),
	)
}

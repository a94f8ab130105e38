package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/campaign"
	"github.com/dmitrijs2005/invisibledrop/internal/chain"
	"github.com/dmitrijs2005/invisibledrop/internal/claim"
	"github.com/dmitrijs2005/invisibledrop/internal/client/config"
	"github.com/dmitrijs2005/invisibledrop/internal/client/store"
	"github.com/dmitrijs2005/invisibledrop/internal/client/wallet"
	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/eligibility"
	"github.com/dmitrijs2005/invisibledrop/internal/fhe"
	"github.com/dmitrijs2005/invisibledrop/internal/filex"
	"github.com/dmitrijs2005/invisibledrop/internal/logging"
	"github.com/dmitrijs2005/invisibledrop/internal/registry"
	"github.com/dmitrijs2005/invisibledrop/internal/tokens"
	"github.com/dmitrijs2005/invisibledrop/internal/txsubmit"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const pingTimeout = 3 * time.Second

// errNoWallet is returned by commands that need to sign while no wallet is
// unlocked.
var errNoWallet = fmt.Errorf("unlock a wallet first: %w", common.ErrReadOnly)

// Deps are the external resources an App is built on.
type Deps struct {
	Config     *config.Config
	Book       chain.AddressBook
	Network    chain.Network
	Backend    chain.Backend
	Store      *store.Store
	Decryption fhe.Service
	Logger     logging.Logger
	In         io.Reader
	Out        io.Writer
}

type App struct {
	config  *config.Config
	book    chain.AddressBook
	network chain.Network
	backend chain.Backend
	store   *store.Store
	logger  logging.Logger

	keystore  *wallet.Keystore
	session   *session
	registry  *registry.Client
	checker   *eligibility.Checker
	machine   *claim.Machine
	campaigns *campaign.Manager
	tokens    *tokens.Service
	decrypter *fhe.Client

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time

	mu           sync.Mutex
	mode         Mode
	chainChecked bool

	closers []func() error
}

// New assembles the application from d.
func New(d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	out := d.Out
	if out == nil {
		out = os.Stdout
	}
	in := d.In
	if in == nil {
		in = os.Stdin
	}

	sess := &session{}
	contracts := d.Network.Contracts
	chainID := new(big.Int).SetUint64(d.Network.ChainID)

	submitter := txsubmit.New(d.Backend, sess, chainID, txsubmit.Options{
		Confirmations: d.Config.Confirmations,
		PollInterval:  d.Config.PollInterval,
	}, logger)

	reg := registry.New(contracts.InvisibleDrop, d.Backend, logger, d.Config.FetchConcurrency)
	tok := tokens.New(contracts, d.Backend, submitter, logger)
	mgr := campaign.NewManager(contracts.InvisibleDrop, d.Backend, submitter, logger)
	checker := eligibility.NewChecker(reg, tok)

	return &App{
		config:    d.Config,
		book:      d.Book,
		network:   d.Network,
		backend:   d.Backend,
		store:     d.Store,
		logger:    logger.With("module", "cli"),
		keystore:  wallet.NewKeystore(d.Store.DB),
		session:   sess,
		registry:  reg,
		checker:   checker,
		machine:   claim.NewMachine(checker, reg, submitter, mgr, logger, claim.WithJournal(d.Store.Journal)),
		campaigns: mgr,
		tokens:    tok,
		decrypter: fhe.NewClient(d.Decryption, logger),
		reader:    bufio.NewReader(in),
		out:       &syncWriter{w: out},
		now:       time.Now,
		mode:      ModeOffline,
	}
}

// NewApp opens the local store, dials the RPC endpoint and builds the App
// described by c.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	book, err := c.AddressBook()
	if err != nil {
		return nil, err
	}
	network, err := book.Lookup(c.NetworkID)
	if err != nil {
		return nil, err
	}
	if c.RPCURL != "" {
		network.RPCURL = c.RPCURL
	}

	if err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	client, err := chain.Dial(ctx, network.RPCURL)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	app := New(Deps{
		Config:     c,
		Book:       book,
		Network:    network,
		Backend:    client,
		Store:      st,
		Decryption: fhe.NewHTTPService(c.RelayerURL, c.RelayerToken),
		Logger:     logger,
	})
	app.closers = append(app.closers, func() error { client.Close(); return nil }, st.Close)
	return app, nil
}

// Run restores the saved snapshot, selects the initial signer, starts the
// online watcher and blocks in the REPL until the user exits or ctx ends.
func (a *App) Run(ctx context.Context) {
	defer a.close()

	fmt.Fprintf(a.out, "Welcome to InvisibleDrop CLI on %s (type 'help' for commands)\n", a.network.Name)

	a.restoreSnapshot(ctx)
	a.initSigner(ctx)
	a.probe(ctx)

	watchCtx, cancel := context.WithCancel(ctx)
	transitions, unsubscribe := a.machine.Subscribe(16)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.StartOnlineStatusWatcher(watchCtx, a.config.OnlineCheckInterval)
	}()
	go func() {
		defer wg.Done()
		for t := range transitions {
			fmt.Fprintf(a.out, "[claim %d] %s -> %s\n", t.Key.CampaignID, t.From, t.To)
		}
	}()

	runREPL(ctx, a, bufio.NewScanner(a.reader))

	cancel()
	unsubscribe()
	wg.Wait()
}

// syncWriter serialises writes from the REPL and background goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (a *App) close() {
	a.session.set(nil)
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
}

// initSigner watches the configured address, or the keystore address when a
// key has been imported, until the user unlocks.
func (a *App) initSigner(ctx context.Context) {
	if a.config.WatchAddress != "" {
		if !ethcommon.IsHexAddress(a.config.WatchAddress) {
			fmt.Fprintf(a.out, "Ignoring invalid watch address %q\n", a.config.WatchAddress)
		} else {
			a.session.set(chain.NewReadOnly(ethcommon.HexToAddress(a.config.WatchAddress)))
			return
		}
	}
	addr, err := a.keystore.Address(ctx)
	if err == nil {
		a.session.set(chain.NewReadOnly(addr))
		fmt.Fprintf(a.out, "Wallet %s found, type 'unlock' to sign\n", addr.Hex())
		return
	}
	if !errors.Is(err, common.ErrorNotFound) {
		a.logger.Warn(ctx, "keystore read failed", "error", err)
	}
	fmt.Fprintln(a.out, "No wallet yet, type 'import' to add one")
}

func (a *App) getStatus() string {
	s := string(a.Mode())
	if addr := a.session.Address(); addr != (ethcommon.Address{}) {
		tag := "watch"
		if a.session.CanSign() {
			tag = "unlocked"
		}
		s = fmt.Sprintf("%s %s %s", shortAddress(addr), tag, s)
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(ctx, "mode switched", "mode", string(mode))
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

// probe checks RPC reachability once and updates the mode.
func (a *App) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	_, err := a.backend.BlockNumber(pctx)
	cancel()

	if err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

// StartOnlineStatusWatcher probes the RPC endpoint every interval until ctx
// is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ensureWritable fails unless a wallet is unlocked, the client is online and
// the RPC endpoint serves the selected network.
func (a *App) ensureWritable(ctx context.Context) error {
	if !a.session.CanSign() {
		return errNoWallet
	}
	if a.Mode() != ModeOnline {
		return errOffline
	}
	return a.ensureNetwork(ctx)
}

var errOffline = errors.New("offline: RPC endpoint unreachable")

func (a *App) ensureNetwork(ctx context.Context) error {
	a.mu.Lock()
	checked := a.chainChecked
	a.mu.Unlock()
	if checked {
		return nil
	}

	id, err := a.backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}
	if !id.IsUint64() || id.Uint64() != a.network.ChainID {
		return fmt.Errorf("RPC serves chain %s, expected %s (%d)", id, a.network.Name, a.network.ChainID)
	}

	a.mu.Lock()
	a.chainChecked = true
	a.mu.Unlock()
	return nil
}

func shortAddress(a ethcommon.Address) string {
	h := a.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}

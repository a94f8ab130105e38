// Package cli provides the interactive InvisibleDrop command-line client.
//
// It wires configuration, the local sqlite store, chain access, the claim
// state machine and the decryption client behind a line-oriented REPL. A
// background watcher probes the RPC endpoint and switches the client between
// online and offline mode; offline, campaign listings come from the last
// snapshot saved in the store.
//
// Key features:
//   - Import / Unlock / Lock a wallet key (passphrase-protected keystore)
//   - List / Refresh / Show campaigns, check eligibility, claim
//   - Create campaigns and deposit encrypted rewards
//   - Mint test assets, fund the airdrop contract, view balances
//   - Decrypt confidential balances through the relayer
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli

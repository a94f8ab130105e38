package chain

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/invisibledrop/internal/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// SepoliaChainID is the chain id of the public testnet the contracts are
// deployed on.
const SepoliaChainID uint64 = 11155111

// Contracts are the deployment addresses the client talks to.
type Contracts struct {
	InvisibleDrop     ethcommon.Address
	ConfidentialCoin1 ethcommon.Address
	ConfidentialCoin2 ethcommon.Address
	TestToken         ethcommon.Address
	TestNFT           ethcommon.Address
}

// Confidential returns the address of ConfidentialCoin1 or ConfidentialCoin2.
func (c Contracts) Confidential(n int) (ethcommon.Address, error) {
	switch n {
	case 1:
		return c.ConfidentialCoin1, nil
	case 2:
		return c.ConfidentialCoin2, nil
	default:
		return ethcommon.Address{}, fmt.Errorf("unsupported confidential coin %d", n)
	}
}

// Network is one entry of the address book.
type Network struct {
	Name      string
	ChainID   uint64
	RPCURL    string
	Contracts Contracts
}

// AddressBook maps chain id to network settings.
type AddressBook map[uint64]Network

// DefaultAddressBook returns the built-in deployments.
func DefaultAddressBook() AddressBook {
	return AddressBook{
		SepoliaChainID: {
			Name:    "sepolia",
			ChainID: SepoliaChainID,
			RPCURL:  "https://ethereum-sepolia-rpc.publicnode.com",
			Contracts: Contracts{
				InvisibleDrop:     ethcommon.HexToAddress("0x106F22a583E2e452BD3410851CBeA9DB025fB438"),
				ConfidentialCoin1: ethcommon.HexToAddress("0x36De2Ed8465ad8976D2D2be399aeF29f612b3d9E"),
				ConfidentialCoin2: ethcommon.HexToAddress("0xC50E8c96a2e6a11BA7F27B541617981B66256071"),
				TestToken:         ethcommon.HexToAddress("0xD6e81e78930259e66a2f4b363D84a6Ec0BeCd2c6"),
				TestNFT:           ethcommon.HexToAddress("0x37914fAD5322Df6e701Be562BC9aff90F5fE928D"),
			},
		},
	}
}

// Lookup returns the network for chainID or common.ErrorNotFound.
func (b AddressBook) Lookup(chainID uint64) (Network, error) {
	n, ok := b[chainID]
	if !ok {
		return Network{}, fmt.Errorf("network %d: %w", chainID, common.ErrorNotFound)
	}
	return n, nil
}

type yamlBook struct {
	Networks []yamlNetwork `yaml:"networks"`
}

type yamlNetwork struct {
	Name      string            `yaml:"name"`
	ChainID   uint64            `yaml:"chain_id"`
	RPCURL    string            `yaml:"rpc_url"`
	Contracts map[string]string `yaml:"contracts"`
}

// LoadAddressBook reads a YAML file of networks and merges it over base.
// Entries with the same chain id replace the base entry.
//
//	networks:
//	  - name: localhost
//	    chain_id: 31337
//	    rpc_url: http://127.0.0.1:8545
//	    contracts:
//	      invisible_drop: 0x...
//	      confidential_coin_1: 0x...
func LoadAddressBook(path string, base AddressBook) (AddressBook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read address book: %w", err)
	}
	return ParseAddressBook(data, base)
}

// ParseAddressBook is LoadAddressBook on in-memory YAML.
func ParseAddressBook(data []byte, base AddressBook) (AddressBook, error) {
	var doc yamlBook
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse address book: %w", err)
	}

	out := make(AddressBook, len(base)+len(doc.Networks))
	for id, n := range base {
		out[id] = n
	}

	for _, yn := range doc.Networks {
		if yn.ChainID == 0 {
			return nil, fmt.Errorf("network %q: missing chain_id", yn.Name)
		}
		n := Network{Name: yn.Name, ChainID: yn.ChainID, RPCURL: yn.RPCURL}
		fields := map[string]*ethcommon.Address{
			"invisible_drop":      &n.Contracts.InvisibleDrop,
			"confidential_coin_1": &n.Contracts.ConfidentialCoin1,
			"confidential_coin_2": &n.Contracts.ConfidentialCoin2,
			"test_token":          &n.Contracts.TestToken,
			"test_nft":            &n.Contracts.TestNFT,
		}
		for key, value := range yn.Contracts {
			dst, ok := fields[key]
			if !ok {
				return nil, fmt.Errorf("network %q: unknown contract %q", yn.Name, key)
			}
			if !ethcommon.IsHexAddress(value) {
				return nil, fmt.Errorf("network %q: invalid address for %s: %q", yn.Name, key, value)
			}
			*dst = ethcommon.HexToAddress(value)
		}
		out[yn.ChainID] = n
	}

	return out, nil
}

// Package tokens wraps the test assets around the airdrop: the plain ERC-20
// and ERC-721 used as eligibility conditions, and the confidential coins
// campaigns pay out in.
package tokens

import (
	"context"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/invisibledrop/internal/amounts"
	"github.com/dmitrijs2005/invisibledrop/internal/chain"
	"github.com/dmitrijs2005/invisibledrop/internal/logging"
	"github.com/dmitrijs2005/invisibledrop/internal/models"
	"github.com/dmitrijs2005/invisibledrop/internal/txsubmit"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Submitter sends a transaction and waits for it.
type Submitter interface {
	Submit(ctx context.Context, call txsubmit.Call) (txsubmit.Result, error)
}

type Service struct {
	caller    chain.Caller
	submitter Submitter
	contracts chain.Contracts
	nftMinted *txsubmit.EventDecoder
	logger    logging.Logger
}

// New returns a token service. submitter may be nil for read-only use.
func New(contracts chain.Contracts, caller chain.Caller, submitter Submitter, logger logging.Logger) *Service {
	return &Service{
		caller:    caller,
		submitter: submitter,
		contracts: contracts,
		nftMinted: txsubmit.MustEventDecoder(chain.ERC721ABI, "Transfer"),
		logger:    logger.With("module", "tokens"),
	}
}

func (s *Service) erc20(address common.Address) *chain.Contract {
	return chain.NewContract(address, chain.ERC20ABI, s.caller)
}

func (s *Service) erc721(address common.Address) *chain.Contract {
	return chain.NewContract(address, chain.ERC721ABI, s.caller)
}

func (s *Service) confidential(coin int) (*chain.Contract, error) {
	address, err := s.contracts.Confidential(coin)
	if err != nil {
		return nil, err
	}
	return chain.NewContract(address, chain.ConfidentialTokenABI, s.caller), nil
}

func (s *Service) send(ctx context.Context, c *chain.Contract, label, method string, args ...any) (txsubmit.Result, error) {
	if s.submitter == nil {
		return txsubmit.Result{}, fmt.Errorf("%s: no submitter configured", label)
	}
	data, err := c.Pack(method, args...)
	if err != nil {
		return txsubmit.Result{}, err
	}
	return s.submitter.Submit(ctx, txsubmit.Call{Label: label, To: c.Address, Data: data})
}

// MintTestToken mints amount (a decimal in whole tokens) of the test ERC-20.
func (s *Service) MintTestToken(ctx context.Context, to common.Address, amount string) (txsubmit.Result, error) {
	v, err := amounts.ParseEther(amount)
	if err != nil {
		return txsubmit.Result{}, err
	}
	res, err := s.send(ctx, s.erc20(s.contracts.TestToken), "mintTestToken", "mint", to, v)
	if err != nil {
		return res, err
	}
	s.logger.Info(ctx, "test token minted", "to", to.Hex(), "amount", amount, "tx", res.TxHash.Hex())
	return res, nil
}

// MintTestNFT mints one test NFT and returns its token id, or
// common.UnknownID when the receipt has no Transfer event.
func (s *Service) MintTestNFT(ctx context.Context, to common.Address, uri string) (string, txsubmit.Result, error) {
	res, err := s.send(ctx, s.erc721(s.contracts.TestNFT), "mintTestNFT", "mint", to, uri)
	if err != nil {
		return "", res, err
	}
	id := s.nftMinted.ID(res.Receipt, s.contracts.TestNFT, "tokenId")
	s.logger.Info(ctx, "test nft minted", "to", to.Hex(), "token_id", id, "tx", res.TxHash.Hex())
	return id, res, nil
}

// MintConfidential mints amount raw units of confidential coin 1 or 2.
func (s *Service) MintConfidential(ctx context.Context, coin int, to common.Address, amount uint64) (txsubmit.Result, error) {
	c, err := s.confidential(coin)
	if err != nil {
		return txsubmit.Result{}, err
	}
	return s.send(ctx, c, fmt.Sprintf("mintConfidentialCoin%d", coin), "mint", to, amount)
}

// FundAirdrop mints amount whole units, times amounts.ConfidentialFundingScale,
// of confidential coin 1 or 2 straight to the InvisibleDrop contract.
func (s *Service) FundAirdrop(ctx context.Context, coin int, amount string) (txsubmit.Result, error) {
	units, err := amounts.ConfidentialFundingUnits(amount)
	if err != nil {
		return txsubmit.Result{}, err
	}
	c, err := s.confidential(coin)
	if err != nil {
		return txsubmit.Result{}, err
	}
	res, err := s.send(ctx, c, fmt.Sprintf("fundAirdropCoin%d", coin), "mint", s.contracts.InvisibleDrop, units)
	if err != nil {
		return res, err
	}
	s.logger.Info(ctx, "airdrop funded", "coin", coin, "units", units, "tx", res.TxHash.Hex())
	return res, nil
}

// TokenBalance is balanceOf on any ERC-20.
func (s *Service) TokenBalance(ctx context.Context, contract, owner common.Address) (*big.Int, error) {
	out, err := s.erc20(contract).Call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return chain.BigInt(out)
}

// NFTBalance is balanceOf on any ERC-721.
func (s *Service) NFTBalance(ctx context.Context, contract, owner common.Address) (*big.Int, error) {
	out, err := s.erc721(contract).Call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return chain.BigInt(out)
}

// TestTokenBalance is the test ERC-20 balance formatted in whole tokens.
func (s *Service) TestTokenBalance(ctx context.Context, owner common.Address) (string, error) {
	v, err := s.TokenBalance(ctx, s.contracts.TestToken, owner)
	if err != nil {
		return "", err
	}
	return amounts.FormatEther(v), nil
}

// TestNFTBalance is the number of test NFTs owner holds.
func (s *Service) TestNFTBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return s.NFTBalance(ctx, s.contracts.TestNFT, owner)
}

// UserNFTs lists the test NFTs owned by owner.
func (s *Service) UserNFTs(ctx context.Context, owner common.Address) ([]models.NFT, error) {
	nft := s.erc721(s.contracts.TestNFT)
	n, err := s.NFTBalance(ctx, s.contracts.TestNFT, owner)
	if err != nil {
		return nil, err
	}
	if !n.IsInt64() {
		return nil, fmt.Errorf("nft balance %s out of range", n)
	}

	out := make([]models.NFT, 0, n.Int64())
	for i := int64(0); i < n.Int64(); i++ {
		idOut, err := nft.Call(ctx, "tokenOfOwnerByIndex", owner, big.NewInt(i))
		if err != nil {
			return nil, err
		}
		id, err := chain.BigInt(idOut)
		if err != nil {
			return nil, err
		}
		uriOut, err := nft.Call(ctx, "tokenURI", id)
		if err != nil {
			return nil, err
		}
		uri, err := chain.String(uriOut)
		if err != nil {
			return nil, err
		}
		out = append(out, models.NFT{TokenID: id, URI: uri})
	}
	return out, nil
}

// TokenInfo reads name, symbol and total supply of an ERC-20.
func (s *Service) TokenInfo(ctx context.Context, contract common.Address) (models.TokenInfo, error) {
	c := s.erc20(contract)
	var info models.TokenInfo

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := c.Call(gctx, "name")
		if err != nil {
			return err
		}
		info.Name, err = chain.String(out)
		return err
	})
	g.Go(func() error {
		out, err := c.Call(gctx, "symbol")
		if err != nil {
			return err
		}
		info.Symbol, err = chain.String(out)
		return err
	})
	g.Go(func() error {
		out, err := c.Call(gctx, "totalSupply")
		if err != nil {
			return err
		}
		info.TotalSupply, err = chain.BigInt(out)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.TokenInfo{}, err
	}
	return info, nil
}

// ConfidentialInfo reads name and symbol of confidential coin 1 or 2.
func (s *Service) ConfidentialInfo(ctx context.Context, coin int) (models.TokenInfo, error) {
	c, err := s.confidential(coin)
	if err != nil {
		return models.TokenInfo{}, err
	}
	var info models.TokenInfo

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := c.Call(gctx, "name")
		if err != nil {
			return err
		}
		info.Name, err = chain.String(out)
		return err
	})
	g.Go(func() error {
		out, err := c.Call(gctx, "symbol")
		if err != nil {
			return err
		}
		info.Symbol, err = chain.String(out)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.TokenInfo{}, err
	}
	return info, nil
}

// ConfidentialBalanceHandle returns owner's encrypted balance of coin 1 or 2.
func (s *Service) ConfidentialBalanceHandle(ctx context.Context, coin int, owner common.Address) (models.EncryptedBalance, error) {
	c, err := s.confidential(coin)
	if err != nil {
		return models.EncryptedBalance{}, err
	}
	out, err := c.Call(ctx, "confidentialBalanceOf", owner)
	if err != nil {
		return models.EncryptedBalance{}, err
	}
	if len(out) != 1 {
		return models.EncryptedBalance{}, fmt.Errorf("want 1 output, got %d", len(out))
	}
	h, ok := out[0].([32]byte)
	if !ok {
		return models.EncryptedBalance{}, fmt.Errorf("unexpected output type %T", out[0])
	}
	return models.EncryptedBalance{Handle: models.Handle(h), ContractAddress: c.Address}, nil
}

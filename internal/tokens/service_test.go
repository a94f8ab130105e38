package tokens

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/dmitrijs2005/invisibledrop/internal/chain"
	"github.com/dmitrijs2005/invisibledrop/internal/chain/chaintest"
	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/logging"
	"github.com/dmitrijs2005/invisibledrop/internal/models"
	"github.com/dmitrijs2005/invisibledrop/internal/txsubmit"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	contracts = chain.Contracts{
		InvisibleDrop:     ethcommon.HexToAddress("0x00000000000000000000000000000000000000d1"),
		ConfidentialCoin1: ethcommon.HexToAddress("0x00000000000000000000000000000000000000c1"),
		ConfidentialCoin2: ethcommon.HexToAddress("0x00000000000000000000000000000000000000c2"),
		TestToken:         ethcommon.HexToAddress("0x00000000000000000000000000000000000000e1"),
		TestNFT:           ethcommon.HexToAddress("0x00000000000000000000000000000000000000f1"),
	}
	owner = ethcommon.HexToAddress("0x00000000000000000000000000000000000000aa")
)

type fakeSubmitter struct {
	calls   []txsubmit.Call
	receipt *types.Receipt
}

func (f *fakeSubmitter) Submit(_ context.Context, call txsubmit.Call) (txsubmit.Result, error) {
	f.calls = append(f.calls, call)
	return txsubmit.Result{TxHash: ethcommon.HexToHash("0x0b"), Receipt: f.receipt}, nil
}

func decode(t *testing.T, c *chain.Contract, method string, data []byte) []any {
	t.Helper()
	m := c.ABI.Methods[method]
	require.Equal(t, []byte(m.ID), data[:4])
	out, err := m.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return out
}

func TestMintTestToken_ParsesEther(t *testing.T) {
	sub := &fakeSubmitter{}
	s := New(contracts, chaintest.New(), sub, logging.Discard())

	_, err := s.MintTestToken(context.Background(), owner, "1.5")
	require.NoError(t, err)
	require.Len(t, sub.calls, 1)
	assert.Equal(t, contracts.TestToken, sub.calls[0].To)

	got := decode(t, chain.NewContract(contracts.TestToken, chain.ERC20ABI, nil), "mint", sub.calls[0].Data)
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, owner, got[0])
	assert.Equal(t, want, got[1])

	_, err = s.MintTestToken(context.Background(), owner, "-1")
	require.Error(t, err)
}

func TestMintTestNFT_TokenID(t *testing.T) {
	transfer := chaintest.EventLog(contracts.TestNFT, chain.ERC721ABI, "Transfer",
		[]ethcommon.Hash{{}, ethcommon.BytesToHash(owner.Bytes()), ethcommon.BigToHash(big.NewInt(5))})
	sub := &fakeSubmitter{receipt: &types.Receipt{Logs: []*types.Log{transfer}}}
	s := New(contracts, chaintest.New(), sub, logging.Discard())

	id, _, err := s.MintTestNFT(context.Background(), owner, "ipfs://x")
	require.NoError(t, err)
	assert.Equal(t, "5", id)

	got := decode(t, chain.NewContract(contracts.TestNFT, chain.ERC721ABI, nil), "mint", sub.calls[0].Data)
	assert.Equal(t, "ipfs://x", got[1])

	sub.receipt = &types.Receipt{}
	id, _, err = s.MintTestNFT(context.Background(), owner, "ipfs://y")
	require.NoError(t, err)
	assert.Equal(t, common.UnknownID, id)
}

func TestFundAirdrop_ScalesByMillion(t *testing.T) {
	sub := &fakeSubmitter{}
	s := New(contracts, chaintest.New(), sub, logging.Discard())

	_, err := s.FundAirdrop(context.Background(), 2, "10")
	require.NoError(t, err)
	require.Len(t, sub.calls, 1)
	assert.Equal(t, contracts.ConfidentialCoin2, sub.calls[0].To)

	got := decode(t, chain.NewContract(contracts.ConfidentialCoin2, chain.ConfidentialTokenABI, nil), "mint", sub.calls[0].Data)
	assert.Equal(t, contracts.InvisibleDrop, got[0])
	assert.Equal(t, uint64(10_000_000), got[1])

	_, err = s.FundAirdrop(context.Background(), 3, "10")
	require.Error(t, err)
}

func TestMintConfidential(t *testing.T) {
	sub := &fakeSubmitter{}
	s := New(contracts, chaintest.New(), sub, logging.Discard())

	_, err := s.MintConfidential(context.Background(), 1, owner, 250)
	require.NoError(t, err)
	got := decode(t, chain.NewContract(contracts.ConfidentialCoin1, chain.ConfidentialTokenABI, nil), "mint", sub.calls[0].Data)
	assert.Equal(t, []any{owner, uint64(250)}, got)
}

func TestWritesWithoutSubmitter(t *testing.T) {
	s := New(contracts, chaintest.New(), nil, logging.Discard())
	_, err := s.MintTestToken(context.Background(), owner, "1")
	require.ErrorContains(t, err, "no submitter")
}

func TestBalances(t *testing.T) {
	b := chaintest.New()
	oneAndHalf, _ := new(big.Int).SetString("1500000000000000000", 10)
	b.Return(contracts.TestToken, chain.ERC20ABI, "balanceOf", oneAndHalf)
	b.Return(contracts.TestNFT, chain.ERC721ABI, "balanceOf", big.NewInt(2))
	s := New(contracts, b, nil, logging.Discard())

	bal, err := s.TestTokenBalance(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "1.5", bal)

	n, err := s.TestNFTBalance(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n.Int64())
}

func TestUserNFTs(t *testing.T) {
	b := chaintest.New()
	b.Return(contracts.TestNFT, chain.ERC721ABI, "balanceOf", big.NewInt(2))
	b.Handle(contracts.TestNFT, chain.ERC721ABI, "tokenOfOwnerByIndex", func(args []any) ([]any, error) {
		idx := args[1].(*big.Int).Int64()
		return []any{big.NewInt(10 + idx)}, nil
	})
	b.Handle(contracts.TestNFT, chain.ERC721ABI, "tokenURI", func(args []any) ([]any, error) {
		return []any{fmt.Sprintf("ipfs://%d", args[0].(*big.Int))}, nil
	})
	s := New(contracts, b, nil, logging.Discard())

	got, err := s.UserNFTs(context.Background(), owner)
	require.NoError(t, err)
	want := []models.NFT{
		{TokenID: big.NewInt(10), URI: "ipfs://10"},
		{TokenID: big.NewInt(11), URI: "ipfs://11"},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b *big.Int) bool { return a.Cmp(b) == 0 })); diff != "" {
		t.Errorf("nfts mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenInfo(t *testing.T) {
	b := chaintest.New()
	b.Return(contracts.TestToken, chain.ERC20ABI, "name", "Test Token")
	b.Return(contracts.TestToken, chain.ERC20ABI, "symbol", "TT")
	b.Return(contracts.TestToken, chain.ERC20ABI, "totalSupply", big.NewInt(1000))
	s := New(contracts, b, nil, logging.Discard())

	info, err := s.TokenInfo(context.Background(), contracts.TestToken)
	require.NoError(t, err)
	assert.Equal(t, "Test Token", info.Name)
	assert.Equal(t, "TT", info.Symbol)
	assert.Equal(t, int64(1000), info.TotalSupply.Int64())

	b.CallErr = chaintest.ErrUnreachable
	_, err = s.TokenInfo(context.Background(), contracts.TestToken)
	require.ErrorIs(t, err, chaintest.ErrUnreachable)
}

func TestConfidentialInfoAndHandle(t *testing.T) {
	b := chaintest.New()
	b.Return(contracts.ConfidentialCoin1, chain.ConfidentialTokenABI, "name", "Confidential Coin 1")
	b.Return(contracts.ConfidentialCoin1, chain.ConfidentialTokenABI, "symbol", "CC1")
	handle := [32]byte{0: 0xaa, 31: 0x01}
	b.Return(contracts.ConfidentialCoin1, chain.ConfidentialTokenABI, "confidentialBalanceOf", handle)
	s := New(contracts, b, nil, logging.Discard())

	info, err := s.ConfidentialInfo(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "CC1", info.Symbol)

	bal, err := s.ConfidentialBalanceHandle(context.Background(), 1, owner)
	require.NoError(t, err)
	assert.Equal(t, models.Handle(handle), bal.Handle)
	assert.Equal(t, contracts.ConfidentialCoin1, bal.ContractAddress)

	_, err = s.ConfidentialInfo(context.Background(), 9)
	require.Error(t, err)
}

package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const invisibleDropJSON = `[
 {"type":"function","name":"airdropCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"getAirdropInfo","stateMutability":"view",
  "inputs":[{"name":"airdropId","type":"uint256"}],
  "outputs":[{"name":"airdropper","type":"address"},{"name":"rewardToken","type":"address"},{"name":"rewardPerUser","type":"uint64"},{"name":"isActive","type":"bool"},{"name":"endTime","type":"uint256"}]},
 {"type":"function","name":"getAirdropConditions","stateMutability":"view",
  "inputs":[{"name":"airdropId","type":"uint256"}],
  "outputs":[{"name":"requireNFT","type":"bool"},{"name":"nftContract","type":"address"},{"name":"requireToken","type":"bool"},{"name":"tokenContract","type":"address"},{"name":"minTokenAmount","type":"uint256"}]},
 {"type":"function","name":"getUserClaimInfo","stateMutability":"view",
  "inputs":[{"name":"airdropId","type":"uint256"},{"name":"user","type":"address"}],
  "outputs":[{"name":"hasClaimed","type":"bool"},{"name":"claimTime","type":"uint256"}]},
 {"type":"function","name":"checkEligibility","stateMutability":"view",
  "inputs":[{"name":"airdropId","type":"uint256"},{"name":"user","type":"address"}],
  "outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"checkClaimableAmount","stateMutability":"view",
  "inputs":[{"name":"airdropId","type":"uint256"},{"name":"user","type":"address"}],
  "outputs":[{"name":"","type":"uint64"}]},
 {"type":"function","name":"createAirdrop","stateMutability":"nonpayable",
  "inputs":[{"name":"rewardToken","type":"address"},{"name":"rewardPerUser","type":"uint64"},{"name":"endTime","type":"uint256"},{"name":"requireNFT","type":"bool"},{"name":"nftContract","type":"address"},{"name":"requireToken","type":"bool"},{"name":"tokenContract","type":"address"},{"name":"minTokenAmount","type":"uint256"}],
  "outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"claimReward","stateMutability":"nonpayable","inputs":[{"name":"airdropId","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"depositRewards","stateMutability":"nonpayable",
  "inputs":[{"name":"airdropId","type":"uint256"},{"name":"encryptedAmount","type":"bytes32"},{"name":"inputProof","type":"bytes"}],"outputs":[]},
 {"type":"event","name":"AirdropCreated","anonymous":false,
  "inputs":[{"name":"airdropId","type":"uint256","indexed":true},{"name":"airdropper","type":"address","indexed":true},{"name":"rewardToken","type":"address","indexed":false}]},
 {"type":"event","name":"RewardClaimed","anonymous":false,
  "inputs":[{"name":"airdropId","type":"uint256","indexed":true},{"name":"user","type":"address","indexed":true}]}
]`

const erc20JSON = `[
 {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
 {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
 {"type":"event","name":"Transfer","anonymous":false,
  "inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

const erc721JSON = `[
 {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"tokenOfOwnerByIndex","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"uri","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"event","name":"Transfer","anonymous":false,
  "inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]}
]`

const confidentialTokenJSON = `[
 {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"confidentialBalanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bytes32"}]},
 {"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint64"}],"outputs":[]}
]`

// Parsed contract interfaces. The JSON above only lists the members the
// client uses.
var (
	InvisibleDropABI     = mustParse(invisibleDropJSON)
	ERC20ABI             = mustParse(erc20JSON)
	ERC721ABI            = mustParse(erc721JSON)
	ConfidentialTokenABI = mustParse(confidentialTokenJSON)
)

func mustParse(def string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return &parsed
}

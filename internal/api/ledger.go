package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"riacoin.node/rcn/internal/ledger"
	"riacoin.node/rcn/internal/node"
	"riacoin.node/rcn/internal/types"
)

// @Title: Get Balance
// @Route: GET /api/balance/{address}
// @Description: Returns the last-applied balance of an address (zero if never seen)
// @Response: {"address": "...", "balance": "89"}
func (s *Service) HandleBalance(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": address,
		"balance": s.node.Ledger().BalanceOf(address),
	})
}

// @Title: List Balances
// @Route: GET /api/balances
// @Description: Returns every address the ledger has seen with its last-applied balance
// @Response: {"GENESIS_WALLET": "1000000", "...": "89"}
func (s *Service) HandleBalances(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.node.Ledger().Balances())
}

// @Title: Get Chain
// @Route: GET /api/chain
// @Description: Returns every applied block, genesis first
// @Response: [{"index": 0, "hash": "...", "transactions": [...]}]
func (s *Service) HandleChain(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.node.Ledger().Chain())
}

// @Title: Get Pending Pool
// @Route: GET /api/pending
// @Description: Returns admitted transactions not yet mined, in admission order
// @Response: [{"id": "...", "sender": "...", "recipient": "...", "amount": "10", "fee": "1"}]
func (s *Service) HandlePending(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.node.Ledger().Pending())
}

// @Title: Get Contract State
// @Route: GET /api/contracts
// @Description: Returns the registered contract names and a copy of the contract store
// @Response: {"contracts": ["governance", "nft_registry"], "state": {"nft:Monkey_#88:owner": "..."}}
func (s *Service) HandleContracts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"contracts": s.node.Ledger().Contracts(),
		"state":     s.node.Ledger().ContractSnapshot(),
	})
}

// @Title: Get NFT Owner
// @Route: GET /api/contracts/nft/{token}
// @Description: Returns the owner recorded by the nft_registry contract
// @Response: {"token": "Monkey_#88", "owner": "..."}
func (s *Service) HandleNFTOwner(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	owner, ok := s.node.Ledger().NFTOwner(token)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Token not minted")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"token": token, "owner": owner})
}

type transferRequest struct {
	Recipient string       `json:"recipient"`
	Amount    types.Amount `json:"amount"`
	Fee       types.Amount `json:"fee"`
}

// @Title: Send Transfer
// @Route: POST /api/transfer
// @Description: Signs a transfer from this node's wallet, admits it locally and broadcasts it
// @Body: {"recipient": "...", "amount": "10", "fee": "1"}
// @Response: 201 with the transaction; 422 if admission rejects it
func (s *Service) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Recipient = strings.TrimSpace(req.Recipient)
	if req.Recipient == "" {
		s.writeError(w, http.StatusBadRequest, "Recipient is required")
		return
	}

	tx, err := s.node.Transfer(r.Context(), req.Recipient, req.Amount, req.Fee)
	s.writeSubmission(w, tx, err)
}

type contractRequest struct {
	Contract string       `json:"contract"`
	Function string       `json:"function"`
	Args     []string     `json:"args"`
	Fee      types.Amount `json:"fee"`
}

// @Title: Call Contract
// @Route: POST /api/contract
// @Description: Sends a contract call as a zero-amount transaction to this node's own address
// @Body: {"contract": "nft_registry", "function": "mint", "args": ["Monkey_#88", "<address>"], "fee": "0.1"}
// @Response: 201 with the transaction; 422 if admission rejects it
func (s *Service) HandleContract(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Contract == "" || req.Function == "" {
		s.writeError(w, http.StatusBadRequest, "Contract and function are required")
		return
	}

	tx, err := s.node.CallContract(r.Context(), types.ContractCall{
		Contract: req.Contract,
		Function: req.Function,
		Args:     req.Args,
	}, req.Fee)
	s.writeSubmission(w, tx, err)
}

func (s *Service) writeSubmission(w http.ResponseWriter, tx *types.Transaction, err error) {
	switch {
	case tx == nil && (errors.Is(err, ledger.ErrInsufficientFunds) ||
		errors.Is(err, ledger.ErrNegativeAmount) ||
		errors.Is(err, ledger.ErrInvalidSignature)):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case tx == nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, node.ErrPublish):
		s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"transaction": tx,
			"warning":     err.Error(),
		})
	default:
		s.writeJSON(w, http.StatusCreated, map[string]interface{}{"transaction": tx})
	}
}

// @Title: Mine Block
// @Route: POST /api/mine
// @Description: Mines the pending pool into a block rewarding this node and broadcasts it
// @Response: 201 with the block; 204 when the pool is empty
func (s *Service) HandleMine(w http.ResponseWriter, r *http.Request) {
	block, err := s.node.Mine(r.Context())
	if block == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	resp := map[string]interface{}{"block": block}
	if err != nil {
		resp["warning"] = err.Error()
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

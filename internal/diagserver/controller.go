package diagserver

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/synnergy-network/sto-engine/core/ledger"
	"github.com/synnergy-network/sto-engine/core/store"
)

// Controller holds the read-only dependencies backing the diagnostic
// endpoints: the repository directly, for account and scan lookups, and the
// ledger for balance recomputation on read.
type Controller struct {
	st     store.Store
	ledger *ledger.Ledger
}

func NewController(st store.Store, lg *ledger.Ledger) *Controller {
	return &Controller{st: st, ledger: lg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Account reports a broadcast account's allocation cursor and in-flight
// transaction counts.
func (c *Controller) Account(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	network := vars["network"]
	if !common.IsHexAddress(vars["address"]) {
		writeError(w, http.StatusBadRequest, errInvalidAddress)
		return
	}
	addr := common.HexToAddress(vars["address"])

	acct, err := c.st.GetOrCreateAccount(r.Context(), network, store.Address(addr))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	pending, err := c.st.PendingBroadcasts(r.Context(), acct.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	unmined, err := c.st.Unmined(r.Context(), acct.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"network":        acct.Network,
		"address":        common.Address(acct.Address).Hex(),
		"current_nonce":  acct.CurrentNonce,
		"pending_count":  len(pending),
		"unmined_count":  len(unmined),
	})
}

// Scan reports a token's scan cursor and cached metadata.
func (c *Controller) Scan(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	network := vars["network"]
	if !common.IsHexAddress(vars["token"]) {
		writeError(w, http.StatusBadRequest, errInvalidAddress)
		return
	}
	token := common.HexToAddress(vars["token"])

	sc, err := c.st.GetOrCreateScan(r.Context(), network, store.Address(token))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	holderCount, err := c.ledger.GetTotalTokenHolderCount(r.Context(), sc.ID, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"network":      sc.Network,
		"token":        common.Address(sc.TokenAddress).Hex(),
		"name":         sc.Name,
		"symbol":       sc.Symbol,
		"decimals":     sc.Decimals,
		"total_supply": sc.TotalSupply.Dec(),
		"start_block":  sc.StartBlock,
		"end_block":    sc.EndBlock,
		"holder_count": holderCount,
	})
}

// CapTable lists every non-empty holder's denormalised balance for a scan,
// recomputing any stale entries first.
func (c *Controller) CapTable(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	network := vars["network"]
	if !common.IsHexAddress(vars["token"]) {
		writeError(w, http.StatusBadRequest, errInvalidAddress)
		return
	}
	token := common.HexToAddress(vars["token"])

	sc, err := c.st.GetOrCreateScan(r.Context(), network, store.Address(token))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if _, err := c.ledger.RecomputeDirty(r.Context(), sc.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	holders, err := c.ledger.GetAccounts(r.Context(), sc.ID, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]map[string]any, 0, len(holders))
	for _, h := range holders {
		out = append(out, map[string]any{
			"address": common.Address(h.Address).Hex(),
			"balance": h.Balance.Big().String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

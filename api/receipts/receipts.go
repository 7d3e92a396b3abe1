// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package receipts

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mechio/mechgw/api/utils"
	"github.com/mechio/mechgw/gateway"
	"github.com/mechio/mechgw/ledger"
)

// Receipts decodes contract events out of transaction receipts fetched
// on demand from the ledger.
type Receipts struct {
	gw     *gateway.Gateway
	client ledger.Client
}

func New(gw *gateway.Gateway, client ledger.Client) *Receipts {
	return &Receipts{
		gw,
		client,
	}
}

func (r *Receipts) handleExtractEvent(w http.ResponseWriter, req *http.Request) error {
	vars := mux.Vars(req)
	hashStr := vars["hash"]
	if len(hashStr) != 2+2*common.HashLength || hashStr[:2] != "0x" {
		return utils.BadRequest(errors.Errorf("invalid tx hash %q", hashStr))
	}
	txHash := common.HexToHash(hashStr)
	eventName := vars["name"]

	receipt, err := r.client.TransactionReceipt(req.Context(), txHash)
	if err != nil {
		return errors.WithMessagef(err, "fetch receipt %s", txHash)
	}
	rec, err := r.gw.ExtractEventFromReceipt(eventName, receipt)
	if err != nil {
		if gateway.IsNotFound(err) {
			return utils.HTTPError(err, http.StatusNotFound)
		}
		if errors.Is(err, gateway.ErrUnknownEvent) {
			return utils.BadRequest(err)
		}
		return err
	}
	return utils.WriteJSON(w, rec)
}

func (r *Receipts) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{hash}/events/{name}").Methods("GET").HandlerFunc(utils.WrapHandlerFunc(r.handleExtractEvent))
}

// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package calls

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mechio/mechgw/api/utils"
	"github.com/mechio/mechgw/gateway"
	"github.com/mechio/mechgw/mech"
)

// Calls exposes the gateway call builders over HTTP. Nothing here
// signs or submits, the response is raw input data.
type Calls struct {
	gw *gateway.Gateway
}

func New(gw *gateway.Gateway) *Calls {
	return &Calls{
		gw,
	}
}

func (c *Calls) handleDeliver(w http.ResponseWriter, req *http.Request) error {
	var body DeliverBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.RequestID == nil {
		return utils.BadRequest(errors.New("requestId is required"))
	}
	call, err := c.gw.BuildDeliverCall((*big.Int)(body.RequestID), body.Data)
	if err != nil {
		if gateway.IsEncodingErr(err) {
			return utils.BadRequest(err)
		}
		return err
	}
	return utils.WriteJSON(w, &CallData{
		To:     c.gw.Address(),
		Method: mech.MethodDeliver,
		Data:   hexutil.Bytes(call),
	})
}

func (c *Calls) handleRequest(w http.ResponseWriter, req *http.Request) error {
	var body RequestBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	call, err := c.gw.BuildRequestCall(body.Data)
	if err != nil {
		if gateway.IsEncodingErr(err) {
			return utils.BadRequest(err)
		}
		return err
	}
	return utils.WriteJSON(w, &CallData{
		To:     c.gw.Address(),
		Method: mech.MethodRequest,
		Data:   hexutil.Bytes(call),
	})
}

func (c *Calls) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/deliver").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(c.handleDeliver))
	sub.Path("/request").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(c.handleRequest))
}

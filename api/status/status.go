// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package status

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/mechio/mechgw/api/utils"
	"github.com/mechio/mechgw/eventdb"
	"github.com/mechio/mechgw/gateway"
	"github.com/mechio/mechgw/watcher"
)

// Status reports ingest progress against the chain head.
type Status struct {
	gw      *gateway.Gateway
	db      *eventdb.EventDB
	watcher *watcher.Watcher
}

type report struct {
	Contract    common.Address `json:"contract"`
	Events      []string       `json:"events"`
	ChainHead   uint64         `json:"chainHead"`
	NextBlock   uint64         `json:"nextBlock"`
	StoredCount uint64         `json:"storedCount"`
}

func New(gw *gateway.Gateway, db *eventdb.EventDB, w *watcher.Watcher) *Status {
	return &Status{
		gw,
		db,
		w,
	}
}

func (s *Status) handleStatus(w http.ResponseWriter, req *http.Request) error {
	count, err := s.db.CountEvents(req.Context())
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &report{
		Contract:    s.gw.Address(),
		Events:      s.watcher.Events(),
		ChainHead:   s.watcher.ChainHead(),
		NextBlock:   s.watcher.NextBlock(),
		StoredCount: count,
	})
}

func (s *Status) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").Methods("GET").HandlerFunc(utils.WrapHandlerFunc(s.handleStatus))
}

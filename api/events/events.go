// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mechio/mechgw"
	"github.com/mechio/mechgw/api/utils"
	"github.com/mechio/mechgw/eventdb"
)

var log = slog.With("pkg", "events")

type Events struct {
	db *eventdb.EventDB
}

func New(db *eventdb.EventDB) *Events {
	return &Events{
		db,
	}
}

// filter queries stored records with option
func (e *Events) filter(ctx context.Context, ef *EventFilter) ([]*FilteredEvent, error) {
	records, err := e.db.FilterEvents(ctx, convertEventFilter(ef))
	if err != nil {
		return nil, err
	}
	fes := make([]*FilteredEvent, len(records))
	for i, rec := range records {
		fes[i] = convertRecord(rec)
	}
	return fes, nil
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	start := time.Now()
	var filter EventFilter
	if err := utils.ParseJSON(req.Body, &filter); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	fes, err := e.filter(req.Context(), &filter)
	if err != nil {
		return err
	}
	filterStr, _ := json.Marshal(filter)
	err = utils.WriteJSON(w, fes)

	if time.Since(start) > time.Second {
		log.Info("slow handled event query", "query", string(filterStr), "elapsed", mechgw.PrettyDuration(time.Since(start)))
	}
	return err
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").Methods("POST").HandlerFunc(utils.WrapHandlerFunc(e.handleFilter))
}

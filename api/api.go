// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mechio/mechgw/api/calls"
	"github.com/mechio/mechgw/api/events"
	"github.com/mechio/mechgw/api/receipts"
	"github.com/mechio/mechgw/api/status"
	"github.com/mechio/mechgw/api/subscriptions"
	"github.com/mechio/mechgw/eventdb"
	"github.com/mechio/mechgw/gateway"
	"github.com/mechio/mechgw/ledger"
	"github.com/mechio/mechgw/watcher"
)

// New return api router
func New(gw *gateway.Gateway, client ledger.Client, db *eventdb.EventDB, w *watcher.Watcher, allowedOrigins string) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(allowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	events.New(db).
		Mount(router, "/events")
	calls.New(gw).
		Mount(router, "/calls")
	receipts.New(gw, client).
		Mount(router, "/receipts")
	status.New(gw, db, w).
		Mount(router, "/status")
	subs := subscriptions.New(w, origins)
	subs.Mount(router, "/subscriptions")

	router.Path("/metrics").Handler(promhttp.Handler())

	return handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedHeaders([]string{"content-type"}))(router).ServeHTTP,
		subs.Close // subscriptions handles hijacked conns, which need to be closed
}

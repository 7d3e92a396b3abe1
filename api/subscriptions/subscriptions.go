// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriptions streams freshly ingested event records over
// websocket.
package subscriptions

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mechio/mechgw/api/utils"
	"github.com/mechio/mechgw/co"
	"github.com/mechio/mechgw/gateway"
	"github.com/mechio/mechgw/watcher"
)

const (
	recordChanBuffer = 256
	writeTimeout     = 10 * time.Second
	pingInterval     = 30 * time.Second
)

type Subscriptions struct {
	watcher  *watcher.Watcher
	upgrader *websocket.Upgrader
	done     chan struct{}
	goes     co.Goes
	logger   *slog.Logger
}

func New(w *watcher.Watcher, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		watcher: w,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(req *http.Request) bool {
				origin := req.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
		done:   make(chan struct{}),
		logger: slog.With("pkg", "subs"),
	}
}

func (s *Subscriptions) handleSubscribeRecords(w http.ResponseWriter, req *http.Request) error {
	select {
	case <-s.done:
		return utils.HTTPError(nil, http.StatusServiceUnavailable)
	default:
	}

	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader has already replied with an error
		return nil
	}

	connID := uuid.New().String()
	logger := s.logger.With("id", connID)
	logger.Debug("subscriber connected", "remote", req.RemoteAddr)

	s.goes.Go(func() {
		defer conn.Close()
		defer logger.Debug("subscriber gone")
		s.pipe(conn)
	})
	return nil
}

// pipe forwards record batches until the client or the server goes
// away. A client too slow to drain its channel is disconnected rather
// than allowed to stall the feed.
func (s *Subscriptions) pipe(conn *websocket.Conn) {
	ch := make(chan []*gateway.EventRecord, recordChanBuffer)
	sub := s.watcher.SubscribeRecords(ch)
	defer sub.Unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-s.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeTimeout))
			return
		case <-closed:
			return
		case err := <-sub.Err():
			if err != nil {
				s.logger.Warn("record subscription dropped", "err", err)
			}
			return
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case records := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			for _, rec := range records {
				if err := conn.WriteJSON(rec); err != nil {
					return
				}
			}
		}
	}
}

// Close disconnects all subscribers and waits for their handlers. The
// websocket conns are hijacked, the http server won't close them.
func (s *Subscriptions) Close() {
	close(s.done)
	s.goes.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/event").Methods("GET").HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeRecords))
}

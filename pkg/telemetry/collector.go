// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxEventSize = 1 << 20

// Collector receives events posted by clients and writes them to a logger
type Collector struct {
	log    *logrus.Logger
	router *mux.Router
}

// NewCollector creates the collector handler. A nil logger uses the
// logrus standard logger.
func NewCollector(log *logrus.Logger) *Collector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Collector{log: log, router: mux.NewRouter()}
	c.router.Use(cors)
	c.router.HandleFunc("/log", c.handleLog).Methods(http.MethodPost)
	c.router.MethodNotAllowedHandler = cors(http.HandlerFunc(notFound))
	c.router.NotFoundHandler = cors(http.HandlerFunc(notFound))
	return c
}

func (c *Collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Preflight requests are answered for any path.
	if r.Method == http.MethodOptions {
		cors(http.HandlerFunc(ok)).ServeHTTP(w, r)
		return
	}
	c.router.ServeHTTP(w, r)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}

func (c *Collector) handleLog(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventSize))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		c.log.WithError(err).Error("Failed to parse log data")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	c.record(ev)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// record writes one event with a category label per type
func (c *Collector) record(ev Event) {
	entry := c.log.WithField("category", Category(ev.Type))
	if !ev.Timestamp.IsZero() {
		entry = entry.WithField("sent", ev.Timestamp.Format("15:04:05.000"))
	}
	if ev.Data != nil {
		if data, err := json.Marshal(ev.Data); err == nil {
			entry = entry.WithField("data", string(data))
		}
	}

	switch ev.Type {
	case TypeError:
		entry.Error(ev.Message)
	case TypeSerialSend:
		entry.Info("Command: " + ev.Message)
	case TypeSerialRecv:
		entry.Info("Received data")
	case TypeConsole:
		level := ev.Level
		if m, ok := ev.Data.(map[string]interface{}); ok && level == "" {
			level, _ = m["level"].(string)
		}
		if level == "" {
			level = "log"
		}
		entry.Info("console." + level + ": " + ev.Message)
	case TypeCommandChain:
		entry.Info("Executing chain: " + ev.Message)
	default:
		entry.Info(ev.Message)
	}
}

// Category returns the console label for an event type
func Category(typ string) string {
	switch typ {
	case TypeError:
		return "ERROR"
	case TypeSerialSend:
		return "SERIAL_SEND"
	case TypeSerialRecv:
		return "SERIAL_RECV"
	case TypeConsole:
		return "CONSOLE"
	case TypeCommandChain:
		return "COMMAND"
	default:
		return "INFO"
	}
}

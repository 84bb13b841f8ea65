// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(c *Collector, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, req)
	return rec
}

func TestCollector_LogsEvent(t *testing.T) {
	log, hook := test.NewNullLogger()
	c := NewCollector(log)

	rec := post(c, "/log", `{"type":"serial_send","message":"zoom1","data":{"hex":"0x10"},"timestamp":"2025-01-02T03:04:05Z"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Command: zoom1", entry.Message)
	assert.Equal(t, "SERIAL_SEND", entry.Data["category"])
	assert.Equal(t, `{"hex":"0x10"}`, entry.Data["data"])
}

func TestCollector_Categories(t *testing.T) {
	tests := []struct {
		body    string
		level   logrus.Level
		message string
		label   string
	}{
		{`{"type":"error","message":"Command not found: x"}`, logrus.ErrorLevel, "Command not found: x", "ERROR"},
		{`{"type":"serial_recv","message":"Serial data received"}`, logrus.InfoLevel, "Received data", "SERIAL_RECV"},
		{`{"type":"console","message":"hello","level":"warn"}`, logrus.InfoLevel, "console.warn: hello", "CONSOLE"},
		{`{"type":"console","message":"hi","data":{"level":"error"}}`, logrus.InfoLevel, "console.error: hi", "CONSOLE"},
		{`{"type":"console","message":"plain"}`, logrus.InfoLevel, "console.log: plain", "CONSOLE"},
		{`{"type":"command_chain","message":"calibrateFocus"}`, logrus.InfoLevel, "Executing chain: calibrateFocus", "COMMAND"},
		{`{"type":"info","message":"Frontend connected"}`, logrus.InfoLevel, "Frontend connected", "INFO"},
		{`{"type":"mystery","message":"m"}`, logrus.InfoLevel, "m", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.label+" "+tt.message, func(t *testing.T) {
			log, hook := test.NewNullLogger()
			rec := post(NewCollector(log), "/log", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, tt.message, entry.Message)
			assert.Equal(t, tt.label, entry.Data["category"])
		})
	}
}

func TestCollector_MalformedJSON(t *testing.T) {
	log, hook := test.NewNullLogger()
	rec := post(NewCollector(log), "/log", `{"type":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Failed to parse log data", hook.LastEntry().Message)
}

func TestCollector_NotFound(t *testing.T) {
	log, _ := test.NewNullLogger()
	c := NewCollector(log)

	assert.Equal(t, http.StatusNotFound, post(c, "/other", `{}`).Code)

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/log", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCollector_Preflight(t *testing.T) {
	log, _ := test.NewNullLogger()
	c := NewCollector(log)

	for _, path := range []string{"/log", "/anything"} {
		rec := httptest.NewRecorder()
		c.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestCollector_ReceivesFromClient(t *testing.T) {
	log, hook := test.NewNullLogger()
	srv := httptest.NewServer(NewCollector(log))
	defer srv.Close()

	c := NewClient(srv.URL + "/log")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.SerialSend("calibrate", []byte{0x10, 0x02, 0xF4, 0x09})

	assert.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Message == "Command: calibrate" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	assert.True(t, c.Online())
}

// Package modemtest provides an in-process fake of the modem control endpoints.
package modemtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Counts is a snapshot of requests seen by the fake.
type Counts struct {
	Cancels int
	Sends   int
	Polls   int
	Fetches int
}

// Modem is a scriptable fake modem. Flags are returned by successive polls;
// the last flag repeats once the script is exhausted.
type Modem struct {
	*httptest.Server

	mu           sync.Mutex
	flags        []string
	data         string
	cancelStatus int
	sendStatus   int
	sendResult   string
	pollFailures map[int]int
	fetchStatus  int
	counts       Counts
	codes        []string
	referers     []string
	onPoll       func(n int)
}

// New starts a fake modem that completes on the first poll with an empty payload.
func New() *Modem {
	m := &Modem{
		flags:        []string{"16"},
		sendResult:   "success",
		pollFailures: map[int]int{},
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// Script sets the flag sequence returned by polls.
func (m *Modem) Script(flags ...string) *Modem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags = append([]string(nil), flags...)
	return m
}

// Payload sets the ussd_data returned by the data endpoint.
func (m *Modem) Payload(data string) *Modem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	return m
}

// FailCancel makes the cancel command answer with status.
func (m *Modem) FailCancel(status int) *Modem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelStatus = status
	return m
}

// FailSend makes the send command answer with status.
func (m *Modem) FailSend(status int) *Modem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendStatus = status
	return m
}

// RejectSend makes the send command answer 200 with a non-success result.
func (m *Modem) RejectSend(result string) *Modem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendResult = result
	return m
}

// FailPoll makes the nth poll (1-based) answer with status.
func (m *Modem) FailPoll(n, status int) *Modem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollFailures[n] = status
	return m
}

// FailFetch makes the data endpoint answer with status.
func (m *Modem) FailFetch(status int) *Modem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchStatus = status
	return m
}

// OnPoll registers a hook invoked with the poll number before answering.
func (m *Modem) OnPoll(fn func(n int)) *Modem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPoll = fn
	return m
}

// Counts returns request counters.
func (m *Modem) Counts() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts
}

// Codes returns every dial code received by send.
func (m *Modem) Codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.codes...)
}

// Referers returns the Referer header of every request.
func (m *Modem) Referers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.referers...)
}

func (m *Modem) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.referers = append(m.referers, r.Header.Get("Referer"))
	m.mu.Unlock()

	switch r.URL.Path {
	case "/goform/goform_set_cmd_process":
		m.handleCommand(w, r)
	case "/goform/goform_get_cmd_process":
		m.handleStatus(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (m *Modem) handleCommand(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	var status int
	result := "success"
	switch r.PostForm.Get("USSD_operator") {
	case "ussd_cancel":
		m.counts.Cancels++
		status = m.cancelStatus
	case "ussd_send":
		m.counts.Sends++
		m.codes = append(m.codes, r.PostForm.Get("USSD_send_number"))
		status = m.sendStatus
		result = m.sendResult
	}
	m.mu.Unlock()

	if status != 0 {
		http.Error(w, "failure", status)
		return
	}
	writeJSON(w, map[string]string{"result": result})
}

func (m *Modem) handleStatus(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("cmd") {
	case "ussd_write_flag":
		m.mu.Lock()
		m.counts.Polls++
		n := m.counts.Polls
		hook := m.onPoll
		status := m.pollFailures[n]
		flag := ""
		if len(m.flags) > 0 {
			idx := n - 1
			if idx >= len(m.flags) {
				idx = len(m.flags) - 1
			}
			flag = m.flags[idx]
		}
		m.mu.Unlock()

		if hook != nil {
			hook(n)
		}
		if status != 0 {
			http.Error(w, "failure", status)
			return
		}
		writeJSON(w, map[string]string{"ussd_write_flag": flag})
	case "ussd_data_info":
		m.mu.Lock()
		m.counts.Fetches++
		status := m.fetchStatus
		data := m.data
		m.mu.Unlock()

		if status != 0 {
			http.Error(w, "failure", status)
			return
		}
		writeJSON(w, map[string]string{"ussd_data": data, "ussd_action": "2", "ussd_dcs": "72"})
	default:
		http.Error(w, "unknown cmd", http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

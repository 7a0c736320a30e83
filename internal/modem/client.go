// Package modem speaks the goform control dialect of the USSD-capable
// LTE modems that carry each SIM slot.
package modem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	setCmdPath = "/goform/goform_set_cmd_process"
	getCmdPath = "/goform/goform_get_cmd_process"

	goformUSSD     = "USSD_PROCESS"
	operatorSend   = "ussd_send"
	operatorCancel = "ussd_cancel"

	cmdWriteFlag = "ussd_write_flag"
	cmdDataInfo  = "ussd_data_info"

	maxResponseBytes = 64 << 10
)

// ErrRejected is returned when the modem answers a command with a non-success result.
var ErrRejected = errors.New("modem rejected command")

// DataInfo is the payload returned once a session completes.
type DataInfo struct {
	Data   string `json:"ussd_data"`
	Action string `json:"ussd_action"`
	DCS    string `json:"ussd_dcs"`
}

type commandResponse struct {
	Result string `json:"result"`
}

type writeFlagResponse struct {
	Flag string `json:"ussd_write_flag"`
}

// Client talks to one modem's control endpoint.
type Client struct {
	baseURL    string
	referer    string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient builds a Client for the modem at baseURL. If httpClient is nil a
// client with a 10 second timeout is used.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL:    base,
		referer:    base + "/index.html",
		httpClient: httpClient,
		now:        time.Now,
	}
}

// BaseURL returns the modem endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Cancel asks the modem to drop any stale USSD session.
func (c *Client) Cancel(ctx context.Context) error {
	form := url.Values{}
	form.Set("isTest", "false")
	form.Set("goformId", goformUSSD)
	form.Set("USSD_operator", operatorCancel)
	form.Set("notCallback", "true")
	return c.postCommand(ctx, form)
}

// Send submits a dial code to the modem.
func (c *Client) Send(ctx context.Context, code string) error {
	form := url.Values{}
	form.Set("isTest", "false")
	form.Set("goformId", goformUSSD)
	form.Set("USSD_operator", operatorSend)
	form.Set("USSD_send_number", code)
	form.Set("notCallback", "true")
	return c.postCommand(ctx, form)
}

// PollFlag reads the current session status flag.
func (c *Client) PollFlag(ctx context.Context) (Flag, error) {
	var resp writeFlagResponse
	if err := c.getStatus(ctx, cmdWriteFlag, &resp); err != nil {
		return Flag{}, err
	}
	return ParseFlag(resp.Flag), nil
}

// FetchData reads the session payload after a complete flag.
func (c *Client) FetchData(ctx context.Context) (DataInfo, error) {
	var info DataInfo
	if err := c.getStatus(ctx, cmdDataInfo, &info); err != nil {
		return DataInfo{}, err
	}
	return info, nil
}

func (c *Client) postCommand(ctx context.Context, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+setCmdPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("modem: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	c.setHeaders(req)

	var resp commandResponse
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if resp.Result != "success" && resp.Result != "0" {
		return fmt.Errorf("%w: %s result %q", ErrRejected, form.Get("USSD_operator"), resp.Result)
	}
	return nil
}

func (c *Client) getStatus(ctx context.Context, cmd string, out any) error {
	query := url.Values{}
	query.Set("isTest", "false")
	query.Set("cmd", cmd)
	query.Set("_", strconv.FormatInt(c.now().UnixMilli(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+getCmdPath+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("modem: build request: %w", err)
	}
	c.setHeaders(req)
	return c.do(req, out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Referer", c.referer)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("modem: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("modem: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("modem: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("modem: parse response: %w", err)
	}
	return nil
}

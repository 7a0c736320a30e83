package modem_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simgate/sim-gateway/internal/modem"
	"github.com/simgate/sim-gateway/internal/modem/modemtest"
)

func TestClientSendFormFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/goform/goform_set_cmd_process", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "false", r.PostForm.Get("isTest"))
		assert.Equal(t, "USSD_PROCESS", r.PostForm.Get("goformId"))
		assert.Equal(t, "ussd_send", r.PostForm.Get("USSD_operator"))
		assert.Equal(t, "*600*500*0661123456*0000#", r.PostForm.Get("USSD_send_number"))
		w.Write([]byte(`{"result":"success"}`))
	}))
	defer srv.Close()

	client := modem.NewClient(srv.URL+"/", srv.Client())
	require.NoError(t, client.Send(context.Background(), "*600*500*0661123456*0000#"))
}

func TestClientCancelOmitsCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ussd_cancel", r.PostForm.Get("USSD_operator"))
		assert.Empty(t, r.PostForm.Get("USSD_send_number"))
		w.Write([]byte(`{"result":"success"}`))
	}))
	defer srv.Close()

	require.NoError(t, modem.NewClient(srv.URL, srv.Client()).Cancel(context.Background()))
}

func TestClientRefererMirrorsWebUI(t *testing.T) {
	fake := modemtest.New().Script("16").Payload("00530061006D0061")
	defer fake.Close()

	client := modem.NewClient(fake.URL, fake.Client())
	ctx := context.Background()
	require.NoError(t, client.Send(ctx, "*222#"))
	_, err := client.PollFlag(ctx)
	require.NoError(t, err)
	_, err = client.FetchData(ctx)
	require.NoError(t, err)

	for _, referer := range fake.Referers() {
		assert.Equal(t, fake.URL+"/index.html", referer)
	}
	assert.Len(t, fake.Referers(), 3)
}

func TestClientPollAndFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/goform/goform_get_cmd_process", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("_"))
		switch r.URL.Query().Get("cmd") {
		case "ussd_write_flag":
			w.Write([]byte(`{"ussd_write_flag":"15"}`))
		case "ussd_data_info":
			w.Write([]byte(`{"ussd_data":"00530061006D0061","ussd_action":"2","ussd_dcs":"72"}`))
		default:
			t.Errorf("unexpected cmd %q", r.URL.Query().Get("cmd"))
		}
	}))
	defer srv.Close()

	client := modem.NewClient(srv.URL, srv.Client())
	flag, err := client.PollFlag(context.Background())
	require.NoError(t, err)
	assert.Equal(t, modem.FlagWaiting, flag.Kind)

	info, err := client.FetchData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "00530061006D0061", info.Data)
	assert.Equal(t, "72", info.DCS)
}

func TestClientRejectedCommand(t *testing.T) {
	fake := modemtest.New().RejectSend("failure")
	defer fake.Close()

	err := modem.NewClient(fake.URL, fake.Client()).Send(context.Background(), "*222#")
	require.Error(t, err)
	assert.ErrorIs(t, err, modem.ErrRejected)
}

func TestClientHTTPError(t *testing.T) {
	fake := modemtest.New().FailSend(http.StatusInternalServerError)
	defer fake.Close()

	err := modem.NewClient(fake.URL, fake.Client()).Send(context.Background(), "*222#")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modem: status 500")
}

func TestClientNetworkError(t *testing.T) {
	err := modem.NewClient("http://127.0.0.1:1", nil).Send(context.Background(), "*222#")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modem: send request:")
}

func TestClientNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>login</html>`))
	}))
	defer srv.Close()

	_, err := modem.NewClient(srv.URL, srv.Client()).PollFlag(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modem: parse response:")
}

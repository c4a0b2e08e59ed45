package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/elks-go/pkg/elks"
)

type fakeAPI struct {
	account     *elks.AccountDetails
	numbers     []elks.PhoneNumberDetails
	history     *elks.SmsHistory
	sent        []*elks.SmsRequest
	historyFrom []time.Time
	dealloc     []string
	err         error
}

func (f *fakeAPI) QueryAccountDetails(context.Context) (*elks.AccountDetails, error) {
	return f.account, f.err
}

func (f *fakeAPI) QueryPhoneNumbers(context.Context) ([]elks.PhoneNumberDetails, error) {
	return f.numbers, f.err
}

func (f *fakeAPI) QueryPhoneNumber(_ context.Context, id string) (*elks.PhoneNumberDetails, error) {
	for i := range f.numbers {
		if f.numbers[i].ID == id {
			return &f.numbers[i], nil
		}
	}
	return nil, f.err
}

func (f *fakeAPI) AllocatePhoneNumber(_ context.Context, country, smsURL string) (*elks.PhoneNumberDetails, error) {
	return &elks.PhoneNumberDetails{ID: "new", Country: country, SmsURL: smsURL, Active: true}, f.err
}

func (f *fakeAPI) UpdatePhoneNumber(_ context.Context, id, smsURL string) (*elks.PhoneNumberDetails, error) {
	return &elks.PhoneNumberDetails{ID: id, SmsURL: smsURL, Active: true}, f.err
}

func (f *fakeAPI) DeallocatePhoneNumber(_ context.Context, id string) (*elks.PhoneNumberDetails, error) {
	f.dealloc = append(f.dealloc, id)
	return &elks.PhoneNumberDetails{ID: id}, f.err
}

func (f *fakeAPI) Send(_ context.Context, req *elks.SmsRequest) ([]elks.SmsResponse, error) {
	f.sent = append(f.sent, req)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]elks.SmsResponse, len(req.Recipients))
	for i, to := range req.Recipients {
		out[i] = elks.SmsResponse{ID: "s" + to, To: to}
	}
	return out, nil
}

func (f *fakeAPI) QuerySmsHistory(context.Context) (*elks.SmsHistory, error) {
	return f.history, f.err
}

func (f *fakeAPI) QuerySmsHistoryFrom(_ context.Context, start time.Time) (*elks.SmsHistory, error) {
	f.historyFrom = append(f.historyFrom, start)
	return &elks.SmsHistory{Responses: []elks.SmsResponse{}}, f.err
}

func run(t *testing.T, api *fakeAPI, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	r := &Runner{API: api, Out: &out, Err: io.Discard}
	err := r.Run(context.Background(), args)
	return out.String(), err
}

func TestUnknownCommand(t *testing.T) {
	_, err := run(t, &fakeAPI{}, "voice")
	assert.ErrorIs(t, err, ErrUsage)

	_, err = run(t, &fakeAPI{})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestBalanceTable(t *testing.T) {
	api := &fakeAPI{account: &elks.AccountDetails{
		ID:       "u1",
		Currency: "SEK",
		Balance:  elks.Money{Decimal: decimal.RequireFromString("12.5")},
	}}
	out, err := run(t, api, "balance")
	require.NoError(t, err)
	assert.Contains(t, out, "Balance")
	assert.Contains(t, out, "12.5000")
	assert.Contains(t, out, "SEK")
}

func TestNumbersJSON(t *testing.T) {
	api := &fakeAPI{numbers: []elks.PhoneNumberDetails{
		{ID: "n1", Active: true, Country: "se", Number: "+46766861004", Capabilities: []string{"sms"}},
	}}
	out, err := run(t, api, "numbers", "--json")
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "yes", decoded[0]["active"])
}

func TestNumberNotFound(t *testing.T) {
	_, err := run(t, &fakeAPI{}, "number", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestNumberRequiresID(t *testing.T) {
	_, err := run(t, &fakeAPI{}, "number")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestAllocateAndUpdate(t *testing.T) {
	out, err := run(t, &fakeAPI{}, "allocate", "--country=SE", "--sms-url=https://example.com/in")
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com/in")
	assert.Contains(t, out, "se")

	out, err = run(t, &fakeAPI{}, "update", "--sms-url=https://example.com/new", "n1")
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com/new")
}

func TestDeallocateRequiresConfirmation(t *testing.T) {
	api := &fakeAPI{}
	_, err := run(t, api, "deallocate", "n1")
	assert.ErrorIs(t, err, ErrUsage)
	assert.Empty(t, api.dealloc)

	_, err = run(t, api, "deallocate", "--yes", "n1")
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, api.dealloc)
}

func TestSendBuildsRequest(t *testing.T) {
	api := &fakeAPI{}
	out, err := run(t, api, "send", "--from=Injoin", "--to=+46700000001, +46700000002", "--message=hi", "--flash", "--delivery-url=https://example.com/dlr")
	require.NoError(t, err)
	require.Len(t, api.sent, 1)

	req := api.sent[0]
	assert.Equal(t, "Injoin", req.From)
	assert.Equal(t, []string{"+46700000001", "+46700000002"}, req.Recipients)
	assert.True(t, req.Flash)
	assert.Equal(t, "https://example.com/dlr", req.DeliveryReportURL)
	assert.Contains(t, out, "+46700000002")
}

func TestSendRequiresRecipients(t *testing.T) {
	api := &fakeAPI{}
	_, err := run(t, api, "send", "--from=Injoin", "--message=hi")
	assert.ErrorIs(t, err, ErrUsage)
	assert.Empty(t, api.sent)
}

func TestSendPropagatesClientError(t *testing.T) {
	api := &fakeAPI{err: &elks.Error{Msg: "could not send text message to [1] recipient"}}
	_, err := run(t, api, "send", "--from=Injoin", "--to=+46700000001", "--message=hi")
	var clientErr *elks.Error
	assert.True(t, errors.As(err, &clientErr))
}

func TestHistoryPrintsNextCursor(t *testing.T) {
	next, err := elks.ParseTimestamp("2012-05-08T20:38:11.623000")
	require.NoError(t, err)
	api := &fakeAPI{history: &elks.SmsHistory{
		Responses: []elks.SmsResponse{{ID: "s1", Direction: elks.DirectionOutgoing, To: "+46700000001", Message: "hello"}},
		Next:      &elks.Timestamp{Time: next},
	}}

	out, err := run(t, api, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "--start=2012-05-08T20:38:11.623000")
	assert.Empty(t, api.historyFrom)
}

func TestHistoryWithStart(t *testing.T) {
	api := &fakeAPI{}
	_, err := run(t, api, "history", "--start=2012-05-08T20:38:11.623000")
	require.NoError(t, err)
	require.Len(t, api.historyFrom, 1)
	assert.Equal(t, 623*int(time.Millisecond), api.historyFrom[0].Nanosecond())

	_, err = run(t, api, "history", "--start=yesterday")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a,, b ,"))
	assert.Equal(t, []string{}, splitList(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "åäö", truncate("åäö", 3))

	got := truncate(strings.Repeat("a", 49)+"åäö", 50)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 49)+"å...", got)
}

func TestBalanceJSONUsesWireForm(t *testing.T) {
	api := &fakeAPI{account: &elks.AccountDetails{
		ID:       "u1",
		Currency: "SEK",
		Balance:  elks.Money{Decimal: decimal.RequireFromString("12.5")},
	}}
	out, err := run(t, api, "balance", "--json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "125000", decoded["balance"])
}

func TestSendRejectsMalformedInput(t *testing.T) {
	cases := [][]string{
		{"send", "--from=Injoin", "--to=0700000001", "--message=hi"},
		{"send", "--from=x", "--to=+46700000001", "--message=hi"},
		{"send", "--from=Injoin", "--to=+46700000001", "--message=hi", "--delivery-url=ftp://example.com"},
	}
	for _, args := range cases {
		api := &fakeAPI{}
		_, err := run(t, api, args...)
		assert.ErrorIs(t, err, ErrUsage, "args %v", args)
		assert.Empty(t, api.sent)
	}
}

func TestAllocateRejectsBadCountry(t *testing.T) {
	_, err := run(t, &fakeAPI{}, "allocate", "--country=sweden")
	assert.ErrorIs(t, err, ErrUsage)
}

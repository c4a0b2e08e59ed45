package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"

	"github.com/example/elks-go/internal/util"
	"github.com/example/elks-go/pkg/elks"
)

// Usage lists the supported commands.
const Usage = `usage: elks <command> [options]

commands:
  balance                                   show account details and balance
  numbers                                   list allocated phone numbers
  number <id>                               show a single phone number
  allocate --country=se [--sms-url=URL]     allocate a phone number
  update <id> --sms-url=URL                 set the SMS callback of a number
  deallocate --yes <id>                     release a number (irreversible)
  send --from=F --to=A,B --message=M        send an SMS
       [--flash] [--delivery-url=URL]
  history [--start=TIMESTAMP]               show one page of SMS history

every command accepts --json, which prints the API wire form: money as an
integer in 1/10000 of the currency unit and flags as "yes"/"no"`

// ErrUsage is returned for unknown commands and malformed arguments.
var ErrUsage = errors.New("invalid usage")

// API is the subset of the elks client used by the commands.
type API interface {
	QueryAccountDetails(ctx context.Context) (*elks.AccountDetails, error)
	QueryPhoneNumbers(ctx context.Context) ([]elks.PhoneNumberDetails, error)
	QueryPhoneNumber(ctx context.Context, id string) (*elks.PhoneNumberDetails, error)
	AllocatePhoneNumber(ctx context.Context, country, smsURL string) (*elks.PhoneNumberDetails, error)
	UpdatePhoneNumber(ctx context.Context, id, smsURL string) (*elks.PhoneNumberDetails, error)
	DeallocatePhoneNumber(ctx context.Context, id string) (*elks.PhoneNumberDetails, error)
	Send(ctx context.Context, req *elks.SmsRequest) ([]elks.SmsResponse, error)
	QuerySmsHistory(ctx context.Context) (*elks.SmsHistory, error)
	QuerySmsHistoryFrom(ctx context.Context, start time.Time) (*elks.SmsHistory, error)
}

// Runner executes a single command against the API.
type Runner struct {
	API API
	Out io.Writer
	Err io.Writer
}

type command struct {
	json bool
	fs   *flag.FlagSet
}

func (r *Runner) newCommand(name string) *command {
	c := &command{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	c.fs.SetOutput(r.Err)
	c.fs.BoolVar(&c.json, "json", false, "print JSON instead of a table")
	return c
}

func (c *command) parse(args []string, positional int) ([]string, error) {
	if err := c.fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if c.fs.NArg() != positional {
		return nil, fmt.Errorf("%w: %s expects %d argument(s), got %d", ErrUsage, c.fs.Name(), positional, c.fs.NArg())
	}
	return c.fs.Args(), nil
}

// Run dispatches args[0] to its command.
func (r *Runner) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	name, args := args[0], args[1:]
	switch name {
	case "balance":
		return r.balance(ctx, args)
	case "numbers":
		return r.numbers(ctx, args)
	case "number":
		return r.number(ctx, args)
	case "allocate":
		return r.allocate(ctx, args)
	case "update":
		return r.update(ctx, args)
	case "deallocate":
		return r.deallocate(ctx, args)
	case "send":
		return r.send(ctx, args)
	case "history":
		return r.history(ctx, args)
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}
}

func (r *Runner) balance(ctx context.Context, args []string) error {
	cmd := r.newCommand("balance")
	if _, err := cmd.parse(args, 0); err != nil {
		return err
	}
	account, err := r.API.QueryAccountDetails(ctx)
	if err != nil {
		return err
	}
	if cmd.json {
		return r.writeJSON(account)
	}
	trial := ""
	if account.TrialActivated != nil {
		trial = formatTime(account.TrialActivated.Time)
	}
	r.writeTable([]string{"ID", "Name", "Currency", "Balance", "Email", "Trial activated"}, [][]string{{
		account.ID,
		account.DisplayName,
		account.Currency,
		account.Balance.StringFixed(4),
		account.Email,
		trial,
	}})
	return nil
}

func (r *Runner) numbers(ctx context.Context, args []string) error {
	cmd := r.newCommand("numbers")
	if _, err := cmd.parse(args, 0); err != nil {
		return err
	}
	numbers, err := r.API.QueryPhoneNumbers(ctx)
	if err != nil {
		return err
	}
	return r.writeNumbers(cmd, numbers...)
}

func (r *Runner) number(ctx context.Context, args []string) error {
	cmd := r.newCommand("number")
	pos, err := cmd.parse(args, 1)
	if err != nil {
		return err
	}
	number, err := r.API.QueryPhoneNumber(ctx, pos[0])
	if err != nil {
		return err
	}
	if number == nil {
		return fmt.Errorf("phone number %s not found", pos[0])
	}
	return r.writeNumbers(cmd, *number)
}

func (r *Runner) allocate(ctx context.Context, args []string) error {
	cmd := r.newCommand("allocate")
	country := cmd.fs.String("country", "", "two-letter lower-case country code")
	smsURL := cmd.fs.String("sms-url", "", "URL called when the number receives an SMS")
	if _, err := cmd.parse(args, 0); err != nil {
		return err
	}
	code, err := util.NormalizeCountry(*country)
	if err != nil {
		return fmt.Errorf("%w: --country: %v", ErrUsage, err)
	}
	callback, err := util.OptionalHTTPURL(*smsURL)
	if err != nil {
		return fmt.Errorf("%w: --sms-url: %v", ErrUsage, err)
	}
	number, err := r.API.AllocatePhoneNumber(ctx, code, callback)
	if err != nil {
		return err
	}
	return r.writeNumbers(cmd, *number)
}

func (r *Runner) update(ctx context.Context, args []string) error {
	cmd := r.newCommand("update")
	smsURL := cmd.fs.String("sms-url", "", "URL called when the number receives an SMS")
	pos, err := cmd.parse(args, 1)
	if err != nil {
		return err
	}
	callback, err := util.OptionalHTTPURL(*smsURL)
	if err != nil {
		return fmt.Errorf("%w: --sms-url: %v", ErrUsage, err)
	}
	number, err := r.API.UpdatePhoneNumber(ctx, pos[0], callback)
	if err != nil {
		return err
	}
	return r.writeNumbers(cmd, *number)
}

func (r *Runner) deallocate(ctx context.Context, args []string) error {
	cmd := r.newCommand("deallocate")
	confirmed := cmd.fs.Bool("yes", false, "confirm the number should be released")
	pos, err := cmd.parse(args, 1)
	if err != nil {
		return err
	}
	if !*confirmed {
		return fmt.Errorf("%w: deallocation cannot be undone, pass --yes to confirm", ErrUsage)
	}
	number, err := r.API.DeallocatePhoneNumber(ctx, pos[0])
	if err != nil {
		return err
	}
	return r.writeNumbers(cmd, *number)
}

func (r *Runner) send(ctx context.Context, args []string) error {
	cmd := r.newCommand("send")
	req := &elks.SmsRequest{}
	to := cmd.fs.String("to", "", "comma separated recipients")
	cmd.fs.StringVar(&req.From, "from", "", "sender number or alphanumeric name")
	cmd.fs.StringVar(&req.Message, "message", "", "message text")
	cmd.fs.BoolVar(&req.Flash, "flash", false, "send as flash SMS")
	cmd.fs.StringVar(&req.DeliveryReportURL, "delivery-url", "", "URL called with the delivery report")
	if _, err := cmd.parse(args, 0); err != nil {
		return err
	}
	if len(splitList(*to)) == 0 {
		return fmt.Errorf("%w: --to is required", ErrUsage)
	}
	recipients, err := util.NormalizeE164List(splitList(*to), 1, 0)
	if err != nil {
		return fmt.Errorf("%w: --to: %v", ErrUsage, err)
	}
	req.AddRecipients(recipients...)
	if req.From, err = util.NormalizeSender(req.From); err != nil {
		return fmt.Errorf("%w: --from: %v", ErrUsage, err)
	}
	if req.DeliveryReportURL, err = util.OptionalHTTPURL(req.DeliveryReportURL); err != nil {
		return fmt.Errorf("%w: --delivery-url: %v", ErrUsage, err)
	}

	responses, err := r.API.Send(ctx, req)
	if err != nil {
		return err
	}
	if cmd.json {
		return r.writeJSON(responses)
	}
	rows := make([][]string, 0, len(responses))
	for i, resp := range responses {
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), resp.ID, resp.To})
	}
	r.writeTable([]string{"#", "ID", "To"}, rows)
	return nil
}

func (r *Runner) history(ctx context.Context, args []string) error {
	cmd := r.newCommand("history")
	startText := cmd.fs.String("start", "", "cursor from a previous page, e.g. 2012-05-08T20:38:11.623000")
	if _, err := cmd.parse(args, 0); err != nil {
		return err
	}

	var history *elks.SmsHistory
	if *startText == "" {
		page, err := r.API.QuerySmsHistory(ctx)
		if err != nil {
			return err
		}
		history = page
	} else {
		start, err := elks.ParseTimestamp(*startText)
		if err != nil {
			return fmt.Errorf("%w: --start: %v", ErrUsage, err)
		}
		page, err := r.API.QuerySmsHistoryFrom(ctx, start)
		if err != nil {
			return err
		}
		history = page
	}
	if cmd.json {
		return r.writeJSON(history)
	}

	rows := make([][]string, 0, len(history.Responses))
	for _, msg := range history.Responses {
		rows = append(rows, []string{
			formatTime(msg.Created.Time),
			msg.Direction,
			msg.From,
			msg.To,
			msg.Cost.StringFixed(4),
			truncate(msg.Message, 50),
		})
	}
	r.writeTable([]string{"Created", "Direction", "From", "To", "Cost", "Message"}, rows)

	if next, ok := history.NextStart(); ok {
		cursor, err := elks.FormatTimestamp(next)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.Out, "next page: elks history --start=%s\n", cursor)
	}
	return nil
}

func (r *Runner) writeNumbers(cmd *command, numbers ...elks.PhoneNumberDetails) error {
	if cmd.json {
		if cmd.fs.Name() == "numbers" {
			return r.writeJSON(numbers)
		}
		return r.writeJSON(numbers[0])
	}
	rows := make([][]string, 0, len(numbers))
	for _, n := range numbers {
		active := "no"
		if n.Active {
			active = "yes"
		}
		rows = append(rows, []string{n.ID, n.Number, n.Country, active, strings.Join(n.Capabilities, ","), n.SmsURL})
	}
	r.writeTable([]string{"ID", "Number", "Country", "Active", "Capabilities", "SMS URL"}, rows)
	return nil
}

func (r *Runner) writeTable(header []string, rows [][]string) {
	table := tablewriter.NewWriter(r.Out)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()
}

func (r *Runner) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(r.Out, string(data))
	return nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// truncate shortens s to max runes.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

package main

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ilpkit/ledgerws/pkg/ledger"
	"github.com/ilpkit/ledgerws/pkg/log"
	"github.com/ilpkit/ledgerws/pkg/wsrpc"
)

type eventPrinter interface {
	PrintTransfer(ctx context.Context, ev ledger.TransferEvent)
	PrintMessage(ctx context.Context, ev ledger.MessageEvent)
}

// listener subscribes the configured accounts when a session starts and
// prints every event it receives. The notifier subscribes them again after
// each reconnect.
type listener struct {
	accounts  []string
	printer   eventPrinter
	subscribe func(ctx context.Context, accounts ...string) error
	// giveUp is called once the channel stops reconnecting.
	giveUp func(err error)
}

var _ ledger.EventSink = (*listener)(nil)

// HandleConnect subscribes the configured accounts on the new session.
func (l *listener) HandleConnect(ctx context.Context) {
	lg := log.FromContext(ctx)
	lg.Info("connected to ledger", "accounts", l.accounts)

	if err := l.subscribe(ctx, l.accounts...); err != nil {
		lg.Error("failed to subscribe", "error", err)
	}
}

// HandleError logs err and gives up once the channel stops reconnecting.
func (l *listener) HandleError(ctx context.Context, err error) {
	log.FromContext(ctx).Error("ledger notification error", "error", err)
	if errors.Is(err, wsrpc.ErrReconnectExhausted) && l.giveUp != nil {
		l.giveUp(err)
	}
}

// HandleTransfer prints ev.
func (l *listener) HandleTransfer(ctx context.Context, ev ledger.TransferEvent) {
	l.printer.PrintTransfer(ctx, ev)
}

// HandleMessage prints ev.
func (l *listener) HandleMessage(ctx context.Context, ev ledger.MessageEvent) {
	l.printer.PrintMessage(ctx, ev)
}

type logPrinter struct{}

// PrintTransfer logs one line per transfer event.
func (logPrinter) PrintTransfer(ctx context.Context, ev ledger.TransferEvent) {
	log.FromContext(ctx).Info("transfer",
		"event", ev.Event,
		"id", ev.Transfer.ID,
		"state", ev.Transfer.State,
		"amount", ev.Transfer.Amount().String())
}

// PrintMessage logs one line per message event.
func (logPrinter) PrintMessage(ctx context.Context, ev ledger.MessageEvent) {
	log.FromContext(ctx).Info("message",
		"event", ev.Event,
		"from", ev.Message.From,
		"to", ev.Message.To,
		"data", string(ev.Message.Data))
}

// tablePrinter renders one table per event.
type tablePrinter struct {
	mu  sync.Mutex
	out io.Writer
}

// PrintTransfer renders one row per debit and credit with the total as footer.
func (p *tablePrinter) PrintTransfer(_ context.Context, ev ledger.TransferEvent) {
	tw := p.newTable(ev.Event + " " + ev.Transfer.ID)
	tw.AppendHeader(table.Row{"Side", "Account", "Amount", "State"})
	for _, d := range ev.Transfer.Debits {
		tw.AppendRow(table.Row{"debit", d.Account, d.Amount.String(), ev.Transfer.State})
	}
	for _, c := range ev.Transfer.Credits {
		tw.AppendRow(table.Row{"credit", c.Account, c.Amount.String(), ev.Transfer.State})
	}
	tw.AppendFooter(table.Row{"", "Total", ev.Transfer.Amount().String(), ""})
	p.render(tw)
}

// PrintMessage renders the sender, recipient and data of a message.
func (p *tablePrinter) PrintMessage(_ context.Context, ev ledger.MessageEvent) {
	tw := p.newTable(ev.Event)
	tw.AppendHeader(table.Row{"From", "To", "Data"})
	tw.AppendRow(table.Row{ev.Message.From, ev.Message.To, string(ev.Message.Data)})
	p.render(tw)
}

func (p *tablePrinter) newTable(title string) table.Writer {
	tw := table.NewWriter()
	tw.SetTitle(title)
	tw.SetStyle(table.StyleLight)
	return tw
}

func (p *tablePrinter) render(tw table.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tw.SetOutputMirror(p.out)
	tw.Render()
}

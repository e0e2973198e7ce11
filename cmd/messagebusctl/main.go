// Command messagebusctl is a runnable smoke test of the messagebus wiring:
// it subscribes a couple of demo listener types, publishes a few messages
// through both the sync and async paths, and prints what fired.
package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ori346/MessageBus/pkg/config"
	"github.com/ori346/MessageBus/pkg/logging"
	"github.com/ori346/MessageBus/pkg/messagebus"
	"github.com/ori346/MessageBus/pkg/messagebus/describe"
	"github.com/ori346/MessageBus/pkg/messagebus/dispatch"
	"github.com/ori346/MessageBus/pkg/messagebus/errorhandler"
)

// version metadata populated via -ldflags at build time
var (
	version = "dev"
	commit  = ""
	date    = ""
)

// OrderPlaced is a demo message type with a subtype below it, used to show
// super-type expansion in the "publish" subcommand.
type OrderPlaced struct {
	OrderID string
}

// PriorityOrderPlaced embeds OrderPlaced the way this codebase models an
// "is-a" relationship: a listener that accepts subtypes of OrderPlaced
// also fires for this type.
type PriorityOrderPlaced struct {
	OrderPlaced
	Priority int
}

// OrderListener logs every order it sees.
type OrderListener struct {
	seen []string
}

// HandleOrder is the convention-based handler method describe.Scanner
// looks for.
func (l *OrderListener) HandleOrder(o OrderPlaced) {
	l.seen = append(l.seen, o.OrderID)
	fmt.Printf("order listener saw order %s\n", o.OrderID)
}

// DeadLetterListener logs every message nothing else handled.
type DeadLetterListener struct{}

// HandleDead implements the DeadMessage fallback handler.
func (l *DeadLetterListener) HandleDead(d messagebus.DeadMessage) {
	fmt.Printf("dead message: %d unmatched payload(s)\n", len(d.Messages))
}

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("messagebusctl %s", version)
		if commit != "" {
			fmt.Printf(" (commit %s)", commit)
		}
		if date != "" {
			fmt.Printf(" built %s", date)
		}
		fmt.Println()
	case "demo":
		runDemo()
	case "help", "--help", "-h":
		showHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		showHelp()
		os.Exit(1)
	}
}

func runDemo() {
	cfg := config.Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}
	mode, err := cfg.Mode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewColoredLogger(logging.ComponentBus, cfg.Logging.Colors)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}

	errHandler := errorhandler.NewConsoleHandler(logger.Logger)
	manager := messagebus.NewSubscriptionManager(mode, describe.NewScanner(), errHandler)
	d := dispatch.New(manager, dispatch.Config{
		NumberOfThreads: cfg.NumberOfThreads,
		ErrorHandler:    errHandler,
		Logger:          logger.Logger.With(zap.String("component", string(logging.ComponentDispatch))),
	})
	bus := messagebus.NewBus(manager, d)
	defer bus.Shutdown()

	orders := &OrderListener{}
	deadLetter := &DeadLetterListener{}
	if err := bus.Subscribe(orders); err != nil {
		fmt.Fprintf(os.Stderr, "subscribe: %v\n", err)
		os.Exit(1)
	}
	if err := bus.Subscribe(deadLetter); err != nil {
		fmt.Fprintf(os.Stderr, "subscribe: %v\n", err)
		os.Exit(1)
	}

	if err := bus.Publish(OrderPlaced{OrderID: "sync-1"}); err != nil {
		fmt.Fprintf(os.Stderr, "publish: %v\n", err)
	}
	bus.PublishAsync(OrderPlaced{OrderID: "async-1"})
	if err := bus.Publish(PriorityOrderPlaced{OrderPlaced: OrderPlaced{OrderID: "priority-1"}, Priority: 1}); err != nil {
		fmt.Fprintf(os.Stderr, "publish: %v\n", err)
	}
	if err := bus.Publish(42); err != nil {
		fmt.Fprintf(os.Stderr, "publish: %v\n", err)
	}

	time.Sleep(50 * time.Millisecond)
}

func showHelp() {
	fmt.Println(`messagebusctl - demo CLI for the in-process messagebus

Usage:
  messagebusctl demo       Subscribe demo listeners and publish a few messages
  messagebusctl version    Print build metadata
  messagebusctl help       Show this help`)
}

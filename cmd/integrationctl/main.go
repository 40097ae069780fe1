package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	appintegration "github.com/1212falcon1212/b2b-pharmacy-sub000/internal/application/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/config"
	"go.uber.org/zap"
)

// shutdownTimeout bounds exporter flushes on exit
const shutdownTimeout = 15 * time.Second

// options are the global flags shared by every command
type options struct {
	tenantID string
	provider integration.ProviderCode
	page     int
	pageSize int
	logLevel string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("integrationctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		opts     options
		provider string
	)
	fs.StringVar(&opts.tenantID, "tenant", "", "Tenant id (UUID)")
	fs.StringVar(&provider, "provider", "", "Provider code (parasut, entegra, bizimhesap, sentos, kargo, earsiv)")
	fs.IntVar(&opts.page, "page", 1, "Catalog page for the products command")
	fs.IntVar(&opts.pageSize, "size", integration.DefaultPageSize, "Catalog page size")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	fs.Usage = func() { printUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return 2
	}
	command, cmdArgs := rest[0], rest[1:]

	if command == "providers" {
		for _, p := range integration.AllProviders() {
			fmt.Fprintf(stdout, "%-12s %s\n", p, p.DisplayName())
		}
		return 0
	}

	code, err := integration.ParseProviderCode(provider)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	opts.provider = code
	if opts.tenantID == "" {
		fmt.Fprintln(stderr, "-tenant is required")
		return 2
	}

	cmd, err := lookupCommand(command, cmdArgs)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, opts.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Close(shutdownCtx)
	}()

	a.log.Debug("Running command",
		zap.String("command", command),
		zap.String("tenant_id", opts.tenantID),
		zap.String("provider", string(opts.provider)),
	)

	result := cmd(ctx, a.service, opts, stdout)
	if err := writeResult(stdout, result); err != nil {
		a.log.Error("Failed to write result", zap.Error(err))
		return 1
	}
	if !result.Success {
		return 1
	}
	return 0
}

// command runs one service operation
type command func(ctx context.Context, svc *appintegration.Service, opts options, out io.Writer) integration.OperationResult

// lookupCommand resolves name and binds its positional arguments
func lookupCommand(name string, args []string) (command, error) {
	arg := func(usage string) (string, error) {
		if len(args) < 1 || args[0] == "" {
			return "", fmt.Errorf("usage: integrationctl -tenant <id> -provider <code> %s %s", name, usage)
		}
		return args[0], nil
	}

	switch name {
	case "test":
		return func(ctx context.Context, svc *appintegration.Service, o options, _ io.Writer) integration.OperationResult {
			return svc.TestConnection(ctx, o.tenantID, o.provider)
		}, nil

	case "products":
		return func(ctx context.Context, svc *appintegration.Service, o options, _ io.Writer) integration.OperationResult {
			return svc.SyncProducts(ctx, o.tenantID, o.provider, o.page, o.pageSize)
		}, nil

	case "walk":
		return walkProducts, nil

	case "track", "label", "cancel-shipment":
		tracking, err := arg("<tracking-number>")
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, svc *appintegration.Service, o options, _ io.Writer) integration.OperationResult {
			switch name {
			case "label":
				return svc.GetLabel(ctx, o.tenantID, o.provider, tracking)
			case "cancel-shipment":
				return svc.CancelShipment(ctx, o.tenantID, o.provider, tracking)
			default:
				return svc.TrackShipment(ctx, o.tenantID, o.provider, tracking)
			}
		}, nil

	case "invoice-status", "cancel-invoice":
		uuid, err := arg("<invoice-uuid>")
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, svc *appintegration.Service, o options, _ io.Writer) integration.OperationResult {
			if name == "cancel-invoice" {
				return svc.CancelInvoice(ctx, o.tenantID, o.provider, uuid)
			}
			return svc.InvoiceStatus(ctx, o.tenantID, o.provider, uuid)
		}, nil
	}
	return nil, fmt.Errorf("unknown command %q", name)
}

// walkProducts streams every catalog product as one JSON line before the
// summary result
func walkProducts(ctx context.Context, svc *appintegration.Service, o options, out io.Writer) integration.OperationResult {
	enc := json.NewEncoder(out)
	var writeErr error
	result := svc.WalkProducts(ctx, o.tenantID, o.provider, o.pageSize, func(_ int, products []integration.CanonicalProduct) bool {
		for _, p := range products {
			if writeErr = enc.Encode(p); writeErr != nil {
				return false
			}
		}
		return true
	})
	if writeErr != nil {
		return integration.ResultFromError(fmt.Errorf("write products: %w", writeErr))
	}
	return result
}

func writeResult(w io.Writer, result integration.OperationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Provider integration operator tool

Usage:
  integrationctl [flags] <command> [arguments]

Commands:
  providers                       List provider codes
  test                            Verify the tenant's credentials
  products                        Fetch one catalog page (-page, -size)
  walk                            Fetch every catalog page, one product per line
  track <tracking-number>         Shipment state (cargo providers)
  label <tracking-number>         Shipping label (cargo providers)
  cancel-shipment <tracking-no>   Cancel a shipment (cargo providers)
  invoice-status <uuid>           e-Archive invoice state
  cancel-invoice <uuid>           Cancel an e-Archive invoice

Flags:
  -tenant string      Tenant id (UUID)
  -provider string    Provider code
  -page int           Catalog page (default 1)
  -size int           Catalog page size (default 50)
  -log-level string   Log level override

The result is printed as JSON. The exit status is 1 when the operation failed.
`)
}

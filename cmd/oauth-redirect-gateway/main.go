package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	gosundheit "github.com/AppsFlyer/go-sundheit"
	"github.com/oklog/run"
	"github.com/spf13/cobra"

	"github.com/oauthmw/redirect-gateway/config"
	"github.com/oauthmw/redirect-gateway/gateway"
	"github.com/oauthmw/redirect-gateway/internal/log"
	"github.com/oauthmw/redirect-gateway/internal/telemetry"
	"github.com/oauthmw/redirect-gateway/loader"
	"github.com/oauthmw/redirect-gateway/registry"
	"github.com/oauthmw/redirect-gateway/simulator"
)

type serveOptions struct {
	config string

	httpAddrOverride      string
	telemetryAddr         string
	crashOnBindFailure    bool
	logLevel              string
	logFormat             string
	bootstrapSamplePeriod time.Duration
}

func commandServe() *cobra.Command {
	options := serveOptions{bootstrapSamplePeriod: 2 * time.Second}

	cmd := &cobra.Command{
		Use:     "serve [flags] [config file]",
		Short:   "Run the OAuth 2.0 redirect gateway",
		Example: "oauth-redirect-gateway serve config.json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			options.config = args[0]
			return runServe(options)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&options.httpAddrOverride, "http-addr", "", "override the public listener port from the config file's local.port")
	flags.StringVar(&options.telemetryAddr, "telemetry-addr", ":9000", "metrics/health listener address")
	flags.BoolVar(&options.crashOnBindFailure, "crash-on-bind-failure", false, "exit non-zero if the public listener fails to bind")
	flags.StringVar(&options.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&options.logFormat, "log-format", "text", "log format (text, json)")

	return cmd
}

func runServe(options serveOptions) error {
	logger, err := log.NewLogger(options.logLevel, options.logFormat)
	if err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}

	metrics := telemetry.NewMetrics()
	healthChecker := gosundheit.New()
	configHealth := telemetry.NewConfigHealth(3 * options.bootstrapSamplePeriod)
	if err := configHealth.RegisterWith(healthChecker, options.bootstrapSamplePeriod); err != nil {
		return fmt.Errorf("failed to register health check: %v", err)
	}

	gw := gateway.New(logger, metrics, simulator.New())
	listenerMgr := gateway.NewListenerManager(logger, gw)

	fatalCh := make(chan error, 1)

	onReload := func(doc config.Document) {
		reg := registry.Build(doc.Remote)

		port := doc.Local.HTTPPort
		if options.httpAddrOverride != "" {
			if p, err := parsePort(options.httpAddrOverride); err == nil {
				port = p
			}
		}

		gw.Publish(gateway.Snapshot{Registry: reg, Port: port})
		logger.Infof("config reloaded: %d tenant(s), port %d", reg.Len(), port)

		if err := listenerMgr.Rebind(port); err != nil {
			logger.Errorf("failed to rebind public listener to port %d: %v", port, err)
			if options.crashOnBindFailure {
				select {
				case fatalCh <- fmt.Errorf("bind failure on port %d: %w", port, err):
				default:
				}
			}
			return
		}

		configHealth.RecordSuccess()
	}

	configLoader := loader.New(options.config, options.bootstrapSamplePeriod, logger, metrics, onReload)
	// A read that finds the file unchanged reconfirms the same good
	// state a successful reload would have, so it resets the staleness
	// clock the same way onReload's RecordSuccess does above. A read
	// whose decode or rebind subsequently fails must NOT reset it — that
	// is the stuck state configHealth exists to catch (SPEC_FULL.md §4.L).
	configLoader.OnUnchanged = configHealth.RecordSuccess

	var gr run.Group

	loaderCtx, cancelLoader := context.WithCancel(context.Background())
	gr.Add(func() error {
		return configLoader.Run(loaderCtx)
	}, func(error) {
		cancelLoader()
	})

	gr.Add(func() error {
		select {
		case err := <-fatalCh:
			return err
		case <-loaderCtx.Done():
			return nil
		}
	}, func(error) {
		cancelLoader()
	})

	if options.telemetryAddr != "" {
		telemetrySrv := &http.Server{Addr: options.telemetryAddr, Handler: telemetry.Handler(metrics, healthChecker)}
		ln, err := net.Listen("tcp", options.telemetryAddr)
		if err != nil {
			return fmt.Errorf("listening (telemetry) on %s: %v", options.telemetryAddr, err)
		}
		gr.Add(func() error {
			logger.Infof("listening (telemetry) on %s", options.telemetryAddr)
			return telemetrySrv.Serve(ln)
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := telemetrySrv.Shutdown(ctx); err != nil {
				logger.Errorf("graceful shutdown (telemetry): %v", err)
			}
		})
	}

	gr.Add(func() error {
		<-loaderCtx.Done()
		return nil
	}, func(error) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := listenerMgr.Shutdown(ctx); err != nil {
			logger.Errorf("graceful shutdown (public listener): %v", err)
		}
	})

	gr.Add(run.SignalHandler(context.Background(), os.Interrupt, syscall.SIGTERM))

	if err := gr.Run(); err != nil {
		if _, ok := err.(run.SignalError); ok {
			logger.Infof("%v, shutdown now", err)
			return nil
		}
		return err
	}
	return nil
}

func parsePort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return 0, err
	}
	return port, nil
}

// commandRoot builds the single-command CLI: a "serve" subcommand that
// terminates the Authorization Code redirect leg for every tenant listed
// in its configuration file. There is nothing else for an operator to
// run against this binary, so the root command exists only to host
// "serve" and to print usage when invoked bare.
func commandRoot() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "oauth-redirect-gateway",
		Short: "Terminate the OAuth 2.0 Authorization Code redirect for browser SPAs",
		Long: "oauth-redirect-gateway receives the authorization-server redirect on\n" +
			"behalf of a browser SPA that cannot hold a client secret, exchanges the\n" +
			"code for a token using the per-tenant secret from its configuration file,\n" +
			"and sends the SPA back to its redirectBackUri with the result encoded in\n" +
			"the URL fragment.",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
			os.Exit(2)
		},
	}
	rootCmd.AddCommand(commandServe())
	return rootCmd
}

func main() {
	if err := commandRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
}

// Command nmcp is the external-collaborator CLI of §6: subcommands
// `operator`, `gateway`, `manager`, and `export`, sharing one flag surface.
// Grounded on the teacher's cmd/server/main.go for the flag-then-config-
// then-serve shape, and on nebius-soperator's cmd/main.go for the
// controller-runtime manager bootstrap (scheme registration, health checks,
// SetupSignalHandler) the teacher itself has no equivalent of.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	"sigs.k8s.io/yaml"
	"k8s.io/client-go/tools/clientcmd"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
	"github.com/nwrx/nmcp/internal/accountant"
	"github.com/nwrx/nmcp/internal/activation"
	"github.com/nwrx/nmcp/internal/config"
	"github.com/nwrx/nmcp/internal/controller"
	"github.com/nwrx/nmcp/internal/crdexport"
	"github.com/nwrx/nmcp/internal/gateway"
	"github.com/nwrx/nmcp/internal/kube"
	"github.com/nwrx/nmcp/internal/logging"

	kubeclientset "k8s.io/client-go/kubernetes"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: nmcp <operator|gateway|manager|export> [flags]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "operator":
		runOperator(os.Args[2:])
	case "gateway":
		runGateway(os.Args[2:])
	case "manager":
		runManagerCmd(os.Args[2:])
	case "export":
		runExport(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		os.Exit(1)
	}
}

// sharedFlags is the common flag surface every long-running subcommand
// parses, matching §6's documented flag list.
type sharedFlags struct {
	configPath      string
	namespace       string
	host            string
	port            int
	kubeconfig      string
	logLevel        string
	disableOperator bool
	disableAPI      bool
}

func parseSharedFlags(fs *flag.FlagSet, args []string) *sharedFlags {
	f := &sharedFlags{}
	fs.StringVar(&f.configPath, "config", "nmcp.yaml", "path to YAML config file")
	fs.StringVar(&f.namespace, "namespace", "", "namespace to watch (overrides config)")
	fs.StringVar(&f.host, "host", "", "gateway bind host (overrides config)")
	fs.IntVar(&f.port, "port", 0, "gateway bind port (overrides config)")
	fs.StringVar(&f.kubeconfig, "kubeconfig", "", "path to kubeconfig (overrides KUBECONFIG)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	fs.BoolVar(&f.disableOperator, "disable-operator", false, "manager subcommand only: skip the reconciliation engine")
	fs.BoolVar(&f.disableAPI, "disable-api", false, "manager subcommand only: skip the HTTP gateway")
	_ = fs.Parse(args)
	return f
}

// loadConfig applies flag overrides onto the YAML-plus-defaults config, the
// documented precedence in the [EXPANSION] Config file note.
func loadConfig(f *sharedFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.namespace != "" {
		cfg.Namespace = f.namespace
	}
	if f.host != "" {
		cfg.Gateway.Host = f.host
	}
	if f.port != 0 {
		cfg.Gateway.Port = f.port
	}
	if f.kubeconfig != "" {
		cfg.Kubeconfig = f.kubeconfig
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, nil
}

func restConfigFor(cfg *config.Config) (*rest.Config, error) {
	if cfg.Kubeconfig != "" {
		rc, err := clientcmd.BuildConfigFromFlags("", cfg.Kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("resolve kubeconfig %q: %w", cfg.Kubeconfig, err)
		}
		return rc, nil
	}
	rc, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("resolve kube config: %w", err)
	}
	return rc, nil
}

// scheme builds the runtime.Scheme every subcommand that talks to the API
// server shares: the built-in client-go types (Pods, Services) plus the
// nmcp CRD types.
func scheme() *runtime.Scheme {
	s := runtime.NewScheme()
	_ = clientgoscheme.AddToScheme(s)
	_ = nmcpv1.AddToScheme(s)
	return s
}

// runOperator runs only the reconciliation engine (4.C/4.D/4.H): the
// controller-runtime manager, its cache, and the two reconcilers.
func runOperator(args []string) {
	f := parseSharedFlags(flag.NewFlagSet("operator", flag.ExitOnError), args)
	cfg, err := loadConfig(f)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}

	logr := logging.NewControllerLogger(logging.Level(cfg.LogLevel), false)
	ctrl.SetLogger(logr)

	mgr, err := newManager(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to start manager")
		os.Exit(2)
	}

	if err := setupControllers(mgr); err != nil {
		log.Error().Err(err).Msg("failed to set up controllers")
		os.Exit(2)
	}

	addHealthChecks(mgr)

	log.Info().Str("namespace", cfg.Namespace).Msg("starting operator")
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		log.Error().Err(err).Msg("manager exited with error")
		os.Exit(1)
	}
}

// runGateway runs only the HTTP demand-router (4.F), against a direct
// (uncached) client — the gateway is not a reconciler and has no need for
// an informer cache of its own.
func runGateway(args []string) {
	f := parseSharedFlags(flag.NewFlagSet("gateway", flag.ExitOnError), args)
	cfg, err := loadConfig(f)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}

	zl := logging.NewGatewayLogger(logging.Level(cfg.LogLevel), cfg.LogFormat)
	log.Logger = zl

	restConfig, err := restConfigFor(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve kube config")
		os.Exit(2)
	}

	rawClient, err := client.New(restConfig, client.Options{Scheme: scheme()})
	if err != nil {
		log.Error().Err(err).Msg("failed to build kube client")
		os.Exit(2)
	}
	clientSet, err := kubeclientset.NewForConfig(restConfig)
	if err != nil {
		log.Error().Err(err).Msg("failed to build kube clientset")
		os.Exit(2)
	}

	kubeClient := kube.New(rawClient)
	acct := accountant.New(kubeClient)
	waiter := activation.New(kubeClient)

	ctx, stop := signalContext()
	defer stop()

	go acct.Run(ctx)
	defer acct.Stop()

	readyGate := &gateway.ReadyGate{}
	readyGate.MarkReady()

	router := gateway.NewRouter(gateway.Config{
		Kube:              kubeClient,
		Namespace:         cfg.Namespace,
		Waiter:            waiter,
		Accountant:        acct,
		RestConfig:        restConfig,
		ClientSet:         clientSet,
		ActivationTimeout: cfg.Activation.Timeout,
		Ready:             readyGate,
	})

	serveHTTP(ctx, cfg, router)
}

// runManagerCmd runs the operator and the gateway in one process, each
// independently toggled by --disable-operator/--disable-api.
func runManagerCmd(args []string) {
	f := parseSharedFlags(flag.NewFlagSet("manager", flag.ExitOnError), args)
	cfg, err := loadConfig(f)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}

	logr := logging.NewControllerLogger(logging.Level(cfg.LogLevel), false)
	ctrl.SetLogger(logr)
	log.Logger = logging.NewGatewayLogger(logging.Level(cfg.LogLevel), cfg.LogFormat)

	var mgr ctrl.Manager
	if !f.disableOperator {
		mgr, err = newManager(cfg)
		if err != nil {
			log.Error().Err(err).Msg("failed to start manager")
			os.Exit(2)
		}
		if err := setupControllers(mgr); err != nil {
			log.Error().Err(err).Msg("failed to set up controllers")
			os.Exit(2)
		}
		addHealthChecks(mgr)
	}

	ctx, stop := signalContext()
	defer stop()

	if mgr != nil {
		go func() {
			if err := mgr.Start(ctx); err != nil {
				log.Error().Err(err).Msg("manager exited with error")
			}
		}()
	}

	if !f.disableAPI {
		restConfig, err := restConfigFor(cfg)
		if err != nil {
			log.Error().Err(err).Msg("failed to resolve kube config")
			os.Exit(2)
		}
		clientSet, err := kubeclientset.NewForConfig(restConfig)
		if err != nil {
			log.Error().Err(err).Msg("failed to build kube clientset")
			os.Exit(2)
		}

		var kubeClient *kube.Client
		if mgr != nil {
			kubeClient = kube.New(mgr.GetClient())
		} else {
			rawClient, err := client.New(restConfig, client.Options{Scheme: scheme()})
			if err != nil {
				log.Error().Err(err).Msg("failed to build kube client")
				os.Exit(2)
			}
			kubeClient = kube.New(rawClient)
		}

		acct := accountant.New(kubeClient)
		waiter := activation.New(kubeClient)
		go acct.Run(ctx)
		defer acct.Stop()

		readyGate := &gateway.ReadyGate{}
		if mgr == nil {
			readyGate.MarkReady()
		} else {
			go func() {
				if mgr.GetCache().WaitForCacheSync(ctx) {
					readyGate.MarkReady()
				}
			}()
		}

		router := gateway.NewRouter(gateway.Config{
			Kube:              kubeClient,
			Namespace:         cfg.Namespace,
			Waiter:            waiter,
			Accountant:        acct,
			RestConfig:        restConfig,
			ClientSet:         clientSet,
			ActivationTimeout: cfg.Activation.Timeout,
			Ready:             readyGate,
		})

		serveHTTP(ctx, cfg, router)
		return
	}

	<-ctx.Done()
}

// runExport prints the named CRD manifest to stdout, implementing
// `export --type=crd --resource={pool,server} --format={json,yaml}`.
func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	typ := fs.String("type", "crd", "export type (only crd is supported)")
	resource := fs.String("resource", "", "resource to export: pool or server")
	format := fs.String("format", "yaml", "output format: json or yaml")
	_ = fs.Parse(args)

	if *typ != "crd" {
		fmt.Fprintf(os.Stderr, "unsupported export type %q\n", *typ)
		os.Exit(1)
	}

	var obj interface{}
	switch *resource {
	case "pool":
		obj = crdexport.Pool()
	case "server":
		obj = crdexport.Server()
	default:
		fmt.Fprintf(os.Stderr, "unsupported resource %q (want pool or server)\n", *resource)
		os.Exit(1)
	}

	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *format == "yaml" {
		data, err = yaml.JSONToYAML(data)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	os.Stdout.Write(data)
}

func newManager(cfg *config.Config) (ctrl.Manager, error) {
	restConfig, err := restConfigFor(cfg)
	if err != nil {
		return nil, err
	}
	opts := ctrl.Options{
		Scheme:                 scheme(),
		Metrics:                metricsserver.Options{BindAddress: "0"},
		HealthProbeBindAddress: "0",
	}
	if cfg.Namespace != "" {
		opts.Cache = cache.Options{
			DefaultNamespaces: map[string]cache.Config{
				cfg.Namespace: {},
			},
		}
	}
	return ctrl.NewManager(restConfig, opts)
}

func setupControllers(mgr ctrl.Manager) error {
	kubeClient := kube.New(mgr.GetClient())
	wake := make(chan event.GenericEvent, 64)

	serverReconciler := &controller.ServerReconciler{
		Client:      mgr.GetClient(),
		Kube:        kubeClient,
		Scheme:      mgr.GetScheme(),
		WakeServers: wake,
	}
	if err := serverReconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("set up server controller: %w", err)
	}

	poolReconciler := &controller.PoolReconciler{
		Client:      mgr.GetClient(),
		Kube:        kubeClient,
		Scheme:      mgr.GetScheme(),
		WakeServers: wake,
	}
	if err := poolReconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("set up pool controller: %w", err)
	}
	return nil
}

func addHealthChecks(mgr ctrl.Manager) {
	_ = mgr.AddHealthzCheck("healthz", healthz.Ping)
	_ = mgr.AddReadyzCheck("readyz", func(req *http.Request) error {
		if mgr.GetCache().WaitForCacheSync(req.Context()) {
			return nil
		}
		return fmt.Errorf("cache not synced")
	})
}

func serveHTTP(ctx context.Context, cfg *config.Config, handler http.Handler) {
	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams are long-lived GETs.
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("gateway shutdown error")
		}
	}()

	log.Info().Str("addr", addr).Msg("gateway listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("gateway server error")
		os.Exit(1)
	}
	log.Info().Msg("gateway stopped")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

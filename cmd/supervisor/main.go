package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/apsviz/run-supervisor/internal/cluster"
	"github.com/apsviz/run-supervisor/internal/config"
	"github.com/apsviz/run-supervisor/internal/logging"
	"github.com/apsviz/run-supervisor/internal/notify"
	"github.com/apsviz/run-supervisor/internal/stage"
	"github.com/apsviz/run-supervisor/internal/store"
	"github.com/apsviz/run-supervisor/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var kubeconfig string
	var logEncoder string
	var slackToken string
	var slackChannel string

	flag.StringVar(&configPath, "config", "/etc/run-supervisor/config.json", "Path to the stage-template configuration file.")
	flag.StringVar(&kubeconfig, "kubeconfig", "", "Path to a kubeconfig file. Empty uses in-cluster config.")
	flag.StringVar(&logEncoder, "log-encoder", "json", "Encoder to use for logging. Valid values are 'json' and 'console'.")
	flag.StringVar(&slackToken, "slack-access-token", os.Getenv("SLACK_ACCESS_TOKEN"), "Slack access token for operator notifications.")
	flag.StringVar(&slackChannel, "slack-channel", os.Getenv("SLACK_CHANNEL"), "Slack channel for operator notifications.")
	flag.Parse()

	log, _, err := logging.New(logEncoder)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	setupLog := log.WithName("setup")

	cfg, err := config.Load(configPath)
	if err != nil {
		setupLog.Error(err, "failed to load configuration")
		return fmt.Errorf("loading configuration: %w", err)
	}

	catalog, err := stage.NewCatalog(cfg)
	if err != nil {
		setupLog.Error(err, "failed to build stage catalog")
		return fmt.Errorf("building stage catalog: %w", err)
	}

	restConfig, err := buildRESTConfig(kubeconfig)
	if err != nil {
		setupLog.Error(err, "failed to build cluster REST config")
		return fmt.Errorf("building cluster REST config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		setupLog.Error(err, "failed to build cluster clientset")
		return fmt.Errorf("building cluster clientset: %w", err)
	}
	driver := cluster.NewK8sDriver(clientset)

	st, err := store.NewPostgresStore(log)
	if err != nil {
		setupLog.Error(err, "failed to connect to catalog database")
		return fmt.Errorf("connecting to catalog database: %w", err)
	}

	notifier := notify.NewSlackNotifier(slackToken, slackChannel, log)

	super := supervisor.New(st, driver, notifier, catalog, cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	setupLog.Info("starting reconciliation loop")
	if err := super.Run(ctx); err != nil && ctx.Err() == nil {
		setupLog.Error(err, "reconciliation loop exited")
		return fmt.Errorf("reconciliation loop exited: %w", err)
	}
	setupLog.Info("shutting down")
	return nil
}

// restConfigTimeout bounds the underlying HTTP client's request timeout
// for every call the K8sDriver makes, alongside its own per-call
// context.WithTimeout. A stuck backend must raise, not stall the tick.
const restConfigTimeout = 30 * time.Second

func buildRESTConfig(kubeconfig string) (*rest.Config, error) {
	var cfg *rest.Config
	var err error
	if kubeconfig != "" {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	} else {
		cfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, err
	}
	cfg.Timeout = restConfigTimeout
	return cfg, nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/oomph-ac/contactsim"
	"github.com/oomph-ac/contactsim/settings"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the settings file, created with defaults if missing")
	flag.Parse()

	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"}
	log.Level = logrus.InfoLevel
	if os.Getenv("DEBUG") != "" {
		log.Level = logrus.DebugLevel
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			log.Warnf("unable to initialize sentry: %v", err)
		}
	}
	if os.Getenv("PPROF_ENABLED") != "" {
		mgr := statsview.New()
		go mgr.Start()
		defer mgr.Stop()
	}

	s, err := readSettings(*configPath, log)
	if err != nil {
		log.Fatal(err)
	}
	sc, err := contactsim.NewScene(s, log)
	if err != nil {
		log.Fatalf("unable to create scene: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	_, err = sc.Run(ctx, os.Stdout)
	stop()
	sc.Close()
	if err != nil {
		log.Errorf("simulation failed: %v", err)
		os.Exit(1)
	}
	fmt.Println("Done. Exiting with status 0.")
}

func readSettings(path string, log *logrus.Logger) (settings.Settings, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := settings.SaveDefault(path); err != nil {
			return settings.Settings{}, err
		}
		log.Infof("created default settings at %s", path)
	}
	return settings.Load(path)
}

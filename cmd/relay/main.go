// Command relay runs one instance of the multi-region relay (§1-§9):
// configuration is loaded from the environment or an optional .env file,
// then the Admission Pipeline, Query Cache, Payment Cache and Broadcast
// Fabric are assembled into an Instance and served over HTTP.
package main

import (
	"crypto/rand"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/profile"

	"meshrelay.dev/pkg/app"
	"meshrelay.dev/pkg/app/config"
	"meshrelay.dev/pkg/app/instance"
	"meshrelay.dev/pkg/crypto/schnorrsigner"
	"meshrelay.dev/pkg/interfaces/payment"
	"meshrelay.dev/pkg/paymentoracle"
	"meshrelay.dev/pkg/protocol/httpapi"
	"meshrelay.dev/pkg/storage/badgerstore"
	"meshrelay.dev/pkg/storage/substore"
	"meshrelay.dev/pkg/utils/chk"
	"meshrelay.dev/pkg/utils/context"
	"meshrelay.dev/pkg/utils/log"
	"meshrelay.dev/pkg/version"
)

func main() {
	var err error
	var cfg *config.C
	if cfg, err = config.New(); chk.T(err) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n\n", err)
		}
		config.PrintHelp(cfg, os.Stderr)
		os.Exit(0)
	}
	log.I.F("starting %s %s", cfg.AppName, version.V)
	if config.GetEnv() {
		config.PrintEnv(cfg, os.Stdout)
		os.Exit(0)
	}
	if config.HelpRequested() {
		config.PrintHelp(cfg, os.Stderr)
		os.Exit(0)
	}
	log.SetLevelByName(cfg.LogLevel)

	if cfg.Pprof != "" {
		var mode func(*profile.Profile)
		switch cfg.Pprof {
		case "memory", "allocation":
			mode = profile.MemProfile
		default:
			mode = profile.CPUProfile
		}
		defer profile.Start(mode).Stop()
		go func() {
			chk.E(http.ListenAndServe("127.0.0.1:6060", nil))
		}()
	}

	ctx, cancel := context.Cancel(context.Bg())
	defer cancel()

	st, err := badgerstore.New(ctx, cancel, cfg.DataDir, cfg.DbLogLevel)
	if chk.E(err) {
		os.Exit(1)
	}
	durable, err := substore.New(ctx, cancel, cfg.State, cfg.DbLogLevel)
	if chk.E(err) {
		os.Exit(1)
	}

	var privKey [32]byte
	if _, err = rand.Read(privKey[:]); chk.E(err) {
		os.Exit(1)
	}
	signer, err := schnorrsigner.New(privKey[:])
	if chk.E(err) {
		os.Exit(1)
	}

	var payer payment.I
	if cfg.PayToRelayEnabled {
		payer = paymentoracle.AllowAll{}
	}

	inst := instance.New(cfg, st, signer, payer, durable)

	go app.MonitorResources(ctx)
	go inst.RunLifecycleTimer(ctx, cfg.IdleTimeout)

	handler := httpapi.NewRouter(ctx, inst)
	addr := fmt.Sprintf("%s:%d", cfg.Listen, cfg.Port)
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.I.Ln("shutting down")
		cancel()
		chk.E(srv.Close())
	}()

	log.I.F("listening on %s", addr)
	if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.F.F("server terminated: %v", err)
	}
}

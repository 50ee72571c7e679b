package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"wg-pmtud/pkg/agent"
	"wg-pmtud/pkg/api"
	"wg-pmtud/pkg/auth"
	"wg-pmtud/pkg/conntrack"
	"wg-pmtud/pkg/model"
	"wg-pmtud/pkg/routetable"
	"wg-pmtud/pkg/version"
	"wg-pmtud/pkg/wgpeers"
)

func main() {
	_ = godotenv.Load()

	defaultIface := os.Getenv("WG_IFACE")
	if defaultIface == "" {
		defaultIface = "wg0"
	}
	defaultToken := os.Getenv("AUTH_TOKEN")
	defaultConsul := os.Getenv("CONSUL_ADDR")
	defaultConsulToken := os.Getenv("CONSUL_TOKEN")

	iface := flag.String("iface", defaultIface, "wireguard interface name (env WG_IFACE)")
	interval := flag.Duration("interval", 30*time.Second, "time between passes; 0 disables the ticker")
	once := flag.Bool("once", false, "run a single pass and exit")
	listen := flag.String("listen", "", "status API listen address, e.g. 127.0.0.1:9090 (empty disables)")
	token := flag.String("token", defaultToken, "bootstrap API token (env AUTH_TOKEN); empty leaves API open")
	consulAddr := flag.String("consul-addr", defaultConsul, "consul address for trigger watch (requires build tag consul)")
	consulToken := flag.String("consul-token", defaultConsulToken, "consul token (env CONSUL_TOKEN)")
	journal := flag.Bool("journal", true, "record applied mutations to the local sqlite journal")
	genToken := flag.String("gen-token", "", "issue an API bearer token for the named client and exit (uses JWT_SECRET)")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of tokens issued via -gen-token")
	showVersion := flag.Bool("v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		log.Printf("wg-pmtud version=%s", version.Build)
		return
	}

	if *genToken != "" {
		tok, err := auth.Generate(*genToken, *tokenTTL)
		if err != nil {
			log.Fatalf("token generate failed: %v", err)
		}
		fmt.Println(tok)
		return
	}

	status := api.NewStatus()
	table := routetable.New()
	runner := &agent.Runner{
		Iface:    *iface,
		Registry: wgpeers.New(table.MTU),
		Routes:   table,
		Links:    table,
		Sessions: conntrack.New(),
		Events: func(rec model.RouteChange) {
			if *journal {
				agent.RecordMutation(rec)
			}
			status.Hub().Broadcast(api.WSMessage{Type: "mutation", Payload: rec})
		},
	}

	runPass := func() {
		rep, err := runner.RunOnce()
		if err != nil {
			log.Printf("pass failed: %v", err)
			return
		}
		status.SetReport(rep)
	}

	if *once {
		rep, err := runner.RunOnce()
		if err != nil {
			log.Fatalf("pass failed: %v", err)
		}
		if rep.PeerErrors > 0 {
			log.Printf("pass completed with %d peer errors", rep.PeerErrors)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *listen != "" {
		mux := http.NewServeMux()
		api.RegisterRoutes(mux, status, api.AuthFunc(*token))
		srv := &http.Server{
			Addr:              *listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("status api listening on %s", *listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("api server error: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 3*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if *consulAddr != "" {
		if !agent.WatchEnabled() {
			log.Printf("consul trigger requested but binary built without consul tag; ignoring")
		} else if err := agent.StartConsulWatch(ctx, *consulAddr, *consulToken, func(gen int64) {
			log.Printf("consul trigger generation=%d", gen)
			status.Trigger()
		}); err != nil {
			log.Printf("consul watch failed: %v", err)
		}
	}

	log.Printf("wg-pmtud version=%s iface=%s interval=%s", version.Build, *iface, *interval)
	runPass()

	var tick <-chan time.Time
	if *interval > 0 {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			log.Printf("shutting down")
			return
		case <-tick:
			runPass()
		case <-status.TriggerC():
			runPass()
		}
	}
}

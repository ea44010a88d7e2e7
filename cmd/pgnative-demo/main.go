// Command pgnative-demo loads a pool-registry configuration file, wires up
// metrics, the health prober, and the admin HTTP server, opens the
// registered pools, and runs a smoke-test query against the first pool
// before settling into serving admin traffic until signaled to stop.
// Flag parsing, component wiring order, and signal-based graceful
// shutdown follow the retrieval pack's demo binary.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pgnative/pgnative"
	"github.com/pgnative/pgnative/healthprobe"
	"github.com/pgnative/pgnative/internal/adminhttp"
	"github.com/pgnative/pgnative/internal/config"
	"github.com/pgnative/pgnative/internal/metrics"
	"github.com/pgnative/pgnative/pglog"
	"github.com/pgnative/pgnative/poolreg"
)

func main() {
	configPath := flag.String("config", "pools.yaml", "path to the pool-registry YAML file")
	adminPort := flag.Int("admin-port", 9090, "port for the admin HTTP server")
	healthInterval := flag.Duration("health-interval", 15*time.Second, "interval between health probes")
	flag.Parse()

	log := pglog.New("pgnative.demo")
	log.SetHandler(pglog.NewConsoleHandler(os.Stdout))

	doc, err := config.Load(*configPath)
	if err != nil {
		log.Severe("loading config: %v", err)
		os.Exit(1)
	}

	reg, err := poolreg.New(doc)
	if err != nil {
		log.Severe("building pool registry: %v", err)
		os.Exit(1)
	}
	defer reg.CloseAll()

	watcher, err := config.NewWatcher(*configPath, func(d *config.Document) {
		if err := reg.Reload(d); err != nil {
			log.Severe("reloading pool registry: %v", err)
		}
	})
	if err != nil {
		log.Warning("config hot-reload disabled: %v", err)
	} else {
		defer watcher.Stop()
	}

	collector := metrics.New()
	prober := healthprobe.NewProber(reg, collector, *healthInterval, 3)
	prober.Start()
	defer prober.Stop()

	admin := adminhttp.NewServer(reg, prober, collector)
	if err := admin.Start(*adminPort); err != nil {
		log.Severe("starting admin server: %v", err)
		os.Exit(1)
	}

	if names := reg.Names(); len(names) > 0 {
		runSmokeTest(log, reg, names[0])
	}

	waitForShutdown(log)

	if err := admin.Stop(); err != nil {
		log.Warning("admin server shutdown: %v", err)
	}
}

// weatherSmokeQuery and weatherSmokeParam are the prepared statement and
// bind parameter for the startup smoke test: the city/temp_lo/temp_hi/prcp/
// date lookup against the seeded three-row "weather" table, run once
// against San Francisco. It never aborts startup: a failed smoke test
// (the table not existing, say) just appears in the log.
const weatherSmokeQuery = "SELECT city, temp_lo, temp_hi, prcp, date FROM weather WHERE city = $1"

var weatherSmokeParam = []byte("San Francisco")

// runSmokeTest opens one session from the named pool and round-trips the
// weather-table lookup scenario, logging each returned row or the failure.
func runSmokeTest(log *pglog.Logger, reg *poolreg.Registry, poolName string) {
	pool, err := reg.Get(poolName)
	if err != nil {
		log.Warning("smoke test: %v", err)
		return
	}
	conn, err := pool.Acquire()
	if err != nil {
		log.Warning("smoke test: acquiring session from %q: %v", poolName, err)
		return
	}
	defer pool.Release(conn)

	stmt, err := conn.Prepare(weatherSmokeQuery)
	if err != nil {
		log.Warning("smoke test: preparing statement on %q: %v", poolName, err)
		return
	}
	defer stmt.Close()

	cur, err := stmt.Execute(weatherSmokeParam)
	if err != nil {
		log.Warning("smoke test: executing statement on %q: %v", poolName, err)
		return
	}
	rows := 0
	for {
		row, drained, err := cur.Next()
		if err != nil {
			log.Warning("smoke test: reading rows from %q: %v", poolName, err)
			return
		}
		if drained {
			break
		}
		rows++
		log.Info("smoke test row %d from %q: %v", rows, poolName, rowStrings(row))
	}
	log.Info("smoke test against pool %q succeeded (%d row(s))", poolName, rows)
}

func rowStrings(row pgnative.Row) []string {
	out := make([]string, len(row.Values))
	for i, v := range row.Values {
		if v.IsNull() {
			out[i] = "NULL"
			continue
		}
		out[i] = v.String()
	}
	return out
}

func waitForShutdown(log *pglog.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info("received signal %s, shutting down", s)
}

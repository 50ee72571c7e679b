package agent

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"wg-pmtud/pkg/model"
)

var (
	sqliteOnce sync.Once
	sqliteDB   *sql.DB
)

const sqlitePath = "/var/lib/wg-pmtud/state.db"

func initSQLite() {
	sqliteOnce.Do(func() {
		path := sqlitePath
		if p := os.Getenv("WG_PMTUD_DB"); p != "" {
			path = p
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.Printf("journal mkdir failed: %v", err)
			return
		}
		dsn := "file:" + path + "?_pragma=busy_timeout=5000"
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			log.Printf("journal open failed: %v", err)
			return
		}
		db.SetMaxOpenConns(1)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			log.Printf("journal ping failed: %v", err)
			_ = db.Close()
			return
		}
		if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS route_mutations(peer TEXT, dst TEXT, device TEXT, old_mtu INTEGER, new_mtu INTEGER, ts INTEGER); CREATE INDEX IF NOT EXISTS idx_route_mutations_dst ON route_mutations(dst);`); err != nil {
			log.Printf("journal schema failed: %v", err)
			_ = db.Close()
			return
		}
		sqliteDB = db
	})
}

// RecordMutation appends one applied route-MTU change to the local journal.
// Best effort: the journal is diagnostics only and is never read back by
// the decision core.
func RecordMutation(rec model.RouteChange) {
	initSQLite()
	if sqliteDB == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = sqliteDB.ExecContext(ctx,
		`INSERT INTO route_mutations(peer, dst, device, old_mtu, new_mtu, ts) VALUES(?,?,?,?,?,?)`,
		rec.Peer, rec.Destination, rec.Device, rec.OldMTU, rec.NewMTU, rec.Time.Unix())
}

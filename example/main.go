package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"

	_ "github.com/mattn/go-sqlite3"

	sqlsmell "github.com/yevheniidehtiar/sqlsmell"
	"github.com/yevheniidehtiar/sqlsmell/config"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	agent, err := sqlsmell.New(&cfg)
	if err != nil {
		log.Fatalf("failed to initialize sqlsmell agent: %v", err)
	}
	defer agent.Close()

	db, err := agent.OpenDB("sqlite3", "file:example.db?cache=shared&mode=memory")
	if err != nil {
		log.Fatalf("failed to open traced db connection: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS users (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		log.Fatalf("failed to create table: %v", err)
	}
	for i, name := range []string{"Ada", "Grace", "Edsger"} {
		if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO users (id, name) VALUES (?, ?)`, i+1, name); err != nil {
			log.Fatalf("failed to seed table: %v", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", helloHandler)
	mux.HandleFunc("/user", userHandler(db))
	mux.HandleFunc("/n-plus-one", nPlusOneHandler(db))
	mux.HandleFunc("/slow-query", slowQueryHandler(db))
	mux.Handle("/debug/sql-issues", agent.Handler())

	handler := agent.Middleware()(mux)

	log.Printf("Starting example server for service %q on :8080", cfg.ServiceName)
	log.Println("Test endpoint: http://localhost:8080/")
	log.Println("DB test endpoint: http://localhost:8080/user")
	log.Println("N+1 test endpoint: http://localhost:8080/n-plus-one")
	log.Println("Slow query endpoint: http://localhost:8080/slow-query")
	log.Println("Snapshot endpoint: http://localhost:8080/debug/sql-issues")

	if err := http.ListenAndServe(":8080", handler); err != nil {
		log.Fatalf("could not start server: %v", err)
	}
}

func helloHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "Hello! Try /n-plus-one and watch the DJ_TB_SQL_* response headers.")
}

func userHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		row := db.QueryRowContext(r.Context(), "SELECT name FROM users WHERE id = ?", 1)
		var name string
		if err := row.Scan(&name); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "User name from DB: %s\n", name)
	}
}

// nPlusOneHandler runs the same lookup once per user instead of a single
// query. Each response carries a DJ_TB_SQL_NPLUS1_1 header naming the
// repeated statement.
func nPlusOneHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var names []string
		for id := 1; id <= 3; id++ {
			row := db.QueryRowContext(ctx, "SELECT name FROM users WHERE id = ?", id)
			var name string
			if err := row.Scan(&name); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			names = append(names, name)
		}
		fmt.Fprintf(w, "Looked up %d users one by one: %v\n", len(names), names)
	}
}

// slowQueryHandler forces the database to generate rows until the query
// crosses the slow threshold, producing a DJ_TB_SQL_SLOW_1 header.
func slowQueryHandler(db *sql.DB) http.HandlerFunc {
	const burn = `WITH RECURSIVE burn(n) AS (SELECT 1 UNION ALL SELECT n + 1 FROM burn WHERE n < ?) SELECT COUNT(*) FROM burn`
	return func(w http.ResponseWriter, r *http.Request) {
		var count int64
		if err := db.QueryRowContext(r.Context(), burn, 2000000).Scan(&count); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "Scanned %d generated rows.\n", count)
	}
}

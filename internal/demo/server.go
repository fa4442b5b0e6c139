// Package demo is a small library application whose endpoints exercise the
// query patterns the collector middleware exists to catch: per-row lookups
// in loops, a single slow aggregate and a nested report that mixes both.
// It doubles as the target for the bundled load-test harness.
package demo

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yevheniidehtiar/sqlsmell/config"
)

const (
	booksPageSize    = 200
	naiveLookupLimit = 100
)

type Server struct {
	repo   *Repository
	cfg    config.DemoConfig
	logger *zap.Logger
}

func NewServer(db *sql.DB, cfg config.DemoConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		repo:   NewRepository(db),
		cfg:    cfg,
		logger: logger,
	}
}

// Routes assembles the demo router. Every /api route runs under the
// collect middleware; /health and the snapshot endpoint stay outside so
// they never report on themselves.
func (s *Server) Routes(collect func(http.Handler) http.Handler, snapshots http.Handler) http.Handler {
	mux := chi.NewRouter()

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if snapshots != nil {
		mux.Method(http.MethodGet, "/debug/sql-issues", snapshots)
	}

	mux.Group(func(g chi.Router) {
		if collect != nil {
			g.Use(collect)
		}
		g.Get("/api/authors", s.wrap(s.handleAuthors))
		g.Get("/api/books", s.wrap(s.handleBooks))
		g.Route("/api/examples", func(ex chi.Router) {
			ex.Get("/n-plus-one", s.wrap(s.handleNPlusOne))
			ex.Get("/optimized", s.wrap(s.handleOptimized))
			ex.Get("/expensive", s.wrap(s.handleExpensive))
			ex.Get("/complex-nested", s.wrap(s.handleComplexNested))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			s.logger.Error("demo handler failed", zap.String("path", req.URL.Path), zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// GET /api/authors
func (s *Server) handleAuthors(w http.ResponseWriter, req *http.Request) error {
	authors, err := s.repo.ListAuthors(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, authors)
}

type bookListing struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	AuthorName      string `json:"author_name"`
	PublicationYear int    `json:"publication_year"`
}

// GET /api/books
//
// The naive listing: one query for the page of books, then one author
// lookup per book while rendering. Nothing about it looks broken from the
// handler, which is exactly the case the collector exists for.
func (s *Server) handleBooks(w http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()
	books, err := s.repo.ListBooks(ctx, booksPageSize)
	if err != nil {
		return err
	}

	listings := make([]bookListing, 0, len(books))
	for _, b := range books {
		authorName, err := s.repo.AuthorName(ctx, b.AuthorID)
		if err != nil {
			return err
		}
		listings = append(listings, bookListing{
			ID:              b.ID,
			Title:           b.Title,
			AuthorName:      authorName,
			PublicationYear: b.PublicationYear,
		})
	}
	return writeJSON(w, listings)
}

// GET /api/examples/n-plus-one
//
// Lists books with one query, then resolves each book's author with its
// own query. The classic smell, kept intentionally.
func (s *Server) handleNPlusOne(w http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()
	books, err := s.repo.ListBooks(ctx, naiveLookupLimit)
	if err != nil {
		return err
	}

	authorNames := make([]string, 0, len(books))
	for _, b := range books {
		name, err := s.repo.AuthorName(ctx, b.AuthorID)
		if err != nil {
			return err
		}
		authorNames = append(authorNames, name)
	}

	return writeJSON(w, map[string]interface{}{"author_names": authorNames})
}

// GET /api/examples/optimized
//
// The same payload as n-plus-one, produced by a single join.
func (s *Server) handleOptimized(w http.ResponseWriter, req *http.Request) error {
	authorNames, err := s.repo.AuthorNamesForBooks(req.Context(), naiveLookupLimit)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]interface{}{"author_names": authorNames})
}

// GET /api/examples/expensive
//
// Runs one query sized to exceed the slow threshold.
func (s *Server) handleExpensive(w http.ResponseWriter, req *http.Request) error {
	rowCount := s.cfg.ExpensiveRows
	if rowCount <= 0 {
		rowCount = 1000000
	}

	start := time.Now()
	counted, err := s.repo.BurnRows(req.Context(), rowCount)
	if err != nil {
		return err
	}

	return writeJSON(w, map[string]interface{}{
		"rows_scanned": counted,
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})
}

type projectReport struct {
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	Budget     float64 `json:"budget"`
	TotalTasks int     `json:"total_tasks"`
	DoneTasks  int     `json:"done_tasks"`
	TotalHours float64 `json:"total_hours"`
	TeamSize   int     `json:"team_size"`
}

// GET /api/examples/complex-nested?department=DEP-1
//
// Builds a department performance report the way a hurried reviewer would
// never catch: one query for the projects, then three more per project.
func (s *Server) handleComplexNested(w http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()

	var (
		dept Department
		err  error
	)
	if code := req.URL.Query().Get("department"); code != "" {
		dept, err = s.repo.DepartmentByCode(ctx, code)
	} else {
		dept, err = s.repo.FirstDepartment(ctx)
	}
	if err != nil {
		return err
	}

	projects, err := s.repo.ProjectsByDepartment(ctx, dept.ID)
	if err != nil {
		return err
	}

	reports := make([]projectReport, 0, len(projects))
	for _, p := range projects {
		total, done, err := s.repo.TaskStats(ctx, p.ID)
		if err != nil {
			return err
		}
		hours, err := s.repo.AllocatedHours(ctx, p.ID)
		if err != nil {
			return err
		}
		team, err := s.repo.TeamSize(ctx, p.ID)
		if err != nil {
			return err
		}
		reports = append(reports, projectReport{
			Name:       p.Name,
			Code:       p.Code,
			Budget:     p.Budget,
			TotalTasks: total,
			DoneTasks:  done,
			TotalHours: hours,
			TeamSize:   team,
		})
	}

	return writeJSON(w, map[string]interface{}{
		"department": dept,
		"projects":   reports,
	})
}

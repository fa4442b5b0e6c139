package demo

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

type Author struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Book struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	AuthorID        int    `json:"author_id"`
	PublicationYear int    `json:"publication_year"`
}

type Department struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type Project struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Code         string  `json:"code"`
	DepartmentID int     `json:"department_id"`
	Budget       float64 `json:"budget"`
}

// Repository is the demo application's data access layer. Every method runs
// exactly the queries its caller asks for, including the deliberately naive
// per-row lookups the example endpoints are built around.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListAuthors(ctx context.Context) ([]Author, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM authors ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "list authors")
	}
	defer rows.Close()

	var authors []Author
	for rows.Next() {
		var a Author
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, errors.Wrap(err, "scan author")
		}
		authors = append(authors, a)
	}
	return authors, errors.Wrap(rows.Err(), "list authors")
}

func (r *Repository) ListBooks(ctx context.Context, limit int) ([]Book, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, title, author_id, publication_year FROM books ORDER BY id LIMIT ?", limit)
	if err != nil {
		return nil, errors.Wrap(err, "list books")
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.AuthorID, &b.PublicationYear); err != nil {
			return nil, errors.Wrap(err, "scan book")
		}
		books = append(books, b)
	}
	return books, errors.Wrap(rows.Err(), "list books")
}

// AuthorName fetches a single author's name. Calling this inside a loop
// over books is the n-plus-one shape the example endpoint demonstrates.
func (r *Repository) AuthorName(ctx context.Context, id int) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx, "SELECT name FROM authors WHERE id = ?", id).Scan(&name)
	if err != nil {
		return "", errors.Wrapf(err, "author %d", id)
	}
	return name, nil
}

// AuthorNamesForBooks resolves every book's author in one join, the
// optimized counterpart to the per-book lookup.
func (r *Repository) AuthorNamesForBooks(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.name
		FROM books b
		JOIN authors a ON a.id = b.author_id
		ORDER BY b.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "authors for books")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan author name")
		}
		names = append(names, name)
	}
	return names, errors.Wrap(rows.Err(), "authors for books")
}

// BurnRows forces the database to generate and count the given number of
// rows through a recursive CTE. One call is one deliberately slow query.
func (r *Repository) BurnRows(ctx context.Context, rowCount int) (int, error) {
	var counted int
	err := r.db.QueryRowContext(ctx, `
		WITH RECURSIVE burn(n) AS (
			SELECT 1
			UNION ALL
			SELECT n + 1 FROM burn WHERE n < ?
		)
		SELECT COUNT(*) FROM burn`, rowCount).Scan(&counted)
	if err != nil {
		return 0, errors.Wrap(err, "burn rows")
	}
	return counted, nil
}

// FirstDepartment returns the lowest-id department.
func (r *Repository) FirstDepartment(ctx context.Context) (Department, error) {
	var d Department
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, code FROM departments ORDER BY id LIMIT 1").Scan(&d.ID, &d.Name, &d.Code)
	if err != nil {
		return Department{}, errors.Wrap(err, "first department")
	}
	return d, nil
}

func (r *Repository) DepartmentByCode(ctx context.Context, code string) (Department, error) {
	var d Department
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, code FROM departments WHERE code = ?", code).Scan(&d.ID, &d.Name, &d.Code)
	if err != nil {
		return Department{}, errors.Wrapf(err, "department %s", code)
	}
	return d, nil
}

func (r *Repository) ProjectsByDepartment(ctx context.Context, departmentID int) ([]Project, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, code, department_id, budget FROM projects WHERE department_id = ? ORDER BY id",
		departmentID)
	if err != nil {
		return nil, errors.Wrap(err, "projects by department")
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.DepartmentID, &p.Budget); err != nil {
			return nil, errors.Wrap(err, "scan project")
		}
		projects = append(projects, p)
	}
	return projects, errors.Wrap(rows.Err(), "projects by department")
}

// TaskStats counts a project's tasks and how many are done. Called per
// project from the report builder, one more per-row lookup.
func (r *Repository) TaskStats(ctx context.Context, projectID int) (total, done int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'DONE' THEN 1 ELSE 0 END), 0)
		FROM tasks WHERE project_id = ?`, projectID).Scan(&total, &done)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "task stats for project %d", projectID)
	}
	return total, done, nil
}

// AllocatedHours sums the hours of a project's tasks.
func (r *Repository) AllocatedHours(ctx context.Context, projectID int) (float64, error) {
	var hours float64
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(hours), 0) FROM tasks WHERE project_id = ?", projectID).Scan(&hours)
	if err != nil {
		return 0, errors.Wrapf(err, "allocated hours for project %d", projectID)
	}
	return hours, nil
}

// TeamSize counts the distinct employees with tasks on a project.
func (r *Repository) TeamSize(ctx context.Context, projectID int) (int, error) {
	var size int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT assigned_to) FROM tasks WHERE project_id = ?", projectID).Scan(&size)
	if err != nil {
		return 0, errors.Wrapf(err, "team size for project %d", projectID)
	}
	return size, nil
}

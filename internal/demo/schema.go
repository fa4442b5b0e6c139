package demo

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/yevheniidehtiar/sqlsmell/config"
)

// Statements are executed one at a time so the schema works on drivers
// that reject multi-statement Exec calls.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS authors (
		id INTEGER PRIMARY KEY,
		name VARCHAR(128) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY,
		title VARCHAR(256) NOT NULL,
		author_id INTEGER NOT NULL REFERENCES authors(id),
		publication_year INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_author ON books(author_id)`,
	`CREATE TABLE IF NOT EXISTS departments (
		id INTEGER PRIMARY KEY,
		name VARCHAR(128) NOT NULL,
		code VARCHAR(32) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY,
		first_name VARCHAR(64) NOT NULL,
		last_name VARCHAR(64) NOT NULL,
		department_id INTEGER NOT NULL REFERENCES departments(id),
		manager_id INTEGER REFERENCES employees(id)
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY,
		name VARCHAR(128) NOT NULL,
		code VARCHAR(32) NOT NULL UNIQUE,
		department_id INTEGER NOT NULL REFERENCES departments(id),
		budget REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY,
		title VARCHAR(256) NOT NULL,
		project_id INTEGER NOT NULL REFERENCES projects(id),
		assigned_to INTEGER NOT NULL REFERENCES employees(id),
		status VARCHAR(16) NOT NULL DEFAULT 'TODO',
		hours REAL NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id)`,
}

var taskStatuses = []string{"TODO", "IN_PROGRESS", "REVIEW", "DONE"}

// InitSchema creates all demo tables if they do not exist yet.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}

// Seed populates the demo tables with deterministic sample data. It is a
// no-op when authors already exist, so repeated runs against the same
// database file are safe. Returns true if data was inserted.
func Seed(ctx context.Context, db *sql.DB, cfg config.DemoConfig) (bool, error) {
	var existing int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM authors").Scan(&existing); err != nil {
		return false, errors.Wrap(err, "count authors")
	}
	if existing > 0 {
		return false, nil
	}

	rng := rand.New(rand.NewSource(42))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, "begin seed tx")
	}
	defer tx.Rollback()

	bookID := 0
	for a := 1; a <= cfg.Authors; a++ {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO authors (id, name) VALUES (?, ?)", a, fmt.Sprintf("Author %d", a)); err != nil {
			return false, errors.Wrap(err, "insert author")
		}
		for b := 0; b < cfg.BooksPerAuthor; b++ {
			bookID++
			year := 1950 + rng.Intn(75)
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO books (id, title, author_id, publication_year) VALUES (?, ?, ?, ?)",
				bookID, fmt.Sprintf("Book %d", bookID), a, year); err != nil {
				return false, errors.Wrap(err, "insert book")
			}
		}
	}

	employeeID := 0
	projectID := 0
	taskID := 0
	for d := 1; d <= cfg.Departments; d++ {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO departments (id, name, code) VALUES (?, ?, ?)",
			d, fmt.Sprintf("Department %d", d), fmt.Sprintf("DEP-%d", d)); err != nil {
			return false, errors.Wrap(err, "insert department")
		}

		// The first employee of each department manages the rest.
		managerID := employeeID + 1
		deptEmployees := make([]int, 0, cfg.EmployeesPerDepartment)
		for e := 0; e < cfg.EmployeesPerDepartment; e++ {
			employeeID++
			var manager interface{}
			if employeeID != managerID {
				manager = managerID
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO employees (id, first_name, last_name, department_id, manager_id) VALUES (?, ?, ?, ?, ?)",
				employeeID, fmt.Sprintf("First%d", employeeID), fmt.Sprintf("Last%d", employeeID), d, manager); err != nil {
				return false, errors.Wrap(err, "insert employee")
			}
			deptEmployees = append(deptEmployees, employeeID)
		}

		for p := 0; p < cfg.ProjectsPerDepartment; p++ {
			projectID++
			budget := float64(50000 + rng.Intn(450000))
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO projects (id, name, code, department_id, budget) VALUES (?, ?, ?, ?, ?)",
				projectID, fmt.Sprintf("Project %d", projectID), fmt.Sprintf("PRJ-%d", projectID), d, budget); err != nil {
				return false, errors.Wrap(err, "insert project")
			}
			for tn := 0; tn < cfg.TasksPerProject && len(deptEmployees) > 0; tn++ {
				taskID++
				assignee := deptEmployees[rng.Intn(len(deptEmployees))]
				status := taskStatuses[rng.Intn(len(taskStatuses))]
				hours := float64(2 + rng.Intn(38))
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO tasks (id, title, project_id, assigned_to, status, hours) VALUES (?, ?, ?, ?, ?, ?)",
					taskID, fmt.Sprintf("Task %d", taskID), projectID, assignee, status, hours); err != nil {
					return false, errors.Wrap(err, "insert task")
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "commit seed tx")
	}
	return true, nil
}

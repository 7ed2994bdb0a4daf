package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var seedProjects = []struct {
	key, name, owner, status string
}{
	{"CHK", "Checkout", "Dana Ruiz", "active"},
	{"AUTH", "Identity & Login", "Priya Shah", "active"},
	{"SRCH", "Search", "Tomás Okafor", "active"},
	{"LEG", "Legacy Billing", "Mei Chen", "archived"},
}

var seedTesters = []struct {
	name, email, team string
	active            bool
}{
	{"Ana Lima", "ana@testdeck.dev", "web", true},
	{"Bo Nilsson", "bo@testdeck.dev", "mobile", true},
	{"Chidi Eze", "chidi@testdeck.dev", "web", true},
	{"Dmitri Volkov", "dmitri@testdeck.dev", "platform", false},
	{"Elif Kaya", "elif@testdeck.dev", "mobile", true},
	{"Farah Haddad", "farah@testdeck.dev", "platform", true},
	{"Gus Moreau", "gus@testdeck.dev", "web", false},
}

var seedUsers = []struct {
	username, email, role string
}{
	{"admin", "admin@testdeck.dev", "admin"},
	{"dana", "dana@testdeck.dev", "manager"},
	{"priya", "priya@testdeck.dev", "manager"},
	{"ana", "ana@testdeck.dev", "tester"},
	{"bo", "bo@testdeck.dev", "tester"},
	{"guest", "guest@testdeck.dev", "viewer"},
}

var (
	caseTopics = []string{"Login", "Logout", "Password reset", "Cart totals", "Coupon codes", "Guest checkout",
		"Search ranking", "Empty results", "Pagination", "Session timeout", "Invoice export", "Refunds"}
	caseKinds      = []string{"general", "regression", "smoke", "security"}
	casePriorities = []string{"low", "medium", "high", "critical"}
	caseStatuses   = []string{"draft", "ready", "ready", "deprecated", "deleted"}
	planStatuses   = []string{"planned", "running", "done"}
)

// Seed inserts demo data into an empty database. It does nothing when
// projects already exist.
func Seed(ctx context.Context, db *sql.DB) error {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&n); err != nil {
		return fmt.Errorf("failed to count projects: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	base := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	for i, p := range seedProjects {
		created := base.AddDate(0, i, 0).Format(time.RFC3339)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO projects (id, key, name, owner, status, description, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			i+1, p.key, p.name, p.owner, p.status, p.name+" test suite", created,
		); err != nil {
			return fmt.Errorf("failed to seed project %s: %w", p.key, err)
		}
	}

	for i := 0; i < 48; i++ {
		project := seedProjects[i%len(seedProjects)]
		created := base.Add(time.Duration(i*37) * time.Hour)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO test_cases (project_id, code, title, kind, priority, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			i%len(seedProjects)+1,
			fmt.Sprintf("%s-%03d", project.key, i+1),
			caseTopics[i%len(caseTopics)]+fmt.Sprintf(" #%d", i/len(caseTopics)+1),
			caseKinds[i%len(caseKinds)],
			casePriorities[(i*3)%len(casePriorities)],
			caseStatuses[i%len(caseStatuses)],
			created.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("failed to seed test case %d: %w", i+1, err)
		}
	}

	for i := 0; i < 9; i++ {
		starts := base.AddDate(0, 0, i*14)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO test_plans (project_id, name, status, starts_on, ends_on) VALUES (?, ?, ?, ?, ?)`,
			i%len(seedProjects)+1,
			fmt.Sprintf("Release %d.%d", 1+i/3, i%3),
			planStatuses[i%len(planStatuses)],
			starts.Format("2006-01-02"),
			starts.AddDate(0, 0, 10).Format("2006-01-02"),
		); err != nil {
			return fmt.Errorf("failed to seed test plan %d: %w", i+1, err)
		}
	}

	for i, t := range seedTesters {
		active := 0
		if t.active {
			active = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO testers (name, email, team, active, joined_on) VALUES (?, ?, ?, ?, ?)`,
			t.name, t.email, t.team, active, base.AddDate(0, -i, 0).Format("2006-01-02"),
		); err != nil {
			return fmt.Errorf("failed to seed tester %s: %w", t.email, err)
		}
	}

	for i, u := range seedUsers {
		var lastLogin any
		if u.role != "viewer" {
			lastLogin = base.AddDate(0, 6, i).Format(time.RFC3339)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, email, role, last_login_at) VALUES (?, ?, ?, ?)`,
			u.username, u.email, u.role, lastLogin,
		); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	return nil
}

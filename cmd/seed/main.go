// Command seed loads the demo data set into the configured stores. It is
// safe to run repeatedly: users that already exist are left untouched and
// their trips and routes are not duplicated. The whole load runs in one
// transaction, so an interrupted run leaves no partial data behind.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/ostrval/carpooling/internal/common"
	"github.com/ostrval/carpooling/internal/dbx"
	"github.com/ostrval/carpooling/internal/flagx"
	"github.com/ostrval/carpooling/internal/server"
	"github.com/ostrval/carpooling/internal/server/config"
	"github.com/ostrval/carpooling/internal/server/models"
	"github.com/ostrval/carpooling/internal/server/repositories/repomanager"
	"github.com/ostrval/carpooling/internal/server/repositories/routes"
	"github.com/ostrval/carpooling/internal/server/repositories/trips"
	"github.com/ostrval/carpooling/internal/server/repositories/users"
)

type seedUser struct {
	username  string
	firstName string
	lastName  string
	password  string
	email     string
}

var demoUsers = []seedUser{
	{username: "admin", firstName: "Admin", lastName: "Admin", password: "secret", email: "admin_secret@example.ru"},
	{username: "DVDzuba", firstName: "Dmitry", lastName: "Dzuba", password: "teacher_password", email: "ddzuba@yandex.ru"},
	{username: "Kiros", firstName: "Kirill", lastName: "Ostrovskiy", password: "student_password", email: "kvostrovskij@mai.education"},
}

func promptAdminPassword() (string, error) {
	fmt.Println("-Enter admin password")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// addUser creates the user unless one with the same username exists.
// Returns the stored user and whether it was created by this call.
func addUser(ctx context.Context, repo users.Repository, su seedUser) (*models.User, bool, error) {
	existing, err := repo.GetByUsername(ctx, su.username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}

	created, err := repo.Create(ctx, &models.User{
		Username:     su.username,
		FirstName:    su.firstName,
		LastName:     su.lastName,
		Email:        su.email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func main() {

	args := flagx.FilterArgs(os.Args[1:], []string{"-prompt"})
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	prompt := fs.Bool("prompt", false, "prompt for the admin password instead of using the demo default")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()

	if *prompt {
		pw, err := promptAdminPassword()
		if err != nil {
			log.Fatalf("reading password: %v", err)
		}
		demoUsers[0].password = pw
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	if err := server.WaitForStore(ctx, db); err != nil {
		log.Fatalf("db not reachable: %v", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	if err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return load(ctx, rm, tx)
	}); err != nil {
		log.Fatalf("seeding: %v", err)
	}
}

// load inserts the demo users, trips and routes through repositories bound
// to a single transaction.
func load(ctx context.Context, rm repomanager.RepositoryManager, tx dbx.DBTX) error {
	userRepo := rm.Users(tx)

	ids := make(map[string]int64, len(demoUsers))
	fresh := make(map[string]bool, len(demoUsers))
	for _, su := range demoUsers {
		u, created, err := addUser(ctx, userRepo, su)
		if err != nil {
			return fmt.Errorf("seeding user %s: %w", su.username, err)
		}
		ids[su.username] = u.ID
		fresh[su.username] = created
		if created {
			fmt.Printf("created user %s (id %d)\n", su.username, u.ID)
		} else {
			fmt.Printf("user %s already exists (id %d)\n", su.username, u.ID)
		}
	}

	seedDate := func(hour int) time.Time {
		return time.Date(2023, time.December, 25, hour, 0, 0, 0, time.UTC)
	}

	if err := seedTrips(ctx, rm.Trips(tx), fresh, ids, seedDate); err != nil {
		return fmt.Errorf("seeding trips: %w", err)
	}
	if err := seedRoutes(ctx, rm.Routes(tx), ids); err != nil {
		return fmt.Errorf("seeding routes: %w", err)
	}
	return nil
}

// seedTrips adds a pair of demo trips between the admin and DVDzuba users.
// Trips are only added for users created in this run, which keeps repeated
// invocations from piling up duplicates.
func seedTrips(ctx context.Context, repo trips.Repository, fresh map[string]bool, ids map[string]int64, seedDate func(int) time.Time) error {
	if !fresh["admin"] && !fresh["DVDzuba"] {
		return nil
	}

	demo := []models.Trip{
		{UserID: ids["admin"], Companions: []int64{ids["DVDzuba"]}, Date: seedDate(10)},
		{UserID: ids["DVDzuba"], Companions: []int64{ids["admin"]}, Date: seedDate(12)},
	}

	for _, tr := range demo {
		if _, err := repo.Create(ctx, &tr); err != nil {
			return err
		}
	}
	return nil
}

// seedRoutes adds the demo Moscow / St. Petersburg routes, skipping any that
// are already present for the owner.
func seedRoutes(ctx context.Context, repo routes.Repository, ids map[string]int64) error {
	demo := []models.Route{
		{UserID: ids["admin"], StartPoint: "Moscow", EndPoint: "St. Petersburg"},
		{UserID: ids["DVDzuba"], StartPoint: "St. Petersburg", EndPoint: "Moscow"},
	}

	for _, rt := range demo {
		existing, err := repo.ListByOwner(ctx, rt.UserID)
		if err != nil {
			return err
		}
		found := false
		for _, e := range existing {
			if e.StartPoint == rt.StartPoint && e.EndPoint == rt.EndPoint {
				found = true
				break
			}
		}
		if found {
			continue
		}
		if _, err := repo.Create(ctx, &rt); err != nil {
			return err
		}
	}
	return nil
}

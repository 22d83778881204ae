// Package seed loads the floor plan, staff roster and menu a fresh
// restaurant needs. Every step skips rows that already exist, so it is safe
// to run on each deploy.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/enum"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Transactor is satisfied by *database.TxRunner and *memory.Store.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(database.Querier) error) error
}

// Staff is one seeded account.
type Staff struct {
	FullName string
	Email    string
	Role     string
	Shift    string // empty for admins and customers
}

type Table struct {
	ID       int32
	Capacity int32
	Zone     string
}

type MenuItem struct {
	Name  string
	Price string
}

// Options says what to seed. Every account gets Password.
type Options struct {
	Password string
	Staff    []Staff
	Tables   []Table
	Menu     []MenuItem
}

// Summary counts what a run created.
type Summary struct {
	Tables int
	Users  int
	Menu   int
}

// Defaults is the floor the server starts with in memory mode.
func Defaults(password string) Options {
	opts := Options{
		Password: password,
		Staff: []Staff{
			{"Admin La Chinga", "admin@lachinga.mx", enum.RoleAdmin, ""},
			{"Lupita Mesera", "lupita@lachinga.mx", enum.RoleWaiter, enum.ShiftMorning},
			{"Beto Mesero", "beto@lachinga.mx", enum.RoleWaiter, enum.ShiftEvening},
			{"Carmen Caja", "carmen@lachinga.mx", enum.RoleCashier, enum.ShiftMorning},
			{"Raul Caja", "raul@lachinga.mx", enum.RoleCashier, enum.ShiftEvening},
			{"Doña Chuy", "chuy@lachinga.mx", enum.RoleKitchen, enum.ShiftMorning},
			{"Memo Cocina", "memo@lachinga.mx", enum.RoleKitchen, enum.ShiftEvening},
			{"Cliente Demo", "cliente@lachinga.mx", enum.RoleCustomer, ""},
		},
		Menu: []MenuItem{
			{"Tacos al pastor", "25.00"},
			{"Enchiladas verdes", "95.00"},
			{"Pozole rojo", "120.00"},
			{"Chiles en nogada", "180.00"},
			{"Guacamole con totopos", "85.00"},
			{"Agua de jamaica", "12.50"},
			{"Horchata", "12.50"},
			{"Flan napolitano", "45.00"},
		},
	}
	zones := []string{enum.ZoneIndoor, enum.ZoneTerrace, enum.ZoneGarden}
	for i := int32(1); i <= 12; i++ {
		capacity := int32(4)
		if i%3 == 0 {
			capacity = 6
		}
		opts.Tables = append(opts.Tables, Table{ID: i, Capacity: capacity, Zone: zones[(i-1)/4]})
	}
	return opts
}

// Run seeds everything in one transaction: all of it or none of it.
func Run(ctx context.Context, tx Transactor, opts Options) (Summary, error) {
	if opts.Password == "" {
		return Summary{}, errors.New("seed password is required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return Summary{}, fmt.Errorf("hash password: %w", err)
	}

	var sum Summary
	err = tx.WithinTx(ctx, func(q database.Querier) error {
		sum = Summary{}
		for _, t := range opts.Tables {
			created, err := seedTable(ctx, q, t)
			if err != nil {
				return err
			}
			if created {
				sum.Tables++
			}
		}
		for _, s := range opts.Staff {
			created, err := seedUser(ctx, q, s, string(hashed))
			if err != nil {
				return err
			}
			if created {
				sum.Users++
			}
		}
		n, err := seedMenu(ctx, q, opts.Menu)
		if err != nil {
			return err
		}
		sum.Menu = n
		return nil
	})
	return sum, err
}

func seedTable(ctx context.Context, q database.Querier, t Table) (bool, error) {
	_, err := q.GetTable(ctx, t.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("check table %d: %w", t.ID, err)
	}
	if !enum.IsValidZone(t.Zone) {
		return false, fmt.Errorf("table %d: unknown zone %q", t.ID, t.Zone)
	}
	if _, err := q.CreateTable(ctx, database.CreateTableParams{ID: t.ID, Capacity: t.Capacity, Zone: t.Zone}); err != nil {
		return false, fmt.Errorf("insert table %d: %w", t.ID, err)
	}
	return true, nil
}

func seedUser(ctx context.Context, q database.Querier, s Staff, hashed string) (bool, error) {
	existing, err := q.GetUserByEmail(ctx, s.Email)
	if err == nil {
		log.Printf("User '%s' already exists (ID: %s), skipping", s.Email, existing.ID)
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("check user %s: %w", s.Email, err)
	}
	if !enum.IsValidRole(s.Role) {
		return false, fmt.Errorf("user %s: unknown role %q", s.Email, s.Role)
	}

	params := database.CreateUserParams{
		FullName:       s.FullName,
		Email:          s.Email,
		HashedPassword: hashed,
		Role:           s.Role,
	}
	if s.Shift != "" {
		params.Shift = pgtype.Text{String: s.Shift, Valid: true}
	}
	u, err := q.CreateUser(ctx, params)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		log.Printf("User '%s' exists but is deactivated, skipping", s.Email)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert user %s: %w", s.Email, err)
	}
	log.Printf("Created %s '%s' (ID: %s)", u.Role, u.Email, u.ID)
	return true, nil
}

func seedMenu(ctx context.Context, q database.Querier, menu []MenuItem) (int, error) {
	existing, err := q.ListMenuItems(ctx, pgtype.Bool{})
	if err != nil {
		return 0, fmt.Errorf("list menu: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, m := range existing {
		have[m.Name] = true
	}

	created := 0
	for _, m := range menu {
		if have[m.Name] {
			continue
		}
		price, err := decimal.NewFromString(m.Price)
		if err != nil {
			return created, fmt.Errorf("menu item %s: invalid price %q", m.Name, m.Price)
		}
		if _, err := q.CreateMenuItem(ctx, database.CreateMenuItemParams{Name: m.Name, Price: price, IsAvailable: true}); err != nil {
			return created, fmt.Errorf("insert menu item %s: %w", m.Name, err)
		}
		have[m.Name] = true
		created++
	}
	return created, nil
}

// Command seed populates a development database with demo users, upcoming
// exam sessions and a handful of reservations so the API has data to serve.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/exam-reservation/internal/config"
	"github.com/iliyamo/exam-reservation/internal/database"
	"github.com/iliyamo/exam-reservation/internal/model"
	"github.com/iliyamo/exam-reservation/internal/repository"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)

	adminID, err := users.Create(ctx, "admin@example.com", "admin1234", "Site Admin", model.RoleAdmin, cfg.BcryptCost)
	if err == repository.ErrEmailExists {
		log.Println("admin already seeded, skipping users")
	} else if err != nil {
		log.Fatalf("seed admin: %v", err)
	} else {
		log.Printf("seeded admin id=%d", adminID)
	}

	var customerIDs []uint64
	for i := 1; i <= 5; i++ {
		email := fmt.Sprintf("customer%d@example.com", i)
		name := fmt.Sprintf("Customer %d", i)
		id, err := users.Create(ctx, email, "password1234", name, model.RoleCustomer, cfg.BcryptCost)
		if err == repository.ErrEmailExists {
			continue
		}
		if err != nil {
			log.Fatalf("seed %s: %v", email, err)
		}
		customerIDs = append(customerIDs, id)
	}
	log.Printf("seeded %d customers", len(customerIDs))

	// Sessions start tomorrow or later so every one is inside or ahead of
	// the booking window.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	base := time.Now().UTC().AddDate(0, 0, 1).Truncate(time.Hour)

	var sessionIDs []uint64
	for i := 0; i < 20; i++ {
		start := base.AddDate(0, 0, rng.Intn(30)).Add(time.Duration(12+rng.Intn(10)) * time.Hour)
		s := &model.ExamSession{
			Title:       fmt.Sprintf("Certification Exam %c-%d", 'A'+rng.Intn(6), i+1),
			StartTime:   start,
			EndTime:     start.Add(time.Duration(1+rng.Intn(2)) * time.Hour),
			MaxCapacity: uint32(20+rng.Intn(30)) * 1000,
		}
		if err := sessions.Create(ctx, s); err != nil {
			log.Fatalf("seed session: %v", err)
		}
		sessionIDs = append(sessionIDs, s.ID)
	}
	log.Printf("seeded %d exam sessions", len(sessionIDs))

	// A few reservations spread over the seeded customers. Duplicate
	// (user, session) pairs are skipped by the unique key.
	seeded := 0
	for _, uid := range customerIDs {
		for _, sid := range sessionIDs {
			if rng.Intn(4) != 0 {
				continue
			}
			_, err := db.ExecContext(ctx,
				`INSERT IGNORE INTO reservations (user_id, exam_session_id, num_participants, is_confirmed)
				 VALUES (?, ?, ?, ?)`,
				uid, sid, uint32(1+rng.Intn(10))*1000, rng.Intn(2) == 0)
			if err != nil {
				log.Fatalf("seed reservation: %v", err)
			}
			seeded++
		}
	}
	log.Printf("seeded %d reservations", seeded)
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Seeds the demo doctor account and one finished example session so the
// dashboard has something to show on a fresh install.
//
// Login: demo@sokrates.no / demo123, clinic code DEMO_CLINIC.
func main() {
	_ = godotenv.Load()

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("demo123"), 12)
	if err != nil {
		log.Fatalf("hash demo password: %v", err)
	}

	tag, err := pool.Exec(ctx,
		`INSERT INTO doctors (email, password_hash, clinic_code)
         VALUES ($1, $2, $3)
         ON CONFLICT (email) DO NOTHING`,
		"demo@sokrates.no", string(hash), "DEMO_CLINIC",
	)
	if err != nil {
		log.Fatalf("seed demo doctor: %v", err)
	}
	if tag.RowsAffected() == 0 {
		fmt.Println("demo doctor already exists, skipping sample session")
		return
	}
	fmt.Println("created demo doctor (demo@sokrates.no / demo123, clinic DEMO_CLINIC)")

	var sessionID int64
	err = pool.QueryRow(ctx,
		`INSERT INTO sessions (clinic_code, status, completed_at)
         VALUES ($1, 'completed', now())
         RETURNING id`,
		"DEMO_CLINIC",
	).Scan(&sessionID)
	if err != nil {
		log.Fatalf("seed sample session: %v", err)
	}

	transcript := []struct {
		role    string
		content string
	}{
		{"user", "Hei, jeg har hatt vondt i hodet i to uker."},
		{"assistant", "Det var leit å høre. Kan du beskrive smerten? Er den konstant eller kommer den i anfall?"},
		{"user", "Den kommer mest om morgenen og sitter bak øynene. Jeg tar Paracet av og til."},
		{"assistant", "Takk. Har du kjente allergier, eller sykdommer i nær familie jeg bør vite om?"},
		{"user", "Jeg er allergisk mot pollen, og mor har migrene."},
	}
	for _, m := range transcript {
		if _, err := pool.Exec(ctx,
			`INSERT INTO messages (session_id, role, content) VALUES ($1, $2, $3)`,
			sessionID, m.role, m.content,
		); err != nil {
			log.Fatalf("seed sample message: %v", err)
		}
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO anamneses (session_id, hovedplage, tidligere_sykdommer, medisinering,
                                allergier, familiehistorie, sosial_livsstil, ros,
                                pasient_maal, fri_oppsummering)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sessionID,
		"Hodepine i to uker, verst om morgenen og bak øynene",
		"Ikke oppgitt",
		"Paracet ved behov",
		"Pollenallergi",
		"Migrene hos mor",
		"Ikke oppgitt",
		"Ikke oppgitt",
		"Bli kvitt hodepinen",
		"Ikke oppgitt",
	)
	if err != nil {
		log.Fatalf("seed sample anamnesis: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO ratings (session_id, score, comment) VALUES ($1, $2, $3)`,
		sessionID, 5, "Enkelt å bruke, følte meg hørt.",
	)
	if err != nil {
		log.Fatalf("seed sample rating: %v", err)
	}

	fmt.Printf("created sample session %d with transcript, anamnesis, and rating\n", sessionID)
}

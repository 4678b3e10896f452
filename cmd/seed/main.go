package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sahilchouksey/adaptive-tutor-api/config"
	"github.com/sahilchouksey/adaptive-tutor-api/database"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	loginID := flag.String("login", "demo", "login id of the demo learner")
	password := flag.String("password", "demo1234!", "password of the demo learner")
	username := flag.String("name", "Demo Learner", "display name of the demo learner")
	flag.Parse()

	if err := config.LoadENV(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Get()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LOG_MODE)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := database.Open(cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Error("failed to migrate", "error", err)
		os.Exit(1)
	}

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("Adaptive Tutor - Database Seeding")
	fmt.Println(separator)

	user, err := database.NewSeeder(store.GetDB(), log).SeedDemoLearner(database.DemoLearner{
		LoginID:  *loginID,
		Password: *password,
		Username: *username,
	}, bcrypt.DefaultCost)
	if err != nil {
		log.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	fmt.Println(separator)
	fmt.Printf("Demo learner ready: login_id=%s user_id=%d\n", user.LoginID, user.ID)
	fmt.Println(separator)
}

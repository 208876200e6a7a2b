package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/smarttransit/network-index/internal/utils"
	"github.com/smarttransit/network-index/pkg/jwt"
)

func main() {
	var (
		reuse  bool
		name   string
		expiry time.Duration
	)
	flag.BoolVar(&reuse, "reuse", false, "sign with JWT_SECRET from the environment instead of generating a new one")
	flag.StringVar(&name, "name", "operator", "operator name embedded in the admin token")
	flag.DurationVar(&expiry, "expiry", 24*time.Hour, "admin token lifetime")
	flag.Parse()

	// Optional; lets -reuse pick JWT_SECRET up from .env
	_ = godotenv.Load()

	fmt.Println("===========================================")
	fmt.Println("JWT Secret Generator for the network index")
	fmt.Println("===========================================")
	fmt.Println()

	secret := os.Getenv("JWT_SECRET")
	if !reuse || secret == "" {
		if reuse {
			log.Println("JWT_SECRET is not set; generating a new one")
		}
		var err error
		secret, err = utils.GenerateSecret(32) // 256-bit
		if err != nil {
			log.Fatalf("Failed to generate secret: %v", err)
		}
		fmt.Println("Add this to your .env file:")
		fmt.Println()
		fmt.Printf("JWT_SECRET=%s\n", secret)
		fmt.Println()
	}

	operatorID := uuid.New()
	token, err := jwt.NewService(secret, expiry).GenerateToken(operatorID, name, []string{jwt.RoleAdmin})
	if err != nil {
		log.Fatalf("Failed to sign admin token: %v", err)
	}

	fmt.Printf("Admin token for %s (%s), valid for %s:\n", name, operatorID, expiry)
	fmt.Println()
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Use it as: Authorization: Bearer <token> on POST /api/v1/admin/refresh")
	fmt.Println("IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}

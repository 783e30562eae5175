package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/V4T54L/vsd-gateway/internal/auth"
)

type tokenConfig struct {
	Secret   string `env:"ID_TOKEN_SECRET,required,notEmpty"`
	Issuer   string `env:"ID_TOKEN_ISSUER"`
	Audience string `env:"ID_TOKEN_AUDIENCE"`
}

func loadTokenConfig() (tokenConfig, error) {
	var cfg tokenConfig
	err := env.Parse(&cfg)
	return cfg, err
}

// Prints an HS256 identity token for local use against the admin proxy.
func main() {
	_ = godotenv.Load()

	uid := flag.String("uid", "", "Subject user id")
	superAdmin := flag.Bool("super-admin", false, "Set the superAdmin claim")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	if *uid == "" {
		log.Fatal("-uid is required")
	}

	cfg, err := loadTokenConfig()
	if err != nil {
		log.Fatalf("failed to load token config: %v", err)
	}

	token, err := auth.IssueToken(cfg.Secret, auth.TokenOptions{
		UID:        *uid,
		SuperAdmin: *superAdmin,
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		TTL:        *ttl,
	})
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(token)
}

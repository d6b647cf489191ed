// Command tokengen mints a signed access token with the server's JWT settings.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	config "github.com/avatarctic/service-kit/configs"
	"github.com/avatarctic/service-kit/internal/application/services"
	"github.com/avatarctic/service-kit/internal/core/domain/auth"
	"github.com/avatarctic/service-kit/internal/infrastructure/logging"
)

var (
	subject  = flag.String("sub", "", "Token subject")
	role     = flag.String("role", "", "Value of the role claim, e.g. admin")
	ttl      = flag.Duration("ttl", 0, "Token lifetime; defaults to JWT_EXPIRATION_TIME")
	audience = flag.String("aud", "", "Comma separated audience")
	payload  = flag.String("payload", "", "Extra claims as a JSON object")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	logger := logging.New(&cfg.Log)

	claims := map[string]any{}
	if *payload != "" {
		if err := json.Unmarshal([]byte(*payload), &claims); err != nil {
			log.Fatalf("invalid -payload: %v", err)
		}
	}
	if *role != "" {
		claims["role"] = *role
	}

	opts := &auth.TokenOptions{Subject: *subject, ExpiresIn: *ttl}
	if *audience != "" {
		opts.Audience = strings.Split(*audience, ",")
	}

	// revocation state is not needed to sign
	tokens := services.NewTokenService(&cfg.JWT, nil, logger)
	token, err := tokens.GenerateToken(context.Background(), claims, opts)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	fmt.Println(token)
}

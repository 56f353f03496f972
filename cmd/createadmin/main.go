// Command createadmin creates a user with the ADMIN role.  Admins are the
// only users allowed to manage rooms, and the public registration endpoint
// never grants the role.
//
//	createadmin <username> <email> <password>
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/meeting-room-booking/internal/config"
	"github.com/iliyamo/meeting-room-booking/internal/database"
	"github.com/iliyamo/meeting-room-booking/internal/logger"
	"github.com/iliyamo/meeting-room-booking/internal/repository"
	"github.com/iliyamo/meeting-room-booking/internal/service"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: createadmin <username> <email> <password>")
		os.Exit(2)
	}
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Setup(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("open database", logger.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users := service.NewUsers(log, repository.NewUserRepo(db), cfg.BcryptCost)
	u, err := users.Register(ctx, service.Registration{
		Username: os.Args[1],
		Email:    os.Args[2],
		Password: os.Args[3],
		Admin:    true,
	})
	if err != nil {
		log.Error("create admin", logger.Err(err))
		os.Exit(1)
	}
	log.Info("admin created", slog.Uint64("id", u.ID), slog.String("username", u.Username))
}

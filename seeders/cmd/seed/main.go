package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tramite-system/pkg/config"
	"tramite-system/pkg/database/postgresql"
	applogger "tramite-system/pkg/logger"
	"tramite-system/pkg/service"
	"tramite-system/seeders"
)

func main() {
	log.Println("======================================================")
	log.Println("       🌱 СИСТЕМА СИДЕРОВ (Наполнение БД)           ")
	log.Println("======================================================")

	runTipos := flag.Bool("tipos", false, "Наполнить справочник типов трамитов")
	migrate := flag.Bool("migrate", false, "Перед наполнением применить миграции")
	tokenRole := flag.String("token", "", "Выпустить dev-токен для роли (ciudadano, administrativo, supervisor)")
	tokenTTL := flag.Duration("ttl", 24*time.Hour, "Срок жизни dev-токена")
	flag.Parse()

	if !*runTipos && *tokenRole == "" {
		log.Println("❌ Не выбран ни один сидер для запуска.")
		log.Println("")
		log.Println("Доступные флаги:")
		flag.PrintDefaults()
		log.Println("")
		log.Println("Примеры использования:")
		log.Println("  go run ./seeders/cmd/seed -migrate -tipos")
		log.Println("  go run ./seeders/cmd/seed -token supervisor")
		return
	}

	cfg := config.New()
	logger := applogger.NewLogger(cfg.Logger)
	defer logger.Sync()

	if *runTipos {
		ctx := context.Background()
		dbPool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			log.Fatalf("❌ Не удалось подключиться к БД: %v", err)
		}
		defer dbPool.Close()

		if *migrate {
			if err := postgresql.Migrate(dbPool, logger); err != nil {
				log.Fatalf("❌ Ошибка миграций: %v", err)
			}
		}
		if err := seeders.SeedTiposTramites(ctx, dbPool); err != nil {
			log.Fatalf("❌ Ошибка наполнения типов трамитов: %v", err)
		}
		log.Println("✅ Типы трамитов загружены")
	}

	if *tokenRole != "" {
		jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.Issuer, logger)
		userID := uuid.New()
		token, err := jwtSvc.GenerateAccessToken(userID, *tokenRole, *tokenTTL)
		if err != nil {
			log.Fatalf("❌ Не удалось выпустить токен: %v", err)
		}
		fmt.Printf("user_id=%s\nrole=%s\ntoken=%s\n", userID, *tokenRole, token)
	}

	log.Println("======================================================")
}

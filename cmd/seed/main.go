package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/auth"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/cache"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/config"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/db"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/schedule"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/slots"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/templates"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisCache, err := cache.Connect(ctx, cfg.RedisURL, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}
	if redisCache == nil {
		log.Fatal("seed: REDIS_URL or REDIS_ADDR is required to store slot templates")
	}
	defer redisCache.Close()

	seeded, err := templates.SeedDefaults(ctx, templates.NewStore(redisCache), schedule.DefaultSlotMinutes, slots.DefaultCapacity)
	if err != nil {
		log.Fatalf("seed templates: %v", err)
	}
	if len(seeded) == 0 {
		log.Println("seed templates: every day already has a template")
	} else {
		days := make([]string, 0, len(seeded))
		for _, day := range seeded {
			days = append(days, string(day))
		}
		log.Printf("seed templates: wrote %s", strings.Join(days, ", "))
	}

	if cfg.MongoURI != "" {
		client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Disconnect(context.Background())

		if err := db.EnsureIndexes(ctx, cols); err != nil {
			log.Fatal(err)
		}

		password := os.Getenv("ADMIN_SEED_PASSWORD")
		if password == "" {
			log.Printf("seed admin: ADMIN_SEED_PASSWORD missing, skipping %s", cfg.AdminUser)
		} else if err := seedAdminUser(ctx, cols, cfg.AdminUser, os.Getenv("ADMIN_EMAIL"), password, cfg.Timezone); err != nil {
			log.Fatalf("seed admin error for %s: %v", cfg.AdminUser, err)
		}
	}

	log.Println("seed completed")
}

// seedAdminUser upserts a stored admin account, resetting its password.
func seedAdminUser(ctx context.Context, cols *db.Collections, username, email, password string, loc *time.Location) error {
	if username == "" || password == "" {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().In(loc)
	set := bson.M{
		"passwordHash": hash,
		"role":         auth.RoleAdmin,
		"updatedAt":    now,
	}
	setOnInsert := bson.M{
		"_id":       primitive.NewObjectID().Hex(),
		"username":  username,
		"createdAt": now,
	}
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		set["email"] = email
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": setOnInsert,
	}
	_, err = cols.Users.UpdateOne(ctx, bson.M{"username": username}, update, options.Update().SetUpsert(true))
	return err
}

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"reelStudio/internal/auth"
	"reelStudio/internal/config"
	"reelStudio/internal/database"
)

var (
	adminEmail  string
	adminName   string
	rawPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account with a one-time random password",
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.ToLower(strings.TrimSpace(adminEmail))
		if email == "" {
			return errors.New("missing required flag: --email")
		}
		name := strings.TrimSpace(adminName)
		if name == "" {
			name = "Administrator"
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}

		var existing database.User
		switch err := db.Where("email = ?", email).First(&existing).Error; {
		case err == nil:
			return fmt.Errorf("user %q already exists", email)
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("query user: %w", err)
		}

		password, err := generateRandomPassword(24)
		if err != nil {
			return err
		}
		hashed, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		user := database.User{
			Name:               name,
			Email:              email,
			PasswordHash:       hashed,
			Role:               database.RoleAdmin,
			MustChangePassword: true,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		green := color.New(color.FgGreen, color.Bold)
		yellow := color.New(color.FgYellow)
		green.Println("已创建管理员账号（首次登录需强制改密）")
		fmt.Printf("邮箱: %s\n", email)
		fmt.Printf("初始密码: %s\n", password)
		yellow.Println("提示：该密码仅显示一次，请立即登录并修改。")
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash suitable for ADMIN_PASSWORD_HASH",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(rawPassword) < 8 {
			return errors.New("--password must be at least 8 characters")
		}
		hashed, err := auth.HashPassword(rawPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		fmt.Println(hashed)
		return nil
	},
}

var seedCatalogCmd = &cobra.Command{
	Use:   "seed-catalog",
	Short: "Insert sample packages, add-ons, venues and portfolio images into empty tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		result, err := database.SeedCatalog(ctx, db)
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan)
		cyan.Printf("packages: %d\naddons:   %d\nvenues:   %d\nimages:   %d\n",
			result.Packages, result.Addons, result.Venues, result.Images)
		if result == (database.SeedResult{}) {
			color.New(color.FgYellow).Println("目录表已有数据，未写入任何行。")
		}
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "管理员邮箱（必填）")
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "显示名称")
	hashPasswordCmd.Flags().StringVar(&rawPassword, "password", "", "待哈希的明文口令")
	_ = hashPasswordCmd.MarkFlagRequired("password")
}

func openDatabase() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.InitDatabase(cfg.Database, false)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

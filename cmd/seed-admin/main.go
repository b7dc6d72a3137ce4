// seed-admin bootstraps a fresh installation: runs migrations, creates a
// demo company with the starter chart of accounts and a trial license, and
// creates or updates the superuser.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/models"
	"github.com/peppinicontable/contable_backend/utils"
	"gorm.io/gorm"
)

const (
	adminUsername = "admin"
	adminName     = "Administrador"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_PASSWORD is required")
		os.Exit(1)
	}

	if err := models.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	// Audit hooks need user info in context.
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Seed")
	ctx = utils.SetUsernameInContext(ctx, adminUsername)
	ctx = utils.SetIsSuperuserInContext(ctx, true)

	var company models.Company
	err := db.WithContext(ctx).First(&company).Error
	if err == gorm.ErrRecordNotFound {
		created, err := models.CreateCompany(ctx, &models.NewCompany{
			Name:              "Empresa Demo",
			Nit:               "900000000-1",
			TransactionPrefix: "TRX",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create company: %v\n", err)
			os.Exit(1)
		}
		company = *created
		fmt.Printf("created company %s (%s)\n", company.Name, company.ID)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "failed to lookup company: %v\n", err)
		os.Exit(1)
	}

	var existing models.User
	err = db.WithContext(ctx).Where("username = ?", adminUsername).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		_, err := models.CreateUser(ctx, &models.NewUser{
			CompanyId:   company.ID.String(),
			Username:    adminUsername,
			Password:    adminPassword,
			Name:        adminName,
			IsSuperuser: utils.NewTrue(),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created superuser", adminUsername)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
		os.Exit(1)
	}

	hashed, err := utils.HashPassword(adminPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	updates := map[string]interface{}{
		"password":     string(hashed),
		"is_superuser": true,
		"is_active":    true,
	}
	if err := db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("updated superuser", adminUsername)
}

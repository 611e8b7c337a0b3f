package models

import (
	"bitbucket.org/mmdatafocus/wealth_backend/config"
)

func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&User{},
		&Account{},
		&Transaction{},
		&Budget{},
		&OutboxMessage{},
	)
	if err != nil {
		panic(err)
	}
}

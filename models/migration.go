package models

import (
	"log"

	"github.com/mmdatafocus/books_importer/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Company{},
		&Customer{}, &CustomerPhone{},
		&Product{},
		&Order{}, &OrderItem{},
	)
	if err != nil {
		log.Fatal(err)
	}
}

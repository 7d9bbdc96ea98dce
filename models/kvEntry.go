package models

import (
	"log"
	"time"

	"github.com/YassinSalah100/Goha-System-sub001/config"
)

// KvEntry and KvSetMember back the ledger when Redis is not deployed.
// Same contract as the Redis store: string values plus membership sets.
type KvEntry struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Value     []byte    `gorm:"type:mediumblob" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type KvSetMember struct {
	SetKey    string    `gorm:"primaryKey;size:191" json:"set_key"`
	Member    string    `gorm:"primaryKey;size:191" json:"member"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func MigrateTable() {
	db := config.GetDB()
	if db == nil {
		return
	}
	if err := db.AutoMigrate(&KvEntry{}, &KvSetMember{}); err != nil {
		log.Printf("auto-migrate ledger tables: %v", err)
	}
}

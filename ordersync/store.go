package ordersync

import (
	"errors"
	"sync"

	"github.com/YassinSalah100/Goha-System-sub001/config"
	"github.com/YassinSalah100/Goha-System-sub001/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVStore is the only contract the ledger needs from its storage.
// Redis carries it in production; MySQL covers deployments without
// Redis; the in-memory store backs tests.
type KVStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
	SetAdd(setKey string, member string) error
	SetRemove(setKey string, member string) error
	SetHas(setKey string, member string) (bool, error)
	SetMembers(setKey string) ([]string, error)
}

var memStore = NewMemoryStore()

// DefaultStore resolves the backend per call: Redis and MySQL connect
// after the HTTP server is already listening, so the choice cannot be
// frozen at construction time.
func DefaultStore() KVStore {
	return AutoStore{}
}

type AutoStore struct{}

func activeStore() KVStore {
	if config.GetRedisDB() != nil {
		return RedisStore{}
	}
	if config.GetDB() != nil {
		return GormStore{}
	}
	return memStore
}

func (AutoStore) Get(key string) ([]byte, bool, error) { return activeStore().Get(key) }
func (AutoStore) Set(key string, value []byte) error   { return activeStore().Set(key, value) }
func (AutoStore) Remove(key string) error              { return activeStore().Remove(key) }
func (AutoStore) SetAdd(setKey string, member string) error {
	return activeStore().SetAdd(setKey, member)
}
func (AutoStore) SetRemove(setKey string, member string) error {
	return activeStore().SetRemove(setKey, member)
}
func (AutoStore) SetHas(setKey string, member string) (bool, error) {
	return activeStore().SetHas(setKey, member)
}
func (AutoStore) SetMembers(setKey string) ([]string, error) {
	return activeStore().SetMembers(setKey)
}

type RedisStore struct{}

func (RedisStore) Get(key string) ([]byte, bool, error) {
	rdb := config.GetRedisDB()
	if rdb == nil {
		return nil, false, nil
	}
	val, err := rdb.Get(config.GetRedisContext(), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

func (RedisStore) Set(key string, value []byte) error {
	rdb := config.GetRedisDB()
	if rdb == nil {
		return nil
	}
	return rdb.Set(config.GetRedisContext(), key, value, 0).Err()
}

func (RedisStore) Remove(key string) error {
	return config.RemoveRedisKey(key)
}

func (RedisStore) SetAdd(setKey string, member string) error {
	return config.AddRedisSet(setKey, member)
}

func (RedisStore) SetRemove(setKey string, member string) error {
	return config.RemoveRedisSetMember(setKey, member)
}

func (RedisStore) SetHas(setKey string, member string) (bool, error) {
	return config.RedisSetHasMember(setKey, member)
}

func (RedisStore) SetMembers(setKey string) ([]string, error) {
	return config.GetRedisSetMembers(setKey)
}

type GormStore struct{}

func (GormStore) Get(key string) ([]byte, bool, error) {
	db := config.GetDB()
	if db == nil {
		return nil, false, nil
	}
	var entry models.KvEntry
	if err := db.Where("`key` = ?", key).Take(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value, true, nil
}

func (GormStore) Set(key string, value []byte) error {
	db := config.GetDB()
	if db == nil {
		return nil
	}
	entry := models.KvEntry{Key: key, Value: value}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error
}

func (GormStore) Remove(key string) error {
	db := config.GetDB()
	if db == nil {
		return nil
	}
	return db.Where("`key` = ?", key).Delete(&models.KvEntry{}).Error
}

func (GormStore) SetAdd(setKey string, member string) error {
	db := config.GetDB()
	if db == nil {
		return nil
	}
	row := models.KvSetMember{SetKey: setKey, Member: member}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (GormStore) SetRemove(setKey string, member string) error {
	db := config.GetDB()
	if db == nil {
		return nil
	}
	return db.Where("set_key = ? AND member = ?", setKey, member).Delete(&models.KvSetMember{}).Error
}

func (GormStore) SetHas(setKey string, member string) (bool, error) {
	db := config.GetDB()
	if db == nil {
		return false, nil
	}
	var count int64
	err := db.Model(&models.KvSetMember{}).
		Where("set_key = ? AND member = ?", setKey, member).
		Count(&count).Error
	return count > 0, err
}

func (GormStore) SetMembers(setKey string) ([]string, error) {
	db := config.GetDB()
	if db == nil {
		return nil, nil
	}
	var members []string
	err := db.Model(&models.KvSetMember{}).
		Where("set_key = ?", setKey).
		Pluck("member", &members).Error
	return members, err
}

type MemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
	sets   map[string]map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: map[string][]byte{},
		sets:   map[string]map[string]bool{},
	}
}

func (m *MemoryStore) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) SetAdd(setKey string, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[setKey] == nil {
		m.sets[setKey] = map[string]bool{}
	}
	m.sets[setKey][member] = true
	return nil
}

func (m *MemoryStore) SetRemove(setKey string, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets[setKey], member)
	return nil
}

func (m *MemoryStore) SetHas(setKey string, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets[setKey][member], nil
}

func (m *MemoryStore) SetMembers(setKey string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members := make([]string, 0, len(m.sets[setKey]))
	for member := range m.sets[setKey] {
		members = append(members, member)
	}
	return members, nil
}

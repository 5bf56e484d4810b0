package certificate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no certificate matches the lookup.
var ErrNotFound = errors.New("certificate not found")

// Repository is the persistence boundary for issued certificates. The engine
// only appends; certificates are never updated.
type Repository interface {
	Save(ctx context.Context, cert *Certificate) error
	GetByID(ctx context.Context, id uuid.UUID) (*Certificate, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*Certificate, error)
	// List returns certificates newest first. A non-positive limit returns
	// everything.
	List(ctx context.Context, limit int) ([]*Certificate, error)
}

// Record is the database row for one certificate. The full certificate is
// kept as a JSON payload next to the indexed lookup columns.
type Record struct {
	ID          string         `gorm:"primaryKey;type:uuid"`
	FarmerID    string         `gorm:"index;not null"`
	Fingerprint string         `gorm:"uniqueIndex;not null"`
	Overall     float64        `gorm:"not null"`
	Tier        string         `gorm:"not null"`
	Approved    bool           `gorm:"not null"`
	IssuedAt    time.Time      `gorm:"index;not null"`
	Payload     datatypes.JSON `gorm:"not null"`
	CreatedAt   time.Time
}

// TableName keeps the table name stable across gorm naming strategies.
func (Record) TableName() string {
	return "certificates"
}

// GormRepository persists certificates in Postgres.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates the repository and migrates the schema.
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate certificates: %w", err)
	}
	return &GormRepository{db: db}, nil
}

func (r *GormRepository) Save(ctx context.Context, cert *Certificate) error {
	payload, err := json.Marshal(cert)
	if err != nil {
		return fmt.Errorf("encode certificate %s: %w", cert.ID, err)
	}
	record := Record{
		ID:          cert.ID.String(),
		FarmerID:    cert.FarmerID,
		Fingerprint: cert.Fingerprint,
		Overall:     cert.Score.Overall,
		Tier:        string(cert.Decision.Tier),
		Approved:    cert.Decision.Approved,
		IssuedAt:    cert.IssuedAt,
		Payload:     payload,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("save certificate %s: %w", cert.ID, err)
	}
	return nil
}

func (r *GormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Certificate, error) {
	var record Record
	err := r.db.WithContext(ctx).First(&record, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load certificate %s: %w", id, err)
	}
	return decodeRecord(&record)
}

func (r *GormRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*Certificate, error) {
	var record Record
	err := r.db.WithContext(ctx).First(&record, "fingerprint = ?", fingerprint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load certificate by fingerprint: %w", err)
	}
	return decodeRecord(&record)
}

func (r *GormRepository) List(ctx context.Context, limit int) ([]*Certificate, error) {
	query := r.db.WithContext(ctx).Order("issued_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []Record
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	certs := make([]*Certificate, 0, len(records))
	for i := range records {
		cert, err := decodeRecord(&records[i])
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

func decodeRecord(record *Record) (*Certificate, error) {
	var cert Certificate
	if err := json.Unmarshal(record.Payload, &cert); err != nil {
		return nil, fmt.Errorf("decode certificate %s: %w", record.ID, err)
	}
	return &cert, nil
}

// MemoryRepository is an in-memory Repository for tests and the one-shot CLI.
type MemoryRepository struct {
	mu    sync.RWMutex
	certs map[uuid.UUID]*Certificate
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{certs: make(map[uuid.UUID]*Certificate)}
}

func (r *MemoryRepository) Save(_ context.Context, cert *Certificate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *cert
	r.certs[cert.ID] = &copied
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cert, ok := r.certs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *cert
	return &copied, nil
}

func (r *MemoryRepository) GetByFingerprint(_ context.Context, fingerprint string) (*Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cert := range r.certs {
		if cert.Fingerprint == fingerprint {
			copied := *cert
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) List(_ context.Context, limit int) ([]*Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	certs := make([]*Certificate, 0, len(r.certs))
	for _, cert := range r.certs {
		copied := *cert
		certs = append(certs, &copied)
	}
	sort.Slice(certs, func(i, j int) bool {
		return certs[i].IssuedAt.After(certs[j].IssuedAt)
	})
	if limit > 0 && len(certs) > limit {
		certs = certs[:limit]
	}
	return certs, nil
}

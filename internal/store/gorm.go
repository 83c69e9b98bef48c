package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/UmudovRavan/Autoria-Final-sub000/internal/domain"
)

// Gorm is the Postgres-backed Store.
type Gorm struct {
	db *gorm.DB
}

func OpenGorm(dsn string) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(
		&domain.Auction{},
		&domain.Lot{},
		&domain.Bid{},
		&domain.ProxyRegistration{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) SaveAuction(ctx context.Context, a *domain.Auction) error {
	return wrap(g.db.WithContext(ctx).Save(a).Error)
}

func (g *Gorm) Auction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	var a domain.Auction
	err := g.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap(err)
	}
	return &a, nil
}

func (g *Gorm) ListAuctions(ctx context.Context) ([]domain.Auction, error) {
	var out []domain.Auction
	if err := g.db.WithContext(ctx).Order("starts_at").Find(&out).Error; err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

func (g *Gorm) SaveLot(ctx context.Context, l *domain.Lot) error {
	return wrap(g.db.WithContext(ctx).Save(l).Error)
}

func (g *Gorm) LotsByAuction(ctx context.Context, auctionID uuid.UUID) ([]domain.Lot, error) {
	var out []domain.Lot
	err := g.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("sequence").
		Find(&out).Error
	if err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

// SaveTransition writes the whole transition in one database
// transaction, so a mid-sequence failure rolls every row back.
func (g *Gorm) SaveTransition(ctx context.Context, t Transition) error {
	return wrap(g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, b := range t.Bids {
			if err := tx.Create(b).Error; err != nil {
				return err
			}
		}
		if t.BidStatus != nil {
			if err := tx.Model(&domain.Bid{}).
				Where("id = ?", t.BidStatus.BidID).
				Update("status", t.BidStatus.Status).Error; err != nil {
				return err
			}
		}
		if t.SaveProxy != nil {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "lot_id"}, {Name: "bidder_id"}},
				UpdateAll: true,
			}).Create(t.SaveProxy).Error; err != nil {
				return err
			}
		}
		if t.DeleteProxy != nil {
			if err := tx.Delete(&domain.ProxyRegistration{},
				"lot_id = ? AND bidder_id = ?", t.DeleteProxy.LotID, t.DeleteProxy.BidderID).Error; err != nil {
				return err
			}
		}
		if t.Lot != nil {
			if err := tx.Save(t.Lot).Error; err != nil {
				return err
			}
		}
		return nil
	}))
}

func (g *Gorm) BidsByLot(ctx context.Context, lotID uuid.UUID) ([]domain.Bid, error) {
	var out []domain.Bid
	err := g.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		Order("placed_at").
		Find(&out).Error
	if err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

func (g *Gorm) ProxiesByLot(ctx context.Context, lotID uuid.UUID) ([]domain.ProxyRegistration, error) {
	var out []domain.ProxyRegistration
	err := g.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		Order("seq").
		Find(&out).Error
	if err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
}

package postgres

import (
	"gorm.io/gorm"

	documentmodel "storage-marketplace/internal/core/datamodel/document"
	documentpkg "storage-marketplace/internal/document"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) documentpkg.Repository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *documentmodel.BookingDocument) error {
	return r.db.Create(doc).Error
}

func (r *DocumentRepository) GetByID(id int64) (*documentmodel.BookingDocument, error) {
	var doc documentmodel.BookingDocument
	err := r.db.First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByBookingID(bookingID int64) ([]*documentmodel.BookingDocument, error) {
	var docs []*documentmodel.BookingDocument
	err := r.db.Where("booking_id = ?", bookingID).Order("created_at ASC").Find(&docs).Error
	return docs, err
}

func (r *DocumentRepository) Update(doc *documentmodel.BookingDocument) error {
	return r.db.Save(doc).Error
}

package services

import (
	"log"
	"time"

	"github.com/doha-pm/dpm-api/models"
	"gorm.io/gorm"
)

// CloseTender moves a tender from Open to Under_Evaluation with a single
// conditional update. It returns true when this call performed the
// transition and false when the tender was not found or another actor (the
// scheduled close, a manual status change) already moved it out of Open.
// The losing side of that race must treat false as a benign no-op.
func CloseTender(db *gorm.DB, tenderID uint) (bool, error) {
	result := db.Model(&models.Tender{}).
		Where("id = ? AND status = ?", tenderID, models.TenderStatusOpen).
		Update("status", models.TenderStatusUnderEvaluation)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ArmTenderClosing schedules the automatic close of a tender at its closing
// date, replacing any previously armed close for the same tender
func ArmTenderClosing(db *gorm.DB, tenderID uint, closingDate time.Time) {
	GetScheduler().Arm(tenderID, closingDate, func() {
		closed, err := CloseTender(db, tenderID)
		if err != nil {
			log.Printf("Failed to close tender %d at closing date: %v", tenderID, err)
			return
		}
		if closed {
			log.Printf("Tender %d status updated to %s", tenderID, models.TenderStatusUnderEvaluation)
		}
	})
}

// RecoverTenderSchedules restores the at-most-one-pending-close invariant
// after a restart. Armed timers are volatile, so every tender still Open is
// either closed on the spot (closing date already passed) or re-armed.
// It runs once, synchronously, at process startup.
func RecoverTenderSchedules(db *gorm.DB) error {
	var tenders []models.Tender
	if err := db.Where("status = ?", models.TenderStatusOpen).Find(&tenders).Error; err != nil {
		return err
	}

	now := time.Now()
	for _, tender := range tenders {
		if tender.ClosingDate.Before(now) {
			closed, err := CloseTender(db, tender.ID)
			if err != nil {
				log.Printf("Recovery sweep failed to close tender %d: %v", tender.ID, err)
				continue
			}
			if closed {
				log.Printf("Tender %q status updated to %s", tender.TenderNumber, models.TenderStatusUnderEvaluation)
			}
		} else {
			ArmTenderClosing(db, tender.ID, tender.ClosingDate)
			log.Printf("Scheduler for tender %d is set at %s", tender.ID, tender.ClosingDate)
		}
	}

	return nil
}

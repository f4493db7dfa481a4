package archive

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Winner is one adjudicated claim in a finished game, keyed by room, epoch
// and claim type so re-recording a finished room is a no-op.
type Winner struct {
	ID         uint   `gorm:"primaryKey"`
	RoomCode   string `gorm:"size:6;uniqueIndex:idx_room_epoch_claim"`
	Epoch      int64  `gorm:"uniqueIndex:idx_room_epoch_claim"`
	ClaimType  string `gorm:"size:32;uniqueIndex:idx_room_epoch_claim"`
	WinnerName string
	CreatedAt  time.Time
}

// Archive persists final winners when a room finishes. It is optional
// infrastructure: a nil *Archive disables recording without branching at
// the call sites.
type Archive struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(dsn string, log *zap.Logger) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Winner{}); err != nil {
		return nil, err
	}
	return &Archive{db: db, log: log}, nil
}

// RecordWinners writes one row per claim winner. Conflicting rows (same
// room, epoch and claim) are left as first recorded.
func (a *Archive) RecordWinners(roomCode string, epoch int64, winners map[string]string) {
	if a == nil || len(winners) == 0 {
		return
	}
	rows := make([]Winner, 0, len(winners))
	for claimType, name := range winners {
		rows = append(rows, Winner{
			RoomCode:   roomCode,
			Epoch:      epoch,
			ClaimType:  claimType,
			WinnerName: name,
		})
	}
	err := a.db.Clauses(onConflictDoNothing()).Create(&rows).Error
	if err != nil {
		a.log.Error("archive winners failed",
			zap.String("room", roomCode),
			zap.Int64("epoch", epoch),
			zap.Error(err))
		return
	}
	a.log.Info("archived winners",
		zap.String("room", roomCode),
		zap.Int64("epoch", epoch),
		zap.Int("count", len(rows)))
}

// Winners returns the recorded results for a room, newest epoch first.
func (a *Archive) Winners(roomCode string) ([]Winner, error) {
	if a == nil {
		return nil, nil
	}
	var rows []Winner
	err := a.db.Where("room_code = ?", roomCode).
		Order("epoch desc, claim_type asc").
		Find(&rows).Error
	return rows, err
}

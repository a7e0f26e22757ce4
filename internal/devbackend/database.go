// Package devbackend is a stand-in for the trading backend. It serves the same
// REST surface over a local sqlite database so the dashboard can run without
// an exchange connection.
package devbackend

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDatabase opens the sqlite database at dsn and migrates the schema.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&TradeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return db, nil
}

// Seed inserts a sample book of trades when the table is empty.
func Seed(db *gorm.DB, now time.Time) error {
	var count int64
	if err := db.Model(&TradeRecord{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count trades: %w", err)
	}
	if count > 0 {
		return nil
	}

	d := decimal.RequireFromString
	closed := now.Add(-2 * time.Hour)
	samples := []struct {
		rec TradeRecord
		tps []decimal.Decimal
	}{
		{TradeRecord{OrderID: "1001", Symbol: "BTCUSDT", Side: "Buy", Status: "OPEN", EntryPrice: d("64250.5"), CurrentPrice: d("65010.2"), Quantity: d("0.05"), StopLoss: decimal.NewNullDecimal(d("62800")), Leverage: 10, PnLPercent: d("11.82"), BotName: "trend-follower"},
			[]decimal.Decimal{d("66000"), d("68000"), d("70000")}},
		{TradeRecord{OrderID: "1002", Symbol: "ETHUSDT", Side: "Sell", Status: "TP1_HIT", EntryPrice: d("3420"), CurrentPrice: d("3350.75"), Quantity: d("1.2"), StopLoss: decimal.NewNullDecimal(d("3420")), Leverage: 5, PnLPercent: d("10.13"), BotName: "range-scalper"},
			[]decimal.Decimal{d("3380"), d("3300"), d("3200")}},
		{TradeRecord{OrderID: "1003", Symbol: "SOLUSDT", Side: "Buy", Status: "CLOSED", EntryPrice: d("142.3"), CurrentPrice: d("151.9"), Quantity: d("20"), Leverage: 3, PnLPercent: d("20.24"), BotName: "trend-follower", ClosedAt: &closed, Notes: "closed at final target"},
			[]decimal.Decimal{d("148"), d("152")}},
		{TradeRecord{OrderID: "1004", Symbol: "DOGEUSDT", Side: "Buy", Status: "CANCELED", EntryPrice: d("0.162"), CurrentPrice: d("0.158"), Quantity: d("5000"), Leverage: 2, BotName: "breakout", ClosedAt: &closed, Notes: "entry never triggered"},
			nil},
		{TradeRecord{OrderID: "1005", Symbol: "XRPUSDT", Side: "Sell", Status: "NEW", EntryPrice: d("0.615"), CurrentPrice: d("0.603"), Quantity: d("1500"), StopLoss: decimal.NewNullDecimal(d("0.64")), Leverage: 8, PnLPercent: d("15.61")},
			[]decimal.Decimal{d("0.59")}},
	}

	for i, s := range samples {
		rec := s.rec
		rec.CreatedAt = now.Add(-time.Duration(len(samples)-i) * 3 * time.Hour)
		if err := rec.SetTakeProfits(s.tps...); err != nil {
			return err
		}
		if err := db.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to seed trade %s: %w", rec.OrderID, err)
		}
	}
	return nil
}

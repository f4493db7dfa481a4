package archive

import "gorm.io/gorm/clause"

func onConflictDoNothing() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{
			{Name: "room_code"},
			{Name: "epoch"},
			{Name: "claim_type"},
		},
		DoNothing: true,
	}
}

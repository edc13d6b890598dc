package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Profile{},
		&UserProgress{},
		&Checkin{},
		&Achievement{},
		&Mission{},
		&UserMission{},
		&ChestType{},
		&UserChest{},
		&ShopItem{},
		&InventoryItem{},
		&Boss{},
		&BossEncounter{},
		&Squad{},
		&SquadMember{},
		&PushToken{},
		&CoachMessage{},
		&PaymentEvent{},
		&AnalyticsEvent{},
	}
}

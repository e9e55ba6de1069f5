package model

import "time"

// Drink types. DrinkCustom carries its own name and emoji.
const (
	DrinkBeer      = "beer"
	DrinkWine      = "wine"
	DrinkCocktail  = "cocktail"
	DrinkShot      = "shot"
	DrinkSpirit    = "spirit"
	DrinkCider     = "cider"
	DrinkChampagne = "champagne"
	DrinkWater     = "water"
	DrinkCustom    = "custom"
)

var drinkTypes = map[string]bool{
	DrinkBeer: true, DrinkWine: true, DrinkCocktail: true, DrinkShot: true,
	DrinkSpirit: true, DrinkCider: true, DrinkChampagne: true,
	DrinkWater: true, DrinkCustom: true,
}

// ValidDrinkType reports whether t is a known drink type.
func ValidDrinkType(t string) bool { return drinkTypes[t] }

// Drink is one logged drink, immutable once created, owned by a night.
type Drink struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NightID    int64     `gorm:"index:idx_drink_night;not null" json:"night_id"`
	Type       string    `gorm:"size:16;not null" json:"type"`
	CustomName string    `gorm:"size:64" json:"custom_name"`
	Emoji      string    `gorm:"size:8" json:"emoji"`
	LoggedAt   time.Time `gorm:"not null" json:"logged_at"`
}

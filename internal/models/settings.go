package models

// Settings holds user preferences persisted alongside the habit data.
type Settings struct {
	Timezone string `json:"timezone"`
}
